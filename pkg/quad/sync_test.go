package quad

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// recordingBus keeps every pose written to it.
type recordingBus struct {
	writes []Pose
	trims  []TrimTable
	err    error
}

func (b *recordingBus) Write(ctx context.Context, angles Pose, trim TrimTable) error {
	if b.err != nil {
		return b.err
	}
	b.writes = append(b.writes, angles)
	b.trims = append(b.trims, trim)
	return nil
}

func noSleep(context.Context, time.Duration) error { return nil }

// stopAfter returns a poller that requests a stop on call n+1 and counts calls.
func stopAfter(n int, calls *int) Poller {
	return PollFunc(func() bool {
		*calls++
		return *calls > n
	})
}

func newTestSync(poll Poller) (*Model, *Synchronizer, *recordingBus) {
	bus := &recordingBus{}
	m := NewModel(bus, zerolog.Nop())
	s := NewSynchronizer(m, SyncConfig{Poll: poll, Sleep: noSleep})
	return m, s, bus
}

func TestPlanSpeeds_EqualArrival(t *testing.T) {
	from := NeutralPose()
	to := Pose{180, 45, 90, 10, 100, 170, 0, 90}

	speeds := PlanSpeeds(from, to, 90)

	var arrival float64
	for i := range from {
		delta := math.Abs(to[i] - from[i])
		if delta == 0 {
			if speeds[i] != 0 {
				t.Errorf("speed[%d] = %f for settled actuator, want 0", i, speeds[i])
			}
			continue
		}
		tm := delta / speeds[i]
		if arrival == 0 {
			arrival = tm
		}
		if math.Abs(tm-arrival) > 1e-9 {
			t.Errorf("actuator %d arrives after %fs, others after %fs", i, tm, arrival)
		}
	}

	// The largest move sets the pace at the shared speed.
	if math.Abs(speeds[FrontLeftPivot]-90) > 1e-9 {
		t.Errorf("fastest actuator speed = %f, want 90", speeds[FrontLeftPivot])
	}
}

func TestPlanSpeeds_NoMovement(t *testing.T) {
	speeds := PlanSpeeds(NeutralPose(), NeutralPose(), 90)
	if speeds != [NumActuators]float64{} {
		t.Errorf("PlanSpeeds without movement = %v, want all zero", speeds)
	}
}

func TestMove_ZeroMovement(t *testing.T) {
	var calls int
	_, s, bus := newTestSync(stopAfter(100, &calls))

	res, err := s.Move(context.Background(), NeutralPose(), 90)
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if res.Status != StatusDone || res.Ticks != 0 {
		t.Errorf("Move = %+v, want done after 0 ticks", res)
	}
	if calls != 0 {
		t.Errorf("poll called %d times, want 0", calls)
	}
	if len(bus.writes) != 0 {
		t.Errorf("bus written %d times, want 0", len(bus.writes))
	}
}

func TestMove_ReachesTargetTogether(t *testing.T) {
	m, s, bus := newTestSync(nil)
	target := NeutralPose()
	target[FrontLeftPivot] = 180 // 90 degrees at 90 deg/s: 1s, 50 ticks
	target[BackRightLift] = 45   // planned at 45 deg/s

	res, err := s.Move(context.Background(), target, 90)
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if res.Status != StatusDone {
		t.Fatalf("Move status = %s, want done", res.Status)
	}
	if res.Ticks != 50 {
		t.Errorf("Move took %d ticks, want 50", res.Ticks)
	}
	if m.Positions() != target {
		t.Errorf("positions = %v, want %v", m.Positions(), target)
	}
	if len(bus.writes) != res.Ticks {
		t.Errorf("bus written %d times, want once per tick (%d)", len(bus.writes), res.Ticks)
	}
	if math.Abs(res.Speeds[BackRightLift]-45) > 1e-9 {
		t.Errorf("planned speed = %f, want 45", res.Speeds[BackRightLift])
	}

	// Halfway through both actuators covered half their travel.
	half := bus.writes[24]
	if math.Abs(half[FrontLeftPivot]-135) > 1e-6 || math.Abs(half[BackRightLift]-67.5) > 1e-6 {
		t.Errorf("halfway pose = %v", half)
	}
}

func TestMove_AbortsOnPoll(t *testing.T) {
	var calls int
	m, s, _ := newTestSync(stopAfter(10, &calls))
	target := NeutralPose()
	target[FrontLeftPivot] = 180

	res, err := s.Move(context.Background(), target, 90)
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if !res.Aborted() {
		t.Fatalf("Move status = %s, want aborted", res.Status)
	}
	if res.Ticks != 10 {
		t.Errorf("aborted after %d ticks, want 10", res.Ticks)
	}
	// 10 of 50 ticks, linear: one fifth of the way.
	if got := m.Position(FrontLeftPivot); math.Abs(got-108) > 1e-6 {
		t.Errorf("position after abort = %f, want 108", got)
	}
	// Actuators that were already there stay there.
	if got := m.Position(BackLeftPivot); got != 90 {
		t.Errorf("settled actuator moved to %f", got)
	}
}

func TestMove_AbortKeepsArrivedActuator(t *testing.T) {
	var calls int
	m, s, _ := newTestSync(stopAfter(30, &calls))
	ctx := context.Background()

	// A quick single move finishes long before the stop request.
	if res, err := s.MoveOneAndWait(ctx, FrontLeftLift, 100, 90); err != nil || res.Aborted() {
		t.Fatalf("MoveOneAndWait = %+v, %v", res, err)
	}
	calls = 0

	target := m.Positions()
	target[FrontLeftPivot] = 180
	res, err := s.Move(ctx, target, 90)
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if !res.Aborted() || res.Ticks != 30 {
		t.Errorf("Move = %+v, want aborted after 30 ticks", res)
	}
	if got := m.Position(FrontLeftLift); got != 100 {
		t.Errorf("arrived actuator at %f, want 100", got)
	}
}

func TestMove_ContextCancel(t *testing.T) {
	m, s, _ := newTestSync(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	target := NeutralPose()
	target[BackLeftPivot] = 0
	res, err := s.Move(ctx, target, 90)
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if !res.Aborted() || res.Ticks != 0 {
		t.Errorf("Move = %+v, want aborted after 0 ticks", res)
	}
	if got := m.Position(BackLeftPivot); got != 90 {
		t.Errorf("position = %f, want unchanged 90", got)
	}
}

func TestMove_BusError(t *testing.T) {
	m, s, bus := newTestSync(nil)
	bus.err = errors.New("bus down")

	target := m.Positions()
	target[FrontRightPivot] = 0
	_, err := s.Move(context.Background(), target, 90)
	if !errors.Is(err, bus.err) {
		t.Errorf("Move error = %v, want %v", err, bus.err)
	}
}

func TestMove_ZeroSpeedJumps(t *testing.T) {
	m, s, bus := newTestSync(nil)
	target := NeutralPose()
	target[FrontRightLift] = 20

	res, err := s.Move(context.Background(), target, 0)
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if res.Status != StatusDone || res.Ticks != 0 {
		t.Errorf("Move = %+v, want done after 0 ticks", res)
	}
	if m.Position(FrontRightLift) != 20 || len(bus.writes) != 1 {
		t.Errorf("jump not written: position %f, %d writes", m.Position(FrontRightLift), len(bus.writes))
	}
}

func TestMoveOneAndWait(t *testing.T) {
	m, s, _ := newTestSync(nil)

	res, err := s.MoveOneAndWait(context.Background(), BackRightPivot, 0, 180)
	if err != nil {
		t.Fatalf("MoveOneAndWait: %v", err)
	}
	// 90 degrees at 180 deg/s is 500ms.
	if res.Status != StatusDone || res.Ticks != 25 {
		t.Errorf("MoveOneAndWait = %+v, want done after 25 ticks", res)
	}
	for _, a := range AllActuators() {
		want := 90.0
		if a == BackRightPivot {
			want = 0
		}
		if got := m.Position(a); got != want {
			t.Errorf("%s at %f, want %f", a, got, want)
		}
	}
}

func TestMoveOneAndWait_Aborts(t *testing.T) {
	var calls int
	_, s, _ := newTestSync(stopAfter(3, &calls))

	res, err := s.MoveOneAndWait(context.Background(), FrontLeftPivot, 0, 90)
	if err != nil {
		t.Fatalf("MoveOneAndWait: %v", err)
	}
	if !res.Aborted() || res.Ticks != 3 {
		t.Errorf("MoveOneAndWait = %+v, want aborted after 3 ticks", res)
	}
}

func TestStep_TriState(t *testing.T) {
	_, s, _ := newTestSync(nil)
	ctx := context.Background()

	target := NeutralPose()
	target[FrontLeftPivot] = 135 // 45 degrees at 90 deg/s: 25 ticks
	s.Start(target, PlanSpeeds(NeutralPose(), target, 90))

	var continues int
	for {
		st, err := s.Step(ctx)
		if err != nil {
			t.Fatalf("Step: %v", err)
		}
		if st == StatusDone {
			break
		}
		if st != StatusContinue {
			t.Fatalf("Step = %s, want continue or done", st)
		}
		continues++
		if continues > 100 {
			t.Fatal("move never finished")
		}
	}
	if continues != 24 {
		t.Errorf("got %d continue steps before done, want 24", continues)
	}
}

func TestMove_PassesTrimToBus(t *testing.T) {
	m, s, bus := newTestSync(nil)
	m.ApplyTrim(BackLeftLift, -4)

	target := NeutralPose()
	target[BackLeftLift] = 91.8
	if _, err := s.Move(context.Background(), target, 90); err != nil {
		t.Fatalf("Move: %v", err)
	}
	for i, trim := range bus.trims {
		if trim[BackLeftLift] != -4 {
			t.Errorf("write %d trim = %v", i, trim)
		}
	}
}

func TestMove_Deterministic(t *testing.T) {
	target := Pose{10, 30, 170, 60, 45, 120, 135, 80}

	_, s1, bus1 := newTestSync(nil)
	_, s2, bus2 := newTestSync(nil)
	r1, _ := s1.Move(context.Background(), target, 120)
	r2, _ := s2.Move(context.Background(), target, 120)

	if r1 != r2 {
		t.Fatalf("results differ: %+v vs %+v", r1, r2)
	}
	for i := range bus1.writes {
		if bus1.writes[i] != bus2.writes[i] {
			t.Fatalf("write %d differs: %v vs %v", i, bus1.writes[i], bus2.writes[i])
		}
	}
}
