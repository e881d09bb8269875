package remote

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gwillem/meped/pkg/quad"
	"github.com/gwillem/meped/pkg/robot"
)

func noSleep(context.Context, time.Duration) error { return nil }

type memStore struct {
	table quad.TrimTable
}

func (s *memStore) LoadTrimTable() (quad.TrimTable, error) { return s.table, nil }
func (s *memStore) SaveTrimTable(t quad.TrimTable) error   { s.table = t; return nil }

func newTestController(t *testing.T, store quad.TrimStore) (*Controller, *robot.SimBus) {
	t.Helper()
	bus := robot.NewSimBus()
	c, err := NewController(Config{
		Bus:    bus,
		Store:  store,
		Logger: zerolog.Nop(),
		Sleep:  noSleep,
	})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return c, bus
}

func TestNewController_LoadsTrim(t *testing.T) {
	store := &memStore{table: quad.TrimTable{2, 0, 0, 0, 0, 0, 0, -2}}
	c, bus := newTestController(t, store)

	if c.Body().Model().Trim() != store.table {
		t.Errorf("Trim() = %v, want %v", c.Body().Model().Trim(), store.table)
	}

	if _, err := c.Execute(context.Background(), CmdCenter); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	got, _ := bus.ReadAngles(context.Background())
	if got[quad.FrontLeftPivot] != 92 {
		t.Errorf("trimmed front left pivot = %f, want 92", got[quad.FrontLeftPivot])
	}
}

func TestExecute_Center(t *testing.T) {
	c, _ := newTestController(t, nil)
	b := c.Body()

	res, err := c.Execute(context.Background(), CmdCenter)
	if err != nil || res.Status != quad.StatusDone {
		t.Fatalf("Execute(center) = %+v, %v", res, err)
	}
	h := b.BodyHeight()
	if want := (quad.Pose{90, h, 90, h, 90, h, 90, h}); b.Model().Positions() != want {
		t.Errorf("positions = %v, want %v", b.Model().Positions(), want)
	}
}

func TestExecute_WalkStopsOnNewCommand(t *testing.T) {
	c, _ := newTestController(t, nil)
	c.Send(CmdStop)

	res, err := c.Execute(context.Background(), CmdForward)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Aborted() || res.Ticks != 0 {
		t.Errorf("Execute(forward) = %+v, want aborted after 0 ticks", res)
	}

	// The interrupting command is kept for the main loop.
	cmd, err := c.next(context.Background())
	if err != nil || cmd != CmdStop {
		t.Errorf("next() = %s, %v, want stop", cmd, err)
	}
}

func TestExecute_TwistStopsOnNewCommand(t *testing.T) {
	c, _ := newTestController(t, nil)
	c.Send(CmdCenter)

	res, err := c.Execute(context.Background(), CmdTwistLeft)
	if err != nil || !res.Aborted() {
		t.Errorf("Execute(twist left) = %+v, %v, want aborted", res, err)
	}
}

func TestExecute_Speed(t *testing.T) {
	c, _ := newTestController(t, nil)
	ctx := context.Background()
	start := c.Body().Speed()

	c.Execute(ctx, CmdFaster)
	if c.Body().Speed() <= start {
		t.Errorf("speed %f not above %f", c.Body().Speed(), start)
	}

	for i := 0; i < 50; i++ {
		c.Execute(ctx, CmdSlower)
	}
	if c.Body().Speed() != MinSpeed {
		t.Errorf("speed = %f, want %f", c.Body().Speed(), MinSpeed)
	}
	for i := 0; i < 50; i++ {
		c.Execute(ctx, CmdFaster)
	}
	if c.Body().Speed() != MaxSpeed {
		t.Errorf("speed = %f, want %f", c.Body().Speed(), MaxSpeed)
	}
}

func TestExecute_ToggleGait(t *testing.T) {
	c, _ := newTestController(t, nil)

	c.Execute(context.Background(), CmdToggleGait)
	if c.Gait().Name != quad.Trot.Name {
		t.Errorf("gait = %s, want trot", c.Gait().Name)
	}
	c.Execute(context.Background(), CmdToggleGait)
	if c.Gait().Name != quad.Creep.Name {
		t.Errorf("gait = %s, want creep", c.Gait().Name)
	}
}

func TestExecute_BodyHeight(t *testing.T) {
	c, _ := newTestController(t, nil)
	b := c.Body()
	ctx := context.Background()

	if _, err := c.Execute(ctx, CmdTall); err != nil {
		t.Fatal(err)
	}
	if b.BodyHeight() != b.HeightAngle(tallPercent) {
		t.Errorf("BodyHeight() = %f, want %f", b.BodyHeight(), b.HeightAngle(tallPercent))
	}

	before := b.BodyHeight()
	if _, err := c.Execute(ctx, CmdBodyDown); err != nil {
		t.Fatal(err)
	}
	if b.BodyHeight() <= before {
		t.Errorf("BodyHeight() = %f, want lower body than %f", b.BodyHeight(), before)
	}
}

func TestExecute_Unknown(t *testing.T) {
	c, _ := newTestController(t, nil)
	if _, err := c.Execute(context.Background(), Command(99)); err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestSaveTrim(t *testing.T) {
	c, _ := newTestController(t, nil)
	if err := c.SaveTrim(); err == nil {
		t.Error("SaveTrim without store should fail")
	}

	store := &memStore{}
	c, _ = newTestController(t, store)
	c.Body().Model().ApplyTrim(quad.BackLeftPivot, 3)
	if err := c.SaveTrim(); err != nil {
		t.Fatalf("SaveTrim: %v", err)
	}
	if store.table[quad.BackLeftPivot] != 3 {
		t.Errorf("saved %v", store.table)
	}
}

func TestStart_RunsUntilCancelled(t *testing.T) {
	c, bus := newTestController(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	c.Send(CmdTall)
	deadline := time.After(5 * time.Second)
	for bus.Writes() == 0 {
		select {
		case <-deadline:
			t.Fatal("no servo writes")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Start() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return")
	}

	// Shut down: body fully lowered.
	for _, lift := range quad.Lifts() {
		if got := c.Body().Model().Position(lift); got != quad.DefaultLiftMaxAngle {
			t.Errorf("%s = %f after shutdown, want %f", lift, got, quad.DefaultLiftMaxAngle)
		}
	}
}

func TestLogs(t *testing.T) {
	c, _ := newTestController(t, nil)
	c.Execute(context.Background(), CmdFaster)

	select {
	case msg := <-c.Logs():
		if !strings.Contains(msg, "Command: faster") {
			t.Errorf("first log = %q", msg)
		}
	default:
		t.Fatal("no log message")
	}
}

func TestStart_ShutdownCommand(t *testing.T) {
	c, _ := newTestController(t, nil)
	c.Send(CmdShutdown)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for _, lift := range quad.Lifts() {
		if got := c.Body().Model().Position(lift); got != quad.DefaultLiftMaxAngle {
			t.Errorf("%s = %f after shutdown, want %f", lift, got, quad.DefaultLiftMaxAngle)
		}
	}
}

func TestStates(t *testing.T) {
	c, _ := newTestController(t, nil)
	if _, err := c.Execute(context.Background(), CmdLow); err != nil {
		t.Fatal(err)
	}

	select {
	case s := <-c.States():
		if s.Error != nil {
			t.Errorf("state error: %v", s.Error)
		}
		if s.Positions[quad.FrontRightLift] != c.Body().Model().Position(quad.FrontRightLift) {
			t.Errorf("state positions %v do not match model", s.Positions)
		}
	default:
		t.Fatal("no state published")
	}
}

func TestCommand_Continuous(t *testing.T) {
	for _, cmd := range []Command{CmdForward, CmdBackward, CmdLeft, CmdRight, CmdTwistLeft, CmdTwistRight} {
		if !cmd.Continuous() {
			t.Errorf("%s should be continuous", cmd)
		}
	}
	for _, cmd := range []Command{CmdStop, CmdCenter, CmdTall, CmdShutdown} {
		if cmd.Continuous() {
			t.Errorf("%s should not be continuous", cmd)
		}
	}
}
