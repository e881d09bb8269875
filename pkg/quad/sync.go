package quad

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// Tick is the trajectory and input polling period.
const Tick = 20 * time.Millisecond

// Status is the outcome of a single step of a synchronized move.
type Status int

const (
	StatusContinue Status = iota
	StatusDone
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusContinue:
		return "continue"
	case StatusDone:
		return "done"
	case StatusAborted:
		return "aborted"
	}
	return "unknown"
}

// Poller is checked once per tick. Returning true stops the running move.
type Poller interface {
	Poll() bool
}

// PollFunc adapts a plain function to Poller.
type PollFunc func() bool

func (f PollFunc) Poll() bool {
	return f()
}

// Result describes a finished or aborted move.
//
// After an aborted move the actuators are somewhere between their start and
// target positions.
type Result struct {
	Status Status
	Ticks  int
	Speeds [NumActuators]float64
}

// Aborted reports whether the move was stopped before all actuators arrived.
func (r Result) Aborted() bool {
	return r.Status == StatusAborted
}

// SyncConfig holds configuration for a Synchronizer.
type SyncConfig struct {
	Tick   time.Duration
	Poll   Poller
	Logger zerolog.Logger

	// Sleep waits between ticks. Defaults to a context aware time.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Synchronizer drives groups of actuators so they arrive together.
type Synchronizer struct {
	model  *Model
	tick   time.Duration
	poll   Poller
	sleep  func(ctx context.Context, d time.Duration) error
	log    zerolog.Logger
	active [NumActuators]bool
	ticks  int
}

// NewSynchronizer creates a synchronizer operating on m.
func NewSynchronizer(m *Model, cfg SyncConfig) *Synchronizer {
	if cfg.Tick <= 0 {
		cfg.Tick = Tick
	}
	if cfg.Poll == nil {
		cfg.Poll = PollFunc(func() bool { return false })
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	return &Synchronizer{
		model: m,
		tick:  cfg.Tick,
		poll:  cfg.Poll,
		sleep: cfg.Sleep,
		log:   cfg.Logger,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// PlanSpeeds returns per actuator speeds so every actuator moving from
// `from` to `to` arrives at the same time, with the slowest one travelling at
// speed deg/s. Actuators already at their target get speed 0.
func PlanSpeeds(from, to Pose, speed float64) [NumActuators]float64 {
	var speeds [NumActuators]float64
	if speed <= 0 {
		return speeds
	}

	var maxTime float64
	for i := range from {
		if t := math.Abs(to[i]-from[i]) / speed; t > maxTime {
			maxTime = t
		}
	}
	if maxTime == 0 {
		return speeds
	}

	for i := range from {
		speeds[i] = math.Abs(to[i]-from[i]) / maxTime
	}
	return speeds
}

// Start begins a trajectory for every actuator towards target using the
// given per actuator speeds.
func (s *Synchronizer) Start(target Pose, speeds [NumActuators]float64) {
	for _, a := range AllActuators() {
		s.model.StartTrajectory(a, target[a], speeds[a])
		s.active[a] = true
	}
	s.ticks = 0
}

// Step polls for cancellation, then advances every active actuator by one
// tick in physical order and writes the result to the bus.
func (s *Synchronizer) Step(ctx context.Context) (Status, error) {
	if ctx.Err() != nil || s.poll.Poll() {
		return StatusAborted, nil
	}

	done := true
	for _, a := range AllActuators() {
		if s.active[a] && !s.model.AdvanceOneTick(a, s.tick) {
			done = false
		}
	}
	s.ticks++

	if err := s.model.Flush(ctx); err != nil {
		return StatusAborted, err
	}
	if done {
		return StatusDone, nil
	}
	return StatusContinue, nil
}

func (s *Synchronizer) settled() bool {
	for _, a := range AllActuators() {
		if s.active[a] && !s.model.Settled(a) {
			return false
		}
	}
	return true
}

// Wait steps the started move once per tick until every actuator arrived or
// the move was stopped.
func (s *Synchronizer) Wait(ctx context.Context) (Result, error) {
	if s.settled() {
		return Result{Status: StatusDone}, nil
	}

	for {
		// A cancelled sleep is picked up by the next step.
		_ = s.sleep(ctx, s.tick)

		status, err := s.Step(ctx)
		if err != nil {
			return Result{Status: status, Ticks: s.ticks}, err
		}
		if status != StatusContinue {
			return Result{Status: status, Ticks: s.ticks}, nil
		}
	}
}

// Move plans, starts and waits for a synchronized move of all actuators to
// target. The slowest actuator moves at speed deg/s.
func (s *Synchronizer) Move(ctx context.Context, target Pose, speed float64) (Result, error) {
	from := s.model.Positions()
	speeds := PlanSpeeds(from, target, speed)
	s.Start(target, speeds)

	// Speed 0 settles at once, so the jump still has to reach the bus.
	if s.settled() && from != s.model.Positions() {
		if err := s.model.Flush(ctx); err != nil {
			return Result{Status: StatusAborted, Speeds: speeds}, err
		}
	}

	res, err := s.Wait(ctx)
	res.Speeds = speeds
	s.logResult(res, "synchronized move")
	return res, err
}

// MoveOneAndWait moves a single actuator to angle at speed deg/s with the
// same polling and abort behaviour as Move.
func (s *Synchronizer) MoveOneAndWait(ctx context.Context, a Actuator, angle, speed float64) (Result, error) {
	s.active = [NumActuators]bool{}
	s.active[a] = true
	s.ticks = 0

	from := s.model.Position(a)
	s.model.StartTrajectory(a, angle, speed)
	if s.settled() && from != angle {
		if err := s.model.Flush(ctx); err != nil {
			return Result{Status: StatusAborted}, err
		}
	}

	res, err := s.Wait(ctx)
	res.Speeds[a] = speed
	s.logResult(res, "single move")
	return res, err
}

func (s *Synchronizer) logResult(res Result, msg string) {
	if res.Aborted() {
		s.log.Info().Int("ticks", res.Ticks).Msg(msg + " aborted")
		return
	}
	s.log.Debug().Int("ticks", res.Ticks).Msg(msg + " done")
}
