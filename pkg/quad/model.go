package quad

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// Bus writes servo angles to hardware. Implementations add the trim offset of
// every actuator to its angle before writing.
type Bus interface {
	Write(ctx context.Context, angles Pose, trim TrimTable) error
}

// track is the eased trajectory state of a single actuator.
type track struct {
	pos      float64
	start    float64
	target   float64
	duration time.Duration
	elapsed  time.Duration
	easing   Easing
	moving   bool
}

func (t *track) begin(target, speed float64, easing Easing) {
	delta := math.Abs(target - t.pos)
	if delta == 0 || speed <= 0 {
		t.pos = target
		t.moving = false
		return
	}
	t.start = t.pos
	t.target = target
	t.duration = time.Duration(delta / speed * float64(time.Second))
	t.elapsed = 0
	t.easing = easing
	t.moving = true
}

func (t *track) advance(tick time.Duration) bool {
	if !t.moving {
		return true
	}
	t.elapsed += tick
	if t.elapsed < t.duration {
		fraction := float64(t.elapsed) / float64(t.duration)
		t.pos = t.start + (t.target-t.start)*t.easing.Interpolate(fraction)
		return false
	}

	t.moving = false
	if end := t.easing.Interpolate(1); end == 1 {
		t.pos = t.target
	} else {
		t.pos = t.start + (t.target-t.start)*end
	}
	return true
}

// Model owns the current position, trajectory and trim of all 8 actuators.
type Model struct {
	bus    Bus
	tracks [NumActuators]track
	easing [NumActuators]Easing
	trim   TrimTable
	log    zerolog.Logger
}

// NewModel creates a model with every actuator at 90 degrees and linear
// easing. Nothing is written to the bus until the first move.
func NewModel(bus Bus, log zerolog.Logger) *Model {
	m := &Model{bus: bus, log: log}
	for i := range m.tracks {
		m.tracks[i].pos = NeutralAngle
		m.easing[i] = Linear
	}
	return m
}

// Position returns the last commanded angle of a.
func (m *Model) Position(a Actuator) float64 {
	a.mustBeValid()
	return m.tracks[a].pos
}

// Positions returns the last commanded angle of every actuator.
func (m *Model) Positions() Pose {
	var p Pose
	for i := range m.tracks {
		p[i] = m.tracks[i].pos
	}
	return p
}

// Seed adopts positions read back from hardware and drops any trajectory.
func (m *Model) Seed(p Pose) {
	for i := range m.tracks {
		m.tracks[i] = track{pos: p[i]}
	}
}

// Trim returns a copy of the trim table.
func (m *Model) Trim() TrimTable {
	return m.trim
}

// SetTrimTable replaces the whole trim table.
func (m *Model) SetTrimTable(t TrimTable) {
	m.trim = t
}

// ApplyTrim records the trim offset of a. It takes effect on the next write.
func (m *Model) ApplyTrim(a Actuator, offset int) {
	a.mustBeValid()
	m.trim[a] = offset
}

// SetEasing selects the curve used by the next trajectory of a.
func (m *Model) SetEasing(a Actuator, e Easing) {
	a.mustBeValid()
	m.easing[a] = e
}

// StartTrajectory begins an eased move of a towards target at speed deg/s.
// A zero delta or non positive speed settles the actuator at target at once.
func (m *Model) StartTrajectory(a Actuator, target, speed float64) {
	a.mustBeValid()
	m.tracks[a].begin(target, speed, m.easing[a])
}

// AdvanceOneTick moves a along its trajectory by tick and reports whether it
// has reached the end.
func (m *Model) AdvanceOneTick(a Actuator, tick time.Duration) bool {
	a.mustBeValid()
	return m.tracks[a].advance(tick)
}

// Settled reports whether a has no trajectory in progress.
func (m *Model) Settled(a Actuator) bool {
	a.mustBeValid()
	return !m.tracks[a].moving
}

// Flush writes all current positions to the bus.
func (m *Model) Flush(ctx context.Context) error {
	if err := m.bus.Write(ctx, m.Positions(), m.trim); err != nil {
		return fmt.Errorf("write servos: %w", err)
	}
	return nil
}

// WriteNow sets a to angle immediately, bypassing easing.
func (m *Model) WriteNow(ctx context.Context, a Actuator, angle float64) error {
	a.mustBeValid()
	m.tracks[a] = track{pos: angle}
	return m.Flush(ctx)
}

// ResetToNeutral writes 90 degrees to every actuator immediately.
func (m *Model) ResetToNeutral(ctx context.Context) error {
	m.log.Debug().Msg("reset servos to 90 degree")
	m.Seed(NeutralPose())
	return m.Flush(ctx)
}
