package quad

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Defaults of the mePed V2 frame.
const (
	DefaultSpeed        = 90.0 // deg/s
	DefaultLiftMinAngle = 10.0
	DefaultLiftMaxAngle = 150.0
	DefaultHeightStep   = 2.0
)

// TrimStore persists the trim table.
//
// A store that was never written returns an all zero table and no error.
type TrimStore interface {
	LoadTrimTable() (TrimTable, error)
	SaveTrimTable(TrimTable) error
}

// BodyConfig holds configuration for a Body.
type BodyConfig struct {
	Speed        float64
	LiftMinAngle float64 // highest body posture
	LiftMaxAngle float64 // lowest body posture
	BodyHeight   float64 // initial lift angle, defaults to LiftMinAngle + 20
	HeightStep   float64
	Logger       zerolog.Logger
}

// Body composes poses from leg commands and moves the robot through them.
//
// Lift angles grow as the body gets lower.
type Body struct {
	model  *Model
	sync   *Synchronizer
	next   Pose
	speed  float64
	height float64

	liftMin    float64
	liftMax    float64
	heightStep float64

	log zerolog.Logger
}

// NewBody creates a body on top of a model and its synchronizer.
func NewBody(m *Model, s *Synchronizer, cfg BodyConfig) *Body {
	if cfg.Speed <= 0 {
		cfg.Speed = DefaultSpeed
	}
	if cfg.LiftMinAngle == 0 && cfg.LiftMaxAngle == 0 {
		cfg.LiftMinAngle = DefaultLiftMinAngle
		cfg.LiftMaxAngle = DefaultLiftMaxAngle
	}
	if cfg.BodyHeight == 0 {
		cfg.BodyHeight = cfg.LiftMinAngle + 20
	}
	if cfg.HeightStep <= 0 {
		cfg.HeightStep = DefaultHeightStep
	}
	return &Body{
		model:      m,
		sync:       s,
		next:       m.Positions(),
		speed:      cfg.Speed,
		height:     cfg.BodyHeight,
		liftMin:    cfg.LiftMinAngle,
		liftMax:    cfg.LiftMaxAngle,
		heightStep: cfg.HeightStep,
		log:        cfg.Logger,
	}
}

// Model returns the actuator model the body drives.
func (b *Body) Model() *Model {
	return b.model
}

// Next returns the staged pose.
func (b *Body) Next() Pose {
	return b.next
}

// Speed returns the shared default speed in deg/s.
func (b *Body) Speed() float64 {
	return b.speed
}

// SetSpeed sets the shared default speed. Non positive values are ignored.
func (b *Body) SetSpeed(degreesPerSecond float64) {
	if degreesPerSecond <= 0 {
		return
	}
	b.speed = degreesPerSecond
	b.log.Debug().Float64("speed", b.speed).Msg("speed changed")
}

// BodyHeight returns the lift angle the body rests at.
func (b *Body) BodyHeight() float64 {
	return b.height
}

// Commit moves all actuators to the staged pose.
func (b *Body) Commit(ctx context.Context) (Result, error) {
	return b.sync.Move(ctx, b.next, b.speed)
}

func (b *Body) commitIf(ctx context.Context, commit bool) (Result, error) {
	if !commit {
		return Result{}, nil
	}
	return b.Commit(ctx)
}

// SetAllLegs stages pivot and lift angles given per logical leg (FL, BL, BR,
// FR) for travel in direction dir. With mirror set, left and right legs swap
// and pivot angles are inverted. Lift angles are never inverted.
//
// Without commit the pose is only staged and the zero Result is returned.
func (b *Body) SetAllLegs(ctx context.Context, pivots, lifts [NumLegs]float64, dir Direction, mirror, commit bool) (Result, error) {
	for leg, role := range Pivots() {
		idx, invert := TransformIndex(role, dir, mirror)
		angle := pivots[leg]
		if invert {
			angle = InvertAngle(angle)
		}
		b.next[idx] = angle
		b.next[idx.Lift()] = lifts[leg]
	}
	return b.commitIf(ctx, commit)
}

// SetPivotsOnly is SetAllLegs without touching the lift targets.
func (b *Body) SetPivotsOnly(ctx context.Context, pivots [NumLegs]float64, dir Direction, mirror, commit bool) (Result, error) {
	for leg, role := range Pivots() {
		idx, invert := TransformIndex(role, dir, mirror)
		angle := pivots[leg]
		if invert {
			angle = InvertAngle(angle)
		}
		b.next[idx] = angle
	}
	return b.commitIf(ctx, commit)
}

// SetLiftsUniform moves all lift actuators to the same angle.
func (b *Body) SetLiftsUniform(ctx context.Context, angle float64) (Result, error) {
	return b.SetLiftsIndividual(ctx, angle, angle, angle, angle)
}

// SetLiftsIndividual moves the lift actuators to the given physical angles.
func (b *Body) SetLiftsIndividual(ctx context.Context, fl, bl, br, fr float64) (Result, error) {
	b.next[FrontLeftLift] = fl
	b.next[BackLeftLift] = bl
	b.next[BackRightLift] = br
	b.next[FrontRightLift] = fr
	return b.Commit(ctx)
}

// SetAll moves all actuators to an untransformed pose.
func (b *Body) SetAll(ctx context.Context, p Pose) (Result, error) {
	b.next = p
	return b.Commit(ctx)
}

// HeightAngle maps a body height in percent to a lift angle. 0% is the
// lowest posture (LiftMaxAngle), 100% the highest (LiftMinAngle).
func (b *Body) HeightAngle(percent float64) float64 {
	percent = clamp(percent, 0, 100)
	return b.liftMax + (b.liftMin-b.liftMax)*percent/100
}

// SetBodyHeight eases every lift actuator, one after the other, to the angle
// matching percent.
func (b *Body) SetBodyHeight(ctx context.Context, percent float64) (Result, error) {
	angle := b.HeightAngle(percent)
	b.height = angle
	b.log.Debug().Float64("percent", percent).Float64("angle", angle).Msg("set body height")

	var res Result
	for _, lift := range Lifts() {
		b.next[lift] = angle
		r, err := b.sync.MoveOneAndWait(ctx, lift, angle, b.speed)
		res.Ticks += r.Ticks
		res.Speeds[lift] = r.Speeds[lift]
		res.Status = r.Status
		if err != nil || r.Aborted() {
			return res, err
		}
	}
	return res, nil
}

// SetLiftsToBodyHeight writes the body height to all lift actuators at once.
func (b *Body) SetLiftsToBodyHeight(ctx context.Context) error {
	for _, lift := range Lifts() {
		b.next[lift] = b.height
		if err := b.model.WriteNow(ctx, lift, b.height); err != nil {
			return err
		}
	}
	return nil
}

// RaiseBody lifts the body by one height step.
func (b *Body) RaiseBody(ctx context.Context) error {
	b.height = clamp(b.height-b.heightStep, b.liftMin, b.liftMax)
	return b.SetLiftsToBodyHeight(ctx)
}

// LowerBody lowers the body by one height step.
func (b *Body) LowerBody(ctx context.Context) error {
	b.height = clamp(b.height+b.heightStep, b.liftMin, b.liftMax)
	return b.SetLiftsToBodyHeight(ctx)
}

// Center moves all pivots to 90 degrees and all lifts to the body height.
func (b *Body) Center(ctx context.Context) (Result, error) {
	h := b.height
	return b.SetAll(ctx, Pose{90, h, 90, h, 90, h, 90, h})
}

// Shutdown lowers the body completely and centers the legs.
func (b *Body) Shutdown(ctx context.Context) (Result, error) {
	b.log.Info().Msg("shutdown servos")
	b.height = b.liftMax
	return b.Center(ctx)
}

// ResetToNeutral writes 90 degrees to all actuators without easing.
func (b *Body) ResetToNeutral(ctx context.Context) error {
	b.next = NeutralPose()
	return b.model.ResetToNeutral(ctx)
}

// UseLinearEasing selects linear easing for every actuator.
func (b *Body) UseLinearEasing() {
	for _, a := range AllActuators() {
		b.model.SetEasing(a, Linear)
	}
}

// UseMovingEasing selects linear easing for pivots and a bouncing curve for
// lifts, so a lift returns to its start within the same move.
func (b *Body) UseMovingEasing() {
	for _, a := range AllActuators() {
		if a.IsPivot() {
			b.model.SetEasing(a, Linear)
		} else {
			b.model.SetEasing(a, QuadraticBouncing)
		}
	}
}

// LoadTrim reads the trim table from store into the model.
func (b *Body) LoadTrim(store TrimStore) error {
	trim, err := store.LoadTrimTable()
	if err != nil {
		return fmt.Errorf("load trim: %w", err)
	}
	b.model.SetTrimTable(trim)
	for _, a := range AllActuators() {
		b.log.Debug().Stringer("servo", a).Int("trim", trim[a]).Msg("servo trim")
	}
	return nil
}

// SaveTrim writes the model's trim table to store.
func (b *Body) SaveTrim(store TrimStore) error {
	if err := store.SaveTrimTable(b.model.Trim()); err != nil {
		return fmt.Errorf("save trim: %w", err)
	}
	return nil
}

// AdjustTrim changes the trim of a by delta degrees and rewrites the servos.
func (b *Body) AdjustTrim(ctx context.Context, a Actuator, delta int) error {
	trim := b.model.Trim()
	b.model.ApplyTrim(a, trim[a]+delta)
	return b.model.Flush(ctx)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
