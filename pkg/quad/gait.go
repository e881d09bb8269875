package quad

import "context"

// StrideAngle is the pivot swing from center to the front or back end of a step.
const StrideAngle = 30.0

// LiftRaise is how many degrees a raised leg is lifted above the body height.
const LiftRaise = 40.0

// Frame is one pose of a gait, given per logical leg (FL, BL, BR, FR).
type Frame struct {
	Pivots [NumLegs]float64
	Raised [NumLegs]bool
}

// Gait is a cycle of frames. Playing all frames once moves the robot by one
// stride and brings every leg back to its starting position.
type Gait struct {
	Name   string
	Frames []Frame
}

// legSide is +1 for left legs and -1 for right legs, so a positive stride
// offset swings every leg towards the front.
var legSide = [NumLegs]float64{1, 1, -1, -1}

// stride builds a frame from stride offsets in [-1, 1] per leg.
func stride(offsets [NumLegs]float64, raised ...int) Frame {
	var f Frame
	for leg, off := range offsets {
		f.Pivots[leg] = NeutralAngle + legSide[leg]*off*StrideAngle
	}
	for _, leg := range raised {
		f.Raised[leg] = true
	}
	return f
}

// Logical leg positions in a Frame.
const (
	legFL = iota
	legBL
	legBR
	legFR
)

const third = 1.0 / 3

// Creep moves one leg at a time in the order FR, BL, FL, BR, keeping three
// feet on the ground.
var Creep = Gait{
	Name: "creep",
	Frames: []Frame{
		stride([NumLegs]float64{third, -third, 1, 1}, legFR),
		stride([NumLegs]float64{-third, -1, third, 1}),
		stride([NumLegs]float64{-third, 1, third, 1}, legBL),
		stride([NumLegs]float64{-1, 1, -third, third}),
		stride([NumLegs]float64{1, 1, -third, third}, legFL),
		stride([NumLegs]float64{1, third, -1, -third}),
		stride([NumLegs]float64{1, third, 1, -third}, legBR),
		stride([NumLegs]float64{third, -third, 1, -1}),
	},
}

// Trot moves diagonal leg pairs together.
var Trot = Gait{
	Name: "trot",
	Frames: []Frame{
		stride([NumLegs]float64{1, -1, 1, -1}, legFL, legBR),
		stride([NumLegs]float64{1, -1, 1, -1}),
		stride([NumLegs]float64{-1, 1, -1, 1}, legBL, legFR),
		stride([NumLegs]float64{-1, 1, -1, 1}),
	},
}

// twist rotates all pivots the same way, turning the body on the spot.
var twist = []Frame{
	{Pivots: [NumLegs]float64{90 + StrideAngle, 90 + StrideAngle, 90 + StrideAngle, 90 + StrideAngle}},
	{Pivots: [NumLegs]float64{90 - StrideAngle, 90 - StrideAngle, 90 - StrideAngle, 90 - StrideAngle}},
	{Pivots: [NumLegs]float64{90, 90, 90, 90}},
}

// Walk plays one cycle of g in direction dir. Mirroring swaps the roles of
// left and right legs. It stops at the first aborted frame.
func (b *Body) Walk(ctx context.Context, g Gait, dir Direction, mirror bool) (Result, error) {
	var total Result
	total.Status = StatusDone
	for _, f := range g.Frames {
		var lifts [NumLegs]float64
		for leg, up := range f.Raised {
			lifts[leg] = b.height
			if up {
				lifts[leg] = clamp(b.height+LiftRaise, b.liftMin, b.liftMax)
			}
		}

		res, err := b.SetAllLegs(ctx, f.Pivots, lifts, dir, mirror, true)
		total.Ticks += res.Ticks
		total.Status = res.Status
		if err != nil || res.Aborted() {
			return total, err
		}
	}
	b.log.Debug().Str("gait", g.Name).Stringer("direction", dir).Bool("mirror", mirror).Msg("gait cycle done")
	return total, nil
}

// Twist turns the body on the spot by swinging only the pivots. The mirror
// flag of the transform selects the turning sense.
func (b *Body) Twist(ctx context.Context, clockwise bool) (Result, error) {
	var total Result
	total.Status = StatusDone
	for _, f := range twist {
		res, err := b.SetPivotsOnly(ctx, f.Pivots, Forward, !clockwise, true)
		total.Ticks += res.Ticks
		total.Status = res.Status
		if err != nil || res.Aborted() {
			return total, err
		}
	}
	return total, nil
}
