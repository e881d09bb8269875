package quad

import "fmt"

// Direction is the travel heading. Its value is the number of legs the
// logical roles are rotated by.
type Direction int

const (
	Forward Direction = iota
	Left
	Backward
	Right
)

// sideMask marks Left and Right.
const sideMask Direction = 0x1

const (
	mirrorMaskSide     = 0b010
	mirrorMaskStraight = 0b110
)

var directionNames = [...]string{"forward", "left", "backward", "right"}

func (d Direction) String() string {
	if d < 0 || int(d) >= len(directionNames) {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionNames[d]
}

// IsSide reports whether d is Left or Right.
func (d Direction) IsSide() bool {
	return d&sideMask != 0
}

// MirrorMask returns the value a physical index is XORed with to swap the
// left and right legs for travel in direction d.
func MirrorMask(d Direction) int {
	if d.IsSide() {
		return mirrorMaskSide
	}
	return mirrorMaskStraight
}

// TransformIndex maps a logical actuator to the physical actuator serving it
// when travelling in direction d, optionally mirrored. The second result
// reports whether a pivot angle sent there must be inverted (180 - angle).
//
// Direction Forward without mirroring is the identity. Mirroring swaps left
// and right legs; for Forward it is its own inverse.
func TransformIndex(a Actuator, d Direction, mirror bool) (Actuator, bool) {
	a.mustBeValid()
	if d < Forward || d > Right {
		panic(fmt.Sprintf("quad: direction %d out of range", int(d)))
	}

	idx := (int(a) + int(d)*ActuatorsPerLeg) % NumActuators
	if mirror {
		idx ^= MirrorMask(d)
	}
	return Actuator(idx), mirror
}

// InvertAngle mirrors a pivot angle around 90 degrees.
func InvertAngle(angle float64) float64 {
	return 180 - angle
}
