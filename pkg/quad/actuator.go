// Package quad provides the locomotion core of an 8 servo quadruped.
package quad

import "fmt"

// Actuator identifies one of the 8 servos. The value is the physical index.
type Actuator int

// Actuators in physical order. Pivot and lift servos of a leg alternate.
const (
	FrontLeftPivot Actuator = iota
	FrontLeftLift
	BackLeftPivot
	BackLeftLift
	BackRightPivot
	BackRightLift
	FrontRightPivot
	FrontRightLift
)

const (
	NumActuators    = 8
	ActuatorsPerLeg = 2
	NumLegs         = NumActuators / ActuatorsPerLeg

	// LiftOffset is the distance from a leg's pivot to its lift actuator.
	LiftOffset = 1

	NeutralAngle = 90.0
)

var actuatorNames = [NumActuators]string{
	"front_left_pivot",
	"front_left_lift",
	"back_left_pivot",
	"back_left_lift",
	"back_right_pivot",
	"back_right_lift",
	"front_right_pivot",
	"front_right_lift",
}

// AllActuators returns all actuators in physical order.
func AllActuators() []Actuator {
	all := make([]Actuator, NumActuators)
	for i := range all {
		all[i] = Actuator(i)
	}
	return all
}

// Pivots returns the pivot actuators in leg order (FL, BL, BR, FR).
func Pivots() [NumLegs]Actuator {
	return [NumLegs]Actuator{FrontLeftPivot, BackLeftPivot, BackRightPivot, FrontRightPivot}
}

// Lifts returns the lift actuators in leg order (FL, BL, BR, FR).
func Lifts() [NumLegs]Actuator {
	return [NumLegs]Actuator{FrontLeftLift, BackLeftLift, BackRightLift, FrontRightLift}
}

// IsPivot reports whether a is a pivot (even index) actuator.
func (a Actuator) IsPivot() bool {
	return a%2 == 0
}

// Lift returns the lift actuator of the leg a belongs to.
func (a Actuator) Lift() Actuator {
	return a&^1 + LiftOffset
}

// Name returns the snake_case name used in config files.
func (a Actuator) Name() string {
	a.mustBeValid()
	return actuatorNames[a]
}

func (a Actuator) String() string {
	if a < 0 || a >= NumActuators {
		return fmt.Sprintf("Actuator(%d)", int(a))
	}
	return actuatorNames[a]
}

func (a Actuator) mustBeValid() {
	if a < 0 || a >= NumActuators {
		panic(fmt.Sprintf("quad: actuator %d out of range", int(a)))
	}
}

// ActuatorByName looks up an actuator by its config name.
func ActuatorByName(name string) (Actuator, bool) {
	for i, n := range actuatorNames {
		if n == name {
			return Actuator(i), true
		}
	}
	return 0, false
}

// Pose holds one target angle in degrees per actuator.
//
// Angles are expected in [0, 180]. Nothing in this package validates them.
type Pose [NumActuators]float64

// NeutralPose returns a pose with every actuator at 90 degrees.
func NeutralPose() Pose {
	var p Pose
	for i := range p {
		p[i] = NeutralAngle
	}
	return p
}

// TrimTable holds signed per actuator offsets in degrees.
type TrimTable [NumActuators]int
