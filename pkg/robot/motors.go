// Package robot connects the quadruped core to feetech servos and to the
// on-disk configuration.
package robot

import "github.com/gwillem/meped/pkg/quad"

// DefaultServoID returns the bus ID of an actuator on a stock build: the
// physical index plus one.
func DefaultServoID(a quad.Actuator) int {
	return int(a) + 1
}

// reversedByDefault lists lift servos mounted mirrored on the frame.
var reversedByDefault = map[quad.Actuator]bool{
	quad.BackLeftLift:   true,
	quad.FrontRightLift: true,
}
