// Package meped drives a mePed V2 quadruped: eight hobby servos, a pivot
// and a lift per leg, on a Feetech serial bus.
//
// Leg commands are written once for a logical leg layout and routed to the
// physical servos for the requested travel direction, so one gait table
// walks forward, backward and sideways. All servos move in lockstep and
// finish together; a new command from the keyboard interrupts a move
// between ticks.
//
// # Installation
//
//	go install github.com/gwillem/meped/cmd/meped@latest
//
// # Usage
//
// First, run setup to find the servo bus and write meped.toml:
//
//	meped setup
//
// Straighten the legs by trimming each servo:
//
//	meped calibrate
//
// Then walk with the arrow keys:
//
//	meped run
//
// Every command accepts --sim to run without hardware.
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/meped: CLI with setup, calibrate, run and transform commands
//   - pkg/quad: Index transformation, pose composition, synchronized motion and gaits
//   - pkg/robot: Servo bus, calibration, configuration and trim storage
//   - pkg/remote: Keyboard command dispatcher
package meped
