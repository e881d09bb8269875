package robot

import (
	"math"

	"github.com/gwillem/meped/pkg/quad"
)

// Drive modes of a servo.
const (
	DriveNormal  = 0
	DriveReverse = 1
)

// ServoCalibration holds calibration data for a single servo.
type ServoCalibration struct {
	ID        int `toml:"id"`
	DriveMode int `toml:"drive_mode"`
	RangeMin  int `toml:"range_min"` // raw position at 0 degrees
	RangeMax  int `toml:"range_max"` // raw position at 180 degrees
	Trim      int `toml:"trim"`
}

// Calibration holds calibration data for all servos, keyed by actuator name.
type Calibration map[string]ServoCalibration

// DefaultCalibration returns the calibration of a stock build with STS servos,
// where 180 degrees span half a turn (2048 steps) centered on 2048.
func DefaultCalibration() Calibration {
	cal := make(Calibration, quad.NumActuators)
	for _, a := range quad.AllActuators() {
		sc := ServoCalibration{
			ID:       DefaultServoID(a),
			RangeMin: 1024,
			RangeMax: 3072,
		}
		if reversedByDefault[a] {
			sc.DriveMode = DriveReverse
		}
		cal[a.Name()] = sc
	}
	return cal
}

// Raw converts an angle in degrees [0, 180] plus trim to a raw servo position.
// Angles outside the range are clamped.
func (c ServoCalibration) Raw(angle float64, trim int) int {
	angle += float64(trim)
	if c.DriveMode == DriveReverse {
		angle = 180 - angle
	}
	angle = math.Max(0, math.Min(180, angle))
	rangeSize := float64(c.RangeMax - c.RangeMin)
	return int(math.Round(angle/180*rangeSize)) + c.RangeMin
}

// Angle converts a raw servo position back to degrees, without trim.
func (c ServoCalibration) Angle(raw int) float64 {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	if rangeSize == 0 {
		return quad.NeutralAngle
	}
	angle := float64(raw-c.RangeMin) / rangeSize * 180
	if c.DriveMode == DriveReverse {
		angle = 180 - angle
	}
	return angle
}

// For returns the calibration of actuator a, falling back to the default.
func (c Calibration) For(a quad.Actuator) ServoCalibration {
	if sc, ok := c[a.Name()]; ok {
		return sc
	}
	return DefaultCalibration()[a.Name()]
}

// ServoIDs returns the servo IDs in actuator order.
func (c Calibration) ServoIDs() []int {
	ids := make([]int, 0, quad.NumActuators)
	for _, a := range quad.AllActuators() {
		ids = append(ids, c.For(a).ID)
	}
	return ids
}

// ByID returns the actuator and calibration for a given servo ID.
func (c Calibration) ByID(id int) (quad.Actuator, ServoCalibration, bool) {
	for _, a := range quad.AllActuators() {
		if sc := c.For(a); sc.ID == id {
			return a, sc, true
		}
	}
	return 0, ServoCalibration{}, false
}

// TrimTable collects the trim of every servo. Missing entries count as 0.
func (c Calibration) TrimTable() quad.TrimTable {
	var t quad.TrimTable
	for _, a := range quad.AllActuators() {
		if sc, ok := c[a.Name()]; ok {
			t[a] = sc.Trim
		}
	}
	return t
}

// SetTrimTable stores t in the calibration of every servo.
func (c Calibration) SetTrimTable(t quad.TrimTable) {
	for _, a := range quad.AllActuators() {
		sc := c.For(a)
		sc.Trim = t[a]
		c[a.Name()] = sc
	}
}
