package robot

import (
	"math"
	"testing"

	"github.com/gwillem/meped/pkg/quad"
)

func TestServoCalibration_Raw(t *testing.T) {
	cal := ServoCalibration{
		RangeMin: 1000,
		RangeMax: 3000,
	}

	tests := []struct {
		angle    float64
		trim     int
		expected int
	}{
		{0, 0, 1000},    // 0 -> min
		{180, 0, 3000},  // 180 -> max
		{90, 0, 2000},   // 90 -> mid
		{45, 0, 1500},   // quarter
		{135, 0, 2500},  // three-quarter
		{80, 10, 2000},  // trim shifts the angle
		{-20, 0, 1000},  // clamped low
		{175, 10, 3000}, // clamped high after trim
	}

	for _, tt := range tests {
		got := cal.Raw(tt.angle, tt.trim)
		if got != tt.expected {
			t.Errorf("Raw(%f, %d) = %d, want %d", tt.angle, tt.trim, got, tt.expected)
		}
	}
}

func TestServoCalibration_Reverse(t *testing.T) {
	cal := ServoCalibration{
		DriveMode: DriveReverse,
		RangeMin:  1000,
		RangeMax:  3000,
	}

	if got := cal.Raw(0, 0); got != 3000 {
		t.Errorf("Raw(0) = %d, want 3000", got)
	}
	if got := cal.Raw(45, 0); got != 2500 {
		t.Errorf("Raw(45) = %d, want 2500", got)
	}
	if got := cal.Angle(2500); math.Abs(got-45) > 0.001 {
		t.Errorf("Angle(2500) = %f, want 45", got)
	}
}

func TestServoCalibration_RoundTrip(t *testing.T) {
	for _, mode := range []int{DriveNormal, DriveReverse} {
		cal := ServoCalibration{
			DriveMode: mode,
			RangeMin:  823,
			RangeMax:  3540,
		}

		// Test round-trip: angle -> raw -> angle
		for angle := 0.0; angle <= 180; angle += 5 {
			raw := cal.Raw(angle, 0)
			back := cal.Angle(raw)
			if math.Abs(back-angle) > 0.1 {
				t.Errorf("mode %d: round-trip failed: %f -> %d -> %f", mode, angle, raw, back)
			}
		}
	}
}

func TestServoCalibration_EmptyRange(t *testing.T) {
	cal := ServoCalibration{RangeMin: 2000, RangeMax: 2000}
	if got := cal.Angle(1234); got != quad.NeutralAngle {
		t.Errorf("Angle() = %f, want %f", got, quad.NeutralAngle)
	}
}

func TestCalibration_ServoIDs(t *testing.T) {
	ids := DefaultCalibration().ServoIDs()
	expected := []int{1, 2, 3, 4, 5, 6, 7, 8}

	if len(ids) != len(expected) {
		t.Fatalf("ServoIDs returned %d IDs, want %d", len(ids), len(expected))
	}

	for i, id := range ids {
		if id != expected[i] {
			t.Errorf("ServoIDs()[%d] = %d, want %d", i, id, expected[i])
		}
	}
}

func TestCalibration_ByID(t *testing.T) {
	cal := Calibration{
		"front_left_pivot": ServoCalibration{ID: 11, RangeMin: 100, RangeMax: 200},
		"front_right_lift": ServoCalibration{ID: 18, RangeMin: 300, RangeMax: 400},
	}

	// Test finding existing ID
	a, sc, ok := cal.ByID(11)
	if !ok {
		t.Fatal("ByID(11) returned false")
	}
	if a != quad.FrontLeftPivot {
		t.Errorf("ByID(11) returned %s, want front_left_pivot", a)
	}
	if sc.RangeMin != 100 {
		t.Errorf("ByID(11) returned wrong calibration: %+v", sc)
	}

	// Missing entries fall back to the default IDs
	a, _, ok = cal.ByID(4)
	if !ok || a != quad.BackLeftLift {
		t.Errorf("ByID(4) = %s, %v, want back_left_lift", a, ok)
	}

	// Test non-existing ID
	_, _, ok = cal.ByID(99)
	if ok {
		t.Error("ByID(99) should return false")
	}
}

func TestCalibration_TrimTable(t *testing.T) {
	cal := DefaultCalibration()
	want := quad.TrimTable{0, 1, -1, 2, -2, 3, -3, 4}

	cal.SetTrimTable(want)
	if got := cal.TrimTable(); got != want {
		t.Errorf("TrimTable() = %v, want %v", got, want)
	}
	if cal["back_right_lift"].Trim != 3 {
		t.Errorf("back_right_lift trim = %d, want 3", cal["back_right_lift"].Trim)
	}
}

func TestDefaultCalibration_ReversedLifts(t *testing.T) {
	cal := DefaultCalibration()
	for _, a := range quad.AllActuators() {
		want := DriveNormal
		if a == quad.BackLeftLift || a == quad.FrontRightLift {
			want = DriveReverse
		}
		if got := cal.For(a).DriveMode; got != want {
			t.Errorf("%s drive mode = %d, want %d", a, got, want)
		}
	}
}
