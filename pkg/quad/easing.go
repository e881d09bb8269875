package quad

// Easing maps the elapsed fraction of a trajectory [0, 1] to the fraction of
// the travel covered.
type Easing interface {
	Interpolate(fraction float64) float64
}

// EasingFunc adapts a plain function to Easing.
type EasingFunc func(fraction float64) float64

func (f EasingFunc) Interpolate(fraction float64) float64 {
	return f(fraction)
}

var (
	// Linear moves at constant speed.
	Linear Easing = EasingFunc(linear)

	// Quadratic accelerates over the first half and brakes over the second.
	Quadratic Easing = EasingFunc(quadraticInOut)

	// QuadraticBouncing travels to the target over the first half of the
	// trajectory and returns to the start over the second half.
	QuadraticBouncing Easing = EasingFunc(quadraticBouncing)
)

func linear(f float64) float64 {
	return f
}

func quadraticInOut(f float64) float64 {
	if f < 0.5 {
		return 2 * f * f
	}
	f = 1 - f
	return 1 - 2*f*f
}

func quadraticBouncing(f float64) float64 {
	if f <= 0.5 {
		return quadraticInOut(2 * f)
	}
	return quadraticInOut(2 - 2*f)
}
