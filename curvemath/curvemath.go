// Package curvemath implements the numerical primitives shared by the
// motion profile solver: a damped Newton iteration for cubic and
// quadratic polynomials, closed-form quadratic roots, and the
// displacement-to-step quantizer.
package curvemath

import "math"

// maxNewtonIterations bounds every Newton loop below. Real calls
// converge in 2-5 iterations because the caller always supplies a
// warm-started guess; the cap only guards a pathological input.
const maxNewtonIterations = 64

// NewtonCubic finds x such that a*x^3 + b*x^2 + c*x + d == 0, starting
// from x0 and stopping once successive iterates differ by at most tol,
// or once the step size repeats exactly (stagnation), in which case the
// last iterate is returned. It reports ok == false (the caller's
// not-a-number sentinel) if the step size grows between iterations, if
// maxNewtonIterations is exceeded, or if the result is not finite.
func NewtonCubic(a, b, c, d, x0, tol float64) (x float64, ok bool) {
	f := func(x float64) float64 { return ((a*x+b)*x+c)*x + d }
	df := func(x float64) float64 { return (3*a*x+2*b)*x + c }
	return newton(f, df, x0, tol)
}

// NewtonQuadratic finds x such that a*x^2 + b*x + c == 0 via damped
// Newton iteration, starting from x0. Used when a closed-form root is
// inconvenient to select (e.g. when the caller already has a nearby
// warm-started guess and prefers not to branch on sign of root).
func NewtonQuadratic(a, b, c, x0, tol float64) (x float64, ok bool) {
	f := func(x float64) float64 { return (a*x+b)*x + c }
	df := func(x float64) float64 { return 2*a*x + b }
	return newton(f, df, x0, tol)
}

func newton(f, df func(float64) float64, x0, tol float64) (float64, bool) {
	x1 := x0 - f(x0)/df(x0)
	errCur := math.Abs(x1 - x0)
	errPrev := math.MaxFloat64

	for i := 0; errCur > tol && errCur != errPrev; i++ {
		if i >= maxNewtonIterations {
			return 0, false
		}
		x0 = x1
		x1 = x0 - f(x0)/df(x0)
		errPrev = errCur
		errCur = math.Abs(x1 - x0)
		if errCur > errPrev {
			return 0, false
		}
	}
	if math.IsNaN(x1) || math.IsInf(x1, 0) {
		return 0, false
	}
	return x1, true
}

// QuadraticPositiveRoot returns the root (-b+√disc)/(2a) of
// a*x^2+b*x+c==0 (the larger root when a > 0, the smaller when a < 0),
// reporting ok == false when the discriminant is negative or the root
// itself is negative.
func QuadraticPositiveRoot(a, b, c float64) (x float64, ok bool) {
	disc := b*b - 4*a*c
	switch {
	case disc > 0:
		x = (-b + math.Sqrt(disc)) / (2 * a)
	case disc == 0:
		x = -b / (2 * a)
	default:
		return 0, false
	}
	if x < 0 {
		return 0, false
	}
	return x, true
}

// QuadraticNegativeRoot returns the root (-b-√disc)/(2a) of
// a*x^2+b*x+c==0 (the smaller root when a > 0, the larger when a < 0),
// reporting ok == false when the discriminant is negative or the root
// itself is negative.
func QuadraticNegativeRoot(a, b, c float64) (x float64, ok bool) {
	disc := b*b - 4*a*c
	switch {
	case disc > 0:
		x = (-b - math.Sqrt(disc)) / (2 * a)
	case disc == 0:
		x = -b / (2 * a)
	default:
		return 0, false
	}
	if x < 0 {
		return 0, false
	}
	return x, true
}

// StepsForDisplacement maps a real displacement s to a whole step count
// at resolution alpha (steps per unit), rounding down unless s*alpha is
// within eps below the next integer, in which case it rounds up.
func StepsForDisplacement(s, alpha, eps float64) int {
	r := s * alpha
	k := math.Ceil(r)
	if k-r < eps {
		return int(k)
	}
	return int(k) - 1
}
