package solvers

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnconverged is returned when a solver exhausts its iterations.
	ErrUnconverged = errors.New("failed to converge")

	// ErrNotBracketed is returned by Brent when f(a) and f(b) share a sign.
	ErrNotBracketed = errors.New("root is not bracketed")
)

// Func is a scalar residual.
type Func func(x float64) (float64, error)

// DefaultRelTol is the relative tolerance used by Brent.
const DefaultRelTol = 4 * 2.220446049250313e-16

// Secant finds a root of f starting from x0. Iteration stops when the step
// is smaller than xtol and, if ytol is positive, the residual is smaller
// than ytol.
func Secant(f Func, x0, xtol, ytol float64, maxiter int) (float64, error) {
	p0 := x0
	p1 := x0 * (1 + 1e-4)
	if x0 >= 0 {
		p1 += 1e-4
	} else {
		p1 -= 1e-4
	}
	q0, err := f(p0)
	if err != nil {
		return 0, err
	}
	q1, err := f(p1)
	if err != nil {
		return 0, err
	}

	for i := 0; i < maxiter; i++ {
		if q1 == q0 {
			// Flat secant: the two points cannot be improved on.
			return (p1 + p0) / 2, nil
		}
		p := p1 - q1*(p1-p0)/(q1-q0)
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return 0, fmt.Errorf("%w: step produced %v", ErrUnconverged, p)
		}
		if math.Abs(p-p1) < xtol && (ytol <= 0 || math.Abs(q1) < ytol) {
			return p, nil
		}
		p0, q0 = p1, q1
		p1 = p
		if q1, err = f(p1); err != nil {
			return 0, err
		}
	}
	return 0, fmt.Errorf("%w after %d iterations", ErrUnconverged, maxiter)
}

// Brent finds a root of f bracketed by [a, b] with Brent's method using
// hyperbolic extrapolation.
func Brent(f Func, a, b, xtol float64, maxiter int) (float64, error) {
	xpre, xcur := a, b
	fpre, err := f(xpre)
	if err != nil {
		return 0, err
	}
	fcur, err := f(xcur)
	if err != nil {
		return 0, err
	}
	if fpre*fcur > 0 {
		return 0, fmt.Errorf("%w: f(%g)=%g and f(%g)=%g", ErrNotBracketed, a, fpre, b, fcur)
	}
	if fpre == 0 {
		return xpre, nil
	}
	if fcur == 0 {
		return xcur, nil
	}

	var xblk, fblk, spre, scur float64
	for i := 0; i < maxiter; i++ {
		if fpre != 0 && fcur != 0 && math.Signbit(fpre) != math.Signbit(fcur) {
			xblk, fblk = xpre, fpre
			spre = xcur - xpre
			scur = spre
		}
		if math.Abs(fblk) < math.Abs(fcur) {
			xpre, xcur, xblk = xcur, xblk, xcur
			fpre, fcur, fblk = fcur, fblk, fcur
		}

		delta := (xtol + DefaultRelTol*math.Abs(xcur)) / 2
		sbis := (xblk - xcur) / 2
		if fcur == 0 || math.Abs(sbis) < delta {
			return xcur, nil
		}

		if math.Abs(spre) > delta && math.Abs(fcur) < math.Abs(fpre) {
			var stry float64
			if xpre == xblk {
				stry = -fcur * (xcur - xpre) / (fcur - fpre)
			} else {
				dpre := (fpre - fcur) / (xpre - xcur)
				dblk := (fblk - fcur) / (xblk - xcur)
				stry = -fcur * (fblk - fpre) / (fblk*dpre - fpre*dblk)
			}
			if 2*math.Abs(stry) < math.Min(math.Abs(spre), 3*math.Abs(sbis)-delta) {
				spre, scur = scur, stry
			} else {
				spre, scur = sbis, sbis
			}
		} else {
			spre, scur = sbis, sbis
		}

		xpre, fpre = xcur, fcur
		switch {
		case math.Abs(scur) > delta:
			xcur += scur
		case sbis > 0:
			xcur += delta
		default:
			xcur -= delta
		}
		if fcur, err = f(xcur); err != nil {
			return 0, err
		}
	}
	return 0, fmt.Errorf("%w after %d iterations", ErrUnconverged, maxiter)
}
