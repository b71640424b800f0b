package screening

import "math"

const goldenRatio = 0.3819660 // 1 - 1/phi

// brentMinimize finds the location of the minimum of f on [a, b] to within
// absTol, using Brent's method: parabolic interpolation through the three
// best points so far, falling back to a golden-section step whenever the
// parabolic step would leave the bracket or fails to shrink it sufficiently.
// This converges in roughly half the evaluations of pure golden section on
// smooth, unimodal-near-the-minimum curves like a miss-distance profile.
//
// Evaluations are capped at maxEvals as a hard backstop against
// non-convergent inputs; the best point found so far is returned regardless.
func brentMinimize(f func(float64) float64, a, b float64, absTol float64, maxEvals int) (xmin, fmin float64, evals int) {
	x := a + goldenRatio*(b-a)
	w, v := x, x
	fx := f(x)
	evals++
	fw, fv := fx, fx

	d, e := 0.0, 0.0

	for evals < maxEvals {
		mid := 0.5 * (a + b)
		tol1 := absTol
		tol2 := 2 * tol1

		if math.Abs(x-mid) <= tol2-0.5*(b-a) {
			break
		}

		useGolden := true
		if math.Abs(e) > tol1 {
			// Try a parabolic fit through (x, fx), (w, fw), (v, fv).
			r := (x - w) * (fx - fv)
			q := (x - v) * (fx - fw)
			p := (x-v)*q - (x-w)*r
			q = 2 * (q - r)
			if q > 0 {
				p = -p
			}
			q = math.Abs(q)
			etemp := e
			e = d

			if math.Abs(p) < math.Abs(0.5*q*etemp) && p > q*(a-x) && p < q*(b-x) {
				d = p / q
				u := x + d
				if u-a < tol2 || b-u < tol2 {
					d = sign(tol1, mid-x)
				}
				useGolden = false
			}
		}

		if useGolden {
			if x >= mid {
				e = a - x
			} else {
				e = b - x
			}
			d = goldenRatio * e
		}

		var u float64
		if math.Abs(d) >= tol1 {
			u = x + d
		} else {
			u = x + sign(tol1, d)
		}

		fu := f(u)
		evals++

		if fu <= fx {
			if u >= x {
				a = x
			} else {
				b = x
			}
			v, fv = w, fw
			w, fw = x, fx
			x, fx = u, fu
		} else {
			if u < x {
				a = u
			} else {
				b = u
			}
			if fu <= fw || w == x {
				v, fv = w, fw
				w, fw = u, fu
			} else if fu <= fv || v == x || v == w {
				v, fv = u, fu
			}
		}
	}

	return x, fx, evals
}

func sign(magnitude, signOf float64) float64 {
	if signOf >= 0 {
		return math.Abs(magnitude)
	}
	return -math.Abs(magnitude)
}
