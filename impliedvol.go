package bsm

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/glog"
)

const (
	// Search bracket for the volatility root. The upper end is 500%
	// annualized, generous enough for any quote the model can rationalize.
	kSigmaLo = 1e-6
	kSigmaHi = 5.0

	kSigmaTolerance = 1e-10
	kMaxIterations  = 200
)

var (
	// ErrBelowIntrinsic reports a market price under the discounted
	// intrinsic floor. No positive volatility reproduces such a price.
	ErrBelowIntrinsic = errors.New("market price below intrinsic value")

	// ErrNotConverged reports that the root search exhausted its iteration
	// budget or could not bracket a root.
	ErrNotConverged = errors.New("implied volatility did not converge")
)

// Intrinsic returns the discounted no-arbitrage floor of the option price:
// max(0, S*e^{-qT} - K*e^{-rT}) for a call and the mirror for a put. This is
// the limit of the model price as volatility goes to zero.
func Intrinsic(p MarketParams, optType OptionType) float64 {
	discR := math.Exp(-p.RiskFreeRate * p.TimeToExpiry)
	discQ := math.Exp(-p.DividendYield * p.TimeToExpiry)
	if optType == Call {
		return math.Max(0, p.Spot*discQ-p.Strike*discR)
	}
	return math.Max(0, p.Strike*discR-p.Spot*discQ)
}

// ImpliedVol inverts the pricing formula over volatility: it finds the sigma
// in (kSigmaLo, kSigmaHi) whose model price matches marketPrice for the
// given option type. The Volatility field of p is ignored.
//
// Failure is always explicit: ErrBelowIntrinsic when the quote sits under
// the no-arbitrage floor, ErrNotConverged when the search cannot bracket a
// root or runs out of iterations. A quote exactly at the floor also fails
// with ErrNotConverged: the floor is the sigma->0 limit of the price and is
// never attained at a positive volatility, so no root exists. A successful
// result is always inside the bracket, never zero, NaN, or a bracket
// endpoint substituted for a missing root.
//
// The call-side and put-side implied volatilities of one quote are
// independent computations and need not agree when put-call parity is
// violated in the market data.
func ImpliedVol(marketPrice float64, p MarketParams, optType OptionType) (float64, error) {
	if !(marketPrice > 0) || math.IsInf(marketPrice, 0) {
		return 0, fmt.Errorf("%w: market price must be positive, got %v",
			ErrInvalidParams, marketPrice)
	}
	// The solver supplies its own trial volatilities; substitute a valid one
	// so the remaining fields get checked.
	if err := p.withVolatility(1).Validate(); err != nil {
		return 0, err
	}

	intrinsic := Intrinsic(p, optType)
	if marketPrice < intrinsic {
		glog.Info(fmt.Sprintf(
			"Implied vol rejected: %s price %v is below intrinsic %v.",
			optType, marketPrice, intrinsic))
		return 0, ErrBelowIntrinsic
	}
	if marketPrice == intrinsic {
		// The objective is positive over the whole bracket, so letting the
		// search run could only hand back the lower bracket edge.
		glog.Info(fmt.Sprintf(
			"Implied vol rejected: %s price %v equals the intrinsic floor.",
			optType, marketPrice))
		return 0, fmt.Errorf("%w: price equals the intrinsic floor",
			ErrNotConverged)
	}

	// The model price is strictly increasing in sigma, so the bracket holds
	// at most one root.
	objective := func(sigma float64) float64 {
		trial := p.withVolatility(sigma)
		terms := newBsTerms(trial)
		if optType == Call {
			return terms.callPrice(trial) - marketPrice
		}
		return terms.putPrice(trial) - marketPrice
	}

	sigma, err := brentq(objective, kSigmaLo, kSigmaHi, kSigmaTolerance,
		kMaxIterations)
	if err != nil {
		glog.Error(fmt.Sprintf(
			"Implied vol search failed for %s price %v: %v.",
			optType, marketPrice, err))
		return 0, err
	}
	return sigma, nil
}

// brentq finds a root of f in [lo, hi] with Brent's method: inverse
// quadratic interpolation and secant steps, falling back to bisection
// whenever a trial step misbehaves. f(lo) and f(hi) must differ in sign or
// the search fails with ErrNotConverged.
func brentq(f func(float64) float64, lo, hi, tol float64, maxIter int) (float64, error) {
	a, b := lo, hi
	fa, fb := f(a), f(b)

	if fa == 0 {
		return a, nil
	}
	if fb == 0 {
		return b, nil
	}
	if (fa > 0) == (fb > 0) {
		// Step 2 of the solver should make this unreachable, but a quote at
		// or above the large-sigma price limit still lands here.
		return 0, fmt.Errorf("%w: no sign change over [%v, %v]",
			ErrNotConverged, lo, hi)
	}

	c, fc := a, fa
	d := b - a
	e := d

	for i := 0; i < maxIter; i++ {
		if (fb > 0) == (fc > 0) {
			// Re-point c so the root stays between b and c.
			c, fc = a, fa
			d = b - a
			e = d
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, fa = b, fb
			b, fb = c, fc
			c, fc = a, fa
		}

		tol1 := 2*kMachineEpsilon*math.Abs(b) + 0.5*tol
		xm := 0.5 * (c - b)
		if math.Abs(xm) <= tol1 || fb == 0 {
			return b, nil
		}

		if math.Abs(e) >= tol1 && math.Abs(fa) > math.Abs(fb) {
			// Attempt inverse quadratic interpolation (secant when a == c).
			s := fb / fa
			var p, q float64
			if a == c {
				p = 2 * xm * s
				q = 1 - s
			} else {
				q = fa / fc
				r := fb / fc
				p = s * (2*xm*q*(q-r) - (b-a)*(r-1))
				q = (q - 1) * (r - 1) * (s - 1)
			}
			if p > 0 {
				q = -q
			}
			p = math.Abs(p)

			min1 := 3*xm*q - math.Abs(tol1*q)
			min2 := math.Abs(e * q)
			if 2*p < math.Min(min1, min2) {
				// Interpolation accepted.
				e = d
				d = p / q
			} else {
				d = xm
				e = d
			}
		} else {
			d = xm
			e = d
		}

		a, fa = b, fb
		if math.Abs(d) > tol1 {
			b += d
		} else {
			b += math.Copysign(tol1, xm)
		}
		fb = f(b)
	}

	return 0, fmt.Errorf("%w: %d iterations exhausted", ErrNotConverged,
		maxIter)
}

const kMachineEpsilon = 2.220446049250313e-16
