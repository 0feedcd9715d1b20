package bsm

import (
	"errors"
	"math"
	"testing"
)

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func referenceParams() MarketParams {
	return MarketParams{
		Spot:          100,
		Strike:        100,
		TimeToExpiry:  1.0,
		RiskFreeRate:  0.05,
		DividendYield: 0,
		Volatility:    0.2,
	}
}

func TestPriceReferenceScenario(t *testing.T) {
	p := referenceParams()

	call, err := Price(p, Call)
	if err != nil {
		t.Fatalf("call err: %v", err)
	}
	put, err := Price(p, Put)
	if err != nil {
		t.Fatalf("put err: %v", err)
	}

	if !almostEqual(call, 10.450583572185565, 1e-9) {
		t.Fatalf("call price mismatch: got=%v", call)
	}
	if !almostEqual(put, 5.573526022256971, 1e-9) {
		t.Fatalf("put price mismatch: got=%v", put)
	}
}

func TestGreeksReferenceScenario(t *testing.T) {
	g, err := Greeks(referenceParams())
	if err != nil {
		t.Fatalf("greeks err: %v", err)
	}

	if !almostEqual(g.DeltaCall, 0.6368, 1e-4) {
		t.Fatalf("delta(call) mismatch: got=%v", g.DeltaCall)
	}
	if !almostEqual(g.Gamma, 0.0188, 1e-4) {
		t.Fatalf("gamma mismatch: got=%v", g.Gamma)
	}
	if !almostEqual(g.Vega, 37.524, 1e-3) {
		t.Fatalf("vega mismatch: got=%v", g.Vega)
	}
	if !almostEqual(g.D1, 0.35, 1e-12) {
		t.Fatalf("d1 mismatch: got=%v", g.D1)
	}
	if !almostEqual(g.D2, 0.15, 1e-12) {
		t.Fatalf("d2 mismatch: got=%v", g.D2)
	}
}

// A positive dividend yield must lower the call value and raise the put
// value relative to the no-dividend case.
func TestDividendYieldScenario(t *testing.T) {
	base, err := Greeks(referenceParams())
	if err != nil {
		t.Fatalf("greeks err: %v", err)
	}

	withYield := referenceParams()
	withYield.DividendYield = 0.03
	g, err := Greeks(withYield)
	if err != nil {
		t.Fatalf("greeks err: %v", err)
	}

	if g.CallPrice >= base.CallPrice {
		t.Fatalf("call should decrease with yield: %v >= %v",
			g.CallPrice, base.CallPrice)
	}
	if g.PutPrice <= base.PutPrice {
		t.Fatalf("put should increase with yield: %v <= %v",
			g.PutPrice, base.PutPrice)
	}

	// Regression values for the q=3% scenario: d1=0.2, d2=0.
	if !almostEqual(g.CallPrice, 8.65253, 1e-3) {
		t.Fatalf("call price mismatch: got=%v", g.CallPrice)
	}
	if !almostEqual(g.D2, 0, 1e-12) {
		t.Fatalf("d2 mismatch: got=%v", g.D2)
	}
}

func TestPutCallParity(t *testing.T) {
	cases := []MarketParams{
		{Spot: 100, Strike: 100, TimeToExpiry: 1, RiskFreeRate: 0.05, Volatility: 0.2},
		{Spot: 100, Strike: 110, TimeToExpiry: 0.5, RiskFreeRate: 0.03, DividendYield: 0.02, Volatility: 0.25},
		{Spot: 42, Strike: 40, TimeToExpiry: 0.25, RiskFreeRate: -0.01, DividendYield: 0.01, Volatility: 0.6},
		{Spot: 2500, Strike: 1800, TimeToExpiry: 2, RiskFreeRate: 0.07, DividendYield: -0.005, Volatility: 1.1},
		{Spot: 10, Strike: 200, TimeToExpiry: 0.1, RiskFreeRate: 0.02, Volatility: 0.05},
	}

	for _, p := range cases {
		call, err := Price(p, Call)
		if err != nil {
			t.Fatalf("call err: %v", err)
		}
		put, err := Price(p, Put)
		if err != nil {
			t.Fatalf("put err: %v", err)
		}

		lhs := call - put
		rhs := p.Spot*math.Exp(-p.DividendYield*p.TimeToExpiry) -
			p.Strike*math.Exp(-p.RiskFreeRate*p.TimeToExpiry)

		tol := 1e-9 * math.Max(1, math.Abs(rhs))
		if !almostEqual(lhs, rhs, tol) {
			t.Fatalf("parity violated for %+v: lhs=%v rhs=%v", p, lhs, rhs)
		}
	}
}

func TestPriceMonotonicInVolatility(t *testing.T) {
	for _, optType := range []OptionType{Call, Put} {
		prev := math.Inf(-1)
		for sigma := 0.05; sigma <= 5.0; sigma += 0.05 {
			p := referenceParams().withVolatility(sigma)
			price, err := Price(p, optType)
			if err != nil {
				t.Fatalf("%s price err at sigma=%v: %v", optType, sigma, err)
			}
			if price <= prev {
				t.Fatalf("%s price not increasing at sigma=%v: %v <= %v",
					optType, sigma, price, prev)
			}
			prev = price
		}
	}
}

// As volatility approaches zero the price collapses to the discounted
// intrinsic value.
func TestLowVolatilityBoundary(t *testing.T) {
	p := MarketParams{
		Spot:          120,
		Strike:        100,
		TimeToExpiry:  1,
		RiskFreeRate:  0.05,
		DividendYield: 0.01,
		Volatility:    1e-6,
	}

	call, err := Price(p, Call)
	if err != nil {
		t.Fatalf("call err: %v", err)
	}
	if !almostEqual(call, Intrinsic(p, Call), 1e-9) {
		t.Fatalf("call did not collapse to intrinsic: got=%v want=%v",
			call, Intrinsic(p, Call))
	}

	p.Spot = 80
	put, err := Price(p, Put)
	if err != nil {
		t.Fatalf("put err: %v", err)
	}
	if !almostEqual(put, Intrinsic(p, Put), 1e-9) {
		t.Fatalf("put did not collapse to intrinsic: got=%v want=%v",
			put, Intrinsic(p, Put))
	}
}

func TestGreekIdentities(t *testing.T) {
	p := MarketParams{
		Spot:          105,
		Strike:        95,
		TimeToExpiry:  0.75,
		RiskFreeRate:  0.04,
		DividendYield: 0.015,
		Volatility:    0.3,
	}
	g, err := Greeks(p)
	if err != nil {
		t.Fatalf("greeks err: %v", err)
	}

	discQ := math.Exp(-p.DividendYield * p.TimeToExpiry)
	if !almostEqual(g.DeltaCall-g.DeltaPut, discQ, 1e-12) {
		t.Fatalf("delta identity violated: %v - %v != %v",
			g.DeltaCall, g.DeltaPut, discQ)
	}

	callRes := g.Result(Call)
	putRes := g.Result(Put)
	if callRes.Gamma != putRes.Gamma || callRes.Vega != putRes.Vega {
		t.Fatalf("gamma/vega must not depend on option type")
	}
	if callRes.Price != g.CallPrice || putRes.Theta != g.ThetaPut {
		t.Fatalf("Result projected wrong fields")
	}
}

// Delta and vega are compared against central finite differences of the
// price function.
func TestGreeksMatchFiniteDifferences(t *testing.T) {
	p := MarketParams{
		Spot:          100,
		Strike:        110,
		TimeToExpiry:  0.5,
		RiskFreeRate:  0.03,
		DividendYield: 0.02,
		Volatility:    0.25,
	}
	g, err := Greeks(p)
	if err != nil {
		t.Fatalf("greeks err: %v", err)
	}

	const h = 1e-5

	up := p
	up.Spot += h
	down := p
	down.Spot -= h
	for _, optType := range []OptionType{Call, Put} {
		priceUp, _ := Price(up, optType)
		priceDown, _ := Price(down, optType)
		fdDelta := (priceUp - priceDown) / (2 * h)

		want := g.DeltaCall
		if optType == Put {
			want = g.DeltaPut
		}
		if !almostEqual(fdDelta, want, 1e-6) {
			t.Fatalf("%s delta mismatch: fd=%v analytic=%v",
				optType, fdDelta, want)
		}
	}

	volUp, _ := Price(p.withVolatility(p.Volatility+h), Call)
	volDown, _ := Price(p.withVolatility(p.Volatility-h), Call)
	fdVega := (volUp - volDown) / (2 * h)
	if !almostEqual(fdVega, g.Vega, 1e-5) {
		t.Fatalf("vega mismatch: fd=%v analytic=%v", fdVega, g.Vega)
	}
}

func TestValidateRejectsBadInputs(t *testing.T) {
	cases := []MarketParams{
		{Spot: 0, Strike: 100, TimeToExpiry: 1, Volatility: 0.2},
		{Spot: -5, Strike: 100, TimeToExpiry: 1, Volatility: 0.2},
		{Spot: 100, Strike: 0, TimeToExpiry: 1, Volatility: 0.2},
		{Spot: 100, Strike: 100, TimeToExpiry: 0, Volatility: 0.2},
		{Spot: 100, Strike: 100, TimeToExpiry: -1, Volatility: 0.2},
		{Spot: 100, Strike: 100, TimeToExpiry: 1, Volatility: 0},
		{Spot: 100, Strike: 100, TimeToExpiry: 1, Volatility: -0.2},
		{Spot: math.NaN(), Strike: 100, TimeToExpiry: 1, Volatility: 0.2},
		{Spot: 100, Strike: 100, TimeToExpiry: 1, Volatility: 0.2, RiskFreeRate: math.NaN()},
	}

	for _, p := range cases {
		if _, err := Price(p, Call); !errors.Is(err, ErrInvalidParams) {
			t.Fatalf("Price accepted %+v: err=%v", p, err)
		}
		if _, err := Greeks(p); !errors.Is(err, ErrInvalidParams) {
			t.Fatalf("Greeks accepted %+v: err=%v", p, err)
		}
	}

	// Negative rates and yields are legitimate.
	p := MarketParams{
		Spot: 100, Strike: 100, TimeToExpiry: 1,
		RiskFreeRate: -0.02, DividendYield: -0.01, Volatility: 0.2,
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("negative rate regime rejected: %v", err)
	}
}
