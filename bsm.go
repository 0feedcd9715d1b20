package bsm

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ErrInvalidParams is wrapped by every parameter-validation failure, so
// callers can match the whole family with errors.Is.
var ErrInvalidParams = errors.New("invalid market parameters")

// OptionType selects between the two European option styles priced by the
// model. There are no other variants.
type OptionType int

const (
	Call OptionType = iota
	Put
)

func (self OptionType) String() string {
	if self == Call {
		return "Call"
	}
	return "Put"
}

// MarketParams holds the scalar inputs of the Black-Scholes-Merton model
// with continuous dividend yield. All values are raw decimals: a 5% rate is
// 0.05, a 20% volatility is 0.2, and TimeToExpiry is in years (callers with
// a days figure divide by 365 before building the struct).
//
// RiskFreeRate and DividendYield may be negative; the remaining fields must
// be strictly positive, which Validate enforces.
type MarketParams struct {
	Spot          float64
	Strike        float64
	TimeToExpiry  float64
	RiskFreeRate  float64
	DividendYield float64
	Volatility    float64
}

// Validate checks the positivity preconditions of the model. It returns an
// error wrapping ErrInvalidParams naming the offending field, or nil. The
// pricing operations call this themselves and never compute on bad inputs.
func (self MarketParams) Validate() error {
	switch {
	case !(self.Spot > 0):
		return fmt.Errorf("%w: spot price must be positive, got %v",
			ErrInvalidParams, self.Spot)
	case !(self.Strike > 0):
		return fmt.Errorf("%w: strike price must be positive, got %v",
			ErrInvalidParams, self.Strike)
	case !(self.TimeToExpiry > 0):
		return fmt.Errorf("%w: time to expiry must be positive, got %v",
			ErrInvalidParams, self.TimeToExpiry)
	case !(self.Volatility > 0):
		return fmt.Errorf("%w: volatility must be positive, got %v",
			ErrInvalidParams, self.Volatility)
	case math.IsNaN(self.RiskFreeRate) || math.IsInf(self.RiskFreeRate, 0):
		return fmt.Errorf("%w: risk-free rate must be finite, got %v",
			ErrInvalidParams, self.RiskFreeRate)
	case math.IsNaN(self.DividendYield) || math.IsInf(self.DividendYield, 0):
		return fmt.Errorf("%w: dividend yield must be finite, got %v",
			ErrInvalidParams, self.DividendYield)
	}
	return nil
}

// withVolatility returns a copy of the parameters with the volatility field
// replaced. The implied-volatility solver uses it to probe trial sigmas.
func (self MarketParams) withVolatility(sigma float64) MarketParams {
	self.Volatility = sigma
	return self
}

// PricingResult is the per-option-type view of a pricing computation: fair
// value, the five sensitivities, and the d1/d2 intermediates. Theta is per
// year; divide by 365 for a per-day decay figure.
type PricingResult struct {
	Price float64
	Delta float64
	Gamma float64
	Vega  float64
	Theta float64
	Rho   float64
	D1    float64
	D2    float64
}

// GreeksResult carries the call and put values of one parameter set
// together. Delta, theta and rho differ by option type; gamma and vega are
// shared. Prices are the raw formula values and may be a hair below zero
// for deeply out-of-the-money inputs; display layers clamp, the engine
// does not.
type GreeksResult struct {
	CallPrice float64
	PutPrice  float64
	D1        float64
	D2        float64
	DeltaCall float64
	DeltaPut  float64
	Gamma     float64
	Vega      float64
	ThetaCall float64
	ThetaPut  float64
	RhoCall   float64
	RhoPut    float64
}

// Result projects the type-specific PricingResult out of the combined
// greeks.
func (self *GreeksResult) Result(optType OptionType) PricingResult {
	result := PricingResult{
		Gamma: self.Gamma,
		Vega:  self.Vega,
		D1:    self.D1,
		D2:    self.D2,
	}
	if optType == Call {
		result.Price = self.CallPrice
		result.Delta = self.DeltaCall
		result.Theta = self.ThetaCall
		result.Rho = self.RhoCall
	} else {
		result.Price = self.PutPrice
		result.Delta = self.DeltaPut
		result.Theta = self.ThetaPut
		result.Rho = self.RhoPut
	}
	return result
}

// bsTerms are the shared intermediates of the closed-form formulas,
// computed once per parameter set.
type bsTerms struct {
	sqrtT float64
	d1    float64
	d2    float64
	discR float64 // exp(-r*T), discount on the strike leg
	discQ float64 // exp(-q*T), discount on the spot leg
}

func newBsTerms(p MarketParams) bsTerms {
	sqrtT := math.Sqrt(p.TimeToExpiry)
	d1 := (math.Log(p.Spot/p.Strike) +
		(p.RiskFreeRate-p.DividendYield+0.5*p.Volatility*p.Volatility)*
			p.TimeToExpiry) / (p.Volatility * sqrtT)
	return bsTerms{
		sqrtT: sqrtT,
		d1:    d1,
		d2:    d1 - p.Volatility*sqrtT,
		discR: math.Exp(-p.RiskFreeRate * p.TimeToExpiry),
		discQ: math.Exp(-p.DividendYield * p.TimeToExpiry),
	}
}

// normCdf is the cumulative distribution function of the standard normal
// distribution, taken from gonum's distuv package.
func normCdf(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// normPdf is the standard normal probability density.
func normPdf(x float64) float64 {
	return distuv.UnitNormal.Prob(x)
}

func (self bsTerms) callPrice(p MarketParams) float64 {
	return p.Spot*self.discQ*normCdf(self.d1) -
		p.Strike*self.discR*normCdf(self.d2)
}

func (self bsTerms) putPrice(p MarketParams) float64 {
	return p.Strike*self.discR*normCdf(-self.d2) -
		p.Spot*self.discQ*normCdf(-self.d1)
}

// Price computes the Black-Scholes-Merton fair value of a European option
// under continuous dividend yield. The result is non-negative up to
// floating-point noise near zero.
func Price(p MarketParams, optType OptionType) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	terms := newBsTerms(p)
	if optType == Call {
		return terms.callPrice(p), nil
	}
	return terms.putPrice(p), nil
}

// Greeks evaluates prices and all sensitivities for both option types in
// one pass, since several Greeks differ between call and put while the
// expensive intermediates are shared.
//
// Formulas (S spot, K strike, T years, r rate, q yield, sigma volatility):
//
//	call      = S*e^{-qT}*N(d1) - K*e^{-rT}*N(d2)
//	put       = K*e^{-rT}*N(-d2) - S*e^{-qT}*N(-d1)
//	deltaCall = e^{-qT}*N(d1)
//	deltaPut  = e^{-qT}*(N(d1) - 1)
//	gamma     = e^{-qT}*n(d1) / (S*sigma*sqrt(T))
//	vega      = S*e^{-qT}*n(d1)*sqrt(T)
//	thetaCall = -S*e^{-qT}*n(d1)*sigma/(2*sqrt(T)) - r*K*e^{-rT}*N(d2) + q*S*e^{-qT}*N(d1)
//	thetaPut  = -S*e^{-qT}*n(d1)*sigma/(2*sqrt(T)) + r*K*e^{-rT}*N(-d2) - q*S*e^{-qT}*N(-d1)
//	rhoCall   =  K*T*e^{-rT}*N(d2)
//	rhoPut    = -K*T*e^{-rT}*N(-d2)
//
// where N is the standard normal CDF and n its density. Theta is per year.
func Greeks(p MarketParams) (*GreeksResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	terms := newBsTerms(p)
	pdfD1 := normPdf(terms.d1)
	cdfD1 := normCdf(terms.d1)
	cdfD2 := normCdf(terms.d2)
	cdfNegD1 := normCdf(-terms.d1)
	cdfNegD2 := normCdf(-terms.d2)

	spotLeg := p.Spot * terms.discQ
	strikeLeg := p.Strike * terms.discR

	// Time-decay term shared by both thetas.
	decay := -(spotLeg * pdfD1 * p.Volatility) / (2 * terms.sqrtT)

	return &GreeksResult{
		CallPrice: spotLeg*cdfD1 - strikeLeg*cdfD2,
		PutPrice:  strikeLeg*cdfNegD2 - spotLeg*cdfNegD1,
		D1:        terms.d1,
		D2:        terms.d2,
		DeltaCall: terms.discQ * cdfD1,
		DeltaPut:  terms.discQ * (cdfD1 - 1),
		Gamma:     terms.discQ * pdfD1 / (p.Spot * p.Volatility * terms.sqrtT),
		Vega:      spotLeg * pdfD1 * terms.sqrtT,
		ThetaCall: decay - p.RiskFreeRate*strikeLeg*cdfD2 +
			p.DividendYield*spotLeg*cdfD1,
		ThetaPut: decay + p.RiskFreeRate*strikeLeg*cdfNegD2 -
			p.DividendYield*spotLeg*cdfNegD1,
		RhoCall: p.Strike * p.TimeToExpiry * terms.discR * cdfD2,
		RhoPut:  -p.Strike * p.TimeToExpiry * terms.discR * cdfNegD2,
	}, nil
}
