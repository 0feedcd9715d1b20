package bsm

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/golang/glog"
)

const (
	kCurveSamples  = 200
	kCurveSigmaMin = 0.01
)

// PriceVolCurve builds a line chart of the model price as a function of
// volatility over (0, kSigmaHi], for both option types. The volatility
// field of p is ignored; the curve supplies its own sigmas. Monotonicity of
// the curve is what makes the implied-volatility inversion well posed, so
// this is also a handy visual sanity check on a parameter set.
func PriceVolCurve(p MarketParams) (*charts.Line, error) {
	if err := p.withVolatility(1).Validate(); err != nil {
		return nil, err
	}

	sigmas := make([]string, 0, kCurveSamples)
	callData := make([]opts.LineData, 0, kCurveSamples)
	putData := make([]opts.LineData, 0, kCurveSamples)

	step := (kSigmaHi - kCurveSigmaMin) / float64(kCurveSamples-1)
	for i := 0; i < kCurveSamples; i++ {
		sigma := kCurveSigmaMin + float64(i)*step
		trial := p.withVolatility(sigma)
		terms := newBsTerms(trial)

		sigmas = append(sigmas, fmt.Sprintf("%.2f", sigma))
		callData = append(callData, opts.LineData{Value: terms.callPrice(trial)})
		putData = append(putData, opts.LineData{Value: terms.putPrice(trial)})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "Option price vs volatility",
			Subtitle: fmt.Sprintf("S=%.2f K=%.2f T=%.4fy r=%.4f q=%.4f",
				p.Spot, p.Strike, p.TimeToExpiry, p.RiskFreeRate,
				p.DividendYield),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "volatility"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "price"}),
	)
	line.SetXAxis(sigmas).
		AddSeries("Call", callData).
		AddSeries("Put", putData).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: true}))
	return line, nil
}

// RenderPriceVolCurve writes the price-vs-volatility chart as a standalone
// HTML page.
func RenderPriceVolCurve(w io.Writer, p MarketParams) error {
	line, err := PriceVolCurve(p)
	if err != nil {
		return err
	}
	return line.Render(w)
}

// SmilePoint is one observed quote on a volatility smile: a strike and the
// market price traded at it.
type SmilePoint struct {
	Strike      float64
	MarketPrice float64
}

// SmileChart inverts each quote to an implied volatility and charts the
// result per strike. Quotes the solver rejects (below intrinsic, no
// convergence) are skipped and logged; the chart fails only when every
// quote is rejected. Shared parameters (spot, expiry, rate, yield) come
// from p; its strike and volatility fields are ignored.
func SmileChart(p MarketParams, optType OptionType, points []SmilePoint) (*charts.Line, error) {
	strikes := make([]string, 0, len(points))
	ivData := make([]opts.LineData, 0, len(points))

	for _, pt := range points {
		quoteParams := p
		quoteParams.Strike = pt.Strike
		iv, err := ImpliedVol(pt.MarketPrice, quoteParams, optType)
		if err != nil {
			glog.Info(fmt.Sprintf(
				"Skipping smile point strike=%v price=%v: %v.",
				pt.Strike, pt.MarketPrice, err))
			continue
		}
		strikes = append(strikes, fmt.Sprintf("%.2f", pt.Strike))
		ivData = append(ivData, opts.LineData{Value: iv * 100})
	}

	if len(ivData) == 0 {
		msg := "no smile point produced an implied volatility"
		glog.Error(msg)
		return nil, fmt.Errorf("%s: %w", msg, ErrNotConverged)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("%s implied volatility smile", optType),
			Subtitle: fmt.Sprintf("S=%.2f T=%.4fy r=%.4f q=%.4f",
				p.Spot, p.TimeToExpiry, p.RiskFreeRate, p.DividendYield),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "strike"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "implied vol (%)"}),
	)
	line.SetXAxis(strikes).
		AddSeries("IV", ivData).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: true}))
	return line, nil
}

// RenderSmileChart writes the smile chart as a standalone HTML page.
func RenderSmileChart(w io.Writer, p MarketParams, optType OptionType, points []SmilePoint) error {
	line, err := SmileChart(p, optType, points)
	if err != nil {
		return err
	}
	return line.Render(w)
}
