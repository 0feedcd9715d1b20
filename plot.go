package bsm

import (
	"fmt"
	"math"

	"github.com/golang/glog"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

const (
	kPlotSamples   = 121
	kPlotSpotSpan  = 0.6 // spot axis runs strike*(1±span)
	kPlotWidthInch = 8
	kPlotHeightIn  = 5
)

// spotGrid returns evenly spaced spots around the strike for the plot
// x-axis.
func spotGrid(strike float64) []float64 {
	lo := strike * (1 - kPlotSpotSpan)
	hi := strike * (1 + kPlotSpotSpan)
	step := (hi - lo) / float64(kPlotSamples-1)

	grid := make([]float64, kPlotSamples)
	for i := range grid {
		grid[i] = lo + float64(i)*step
	}
	return grid
}

// SavePayoffPlot writes a PNG comparing the expiry payoff of both option
// types with their current model values across a range of spots. The spot
// field of p sets nothing here; the x-axis supplies the spots.
func SavePayoffPlot(path string, p MarketParams) error {
	if err := p.Validate(); err != nil {
		return err
	}

	grid := spotGrid(p.Strike)
	callPayoff := make(plotter.XYs, len(grid))
	putPayoff := make(plotter.XYs, len(grid))
	callValue := make(plotter.XYs, len(grid))
	putValue := make(plotter.XYs, len(grid))

	for i, spot := range grid {
		at := p
		at.Spot = spot
		terms := newBsTerms(at)

		callPayoff[i] = plotter.XY{X: spot, Y: math.Max(0, spot-p.Strike)}
		putPayoff[i] = plotter.XY{X: spot, Y: math.Max(0, p.Strike-spot)}
		callValue[i] = plotter.XY{X: spot, Y: terms.callPrice(at)}
		putValue[i] = plotter.XY{X: spot, Y: terms.putPrice(at)}
	}

	pl := plot.New()
	pl.Title.Text = fmt.Sprintf("Payoff at expiry vs model value (K=%.2f)",
		p.Strike)
	pl.X.Label.Text = "spot"
	pl.Y.Label.Text = "value"

	err := plotutil.AddLinePoints(pl,
		"Call payoff", callPayoff,
		"Put payoff", putPayoff,
		"Call value", callValue,
		"Put value", putValue)
	if err != nil {
		return err
	}

	if err := pl.Save(kPlotWidthInch*vg.Inch, kPlotHeightIn*vg.Inch,
		path); err != nil {
		glog.Error(fmt.Sprintf("Saving payoff plot to %s failed: %v.",
			path, err))
		return err
	}
	glog.Info(fmt.Sprintf("Saved payoff plot to %s.", path))
	return nil
}

// SaveGreekPlot writes a PNG of one greek across spot for both option
// types. greek is one of delta, gamma, vega, theta, rho (gamma and vega
// plot a single shared curve).
func SaveGreekPlot(path string, p MarketParams, greek string) error {
	if err := p.Validate(); err != nil {
		return err
	}

	pick := func(g *GreeksResult) (callVal, putVal float64, shared bool) {
		switch greek {
		case "delta":
			return g.DeltaCall, g.DeltaPut, false
		case "gamma":
			return g.Gamma, g.Gamma, true
		case "vega":
			return g.Vega, g.Vega, true
		case "theta":
			return g.ThetaCall, g.ThetaPut, false
		case "rho":
			return g.RhoCall, g.RhoPut, false
		}
		return 0, 0, false
	}
	switch greek {
	case "delta", "gamma", "vega", "theta", "rho":
	default:
		return fmt.Errorf("unknown greek %q", greek)
	}

	grid := spotGrid(p.Strike)
	callCurve := make(plotter.XYs, len(grid))
	putCurve := make(plotter.XYs, len(grid))
	shared := false

	for i, spot := range grid {
		at := p
		at.Spot = spot
		g, err := Greeks(at)
		if err != nil {
			return err
		}
		callVal, putVal, single := pick(g)
		shared = single
		callCurve[i] = plotter.XY{X: spot, Y: callVal}
		putCurve[i] = plotter.XY{X: spot, Y: putVal}
	}

	pl := plot.New()
	pl.Title.Text = fmt.Sprintf("%s vs spot (K=%.2f, T=%.4fy, vol=%.2f)",
		greek, p.Strike, p.TimeToExpiry, p.Volatility)
	pl.X.Label.Text = "spot"
	pl.Y.Label.Text = greek

	var err error
	if shared {
		err = plotutil.AddLinePoints(pl, greek, callCurve)
	} else {
		err = plotutil.AddLinePoints(pl,
			"Call "+greek, callCurve,
			"Put "+greek, putCurve)
	}
	if err != nil {
		return err
	}

	if err := pl.Save(kPlotWidthInch*vg.Inch, kPlotHeightIn*vg.Inch,
		path); err != nil {
		glog.Error(fmt.Sprintf("Saving %s plot to %s failed: %v.",
			greek, path, err))
		return err
	}
	glog.Info(fmt.Sprintf("Saved %s plot to %s.", greek, path))
	return nil
}
