package bsm

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/fatih/color"
)

const kReportWidth = 72

// ReportStyle is the set of sprint functions a report is rendered with.
// It is a plain value passed to Fprint, not process-wide state, so two
// reports can render with different styles concurrently.
type ReportStyle struct {
	Title func(a ...interface{}) string
	Label func(a ...interface{}) string
	Value func(a ...interface{}) string
	Error func(a ...interface{}) string
}

// DefaultStyle returns the colored style: yellow titles, white labels,
// green values, red errors.
func DefaultStyle() ReportStyle {
	return ReportStyle{
		Title: color.New(color.FgYellow, color.Bold).SprintFunc(),
		Label: color.New(color.FgWhite, color.Bold).SprintFunc(),
		Value: color.New(color.FgGreen, color.Bold).SprintFunc(),
		Error: color.New(color.FgRed, color.Bold).SprintFunc(),
	}
}

// PlainStyle returns a style with no escape sequences, for piped output or
// dumb terminals.
func PlainStyle() ReportStyle {
	plain := func(a ...interface{}) string { return fmt.Sprint(a...) }
	return ReportStyle{Title: plain, Label: plain, Value: plain, Error: plain}
}

// IvOutcome holds one side's implied-volatility result for display: either
// a volatility or the error that prevented one.
type IvOutcome struct {
	Vol float64
	Err error
}

func (self IvOutcome) text(style ReportStyle) string {
	switch {
	case self.Err == nil:
		return style.Value(fmt.Sprintf("%.2f%%", self.Vol*100))
	case errors.Is(self.Err, ErrBelowIntrinsic):
		return style.Error("n/a (price below intrinsic value)")
	case errors.Is(self.Err, ErrNotConverged):
		return style.Error("n/a (solver did not converge)")
	}
	return style.Error(fmt.Sprintf("n/a (%v)", self.Err))
}

// Report renders one pricing computation as the terminal output: a boxed
// header, a results section, a greeks table, and an optional implied
// volatility section when a market price was supplied.
type Report struct {
	Params MarketParams
	Greeks *GreeksResult

	MarketPrice    float64
	HasMarketPrice bool
	CallIv         IvOutcome
	PutIv          IvOutcome
}

func NewReport(params MarketParams, greeks *GreeksResult) *Report {
	return &Report{
		Params: params,
		Greeks: greeks,
	}
}

// SetImpliedVols attaches the call-side and put-side inversion outcomes of
// a market quote, enabling the implied-volatility section.
func (self *Report) SetImpliedVols(
	marketPrice float64,
	callIv IvOutcome,
	putIv IvOutcome) {

	self.MarketPrice = marketPrice
	self.HasMarketPrice = true
	self.CallIv = callIv
	self.PutIv = putIv
}

// Print renders the report to stdout.
func (self *Report) Print(style ReportStyle) {
	self.Fprint(os.Stdout, style)
}

func (self *Report) Fprint(w io.Writer, style ReportStyle) {
	self.printHeader(w, style)
	self.printResults(w, style)
	self.printGreeks(w, style)
	if self.HasMarketPrice {
		self.printImpliedVols(w, style)
	}
}

func (self *Report) printHeader(w io.Writer, style ReportStyle) {
	bar := strings.Repeat("─", kReportWidth-2)
	title := center(" BLACK-SCHOLES OPTION PRICING MODEL ", kReportWidth-2)
	fmt.Fprintln(w, style.Title("┌"+bar+"┐"))
	fmt.Fprintln(w, style.Title("│"+title+"│"))
	fmt.Fprintln(w, style.Title("└"+bar+"┘"))
}

func (self *Report) printSection(w io.Writer, style ReportStyle, name string) {
	line := strings.Repeat("─", kReportWidth)
	fmt.Fprintln(w)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, style.Title(center(" "+name+" ", kReportWidth)))
	fmt.Fprintln(w, line)
}

func (self *Report) printResults(w io.Writer, style ReportStyle) {
	self.printSection(w, style, "RESULTS")

	g := self.Greeks
	fmt.Fprintf(w, "%s %s\n",
		style.Label(fmt.Sprintf("%-28s", "Moneyness factor (d1)")),
		style.Value(fmt.Sprintf("%12.4f", g.D1)))
	fmt.Fprintf(w, "%s %s\n",
		style.Label(fmt.Sprintf("%-28s", "Risk-adjusted moneyness (d2)")),
		style.Value(fmt.Sprintf("%12.4f", g.D2)))
	fmt.Fprintf(w, "%s %s\n",
		style.Label(fmt.Sprintf("%-28s", "Call Price")),
		style.Value(fmt.Sprintf("%12.4f", clampPrice(g.CallPrice))))
	fmt.Fprintf(w, "%s %s\n",
		style.Label(fmt.Sprintf("%-28s", "Put Price")),
		style.Value(fmt.Sprintf("%12.4f", clampPrice(g.PutPrice))))
}

func (self *Report) printGreeks(w io.Writer, style ReportStyle) {
	self.printSection(w, style, "GREEKS")

	g := self.Greeks
	fmt.Fprintf(w, "%s\n", style.Label(
		fmt.Sprintf("%-16s %16s %16s", "Greek", "Call", "Put")))
	fmt.Fprintln(w, strings.Repeat("-", kReportWidth))

	row := func(name string, callVal, putVal string) {
		fmt.Fprintf(w, "%s %s %s\n",
			style.Label(fmt.Sprintf("%-16s", name)),
			style.Value(fmt.Sprintf("%16s", callVal)),
			style.Value(fmt.Sprintf("%16s", putVal)))
	}

	row("Delta",
		fmt.Sprintf("%.4f", g.DeltaCall), fmt.Sprintf("%.4f", g.DeltaPut))
	row("Gamma", fmt.Sprintf("%.6f", g.Gamma), "")
	row("Vega", fmt.Sprintf("%.4f", g.Vega), "")
	row("Theta (per year)",
		fmt.Sprintf("%.4f", g.ThetaCall), fmt.Sprintf("%.4f", g.ThetaPut))
	row("Theta (per day)",
		fmt.Sprintf("%.4f", g.ThetaCall/365),
		fmt.Sprintf("%.4f", g.ThetaPut/365))
	row("Rho",
		fmt.Sprintf("%.4f", g.RhoCall), fmt.Sprintf("%.4f", g.RhoPut))
}

func (self *Report) printImpliedVols(w io.Writer, style ReportStyle) {
	self.printSection(w, style, "IMPLIED VOLATILITY")

	fmt.Fprintf(w, "%s %s\n",
		style.Label(fmt.Sprintf("%-28s", "Market Price")),
		style.Value(fmt.Sprintf("%12.4f", self.MarketPrice)))
	fmt.Fprintf(w, "%s %s\n",
		style.Label(fmt.Sprintf("%-28s", "IV (Call)")),
		self.CallIv.text(style))
	fmt.Fprintf(w, "%s %s\n",
		style.Label(fmt.Sprintf("%-28s", "IV (Put)")),
		self.PutIv.text(style))
}

// clampPrice floors tiny negative formula values at zero for display. The
// engine itself returns them raw.
func clampPrice(v float64) float64 {
	return math.Max(0, v)
}

func center(s string, width int) string {
	pad := width - len([]rune(s))
	if pad <= 0 {
		return s
	}
	left := pad / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}
