package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/joshi-prasad/bsm"
)

const kDaysPerYear = 365.0

var errMissingInput = errors.New("missing required numeric input")

// configureLogging mirrors library diagnostics to stderr; without it glog
// keeps Info-level output in its log files only.
func configureLogging() {
	flag.Set("alsologtostderr", "true")
}

// parseSmileQuotes parses the -smile value: comma-separated strike:price
// pairs, e.g. "90:12.1,100:5.6,110:2.3".
func parseSmileQuotes(s string) ([]bsm.SmilePoint, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errors.New("no quotes supplied, expected strike:price[,strike:price...]")
	}

	var points []bsm.SmilePoint
	for _, pair := range strings.Split(s, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("quote %q is not strike:price", pair)
		}
		strike, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, fmt.Errorf("bad strike in %q: %v", pair, err)
		}
		price, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("bad price in %q: %v", pair, err)
		}
		points = append(points, bsm.SmilePoint{Strike: strike, MarketPrice: price})
	}
	return points, nil
}

func parseOptionType(s string) (bsm.OptionType, error) {
	switch strings.ToLower(s) {
	case "call":
		return bsm.Call, nil
	case "put":
		return bsm.Put, nil
	}
	return bsm.Call, fmt.Errorf("unknown option type %q, expected call or put", s)
}

// askFloat prompts for one number. A blank line takes the default when one
// is provided and fails otherwise.
func askFloat(reader *bufio.Reader, prompt string, def *float64) (float64, error) {
	fmt.Print(prompt)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return 0, err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		if def == nil {
			return 0, errMissingInput
		}
		return *def, nil
	}
	return strconv.ParseFloat(line, 64)
}

// askOptionalFloat prompts for one number; a blank line means absent.
func askOptionalFloat(reader *bufio.Reader, prompt string) (float64, bool, error) {
	fmt.Print(prompt)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return 0, false, err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, false, nil
	}
	value, err := strconv.ParseFloat(line, 64)
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}

func main() {
	plain := flag.Bool("plain", false,
		"disable colored output")
	curveOut := flag.String("curve-out", "",
		"write a price-vs-volatility HTML chart to this file")
	payoffOut := flag.String("payoff-out", "",
		"write a payoff-vs-model-value PNG to this file")
	greekName := flag.String("greek", "",
		"greek to plot across spot (delta|gamma|vega|theta|rho)")
	greekOut := flag.String("greek-out", "greek.png",
		"output file for the -greek plot")
	smileOut := flag.String("smile-out", "",
		"write an implied-volatility smile HTML chart to this file")
	smileQuotes := flag.String("smile", "",
		"strike:price quotes for -smile-out, comma separated")
	smileType := flag.String("smile-type", "call",
		"option type the -smile quotes refer to (call|put)")
	flag.Parse()
	configureLogging()

	style := bsm.DefaultStyle()
	if *plain {
		style = bsm.PlainStyle()
	}

	reader := bufio.NewReader(os.Stdin)
	fail := func(format string, args ...interface{}) {
		fmt.Fprintln(os.Stderr, style.Error(fmt.Sprintf(format, args...)))
		os.Exit(1)
	}

	zero := 0.0
	spot, err := askFloat(reader, style.Label("Underlying price (S): "), nil)
	if err != nil {
		fail("Input error: %v", err)
	}
	strike, err := askFloat(reader, style.Label("Strike price (K): "), nil)
	if err != nil {
		fail("Input error: %v", err)
	}
	days, err := askFloat(reader,
		style.Label("Time to expiration (days): "), nil)
	if err != nil {
		fail("Input error: %v", err)
	}
	rate, err := askFloat(reader,
		style.Label("Risk-free rate r (decimal): "), nil)
	if err != nil {
		fail("Input error: %v", err)
	}
	vol, err := askFloat(reader,
		style.Label("Volatility sigma (decimal): "), nil)
	if err != nil {
		fail("Input error: %v", err)
	}
	yield, err := askFloat(reader,
		style.Label("Dividend yield q (decimal) [default 0]: "), &zero)
	if err != nil {
		fail("Input error: %v", err)
	}
	marketPrice, haveMarketPrice, err := askOptionalFloat(reader,
		style.Label("Market price for IV (blank to skip): "))
	if err != nil {
		fail("Input error: %v", err)
	}

	params := bsm.MarketParams{
		Spot:          spot,
		Strike:        strike,
		TimeToExpiry:  days / kDaysPerYear,
		RiskFreeRate:  rate,
		DividendYield: yield,
		Volatility:    vol,
	}
	if err := params.Validate(); err != nil {
		fail("%v", err)
	}

	greeks, err := bsm.Greeks(params)
	if err != nil {
		glog.Error("Pricing failed. ", err)
		fail("%v", err)
	}

	report := bsm.NewReport(params, greeks)
	if haveMarketPrice {
		callIv, callErr := bsm.ImpliedVol(marketPrice, params, bsm.Call)
		putIv, putErr := bsm.ImpliedVol(marketPrice, params, bsm.Put)
		report.SetImpliedVols(marketPrice,
			bsm.IvOutcome{Vol: callIv, Err: callErr},
			bsm.IvOutcome{Vol: putIv, Err: putErr})
	}

	fmt.Println()
	report.Print(style)

	if *curveOut != "" {
		f, err := os.Create(*curveOut)
		if err != nil {
			fail("Writing curve chart: %v", err)
		}
		if err := bsm.RenderPriceVolCurve(f, params); err != nil {
			f.Close()
			fail("Writing curve chart: %v", err)
		}
		f.Close()
		fmt.Println(style.Value("Wrote " + *curveOut))
	}
	if *payoffOut != "" {
		if err := bsm.SavePayoffPlot(*payoffOut, params); err != nil {
			fail("Writing payoff plot: %v", err)
		}
		fmt.Println(style.Value("Wrote " + *payoffOut))
	}
	if *greekName != "" {
		if err := bsm.SaveGreekPlot(*greekOut, params, *greekName); err != nil {
			fail("Writing greek plot: %v", err)
		}
		fmt.Println(style.Value("Wrote " + *greekOut))
	}
	if *smileOut != "" {
		points, err := parseSmileQuotes(*smileQuotes)
		if err != nil {
			fail("Parsing -smile quotes: %v", err)
		}
		optType, err := parseOptionType(*smileType)
		if err != nil {
			fail("Parsing -smile-type: %v", err)
		}
		f, err := os.Create(*smileOut)
		if err != nil {
			fail("Writing smile chart: %v", err)
		}
		if err := bsm.RenderSmileChart(f, params, optType, points); err != nil {
			f.Close()
			fail("Writing smile chart: %v", err)
		}
		f.Close()
		fmt.Println(style.Value("Wrote " + *smileOut))
	}

	fmt.Println()
	fmt.Println(style.Value("Done."))
}
