package strategy

import (
	"fmt"
	"math"
	"strings"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/calculator"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/model"
)

// Params holds every tunable of the classification pipeline.
type Params struct {
	Swing        calculator.SwingParams
	Divergence   DivergenceParams
	FibWindow    int     // trailing rows defining the swing high
	FibRatio     float64 // retracement ratio
	FibTolerance float64 // max |close-fib| / swing high
	RSIBackend   string  // "windowed" or "talib"
}

// DefaultParams returns the production defaults.
func DefaultParams() Params {
	return Params{
		Swing:        calculator.DefaultSwingParams(),
		Divergence:   DefaultDivergenceParams(),
		FibWindow:    60,
		FibRatio:     calculator.FibGoldenRatio,
		FibTolerance: 0.03,
		RSIBackend:   "windowed",
	}
}

// Classify runs the whole pipeline over one ticker's bars. weekly may be nil, in which
// case it is resampled from daily. Neither slice is modified.
func Classify(ticker string, daily, weekly []model.OHLCV, p Params) (model.ClassificationResult, error) {
	if weekly == nil {
		weekly = calculator.ResampleWeekly(daily)
	}
	flags := calculator.FindSwingLows(weekly, p.Swing)
	support, err := calculator.SupportLevel(weekly, flags)
	if err != nil {
		return model.ClassificationResult{}, fmt.Errorf("%s: %w", ticker, err)
	}
	rows, err := calculator.ComputeIndicators(daily, calculator.BackendByName(p.RSIBackend))
	if err != nil {
		return model.ClassificationResult{}, fmt.Errorf("%s: %w", ticker, err)
	}
	return Evaluate(Input{Ticker: ticker, Rows: rows, Support: support, Params: p}), nil
}

// Input is everything Evaluate needs for one ticker.
type Input struct {
	Ticker  string
	Rows    []model.IndicatorRow // warmed-up rows, chronological, non-empty
	Support float64              // active structural support level
	Params  Params
}

// Evaluate runs the ordered decision list against the latest row and returns a fresh result.
// Rows must be non-empty.
func Evaluate(in Input) model.ClassificationResult {
	latest := in.Rows[len(in.Rows)-1]
	prev := latest
	if len(in.Rows) >= 2 {
		prev = in.Rows[len(in.Rows)-2]
	}

	s := snapshot{
		Close:        latest.Close,
		TrendAverage: latest.TrendAverage,
		RollingHigh:  latest.RollingHigh,
		Momentum:     latest.Momentum,
		PrevMomentum: prev.Momentum,
		Support:      in.Support,
	}
	r := match(s)

	diag := model.Diagnostics{
		Rule:         r.ID,
		TrendAverage: latest.TrendAverage,
		RollingHigh:  latest.RollingHigh,
		RSI:          latest.RSI,
		Momentum:     latest.Momentum,
		PrevMomentum: prev.Momentum,
		SupportLevel: in.Support,
	}

	var notes []string
	if r.Note != "" {
		notes = append(notes, r.Note)
	}
	if r.ID == model.RuleCorrection {
		notes = append(notes, annotateCorrection(in, latest.Close, &diag)...)
	}

	note := strings.Join(notes, " ")
	if note == "" {
		note = NoteFallback
	}

	return model.ClassificationResult{
		Ticker:      in.Ticker,
		Regime:      r.Regime,
		Marker:      r.Regime.Marker(),
		Price:       latest.Close,
		Note:        note,
		AsOf:        latest.Time,
		Diagnostics: diag,
	}
}

// annotateCorrection runs the opportunity checks. They only add notes.
func annotateCorrection(in Input, close float64, diag *model.Diagnostics) []string {
	var notes []string
	p := in.Params

	if high, err := calculator.TrailingHigh(in.Rows, p.FibWindow); err == nil && high > in.Support {
		diag.SwingHigh = high
		if fib, err := calculator.Retracement(high, in.Support, p.FibRatio); err == nil {
			diag.FibLevel = fib
			if math.Abs(close-fib)/high < p.FibTolerance {
				diag.FibTesting = true
				notes = append(notes, NoteFibonacci)
			}
		}
	}

	if HiddenBullishDivergence(model.RowCloses(in.Rows), model.RowRSIs(in.Rows), in.Support, p.Divergence) {
		diag.Divergence = true
		notes = append(notes, NoteDivergence)
	}
	return notes
}
