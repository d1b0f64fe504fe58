package calculator

import (
	"fmt"
	"math"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/model"
)

// Indicator windows. Partial windows are accepted from the Min* counts.
const (
	TrendWindow       = 200
	MinTrendBars      = 50
	HighWindow        = 20
	MinHighBars       = 5
	MinMomentumBars   = 2
	RequiredDailyBars = MinTrendBars
)

// ComputeIndicators derives one IndicatorRow per daily bar and drops rows still in warm-up.
// A nil backend selects WindowedRSI.
func ComputeIndicators(daily []model.OHLCV, backend RSIBackend) ([]model.IndicatorRow, error) {
	if len(daily) < RequiredDailyBars {
		return nil, fmt.Errorf("indicators need %d daily bars, got %d: %w",
			RequiredDailyBars, len(daily), model.ErrInsufficientData)
	}
	if backend == nil {
		backend = WindowedRSI{}
	}

	closes := model.Closes(daily)
	trend, err := RollingMean(closes, TrendWindow, MinTrendBars)
	if err != nil {
		return nil, err
	}
	highs, err := RollingMax(model.Highs(daily), HighWindow, MinHighBars)
	if err != nil {
		return nil, err
	}
	rsi := backend.RSI(closes, DefaultRSIPeriod)
	mom := Momentum(closes)

	rows := make([]model.IndicatorRow, 0, len(daily))
	for i, b := range daily {
		if math.IsNaN(trend[i]) || math.IsNaN(highs[i]) || math.IsNaN(rsi[i]) || math.IsNaN(mom[i]) {
			continue
		}
		rows = append(rows, model.IndicatorRow{
			Time:         b.Time,
			Open:         b.Open,
			High:         b.High,
			Low:          b.Low,
			Close:        b.Close,
			Volume:       b.Volume,
			TrendAverage: trend[i],
			RollingHigh:  highs[i],
			RSI:          rsi[i],
			Momentum:     mom[i],
		})
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no warmed-up indicator rows: %w", model.ErrInsufficientData)
	}
	return rows, nil
}
