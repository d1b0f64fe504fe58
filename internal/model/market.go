package model

import "time"

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries holds raw price data for analysis.
// Bars are chronological and must not be modified once built.
type PriceSeries struct {
	Symbol       string    `json:"symbol"`
	DailyBars    []OHLCV   `json:"daily_bars"`
	WeeklyBars   []OHLCV   `json:"weekly_bars"`
	CurrentPrice float64   `json:"current_price"`
	Provider     string    `json:"provider"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// Closes extracts the close prices of bars.
func Closes(bars []OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Highs extracts the high prices of bars.
func Highs(bars []OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

// Lows extracts the low prices of bars.
func Lows(bars []OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}
