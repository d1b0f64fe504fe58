package model

import "time"

// IndicatorRow is one daily bar plus every indicator the classifier reads.
// Only fully warmed-up rows are ever produced.
type IndicatorRow struct {
	Time         time.Time `json:"time"`
	Open         float64   `json:"open"`
	High         float64   `json:"high"`
	Low          float64   `json:"low"`
	Close        float64   `json:"close"`
	Volume       float64   `json:"volume"`
	TrendAverage float64   `json:"trend_average"` // 200-bar SMA of close, partial from 50 bars
	RollingHigh  float64   `json:"rolling_high"`  // 20-bar max of high, partial from 5 bars
	RSI          float64   `json:"rsi"`           // 0 ~ 100
	Momentum     float64   `json:"momentum"`      // close[t] - close[t-1]
}

// RowCloses extracts closes from indicator rows.
func RowCloses(rows []IndicatorRow) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.Close
	}
	return out
}

// RowRSIs extracts oscillator values from indicator rows.
func RowRSIs(rows []IndicatorRow) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.RSI
	}
	return out
}
