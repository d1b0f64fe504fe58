package calculator

import (
	"errors"
	"math"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/model"
)

// FibGoldenRatio is the 61.8% retracement ratio.
const FibGoldenRatio = 0.618

// TrailingHigh scans the most recent n indicator rows and returns the max high.
func TrailingHigh(rows []model.IndicatorRow, n int) (float64, error) {
	if len(rows) == 0 {
		return 0, errors.New("no rows provided")
	}
	start := len(rows) - n
	if start < 0 {
		start = 0
	}
	high := math.Inf(-1)
	for i := start; i < len(rows); i++ {
		if rows[i].High > high {
			high = rows[i].High
		}
	}
	return high, nil
}

// TrailingLow returns the minimum low of the most recent n bars.
func TrailingLow(bars []model.OHLCV, n int) (float64, error) {
	if len(bars) == 0 {
		return 0, model.ErrInsufficientData
	}
	start := len(bars) - n
	if start < 0 {
		start = 0
	}
	low := math.Inf(1)
	for i := start; i < len(bars); i++ {
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	return low, nil
}

// Retracement returns the price that retraces ratio of the move from low up to high.
func Retracement(high, low, ratio float64) (float64, error) {
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	return high - ratio*(high-low), nil
}
