package calculator

import (
	"fmt"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/model"
)

// SupportFallbackBars is how many trailing weekly bars feed the fallback support level.
const SupportFallbackBars = 20

// SwingParams tunes weekly swing-low detection.
type SwingParams struct {
	Lookback   int     // bars required on each side
	Prominence float64 // minimum percent depth below the local-window mean; 0 disables
}

// DefaultSwingParams returns lookback 2 with a 3% prominence filter.
func DefaultSwingParams() SwingParams {
	return SwingParams{Lookback: 2, Prominence: 3.0}
}

// FindSwingLows flags bars whose low is a strict minimum over lookback bars on both sides.
// The first and last lookback bars are never flagged.
func FindSwingLows(weekly []model.OHLCV, p SwingParams) []bool {
	lookback := p.Lookback
	if lookback < 1 {
		lookback = 1
	}
	n := len(weekly)
	flags := make([]bool, n)
	if n < 2*lookback+1 {
		return flags
	}
	lows := model.Lows(weekly)

	for i := lookback; i < n-lookback; i++ {
		if !strictMin(lows, i, lookback) {
			continue
		}
		if p.Prominence > 0 {
			sum := 0.0
			for j := i - lookback; j <= i+lookback; j++ {
				sum += lows[j]
			}
			mean := sum / float64(2*lookback+1)
			if mean == 0 {
				continue
			}
			if (mean-lows[i])/mean*100.0 < p.Prominence {
				continue
			}
		}
		flags[i] = true
	}
	return flags
}

func strictMin(lows []float64, i, lookback int) bool {
	for j := i - lookback; j <= i+lookback; j++ {
		if j != i && lows[j] <= lows[i] {
			return false
		}
	}
	return true
}

// SupportLevel returns the low of the latest flagged swing, or the minimum low of the
// trailing SupportFallbackBars bars when nothing is flagged.
func SupportLevel(weekly []model.OHLCV, flags []bool) (float64, error) {
	if len(weekly) == 0 {
		return 0, fmt.Errorf("support level: %w", model.ErrInsufficientData)
	}
	for i := len(flags) - 1; i >= 0; i-- {
		if flags[i] && i < len(weekly) {
			return weekly[i].Low, nil
		}
	}
	return TrailingLow(weekly, SupportFallbackBars)
}
