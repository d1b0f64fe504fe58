package strategy

import "math"

// DivergenceParams tunes the hidden bullish divergence check.
type DivergenceParams struct {
	Oversold float64 // RSI level that counts as oversold
	Window   int     // trailing bars examined
}

// DefaultDivergenceParams returns oversold 30 over the last 80 bars.
func DefaultDivergenceParams() DivergenceParams {
	return DivergenceParams{Oversold: 30.0, Window: 80}
}

const (
	retestBand = 1.05 // oversold close must sit within 5% above support
	holdBand   = 0.97 // later closes may undercut support by at most 3%
)

// HiddenBullishDivergence reports whether the most recent oversold RSI print happened on a
// retest of support and was followed by a higher RSI reading while price held the low zone.
// closes and rsis must be index aligned.
func HiddenBullishDivergence(closes, rsis []float64, support float64, p DivergenceParams) bool {
	n := len(closes)
	if len(rsis) < n {
		n = len(rsis)
	}
	if n == 0 {
		return false
	}
	start := 0
	if p.Window > 0 && n > p.Window {
		start = n - p.Window
	}

	last := -1
	for i := n - 1; i >= start; i-- {
		if !math.IsNaN(rsis[i]) && rsis[i] < p.Oversold {
			last = i
			break
		}
	}
	if last < 0 {
		return false
	}
	if closes[last] > support*retestBand {
		return false
	}

	floor := support * holdBand
	for i := last + 1; i < n; i++ {
		if math.IsNaN(rsis[i]) {
			continue
		}
		if rsis[i] > rsis[last] && closes[i] >= floor {
			return true
		}
	}
	return false
}
