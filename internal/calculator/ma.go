package calculator

import (
	"errors"
	"math"
)

var errNonPositiveWindow = errors.New("window must be positive")

// RollingMean computes a trailing simple moving average for every position.
// Positions with fewer than minPeriods values of history are NaN; between
// minPeriods and window the mean is taken over the available history.
func RollingMean(values []float64, window, minPeriods int) ([]float64, error) {
	if window <= 0 || minPeriods <= 0 {
		return nil, errNonPositiveWindow
	}
	if minPeriods > window {
		minPeriods = window
	}
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		count := i + 1
		if count > window {
			count = window
		}
		if count < minPeriods {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(count)
	}
	return out, nil
}

// RollingMax computes a trailing maximum with the same partial-window rules as RollingMean.
func RollingMax(values []float64, window, minPeriods int) ([]float64, error) {
	if window <= 0 || minPeriods <= 0 {
		return nil, errNonPositiveWindow
	}
	if minPeriods > window {
		minPeriods = window
	}
	out := make([]float64, len(values))
	for i := range values {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		if i-start+1 < minPeriods {
			out[i] = math.NaN()
			continue
		}
		m := math.Inf(-1)
		for j := start; j <= i; j++ {
			if values[j] > m {
				m = values[j]
			}
		}
		out[i] = m
	}
	return out, nil
}

// Momentum returns the first difference of values; position 0 is NaN.
func Momentum(values []float64) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i] - values[i-1]
	}
	return out
}
