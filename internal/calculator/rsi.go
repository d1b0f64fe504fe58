package calculator

import (
	"math"

	"github.com/markcheno/go-talib"
)

// DefaultRSIPeriod is the oscillator window used by the classifier.
const DefaultRSIPeriod = 14

// zeroEpsilon absorbs summation residue so a window of all-zero gains or
// losses always takes the saturation branch.
const zeroEpsilon = 1e-12

// RSIBackend computes a simple-average RSI series aligned with closes.
// Positions without a full window of changes are NaN. Every backend must
// agree with WindowedRSI to within 1e-6.
type RSIBackend interface {
	Name() string
	RSI(closes []float64, period int) []float64
}

// WindowedRSI is the reference backend: each value re-sums its own window.
type WindowedRSI struct{}

func (WindowedRSI) Name() string { return "windowed" }

func (WindowedRSI) RSI(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if period <= 0 {
		return out
	}
	for t := period; t < len(closes); t++ {
		var gain, loss float64
		for i := t - period + 1; i <= t; i++ {
			change := closes[i] - closes[i-1]
			if change > 0 {
				gain += change
			} else {
				loss -= change
			}
		}
		out[t] = rsiFromAverages(gain/float64(period), loss/float64(period))
	}
	return out
}

// TalibRSI runs the same averages through go-talib's SMA.
type TalibRSI struct{}

func (TalibRSI) Name() string { return "talib" }

func (TalibRSI) RSI(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if period <= 0 || len(closes) < period+1 {
		return out
	}
	gains := make([]float64, len(closes)-1)
	losses := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i-1] = change
		} else {
			losses[i-1] = -change
		}
	}
	avgGain := talib.Sma(gains, period)
	avgLoss := talib.Sma(losses, period)
	// avg*[j] covers changes j-period+1..j, i.e. close index j+1.
	for j := period - 1; j < len(gains); j++ {
		out[j+1] = rsiFromAverages(avgGain[j], avgLoss[j])
	}
	return out
}

// BackendByName resolves a configured backend name, defaulting to the reference.
func BackendByName(name string) RSIBackend {
	if name == (TalibRSI{}).Name() {
		return TalibRSI{}
	}
	return WindowedRSI{}
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	gainZero := math.Abs(avgGain) < zeroEpsilon
	lossZero := math.Abs(avgLoss) < zeroEpsilon
	switch {
	case gainZero && lossZero:
		return 50.0
	case lossZero:
		return 100.0
	case gainZero:
		return 0.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
