package model

import "time"

// Regime is the classifier's output label.
type Regime string

const (
	RegimeHealthy    Regime = "HEALTHY"
	RegimeCorrective Regime = "CORRECTIVE"
	RegimeBroken     Regime = "BROKEN"
)

// Regimes lists every label in display order.
var Regimes = []Regime{RegimeHealthy, RegimeCorrective, RegimeBroken}

// Marker returns the traffic-light marker for the regime.
func (r Regime) Marker() string {
	switch r {
	case RegimeHealthy:
		return "🟢"
	case RegimeCorrective:
		return "🟡"
	case RegimeBroken:
		return "🔴"
	default:
		return "⚪"
	}
}

// Valid reports whether r is one of the three labels.
func (r Regime) Valid() bool {
	switch r {
	case RegimeHealthy, RegimeCorrective, RegimeBroken:
		return true
	}
	return false
}

// RuleID tags the decision rule that produced a classification.
type RuleID string

const (
	RuleStructureBroken  RuleID = "STRUCTURE_BROKEN"
	RuleNegativeMomentum RuleID = "NEGATIVE_MOMENTUM"
	RuleHealthyTrend     RuleID = "HEALTHY_TREND"
	RuleCorrection       RuleID = "CORRECTION"
	RuleFallback         RuleID = "FALLBACK"
)

// Diagnostics carries the numeric evidence behind a classification.
type Diagnostics struct {
	Rule         RuleID  `json:"rule"`
	TrendAverage float64 `json:"trend_average"`
	RollingHigh  float64 `json:"rolling_high"`
	RSI          float64 `json:"rsi"`
	Momentum     float64 `json:"momentum"`
	PrevMomentum float64 `json:"prev_momentum"`
	SupportLevel float64 `json:"support_level"`
	SwingHigh    float64 `json:"swing_high,omitempty"`
	FibLevel     float64 `json:"fib_level,omitempty"`
	FibTesting   bool    `json:"fib_testing"`
	Divergence   bool    `json:"divergence"`
}

// ClassificationResult is the final output for one ticker at one bar.
type ClassificationResult struct {
	Ticker      string      `json:"ticker"`
	Regime      Regime      `json:"regime"`
	Marker      string      `json:"marker"`
	Price       float64     `json:"price"`
	Note        string      `json:"note"`
	Commentary  string      `json:"commentary,omitempty"`
	AsOf        time.Time   `json:"as_of"`
	Diagnostics Diagnostics `json:"diagnostics"`
}
