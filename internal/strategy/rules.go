package strategy

import "github.com/bantoinese83/Portfolio-Watchdog/internal/model"

// snapshot is the latest state every rule is evaluated against.
type snapshot struct {
	Close        float64
	TrendAverage float64
	RollingHigh  float64
	Momentum     float64
	PrevMomentum float64
	Support      float64
}

// rule is one entry of the ordered decision list. The first match wins.
type rule struct {
	ID     model.RuleID
	Regime model.Regime
	Note   string
	Match  func(s snapshot) bool
}

// Rules is the decision list in priority order. The final rule always matches,
// so every snapshot receives exactly one regime.
var Rules = []rule{
	{
		ID:     model.RuleStructureBroken,
		Regime: model.RegimeBroken,
		Note:   "Price closed below last major weekly swing low (structure broken).",
		Match:  func(s snapshot) bool { return s.Close < s.Support },
	},
	{
		ID:     model.RuleNegativeMomentum,
		Regime: model.RegimeBroken,
		Note:   "Price is below 200-day MA with persistent negative momentum.",
		Match: func(s snapshot) bool {
			return s.Close < s.TrendAverage && s.Momentum < 0 && s.PrevMomentum < 0
		},
	},
	{
		ID:     model.RuleHealthyTrend,
		Regime: model.RegimeHealthy,
		Note:   "Trend is healthy: price above 200-day MA and momentum positive.",
		Match:  func(s snapshot) bool { return s.Close > s.TrendAverage && s.Momentum > 0 },
	},
	{
		ID:     model.RuleCorrection,
		Regime: model.RegimeCorrective,
		Note:   "Price is in a correction below 20-day high but structure is intact above swing low.",
		Match:  func(s snapshot) bool { return s.Close < s.RollingHigh && s.Close > s.Support },
	},
	{
		ID:     model.RuleFallback,
		Regime: model.RegimeBroken,
		Note:   "Trend is weak and outside defined healthy correction zone.",
		Match:  func(snapshot) bool { return true },
	},
}

// Annotation notes appended inside the corrective regime.
const (
	NoteFibonacci  = "Price is testing 61.8% Fibonacci retracement support."
	NoteDivergence = "RSI oversold while price holds above swing low (hidden bullish divergence)."
	NoteFallback   = "No specific note."
)

// match returns the first rule accepting s.
func match(s snapshot) rule {
	for _, r := range Rules {
		if r.Match(s) {
			return r
		}
	}
	return Rules[len(Rules)-1]
}
