package portfolio

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/model"
)

// Transition is a regime change observed between two runs.
type Transition struct {
	Ticker string       `json:"ticker"`
	From   model.Regime `json:"from"`
	To     model.Regime `json:"to"`
	Price  float64      `json:"price"`
	Since  time.Time    `json:"since"` // when From began
}

var severity = map[model.Regime]int{
	model.RegimeHealthy:    0,
	model.RegimeCorrective: 1,
	model.RegimeBroken:     2,
}

// Worsened reports whether the move is toward BROKEN.
func (t Transition) Worsened() bool {
	return severity[t.To] > severity[t.From]
}

// Manager tracks the last regime per ticker with concurrency safety.
type Manager struct {
	mu       sync.Mutex
	state    *State
	filePath string
	now      func() time.Time
}

// NewManager creates a Manager, loading state from disk.
func NewManager(filePath string) (*Manager, error) {
	state, err := LoadState(filePath)
	if err != nil {
		return nil, fmt.Errorf("load portfolio state: %w", err)
	}
	return &Manager{state: state, filePath: filePath, now: time.Now}, nil
}

// Get returns the recorded state for ticker.
func (m *Manager) Get(ticker string) (TickerState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.state.Tickers[ticker]
	return s, ok
}

// Snapshot returns a copy of every tracked ticker.
func (m *Manager) Snapshot() map[string]TickerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]TickerState, len(m.state.Tickers))
	for k, v := range m.state.Tickers {
		out[k] = v
	}
	return out
}

// Apply records results and returns the tickers whose regime changed, sorted by ticker.
// A ticker seen for the first time is not a transition.
func (m *Manager) Apply(results []model.ClassificationResult) ([]Transition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var transitions []Transition
	for _, r := range results {
		prev, seen := m.state.Tickers[r.Ticker]
		next := TickerState{Regime: r.Regime, Price: r.Price, AsOf: r.AsOf, Since: now, Streak: 1}
		if seen && prev.Regime == r.Regime {
			next.Since = prev.Since
			next.Streak = prev.Streak + 1
		}
		if seen && prev.Regime != r.Regime {
			transitions = append(transitions, Transition{
				Ticker: r.Ticker,
				From:   prev.Regime,
				To:     r.Regime,
				Price:  r.Price,
				Since:  prev.Since,
			})
		}
		m.state.Tickers[r.Ticker] = next
	}
	sort.Slice(transitions, func(i, j int) bool { return transitions[i].Ticker < transitions[j].Ticker })

	if err := m.save(now); err != nil {
		return transitions, fmt.Errorf("save portfolio state: %w", err)
	}
	return transitions, nil
}

// Forget drops a ticker, for example after it leaves the watchlist.
func (m *Manager) Forget(ticker string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.Tickers[ticker]; !ok {
		return nil
	}
	delete(m.state.Tickers, ticker)
	return m.save(m.now())
}

func (m *Manager) save(now time.Time) error {
	return SaveState(m.filePath, m.state, now)
}
