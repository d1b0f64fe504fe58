package portfolio

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/model"
)

// TickerState is the last recorded regime for one ticker.
type TickerState struct {
	Regime model.Regime `json:"regime"`
	Price  float64      `json:"price"`
	AsOf   time.Time    `json:"as_of"`
	Since  time.Time    `json:"since"`  // first run that saw the current regime
	Streak int          `json:"streak"` // consecutive runs in the current regime
}

// State is the persisted portfolio tracker.
type State struct {
	Tickers   map[string]TickerState `json:"tickers"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// LoadState reads the portfolio state from a JSON file. Returns an empty state if the file doesn't exist.
func LoadState(filePath string) (*State, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{Tickers: map[string]TickerState{}}, nil
		}
		return nil, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state.Tickers == nil {
		state.Tickers = map[string]TickerState{}
	}
	return &state, nil
}

// SaveState writes the portfolio state to a JSON file.
func SaveState(filePath string, state *State, now time.Time) error {
	state.UpdatedAt = now
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(filePath, data, 0644)
}
