package recorder

import (
	"time"

	"github.com/google/uuid"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/model"
)

// Run describes one batch classification.
type Run struct {
	ID         string
	Trigger    string // "cli", "cron", "telegram" or "api"
	StartedAt  time.Time
	FinishedAt time.Time
	Tickers    int
	Succeeded  int
	Failed     int
}

// NewRun starts a run with a fresh id.
func NewRun(trigger string, tickers int) *Run {
	return &Run{ID: uuid.NewString(), Trigger: trigger, StartedAt: time.Now(), Tickers: tickers}
}

// Finish stamps the end time and outcome counts.
func (r *Run) Finish(succeeded, failed int) {
	r.FinishedAt = time.Now()
	r.Succeeded = succeeded
	r.Failed = failed
}

// Recorder persists classification history for later analysis.
type Recorder interface {
	RecordRun(run *Run) error
	RecordClassification(runID string, result model.ClassificationResult) error
	RecordFailure(runID, ticker string, cause error) error
	// History returns up to limit results for ticker, newest first.
	History(ticker string, limit int) ([]model.ClassificationResult, error)
	Close() error
}
