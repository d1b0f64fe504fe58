package recorder

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/model"
)

func openTemp(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "watchdog.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLiteRecorder_RunLifecycle(t *testing.T) {
	r := openTemp(t)

	run := NewRun("cron", 3)
	require.NotEmpty(t, run.ID)
	require.NoError(t, r.RecordRun(run))

	day := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	for i, regime := range []model.Regime{model.RegimeHealthy, model.RegimeCorrective} {
		res := model.ClassificationResult{
			Ticker: "AAPL",
			Regime: regime,
			Price:  180 + float64(i),
			Note:   "note",
			AsOf:   day.AddDate(0, 0, i),
			Diagnostics: model.Diagnostics{
				Rule:         model.RuleHealthyTrend,
				SupportLevel: 150,
				FibTesting:   i == 1,
			},
		}
		require.NoError(t, r.RecordClassification(run.ID, res))
	}
	require.NoError(t, r.RecordFailure(run.ID, "ZZZZ", errors.New("data unavailable")))

	run.Finish(2, 1)
	require.NoError(t, r.RecordRun(run), "second write updates the same run")

	runs, classifications, failures, err := r.Counts()
	require.NoError(t, err)
	assert.Equal(t, 1, runs)
	assert.Equal(t, 2, classifications)
	assert.Equal(t, 1, failures)

	history, err := r.History("AAPL", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.RegimeCorrective, history[0].Regime, "newest first")
	assert.Equal(t, model.RegimeCorrective.Marker(), history[0].Marker)
	assert.Equal(t, day.AddDate(0, 0, 1), history[0].AsOf)
	assert.True(t, history[0].Diagnostics.FibTesting)
	assert.Equal(t, 150.0, history[1].Diagnostics.SupportLevel)

	limited, err := r.History("AAPL", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := r.History("MSFT", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordRun(NewRun("cli", 1)))
	assert.NoError(t, r.RecordClassification("id", model.ClassificationResult{}))
	assert.NoError(t, r.RecordFailure("id", "X", errors.New("x")))
	h, err := r.History("X", 5)
	assert.NoError(t, err)
	assert.Empty(t, h)
	assert.NoError(t, r.Close())
}
