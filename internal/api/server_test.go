package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/analyzer"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/cache"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/collector"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/metrics"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/model"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/recorder"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/strategy"
)

func uptrend(n int) []model.OHLCV {
	bars := make([]model.OHLCV, 0, n)
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			day = day.AddDate(0, 0, 1)
		}
		c := 100 + 0.5*float64(i)
		bars = append(bars, model.OHLCV{Time: day, Open: c, High: c * 1.01, Low: c * 0.99, Close: c, Volume: 1000})
		day = day.AddDate(0, 0, 1)
	}
	return bars
}

func newTestServer(t *testing.T) (*Server, *recorder.SQLiteRecorder, *metrics.Registry) {
	t.Helper()
	mock := &collector.MockFetcher{
		Bars: map[string][]model.OHLCV{"UP": uptrend(250), "SHORT": uptrend(10)},
	}
	reg := metrics.New()
	a := analyzer.New(collector.NewCollector(mock, "", ""), cache.NewMemoryCache(), nil,
		analyzer.Options{Params: strategy.DefaultParams(), ResultTTL: time.Minute, DataTTL: time.Minute}, reg, zerolog.Nop())
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "h.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })
	return NewServer(":0", a, rec, reg.Handler(), zerolog.Nop()), rec, reg
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthz(t *testing.T) {
	s, _, _ := newTestServer(t)
	w := get(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestClassify(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := get(t, s, "/api/v1/classify/up")
	require.Equal(t, http.StatusOK, w.Code)
	var res model.ClassificationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "UP", res.Ticker)
	assert.Equal(t, model.RegimeHealthy, res.Regime)
	assert.Equal(t, "🟢", res.Marker)

	w = get(t, s, "/api/v1/classify/short")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "error")
}

func TestPortfolio(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := get(t, s, "/api/v1/portfolio?tickers=up,%20short,UP")
	require.Equal(t, http.StatusOK, w.Code)
	var resp portfolioResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "UP", resp.Items[0].Ticker)
	require.NotNil(t, resp.Items[0].Result)
	assert.Equal(t, model.RegimeHealthy, resp.Items[0].Result.Regime)
	assert.Equal(t, "SHORT", resp.Items[1].Ticker)
	assert.Nil(t, resp.Items[1].Result)
	assert.NotEmpty(t, resp.Items[1].Error)
	assert.Equal(t, 2, resp.Summary.Total)
	assert.Equal(t, 1, resp.Summary.Failed)
	assert.Equal(t, 1, resp.Summary.Counts[model.RegimeHealthy])

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/v1/portfolio").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/v1/portfolio?tickers=,,").Code)
}

func TestHistory(t *testing.T) {
	s, rec, _ := newTestServer(t)
	run := recorder.NewRun("api", 1)
	require.NoError(t, rec.RecordRun(run))
	require.NoError(t, rec.RecordClassification(run.ID, model.ClassificationResult{
		Ticker: "AAPL", Regime: model.RegimeBroken, Price: 10, Note: "n", AsOf: time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
	}))

	w := get(t, s, "/api/v1/history/aapl?limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Ticker  string                       `json:"ticker"`
		History []model.ClassificationResult `json:"history"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "AAPL", body.Ticker)
	require.Len(t, body.History, 1)
	assert.Equal(t, model.RegimeBroken, body.History[0].Regime)

	w = get(t, s, "/api/v1/history/none")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"history":[]`)

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/v1/history/aapl?limit=0").Code)
}

func TestMetricsAndNotFound(t *testing.T) {
	s, _, _ := newTestServer(t)
	get(t, s, "/api/v1/classify/UP")

	w := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "watchdog_classifications_total")

	w = get(t, s, "/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"not found"}`, w.Body.String())
}

func TestSplitTickers(t *testing.T) {
	assert.Equal(t, []string{"A", "B"}, splitTickers(" a ,b,A,,"))
	assert.Nil(t, splitTickers(""))
}
