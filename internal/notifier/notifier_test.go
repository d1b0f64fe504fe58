package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/analyzer"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/model"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/portfolio"
)

type fakeBot struct {
	mu       sync.Mutex
	sent     []map[string]string
	failures atomic.Int32 // remaining sendMessage calls that fail
	updates  string
}

func (f *fakeBot) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			if f.failures.Add(-1) >= 0 {
				http.Error(w, `{"ok":false}`, http.StatusBadGateway)
				return
			}
			var payload map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			f.mu.Lock()
			f.sent = append(f.sent, payload)
			f.mu.Unlock()
			_, _ = w.Write([]byte(`{"ok":true}`))
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			assert.Equal(t, "7", r.URL.Query().Get("offset"))
			_, _ = w.Write([]byte(f.updates))
		default:
			http.NotFound(w, r)
		}
	})
}

func newBot(t *testing.T, f *fakeBot) *TelegramNotifier {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	n := NewTelegramNotifier("TOKEN", "42", "", zerolog.Nop())
	n.APIURL = srv.URL
	n.Client = srv.Client()
	n.Backoff = time.Millisecond
	return n
}

func TestSend(t *testing.T) {
	f := &fakeBot{}
	n := newBot(t, f)
	require.NoError(t, n.Send(context.Background(), "<b>hi</b>"))
	require.Len(t, f.sent, 1)
	assert.Equal(t, "42", f.sent[0]["chat_id"])
	assert.Equal(t, "HTML", f.sent[0]["parse_mode"])
	assert.Equal(t, "<b>hi</b>", f.sent[0]["text"])
}

func TestSendWithRetry(t *testing.T) {
	f := &fakeBot{}
	f.failures.Store(2)
	n := newBot(t, f)
	require.NoError(t, n.SendWithRetry(context.Background(), "report", 3))
	assert.Len(t, f.sent, 1)

	f.failures.Store(10)
	err := n.SendWithRetry(context.Background(), "report", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 attempts failed")
}

func TestSendWithRetry_Cancelled(t *testing.T) {
	f := &fakeBot{}
	f.failures.Store(10)
	n := newBot(t, f)
	n.Backoff = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err := n.SendWithRetry(ctx, "report", 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPolling_DispatchesCommands(t *testing.T) {
	f := &fakeBot{updates: `{"ok":true,"result":[
		{"update_id":7,"message":{"text":" /list ","chat":{"id":99}}},
		{"update_id":8,"message":{"text":""}},
		{"update_id":9}
	]}`}
	n := newBot(t, f)

	updates, err := n.getUpdates(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, updates, 3)

	var got []string
	next := n.dispatch(context.Background(), updates, 7, func(_ context.Context, cmd string) string {
		got = append(got, cmd)
		return "reply to " + cmd
	})
	assert.Equal(t, 10, next)
	assert.Equal(t, []string{"/list"}, got)
	require.Len(t, f.sent, 1)
	assert.Equal(t, "99", f.sent[0]["chat_id"])
	assert.Equal(t, "reply to /list", f.sent[0]["text"])
}

func sampleResult(ticker string, regime model.Regime, price float64) model.ClassificationResult {
	return model.ClassificationResult{
		Ticker: ticker,
		Regime: regime,
		Marker: regime.Marker(),
		Price:  price,
		Note:   "note for " + ticker,
		AsOf:   time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
		Diagnostics: model.Diagnostics{
			TrendAverage: 100.123, RollingHigh: 120, RSI: 55.55, SupportLevel: 90,
		},
	}
}

func TestFormatResult(t *testing.T) {
	res := sampleResult("AAPL", model.RegimeCorrective, 110.5)
	res.Commentary = "Pullback <within> trend"
	out := FormatResult(res)
	assert.Contains(t, out, "🟡 <b>AAPL</b> CORRECTIVE | $110.50")
	assert.Contains(t, out, "Pullback &lt;within&gt; trend")
	assert.Contains(t, out, "SMA200: 100.12")
	assert.Contains(t, out, "As of 2025-01-03")

	res.Commentary = res.Note
	assert.Equal(t, 1, strings.Count(FormatResult(res), res.Note))
}

func TestFormatPortfolioReport(t *testing.T) {
	items := []analyzer.BatchItem{
		{Ticker: "AAPL", Result: sampleResult("AAPL", model.RegimeHealthy, 200)},
		{Ticker: "TSLA", Result: sampleResult("TSLA", model.RegimeBroken, 150.1)},
		{Ticker: "BAD", Err: errors.New("no data")},
	}
	out := FormatPortfolioReport(items, time.Date(2025, 1, 3, 22, 30, 0, 0, time.UTC))
	assert.Contains(t, out, "2025-01-03")
	assert.Contains(t, out, "🟢 HEALTHY: 1")
	assert.Contains(t, out, "🟡 CORRECTIVE: 0")
	assert.Contains(t, out, "🔴 BROKEN: 1")
	assert.Contains(t, out, "failed: 1")
	assert.Contains(t, out, "<b>TSLA</b> $150.10")
	assert.Contains(t, out, "⚪ <b>BAD</b> no data")
}

func TestFormatTransitions(t *testing.T) {
	assert.Empty(t, FormatTransitions(nil))
	out := FormatTransitions([]portfolio.Transition{
		{Ticker: "AAPL", From: model.RegimeHealthy, To: model.RegimeBroken, Price: 99},
		{Ticker: "MSFT", From: model.RegimeBroken, To: model.RegimeHealthy, Price: 300},
	})
	assert.Contains(t, out, "⚠️ <b>AAPL</b> 🟢 HEALTHY → 🔴 BROKEN ($99.00)")
	assert.Contains(t, out, "<b>MSFT</b> 🔴 BROKEN → 🟢 HEALTHY ($300.00)")
	assert.NotContains(t, out, "⚠️ <b>MSFT</b>")
}

func TestFormatWatchlist(t *testing.T) {
	assert.Contains(t, FormatWatchlist("bob", nil), "empty")
	assert.Contains(t, FormatWatchlist("bob", []string{"AAPL", "MSFT"}), "AAPL, MSFT")
}
