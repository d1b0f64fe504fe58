package commentary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/cache"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/model"
)

func sampleRequest() Request {
	return Request{
		Ticker: "AAPL",
		Regime: model.RegimeCorrective,
		Marker: model.RegimeCorrective.Marker(),
		Price:  187.234,
		Note:   "Price is in a correction.",
		Indicators: map[string]float64{
			"rsi":    41.5,
			"sma200": 175,
		},
	}
}

func chatServer(t *testing.T, answer string, calls *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body struct {
			Model       string  `json:"model"`
			MaxTokens   int     `json:"max_tokens"`
			Temperature float64 `json:"temperature"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body.Model)
		assert.Equal(t, 200, body.MaxTokens)
		assert.InDelta(t, 0.7, body.Temperature, 1e-6)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Contains(t, body.Messages[1].Content, "Current Price: $187.23")
		assert.Contains(t, body.Messages[1].Content, "Key Indicators: rsi: 41.50, sma200: 175.00")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"c1","object":"chat.completion","model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]}`, answer)
	}))
}

func TestOpenAIExplainer(t *testing.T) {
	calls := 0
	srv := chatServer(t, "  The pullback is orderly.  ", &calls)
	defer srv.Close()

	e := NewOpenAIExplainer("sk-test", "", srv.URL+"/v1", time.Second)
	text, err := e.Explain(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "The pullback is orderly.", text)
	assert.Equal(t, 1, calls)
}

func TestOpenAIExplainer_EmptyAnswer(t *testing.T) {
	calls := 0
	srv := chatServer(t, "   ", &calls)
	defer srv.Close()

	e := NewOpenAIExplainer("sk-test", "gpt-4o-mini", srv.URL+"/v1", time.Second)
	_, err := e.Explain(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, model.ErrCommentaryUnavailable)
}

func TestOpenAIExplainer_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	e := NewOpenAIExplainer("sk-test", "", srv.URL+"/v1", time.Second)
	_, err := e.Explain(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, model.ErrCommentaryUnavailable)
}

func TestNopExplainer(t *testing.T) {
	_, err := NopExplainer{}.Explain(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, model.ErrCommentaryUnavailable)
}

type countingExplainer struct {
	calls int
	err   error
}

func (c *countingExplainer) Explain(_ context.Context, req Request) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return "about " + req.Ticker, nil
}

func TestCachingExplainer(t *testing.T) {
	ctx := context.Background()
	inner := &countingExplainer{}
	e := NewCachingExplainer(inner, cache.NewMemoryCache(), 0, zerolog.Nop())

	for i := 0; i < 3; i++ {
		text, err := e.Explain(ctx, sampleRequest())
		require.NoError(t, err)
		assert.Equal(t, "about AAPL", text)
	}
	assert.Equal(t, 1, inner.calls)

	changed := sampleRequest()
	changed.Note = "Different note."
	_, err := e.Explain(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls, "a new note is a new cache entry")
}

func TestCachingExplainer_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	inner := &countingExplainer{err: fmt.Errorf("down: %w", model.ErrCommentaryUnavailable)}
	e := NewCachingExplainer(inner, cache.NewMemoryCache(), time.Minute, zerolog.Nop())

	_, err := e.Explain(ctx, sampleRequest())
	assert.ErrorIs(t, err, model.ErrCommentaryUnavailable)
	inner.err = nil
	text, err := e.Explain(ctx, sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "about AAPL", text)
	assert.Equal(t, 2, inner.calls)
}
