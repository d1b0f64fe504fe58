// Package commentary turns a classification into a short plain-language explanation.
package commentary

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/cache"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/model"
)

// Request carries everything an explainer may mention.
type Request struct {
	Ticker     string
	Regime     model.Regime
	Marker     string
	Price      float64
	Note       string
	Indicators map[string]float64
}

// Explainer produces commentary. Failures return an error wrapping
// model.ErrCommentaryUnavailable and callers fall back to the note.
type Explainer interface {
	Explain(ctx context.Context, req Request) (string, error)
}

// NopExplainer is used when no language model is configured.
type NopExplainer struct{}

func (NopExplainer) Explain(context.Context, Request) (string, error) {
	return "", fmt.Errorf("commentary disabled: %w", model.ErrCommentaryUnavailable)
}

// DefaultCacheTTL is how long generated commentary is reused.
const DefaultCacheTTL = 30 * time.Minute

// CachingExplainer reuses commentary for identical requests.
type CachingExplainer struct {
	next   Explainer
	cache  cache.Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachingExplainer wraps next. ttl <= 0 uses DefaultCacheTTL.
func NewCachingExplainer(next Explainer, c cache.Cache, ttl time.Duration, logger zerolog.Logger) *CachingExplainer {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachingExplainer{next: next, cache: c, ttl: ttl, logger: logger}
}

func (e *CachingExplainer) Explain(ctx context.Context, req Request) (string, error) {
	key := cacheKey(req)
	if data, ok, err := e.cache.Get(ctx, key); err == nil && ok {
		return string(data), nil
	} else if err != nil {
		e.logger.Debug().Err(err).Str("ticker", req.Ticker).Msg("commentary cache read failed")
	}

	text, err := e.next.Explain(ctx, req)
	if err != nil {
		return "", err
	}
	if err := e.cache.Set(ctx, key, []byte(text), e.ttl); err != nil {
		e.logger.Debug().Err(err).Str("ticker", req.Ticker).Msg("commentary cache write failed")
	}
	return text, nil
}

func cacheKey(req Request) string {
	sum := sha256.Sum256([]byte(req.Note))
	return fmt.Sprintf("commentary:%s:%s:%s", req.Ticker, req.Regime, hex.EncodeToString(sum[:8]))
}

// buildContext renders the facts block of the prompt. Indicators are sorted by name.
func buildContext(req Request) string {
	parts := []string{
		"Stock: " + req.Ticker,
		fmt.Sprintf("Current Price: $%.2f", req.Price),
		fmt.Sprintf("Status: %s %s", req.Regime, req.Marker),
		"Technical Analysis: " + req.Note,
	}
	if len(req.Indicators) > 0 {
		names := make([]string, 0, len(req.Indicators))
		for k := range req.Indicators {
			names = append(names, k)
		}
		sort.Strings(names)
		vals := make([]string, len(names))
		for i, k := range names {
			vals[i] = fmt.Sprintf("%s: %.2f", k, req.Indicators[k])
		}
		parts = append(parts, "Key Indicators: "+strings.Join(vals, ", "))
	}
	return strings.Join(parts, "\n")
}
