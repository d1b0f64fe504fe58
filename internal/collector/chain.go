package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/model"
)

// FetchObserver receives one call per provider attempt. result is "ok", "error" or "open".
type FetchObserver interface {
	ObserveFetch(provider, result string)
}

// ChainOptions tunes retries, rate limiting and the per-provider breakers.
type ChainOptions struct {
	MaxRetries      int
	RetryDelay      time.Duration
	RateLimitRPS    float64
	BreakerFailures uint32
	BreakerTimeout  time.Duration
	Observer        FetchObserver
}

type provider struct {
	fetcher Fetcher
	breaker *gobreaker.CircuitBreaker
}

// Chain tries each provider in order until one returns bars.
type Chain struct {
	providers  []provider
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	observer   FetchObserver
	logger     zerolog.Logger
}

// NewChain wraps fetchers in order of preference.
func NewChain(fetchers []Fetcher, opts ChainOptions, logger zerolog.Logger) *Chain {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerTimeout == 0 {
		opts.BreakerTimeout = time.Minute
	}
	limit := rate.Inf
	if opts.RateLimitRPS > 0 {
		limit = rate.Limit(opts.RateLimitRPS)
	}

	c := &Chain{
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		observer:   opts.Observer,
		logger:     logger.With().Str("component", "collector").Logger(),
	}
	for _, f := range fetchers {
		failures := opts.BreakerFailures
		c.providers = append(c.providers, provider{
			fetcher: f,
			breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
				Name:    f.Name(),
				Timeout: opts.BreakerTimeout,
				ReadyToTrip: func(counts gobreaker.Counts) bool {
					return counts.ConsecutiveFailures >= failures
				},
			}),
		})
	}
	return c
}

func (c *Chain) Name() string { return "chain" }

// FetchBars implements Fetcher.
func (c *Chain) FetchBars(ctx context.Context, ticker, period, interval string) ([]model.OHLCV, error) {
	bars, _, err := c.FetchBarsWithSource(ctx, ticker, period, interval)
	return bars, err
}

// FetchBarsWithSource also returns the name of the provider that served the bars.
func (c *Chain) FetchBarsWithSource(ctx context.Context, ticker, period, interval string) ([]model.OHLCV, string, error) {
	lastErr := errors.New("no providers configured")
	for _, p := range c.providers {
		if !enabled(p.fetcher) {
			continue
		}
		bars, err := c.tryProvider(ctx, p, ticker, period, interval)
		if err == nil {
			return bars, p.fetcher.Name(), nil
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		lastErr = err
		c.logger.Warn().Err(err).Str("ticker", ticker).Str("provider", p.fetcher.Name()).Msg("provider failed, trying next")
	}
	return nil, "", fmt.Errorf("%s: %w: %v", ticker, model.ErrDataUnavailable, lastErr)
}

func (c *Chain) tryProvider(ctx context.Context, p provider, ticker, period, interval string) ([]model.OHLCV, error) {
	name := p.fetcher.Name()
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		out, err := p.breaker.Execute(func() (interface{}, error) {
			bars, err := p.fetcher.FetchBars(ctx, ticker, period, interval)
			if err != nil {
				return nil, err
			}
			if len(bars) == 0 {
				return nil, fmt.Errorf("%s: empty response", name)
			}
			return bars, nil
		})
		if err == nil {
			c.observe(name, "ok")
			return out.([]model.OHLCV), nil
		}
		lastErr = err
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.observe(name, "open")
			return nil, err
		}
		c.observe(name, "error")
		c.logger.Debug().Err(err).Str("ticker", ticker).Str("provider", name).Int("attempt", attempt+1).Msg("fetch attempt failed")

		if attempt+1 < c.maxRetries {
			if err := sleep(ctx, c.retryDelay*time.Duration(attempt+1)); err != nil {
				return nil, err
			}
		}
	}
	return nil, lastErr
}

func (c *Chain) observe(provider, result string) {
	if c.observer != nil {
		c.observer.ObserveFetch(provider, result)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
