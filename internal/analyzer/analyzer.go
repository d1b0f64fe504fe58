// Package analyzer runs the regime classifier for tickers, with caching, commentary and
// a bounded worker pool for portfolios.
package analyzer

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/cache"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/collector"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/commentary"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/model"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/strategy"
)

// SeriesSource supplies price history. *collector.Collector implements it.
type SeriesSource interface {
	Collect(ctx context.Context, ticker string) (*model.PriceSeries, error)
}

// Observer receives instrumentation events. *metrics.Registry implements it.
type Observer interface {
	ObserveClassification(regime model.Regime, took time.Duration)
	ObserveError(kind string)
	ObserveCache(cache string, hit bool)
}

type nopObserver struct{}

func (nopObserver) ObserveClassification(model.Regime, time.Duration) {}
func (nopObserver) ObserveError(string)                               {}
func (nopObserver) ObserveCache(string, bool)                         {}

// Options tunes an Analyzer.
type Options struct {
	Params    strategy.Params
	Workers   int
	DataTTL   time.Duration
	ResultTTL time.Duration
	Period    string // only used to build series cache keys
	Interval  string
}

// Analyzer classifies tickers.
type Analyzer struct {
	source    SeriesSource
	cache     cache.Cache
	explainer commentary.Explainer
	opts      Options
	observer  Observer
	logger    zerolog.Logger
}

// New builds an Analyzer. c, e and obs may be nil.
func New(source SeriesSource, c cache.Cache, e commentary.Explainer, opts Options, obs Observer, logger zerolog.Logger) *Analyzer {
	if e == nil {
		e = commentary.NopExplainer{}
	}
	if obs == nil {
		obs = nopObserver{}
	}
	if opts.Workers < 1 {
		opts.Workers = 5
	}
	if opts.Period == "" {
		opts.Period = "2y"
	}
	if opts.Interval == "" {
		opts.Interval = "1d"
	}
	return &Analyzer{
		source:    source,
		cache:     c,
		explainer: e,
		opts:      opts,
		observer:  obs,
		logger:    logger.With().Str("component", "analyzer").Logger(),
	}
}

// ClassifySeries runs the pure classification pipeline on already fetched bars.
// weekly may be nil, in which case it is resampled from daily.
func (a *Analyzer) ClassifySeries(ticker string, daily, weekly []model.OHLCV) (model.ClassificationResult, error) {
	return strategy.Classify(ticker, daily, weekly, a.opts.Params)
}

// Classify fetches, classifies and explains one ticker.
func (a *Analyzer) Classify(ctx context.Context, ticker string) (model.ClassificationResult, error) {
	start := time.Now()
	ticker = collector.NormalizeTicker(ticker)
	log := a.logger.With().Str("ticker", ticker).Logger()

	var cached model.ClassificationResult
	if a.lookup(ctx, "result", cache.ClassificationKey(ticker), &cached) {
		log.Debug().Msg("result cache hit")
		return cached, nil
	}

	series, err := a.series(ctx, ticker)
	if err != nil {
		a.observer.ObserveError(errorKind(err))
		return model.ClassificationResult{}, err
	}

	res, err := a.ClassifySeries(ticker, series.DailyBars, series.WeeklyBars)
	if err != nil {
		a.observer.ObserveError(errorKind(err))
		return model.ClassificationResult{}, err
	}

	res.Commentary = a.explain(ctx, res)
	a.store(ctx, cache.ClassificationKey(ticker), res, a.opts.ResultTTL)

	took := time.Since(start)
	a.observer.ObserveClassification(res.Regime, took)
	log.Info().Str("regime", string(res.Regime)).Str("rule", string(res.Diagnostics.Rule)).
		Float64("price", res.Price).Dur("took", took).Msg("classified")
	return res, nil
}

func (a *Analyzer) series(ctx context.Context, ticker string) (*model.PriceSeries, error) {
	key := cache.SeriesKey(ticker, a.opts.Period, a.opts.Interval)
	var series model.PriceSeries
	if a.lookup(ctx, "series", key, &series) {
		return &series, nil
	}
	fetched, err := a.source.Collect(ctx, ticker)
	if err != nil {
		return nil, err
	}
	a.store(ctx, key, fetched, a.opts.DataTTL)
	return fetched, nil
}

func (a *Analyzer) explain(ctx context.Context, res model.ClassificationResult) string {
	d := res.Diagnostics
	text, err := a.explainer.Explain(ctx, commentary.Request{
		Ticker: res.Ticker,
		Regime: res.Regime,
		Marker: res.Marker,
		Price:  res.Price,
		Note:   res.Note,
		Indicators: map[string]float64{
			"SMA200":    d.TrendAverage,
			"20D High":  d.RollingHigh,
			"RSI":       d.RSI,
			"Momentum":  d.Momentum,
			"Swing Low": d.SupportLevel,
		},
	})
	if err != nil {
		a.logger.Debug().Err(err).Str("ticker", res.Ticker).Msg("commentary unavailable, using note")
		return res.Note
	}
	return text
}

// lookup reads a JSON value from the cache. Cache errors are logged and treated as misses.
func (a *Analyzer) lookup(ctx context.Context, name, key string, dest any) bool {
	if a.cache == nil {
		return false
	}
	hit, err := cache.GetJSON(ctx, a.cache, key, dest)
	if err != nil {
		a.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}
	a.observer.ObserveCache(name, hit)
	return hit
}

func (a *Analyzer) store(ctx context.Context, key string, value any, ttl time.Duration) {
	if a.cache == nil || ttl <= 0 {
		return
	}
	if err := cache.SetJSON(ctx, a.cache, key, value, ttl); err != nil {
		a.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// BatchItem is one ticker's outcome in a batch. Exactly one of Result and Err is meaningful.
type BatchItem struct {
	Ticker string
	Result model.ClassificationResult
	Err    error
}

// ClassifyBatch classifies every ticker with at most Options.Workers in flight. Output order
// matches input order and one ticker's failure never affects another.
func (a *Analyzer) ClassifyBatch(ctx context.Context, tickers []string) []BatchItem {
	items := make([]BatchItem, len(tickers))
	var g errgroup.Group
	g.SetLimit(a.opts.Workers)
	for i, t := range tickers {
		g.Go(func() error {
			res, err := a.Classify(ctx, t)
			items[i] = BatchItem{Ticker: collector.NormalizeTicker(t), Result: res, Err: err}
			if err != nil {
				a.logger.Warn().Err(err).Str("ticker", t).Msg("classification failed")
			}
			return nil
		})
	}
	_ = g.Wait()
	return items
}

// Summary aggregates a batch.
type Summary struct {
	Counts map[model.Regime]int `json:"counts"`
	Failed int                  `json:"failed"`
	Total  int                  `json:"total"`
}

// Summarize counts regimes and failures.
func Summarize(items []BatchItem) Summary {
	s := Summary{Counts: make(map[model.Regime]int, len(model.Regimes)), Total: len(items)}
	for _, r := range model.Regimes {
		s.Counts[r] = 0
	}
	for _, it := range items {
		if it.Err != nil {
			s.Failed++
			continue
		}
		s.Counts[it.Result.Regime]++
	}
	return s
}

// Results returns the successful results of a batch in order.
func Results(items []BatchItem) []model.ClassificationResult {
	out := make([]model.ClassificationResult, 0, len(items))
	for _, it := range items {
		if it.Err == nil {
			out = append(out, it.Result)
		}
	}
	return out
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, model.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, model.ErrDataUnavailable):
		return "data_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}
