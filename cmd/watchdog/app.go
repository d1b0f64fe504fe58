package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/analyzer"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/cache"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/collector"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/commentary"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/config"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/metrics"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/recorder"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/watchlist"
)

// app holds the wired collaborators shared by every command.
type app struct {
	cfg       *config.Config
	logger    zerolog.Logger
	metrics   *metrics.Registry
	cache     cache.Cache
	memory    *cache.MemoryCache // nil when Redis is used
	analyzer  *analyzer.Analyzer
	recorder  recorder.Recorder
	watchlist watchlist.Store
	closers   []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, metrics: metrics.New()}

	if err := a.initCache(ctx); err != nil {
		return nil, err
	}

	fetchers, err := buildFetchers(cfg)
	if err != nil {
		return nil, err
	}
	chain := collector.NewChain(fetchers, collector.ChainOptions{
		MaxRetries:   cfg.DataSource.MaxRetries,
		RetryDelay:   cfg.DataSource.RetryDelay,
		RateLimitRPS: cfg.DataSource.RateLimitRPS,
		Observer:     a.metrics,
	}, logger)
	col := collector.NewCollector(chain, cfg.DataSource.Period, cfg.DataSource.Interval)

	var explainer commentary.Explainer = commentary.NopExplainer{}
	if cfg.Commentary.APIKey != "" {
		explainer = commentary.NewCachingExplainer(
			commentary.NewOpenAIExplainer(cfg.Commentary.APIKey, cfg.Commentary.Model, cfg.Commentary.BaseURL, cfg.Commentary.Timeout),
			a.cache, commentary.DefaultCacheTTL, logger)
	}

	a.analyzer = analyzer.New(col, a.cache, explainer, analyzer.Options{
		Params:    cfg.Analysis.StrategyParams(),
		Workers:   cfg.Analysis.Workers,
		DataTTL:   cfg.Cache.DataTTL,
		ResultTTL: cfg.Cache.ResultTTL,
		Period:    cfg.DataSource.Period,
		Interval:  cfg.DataSource.Interval,
	}, a.metrics, logger)

	a.initRecorder()
	return a, nil
}

func (a *app) initCache(ctx context.Context) error {
	if addr := a.cfg.Cache.RedisAddr; addr != "" {
		client, err := cache.DialRedis(ctx, addr, a.cfg.Cache.RedisPassword)
		if err == nil {
			a.cache = cache.NewRedisCache(client, "watchdog:")
			a.closers = append(a.closers, client.Close)
			a.logger.Info().Str("addr", addr).Msg("using redis cache")
			return nil
		}
		a.logger.Warn().Err(err).Str("addr", addr).Msg("redis unavailable, using memory cache")
	}
	a.memory = cache.NewMemoryCache()
	a.cache = a.memory
	return nil
}

func (a *app) initRecorder() {
	path := a.cfg.Database.SQLitePath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		a.logger.Warn().Err(err).Msg("create data dir failed, history disabled")
		a.recorder = recorder.NewNoopRecorder()
		return
	}
	sr, err := recorder.NewSQLiteRecorder(path, a.logger)
	if err != nil {
		a.logger.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		a.recorder = recorder.NewNoopRecorder()
		return
	}
	a.recorder = sr
	a.closers = append(a.closers, sr.Close)
}

// openWatchlist opens the watchlist store on first use.
func (a *app) openWatchlist() (watchlist.Store, error) {
	if a.watchlist != nil {
		return a.watchlist, nil
	}
	path := a.cfg.Database.SQLitePath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	store, err := watchlist.Open(a.cfg.Database.WatchlistDSN, path, a.logger)
	if err != nil {
		return nil, err
	}
	a.watchlist = store
	a.closers = append(a.closers, store.Close)
	return store, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn().Err(err).Msg("close")
		}
	}
}

func buildFetchers(cfg *config.Config) ([]collector.Fetcher, error) {
	ds := cfg.DataSource
	out := make([]collector.Fetcher, 0, len(ds.Providers))
	for _, name := range ds.Providers {
		switch name {
		case "rapidapi":
			out = append(out, collector.NewRapidAPIFetcher(ds.RapidAPIKey, ds.RapidAPIHost, "", cfg.Proxy))
		case "yahoo":
			out = append(out, collector.NewYahooFetcher(cfg.Proxy))
		case "financego":
			out = append(out, collector.NewFinanceGoFetcher())
		case "mock":
			out = append(out, &collector.MockFetcher{})
		default:
			return nil, fmt.Errorf("unknown provider %q", name)
		}
	}
	return out, nil
}
