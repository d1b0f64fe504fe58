package collector

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/calculator"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/model"
)

// MockFetcher returns deterministic data for development and testing.
type MockFetcher struct {
	Price float64                  // base price for generated series
	Bars  map[string][]model.OHLCV // fixed bars per ticker, checked first
	Err   error                    // returned from every call when set
	calls atomic.Int64
}

func (m *MockFetcher) Name() string { return "mock" }

// Calls returns how many times FetchBars ran.
func (m *MockFetcher) Calls() int { return int(m.calls.Load()) }

func (m *MockFetcher) FetchBars(_ context.Context, ticker, _, _ string) ([]model.OHLCV, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	if bars, ok := m.Bars[ticker]; ok {
		return bars, nil
	}
	price := m.Price
	if price <= 0 {
		price = 100
	}
	return generateMockBars(price, 300), nil
}

// generateMockBars produces count weekday bars ending on Friday 2025-01-03: a gentle uptrend
// with a slow oscillation.
func generateMockBars(basePrice float64, count int) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	day := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)
	for i := count - 1; i >= 0; i-- {
		for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			day = day.AddDate(0, 0, -1)
		}
		p := basePrice * (1 + float64(i-count/2)*0.001 + 0.03*math.Sin(float64(i)/9))
		bars[i] = model.OHLCV{
			Time:   day,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
		day = day.AddDate(0, 0, -1)
	}
	return bars
}

// sourced is implemented by fetchers that report which provider served a request.
type sourced interface {
	FetchBarsWithSource(ctx context.Context, ticker, period, interval string) ([]model.OHLCV, string, error)
}

// Collector fetches a ticker's daily history and derives the weekly series.
type Collector struct {
	Fetcher  Fetcher
	Period   string
	Interval string
	now      func() time.Time
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, period, interval string) *Collector {
	if period == "" {
		period = "2y"
	}
	if interval == "" {
		interval = "1d"
	}
	return &Collector{Fetcher: fetcher, Period: period, Interval: interval, now: time.Now}
}

// Collect fetches daily bars for ticker and resamples them to weekly bars.
func (c *Collector) Collect(ctx context.Context, ticker string) (*model.PriceSeries, error) {
	ticker = NormalizeTicker(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("collect: empty ticker")
	}

	var (
		daily  []model.OHLCV
		source = c.Fetcher.Name()
		err    error
	)
	if s, ok := c.Fetcher.(sourced); ok {
		daily, source, err = s.FetchBarsWithSource(ctx, ticker, c.Period, c.Interval)
	} else {
		daily, err = c.Fetcher.FetchBars(ctx, ticker, c.Period, c.Interval)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch daily bars: %w", err)
	}
	if len(daily) == 0 {
		return nil, fmt.Errorf("fetch daily bars for %s: %w", ticker, model.ErrDataUnavailable)
	}

	return &model.PriceSeries{
		Symbol:       ticker,
		DailyBars:    daily,
		WeeklyBars:   calculator.ResampleWeekly(daily),
		CurrentPrice: daily[len(daily)-1].Close,
		Provider:     source,
		FetchedAt:    c.now(),
	}, nil
}
