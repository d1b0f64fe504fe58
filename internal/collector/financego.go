package collector

import (
	"context"
	"fmt"
	"sort"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/model"
)

// FinanceGoFetcher implements Fetcher on top of the finance-go chart client.
type FinanceGoFetcher struct {
	now func() time.Time
}

// NewFinanceGoFetcher creates a fetcher using the process wide finance-go backend.
func NewFinanceGoFetcher() *FinanceGoFetcher {
	return &FinanceGoFetcher{now: time.Now}
}

func (f *FinanceGoFetcher) Name() string { return "financego" }

// FetchBars downloads bars for ticker over period at interval. The finance-go client has no
// context support, so ctx is only checked before the request.
func (f *FinanceGoFetcher) FetchBars(ctx context.Context, ticker, period, interval string) ([]model.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	end := f.now()
	start, err := periodStart(end, period)
	if err != nil {
		return nil, fmt.Errorf("financego: %w", err)
	}

	iter := chart.Get(&chart.Params{
		Symbol:   ticker,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.Interval(interval),
	})

	var raw []finance.ChartBar
	for iter.Next() {
		raw = append(raw, *iter.Bar())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("financego %s: %w", ticker, err)
	}
	return convertChartBars(raw), nil
}

// convertChartBars maps decimal bars to float64 bars in chronological order. Bars with a
// zero close are dropped.
func convertChartBars(raw []finance.ChartBar) []model.OHLCV {
	bars := make([]model.OHLCV, 0, len(raw))
	for _, b := range raw {
		if b.Close.IsZero() {
			continue
		}
		bars = append(bars, model.OHLCV{
			Time:   time.Unix(int64(b.Timestamp), 0).UTC(),
			Open:   b.Open.InexactFloat64(),
			High:   b.High.InexactFloat64(),
			Low:    b.Low.InexactFloat64(),
			Close:  b.Close.InexactFloat64(),
			Volume: float64(b.Volume),
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars
}
