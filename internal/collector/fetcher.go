package collector

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/model"
)

// Fetcher retrieves chronological OHLCV bars for one ticker.
type Fetcher interface {
	FetchBars(ctx context.Context, ticker, period, interval string) ([]model.OHLCV, error)
	Name() string
}

// toggle is implemented by fetchers that can be switched off by configuration.
type toggle interface {
	Enabled() bool
}

func enabled(f Fetcher) bool {
	t, ok := f.(toggle)
	return !ok || t.Enabled()
}

// NormalizeTicker trims and upper-cases a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// periodStart converts a Yahoo style range ("5d", "1mo", "2y") into the start time before now.
func periodStart(now time.Time, period string) (time.Time, error) {
	p := strings.ToLower(strings.TrimSpace(period))
	if p == "max" {
		return time.Unix(0, 0).In(now.Location()), nil
	}
	for _, unit := range []string{"mo", "wk", "d", "y"} {
		if !strings.HasSuffix(p, unit) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(p, unit))
		if err != nil || n <= 0 {
			return time.Time{}, fmt.Errorf("invalid period %q", period)
		}
		switch unit {
		case "d":
			return now.AddDate(0, 0, -n), nil
		case "wk":
			return now.AddDate(0, 0, -7*n), nil
		case "mo":
			return now.AddDate(0, -n, 0), nil
		default:
			return now.AddDate(-n, 0, 0), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid period %q", period)
}
