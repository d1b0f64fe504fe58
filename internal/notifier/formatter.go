package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/analyzer"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/model"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/portfolio"
)

// FormatPrice renders a price with two decimals.
func FormatPrice(p float64) string {
	return decimal.NewFromFloat(p).StringFixed(2)
}

// FormatResult formats a single classification for Telegram.
func FormatResult(res model.ClassificationResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b> %s | $%s\n", res.Marker, html.EscapeString(res.Ticker), res.Regime, FormatPrice(res.Price))
	fmt.Fprintf(&b, "%s\n", html.EscapeString(res.Note))
	if res.Commentary != "" && res.Commentary != res.Note {
		fmt.Fprintf(&b, "\n<i>%s</i>\n", html.EscapeString(res.Commentary))
	}
	d := res.Diagnostics
	fmt.Fprintf(&b, "\nSMA200: %s | 20D High: %s\n", FormatPrice(d.TrendAverage), FormatPrice(d.RollingHigh))
	fmt.Fprintf(&b, "RSI: %.1f | Swing Low: %s\n", d.RSI, FormatPrice(d.SupportLevel))
	if !res.AsOf.IsZero() {
		fmt.Fprintf(&b, "As of %s\n", res.AsOf.Format("2006-01-02"))
	}
	return b.String()
}

// FormatPortfolioReport formats a batch: counts per regime, then one line per ticker.
func FormatPortfolioReport(items []analyzer.BatchItem, now time.Time) string {
	var b strings.Builder
	s := analyzer.Summarize(items)

	fmt.Fprintf(&b, "📊 <b>Portfolio Watchdog</b> | %s\n\n", now.Format("2006-01-02"))
	for _, r := range model.Regimes {
		fmt.Fprintf(&b, "%s %s: %d\n", r.Marker(), r, s.Counts[r])
	}
	if s.Failed > 0 {
		fmt.Fprintf(&b, "⚠️ failed: %d\n", s.Failed)
	}
	b.WriteString("\n")

	for _, it := range items {
		if it.Err != nil {
			fmt.Fprintf(&b, "⚪ <b>%s</b> %s\n", html.EscapeString(it.Ticker), html.EscapeString(it.Err.Error()))
			continue
		}
		res := it.Result
		fmt.Fprintf(&b, "%s <b>%s</b> $%s %s\n", res.Marker, html.EscapeString(res.Ticker), FormatPrice(res.Price), html.EscapeString(res.Note))
	}
	return b.String()
}

// FormatTransitions formats regime changes. Returns "" for none.
func FormatTransitions(ts []portfolio.Transition) string {
	if len(ts) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("🔔 <b>Regime changes</b>\n\n")
	for _, t := range ts {
		prefix := ""
		if t.Worsened() {
			prefix = "⚠️ "
		}
		fmt.Fprintf(&b, "%s<b>%s</b> %s %s → %s %s ($%s)\n", prefix, html.EscapeString(t.Ticker),
			t.From.Marker(), t.From, t.To.Marker(), t.To, FormatPrice(t.Price))
	}
	return b.String()
}

// FormatWatchlist lists a user's tickers.
func FormatWatchlist(username string, tickers []string) string {
	if len(tickers) == 0 {
		return fmt.Sprintf("Watchlist for %s is empty. Use /add TICKER.", html.EscapeString(username))
	}
	return fmt.Sprintf("📋 <b>Watchlist</b> (%d)\n%s", len(tickers), strings.Join(tickers, ", "))
}

// HelpText lists the supported commands.
const HelpText = "Available commands:\n" +
	"• /status - classify the watchlist now\n" +
	"• /check TICKER - classify one ticker\n" +
	"• /add TICKER - add to the watchlist\n" +
	"• /remove TICKER - remove from the watchlist\n" +
	"• /list - show the watchlist"
