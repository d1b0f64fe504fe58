package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/analyzer"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/notifier"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/recorder"
)

func newClassifyCmd() *cobra.Command {
	var (
		format   string
		username string
	)
	cmd := &cobra.Command{
		Use:   "classify [tickers...]",
		Short: "Classify tickers once and print the result",
		Example: "  watchdog classify AAPL MSFT\n" +
			"  watchdog classify --watchlist default --format json",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be table or json")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, log.Logger)
			if err != nil {
				return err
			}
			defer a.Close()

			tickers := append([]string(nil), args...)
			if username != "" {
				store, err := a.openWatchlist()
				if err != nil {
					return err
				}
				listed, err := store.List(ctx, username)
				if err != nil {
					return err
				}
				tickers = append(tickers, listed...)
			}
			if len(tickers) == 0 {
				return fmt.Errorf("no tickers given")
			}

			run := recorder.NewRun("cli", len(tickers))
			items := a.analyzer.ClassifyBatch(ctx, tickers)
			s := analyzer.Summarize(items)
			run.Finish(s.Total-s.Failed, s.Failed)
			recordBatch(a.recorder, run, items)

			out := cmd.OutOrStdout()
			if format == "json" {
				err = writeJSONReport(out, items)
			} else {
				err = writeTable(out, items)
			}
			if err != nil {
				return err
			}
			if s.Failed == s.Total {
				return fmt.Errorf("all %d tickers failed", s.Total)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "output format: table or json")
	cmd.Flags().StringVar(&username, "watchlist", "", "also classify this user's watchlist")
	return cmd
}

func recordBatch(rec recorder.Recorder, run *recorder.Run, items []analyzer.BatchItem) {
	if err := rec.RecordRun(run); err != nil {
		log.Error().Err(err).Msg("record run")
	}
	for _, it := range items {
		var err error
		if it.Err != nil {
			err = rec.RecordFailure(run.ID, it.Ticker, it.Err)
		} else {
			err = rec.RecordClassification(run.ID, it.Result)
		}
		if err != nil {
			log.Error().Err(err).Str("ticker", it.Ticker).Msg("record result")
		}
	}
}

func writeTable(w io.Writer, items []analyzer.BatchItem) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TICKER\tREGIME\tPRICE\tRULE\tNOTE")
	for _, it := range items {
		if it.Err != nil {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t%v\n", it.Ticker, "ERROR", it.Err)
			continue
		}
		r := it.Result
		fmt.Fprintf(tw, "%s\t%s %s\t%s\t%s\t%s\n", r.Ticker, r.Marker, r.Regime,
			notifier.FormatPrice(r.Price), r.Diagnostics.Rule, r.Note)
	}
	return tw.Flush()
}

type jsonItem struct {
	Ticker string `json:"ticker"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func writeJSONReport(w io.Writer, items []analyzer.BatchItem) error {
	out := struct {
		Summary analyzer.Summary `json:"summary"`
		Items   []jsonItem       `json:"items"`
	}{Summary: analyzer.Summarize(items), Items: make([]jsonItem, len(items))}
	for i, it := range items {
		out.Items[i] = jsonItem{Ticker: it.Ticker}
		if it.Err != nil {
			out.Items[i].Error = it.Err.Error()
		} else {
			out.Items[i].Result = it.Result
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
