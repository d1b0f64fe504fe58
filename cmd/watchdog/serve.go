package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/api"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/notifier"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/portfolio"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/scheduler"
)

func newServeCmd() *cobra.Command {
	var runOnStart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler, Telegram bot and HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, log.Logger)
			if err != nil {
				return err
			}
			defer a.Close()

			store, err := a.openWatchlist()
			if err != nil {
				return err
			}
			pf, err := portfolio.NewManager(cfg.Portfolio.StateFile)
			if err != nil {
				return err
			}

			deps := scheduler.Deps{
				Analyzer:  a.analyzer,
				Watchlist: store,
				Portfolio: pf,
				Recorder:  a.recorder,
				Username:  cfg.Portfolio.Username,
				Tickers:   cfg.Portfolio.Tickers,
				Logger:    log.Logger,
			}
			if a.memory != nil {
				deps.Cleaner = a.memory
			}
			var tn *notifier.TelegramNotifier
			if cfg.TelegramEnabled() {
				tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log.Logger)
				deps.Notifier = tn
			} else {
				log.Warn().Msg("telegram not configured, reports are only logged")
			}

			sched := scheduler.NewScheduler(ctx, deps)
			if err := sched.RegisterAll(cfg.Schedule.DailyCron); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			if tn != nil {
				go tn.StartPolling(ctx, sched.HandleCommand)
				log.Info().Msg("telegram polling started")
			}
			if runOnStart || os.Getenv("RUN_ON_START") == "true" {
				log.Info().Msg("running daily batch now")
				go sched.RunDailyNow()
			}

			srv := api.NewServer(cfg.HTTP.Addr, a.analyzer, a.recorder, a.metrics.Handler(), log.Logger)
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			log.Info().Str("addr", cfg.HTTP.Addr).Str("cron", cfg.Schedule.DailyCron).Msg("watchdog is running")
			select {
			case <-ctx.Done():
				log.Info().Msg("shutdown signal received")
			case err := <-errCh:
				if err != nil {
					return err
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "run the daily batch immediately")
	return cmd
}
