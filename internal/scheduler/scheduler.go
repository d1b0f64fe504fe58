// Package scheduler runs the watchlist batch on a cron schedule and answers Telegram
// commands.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/analyzer"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/notifier"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/portfolio"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/recorder"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/watchlist"
)

// ErrNoTickers is returned when neither the watchlist nor the config names a ticker.
var ErrNoTickers = errors.New("no tickers to classify")

// CleanupCron removes expired cache entries at the top of every hour.
const CleanupCron = "0 0 * * * *"

// Notifier delivers messages. *notifier.TelegramNotifier implements it.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Cleaner drops expired cache entries. *cache.MemoryCache implements it.
type Cleaner interface {
	CleanupExpired() int
}

// Deps are the collaborators of a Scheduler. Notifier, Cleaner, Watchlist and Portfolio
// may be nil.
type Deps struct {
	Analyzer  *analyzer.Analyzer
	Watchlist watchlist.Store
	Portfolio *portfolio.Manager
	Recorder  recorder.Recorder
	Notifier  Notifier
	Cleaner   Cleaner
	Username  string
	Tickers   []string // always included in the batch
	Logger    zerolog.Logger
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron *cron.Cron
	Ctx  context.Context
	deps Deps
	log  zerolog.Logger
	now  func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, deps Deps) *Scheduler {
	if deps.Recorder == nil {
		deps.Recorder = recorder.NewNoopRecorder()
	}
	if deps.Username == "" {
		deps.Username = "default"
	}
	return &Scheduler{
		Cron: cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		Ctx:  ctx,
		deps: deps,
		log:  deps.Logger.With().Str("component", "scheduler").Logger(),
		now:  time.Now,
	}
}

// RegisterAll registers the daily batch and, with a Cleaner, the hourly cache cleanup.
func (s *Scheduler) RegisterAll(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	if s.deps.Cleaner != nil {
		if _, err := s.Cron.AddFunc(CleanupCron, s.cleanupTask); err != nil {
			return fmt.Errorf("register cleanup task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// Report is the outcome of one batch run.
type Report struct {
	Run         *recorder.Run
	Items       []analyzer.BatchItem
	Transitions []portfolio.Transition
}

// Tickers returns the union of the configured tickers and the user's watchlist, sorted.
func (s *Scheduler) Tickers(ctx context.Context) ([]string, error) {
	set := make(map[string]struct{})
	for _, t := range s.deps.Tickers {
		if n, err := watchlist.Normalize(t); err == nil {
			set[n] = struct{}{}
		}
	}
	if s.deps.Watchlist != nil {
		listed, err := s.deps.Watchlist.List(ctx, s.deps.Username)
		if err != nil {
			return nil, fmt.Errorf("list watchlist: %w", err)
		}
		for _, t := range listed {
			set[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

// RunBatch classifies every ticker, records the run and updates portfolio state.
func (s *Scheduler) RunBatch(ctx context.Context, trigger string) (*Report, error) {
	tickers, err := s.Tickers(ctx)
	if err != nil {
		return nil, err
	}
	if len(tickers) == 0 {
		return nil, ErrNoTickers
	}

	run := recorder.NewRun(trigger, len(tickers))
	log := s.log.With().Str("run", run.ID).Str("trigger", trigger).Logger()
	log.Info().Int("tickers", len(tickers)).Msg("batch started")

	items := s.deps.Analyzer.ClassifyBatch(ctx, tickers)
	summary := analyzer.Summarize(items)
	run.Finish(summary.Total-summary.Failed, summary.Failed)

	if err := s.deps.Recorder.RecordRun(run); err != nil {
		log.Error().Err(err).Msg("record run")
	}
	for _, it := range items {
		if it.Err != nil {
			if err := s.deps.Recorder.RecordFailure(run.ID, it.Ticker, it.Err); err != nil {
				log.Error().Err(err).Str("ticker", it.Ticker).Msg("record failure")
			}
			continue
		}
		if err := s.deps.Recorder.RecordClassification(run.ID, it.Result); err != nil {
			log.Error().Err(err).Str("ticker", it.Ticker).Msg("record classification")
		}
	}

	report := &Report{Run: run, Items: items}
	if s.deps.Portfolio != nil {
		ts, err := s.deps.Portfolio.Apply(analyzer.Results(items))
		if err != nil {
			log.Error().Err(err).Msg("update portfolio state")
		}
		report.Transitions = ts
	}
	log.Info().Int("succeeded", run.Succeeded).Int("failed", run.Failed).
		Int("transitions", len(report.Transitions)).Msg("batch finished")
	return report, nil
}

// RunDailyNow executes the daily task immediately.
func (s *Scheduler) RunDailyNow() {
	s.dailyTask()
}

func (s *Scheduler) dailyTask() {
	report, err := s.RunBatch(s.Ctx, "cron")
	if err != nil {
		s.log.Error().Err(err).Msg("daily batch")
		if !errors.Is(err, ErrNoTickers) {
			s.trySend(fmt.Sprintf("❌ Daily batch failed: %v", err))
		}
		return
	}
	s.trySend(notifier.FormatPortfolioReport(report.Items, s.now()))
	if msg := notifier.FormatTransitions(report.Transitions); msg != "" {
		s.trySend(msg)
	}
}

func (s *Scheduler) cleanupTask() {
	if n := s.deps.Cleaner.CleanupExpired(); n > 0 {
		s.log.Debug().Int("removed", n).Msg("cache cleanup")
	}
}

// HandleCommand processes a Telegram command and returns the reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.HelpText
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch cmd {
	case "/status":
		report, err := s.RunBatch(ctx, "telegram")
		if errors.Is(err, ErrNoTickers) {
			return notifier.FormatWatchlist(s.deps.Username, nil)
		}
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		return notifier.FormatPortfolioReport(report.Items, s.now())
	case "/check":
		if arg == "" {
			return "Usage: /check TICKER"
		}
		res, err := s.deps.Analyzer.Classify(ctx, arg)
		if err != nil {
			return fmt.Sprintf("❌ %s: %v", strings.ToUpper(arg), err)
		}
		return notifier.FormatResult(res)
	case "/add":
		return s.editWatchlist(ctx, arg, true)
	case "/remove":
		return s.editWatchlist(ctx, arg, false)
	case "/list":
		if s.deps.Watchlist == nil {
			return "Watchlist is not configured."
		}
		tickers, err := s.deps.Watchlist.List(ctx, s.deps.Username)
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		return notifier.FormatWatchlist(s.deps.Username, tickers)
	default:
		return notifier.HelpText
	}
}

func (s *Scheduler) editWatchlist(ctx context.Context, arg string, add bool) string {
	if s.deps.Watchlist == nil {
		return "Watchlist is not configured."
	}
	ticker, err := watchlist.Normalize(arg)
	if err != nil {
		if add {
			return "Usage: /add TICKER"
		}
		return "Usage: /remove TICKER"
	}
	if add {
		added, err := s.deps.Watchlist.Add(ctx, s.deps.Username, ticker)
		switch {
		case err != nil:
			return fmt.Sprintf("❌ %v", err)
		case added:
			return fmt.Sprintf("✅ Added %s", ticker)
		default:
			return fmt.Sprintf("%s is already on the watchlist", ticker)
		}
	}

	removed, err := s.deps.Watchlist.Remove(ctx, s.deps.Username, ticker)
	switch {
	case err != nil:
		return fmt.Sprintf("❌ %v", err)
	case !removed:
		return fmt.Sprintf("%s is not on the watchlist", ticker)
	}
	if s.deps.Portfolio != nil {
		if err := s.deps.Portfolio.Forget(ticker); err != nil {
			s.log.Warn().Err(err).Str("ticker", ticker).Msg("forget portfolio state")
		}
	}
	return fmt.Sprintf("🗑 Removed %s", ticker)
}

func (s *Scheduler) trySend(text string) {
	if s.deps.Notifier == nil {
		s.log.Debug().Msg("no notifier configured, report not sent")
		return
	}
	if err := s.deps.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}
