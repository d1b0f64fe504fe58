package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/model"
)

// SQLiteRecorder persists classification history to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so the API can read history while a batch writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.logger.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			source      TEXT NOT NULL,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER,
			tickers     INTEGER,
			succeeded   INTEGER,
			failed      INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS classifications (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id        TEXT NOT NULL,
			recorded_at   INTEGER NOT NULL,
			ticker        TEXT NOT NULL,
			regime        TEXT NOT NULL,
			price         REAL,
			note          TEXT,
			commentary    TEXT,
			as_of         INTEGER,
			rule          TEXT,
			trend_average REAL,
			rolling_high  REAL,
			rsi           REAL,
			support_level REAL,
			diagnostics   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_class_ticker ON classifications(ticker, as_of)`,

		`CREATE TABLE IF NOT EXISTS failures (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			recorded_at INTEGER NOT NULL,
			ticker      TEXT NOT NULL,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_failures_run ON failures(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun inserts or updates a run row.
func (r *SQLiteRecorder) RecordRun(run *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var finished any
	if !run.FinishedAt.IsZero() {
		finished = run.FinishedAt.Unix()
	}
	_, err := r.db.Exec(`INSERT INTO runs
		(id, source, started_at, finished_at, tickers, succeeded, failed)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			tickers     = excluded.tickers,
			succeeded   = excluded.succeeded,
			failed      = excluded.failed`,
		run.ID, run.Trigger, run.StartedAt.Unix(), finished,
		run.Tickers, run.Succeeded, run.Failed,
	)
	return err
}

func (r *SQLiteRecorder) RecordClassification(runID string, res model.ClassificationResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	diag, err := json.Marshal(res.Diagnostics)
	if err != nil {
		return fmt.Errorf("encode diagnostics: %w", err)
	}
	d := res.Diagnostics
	_, err = r.db.Exec(`INSERT INTO classifications
		(run_id, recorded_at, ticker, regime, price, note, commentary, as_of,
		 rule, trend_average, rolling_high, rsi, support_level, diagnostics)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		runID, time.Now().Unix(), res.Ticker, string(res.Regime), res.Price,
		res.Note, res.Commentary, res.AsOf.Unix(),
		string(d.Rule), d.TrendAverage, d.RollingHigh, d.RSI, d.SupportLevel, string(diag),
	)
	return err
}

func (r *SQLiteRecorder) RecordFailure(runID, ticker string, cause error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := r.db.Exec(`INSERT INTO failures (run_id, recorded_at, ticker, error) VALUES (?,?,?,?)`,
		runID, time.Now().Unix(), ticker, msg,
	)
	return err
}

func (r *SQLiteRecorder) History(ticker string, limit int) ([]model.ClassificationResult, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := r.db.Query(`SELECT ticker, regime, price, note, commentary, as_of, diagnostics
		FROM classifications WHERE ticker = ? ORDER BY as_of DESC, id DESC LIMIT ?`, ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []model.ClassificationResult
	for rows.Next() {
		var (
			res    model.ClassificationResult
			asOf   int64
			diag   string
			regime string
		)
		if err := rows.Scan(&res.Ticker, &regime, &res.Price, &res.Note, &res.Commentary, &asOf, &diag); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		res.Regime = model.Regime(regime)
		res.Marker = res.Regime.Marker()
		res.AsOf = time.Unix(asOf, 0).UTC()
		if err := json.Unmarshal([]byte(diag), &res.Diagnostics); err != nil {
			return nil, fmt.Errorf("decode diagnostics: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// Counts returns the number of stored runs, classifications and failures.
func (r *SQLiteRecorder) Counts() (runs, classifications, failures int, err error) {
	for _, q := range []struct {
		table string
		dst   *int
	}{{"runs", &runs}, {"classifications", &classifications}, {"failures", &failures}} {
		if err = r.db.QueryRow("SELECT COUNT(*) FROM " + q.table).Scan(q.dst); err != nil {
			return
		}
	}
	return
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
