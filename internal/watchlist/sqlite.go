package watchlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps watchlists in a local SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewSQLiteStore opens (or creates) the database at path and runs migrations.
func NewSQLiteStore(path string, logger zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Single connection serializes writers without SQLITE_BUSY handling.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		`CREATE TABLE IF NOT EXISTS users (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			username   TEXT NOT NULL UNIQUE,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS watchlist_items (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			ticker     TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			UNIQUE (user_id, ticker)
		)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate watchlist: %w", err)
		}
	}
	logger.Info().Str("path", path).Msg("sqlite watchlist opened")
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) GetOrCreateUser(ctx context.Context, username string) (User, error) {
	if username == "" {
		return User{}, fmt.Errorf("empty username")
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, created_at) VALUES (?, ?) ON CONFLICT(username) DO NOTHING`,
		username, time.Now().Unix()); err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	var (
		u       User
		created int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, username, created_at FROM users WHERE username = ?`, username).
		Scan(&u.ID, &u.Username, &created)
	if err != nil {
		return User{}, fmt.Errorf("load user: %w", err)
	}
	u.CreatedAt = time.Unix(created, 0).UTC()
	return u, nil
}

func (s *SQLiteStore) Add(ctx context.Context, username, ticker string) (bool, error) {
	t, err := Normalize(ticker)
	if err != nil {
		return false, err
	}
	u, err := s.GetOrCreateUser(ctx, username)
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO watchlist_items (user_id, ticker, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id, ticker) DO NOTHING`,
		u.ID, t, time.Now().Unix())
	if err != nil {
		return false, fmt.Errorf("add %s: %w", t, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLiteStore) Remove(ctx context.Context, username, ticker string) (bool, error) {
	t, err := Normalize(ticker)
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM watchlist_items WHERE ticker = ? AND user_id = (SELECT id FROM users WHERE username = ?)`,
		t, username)
	if err != nil {
		return false, fmt.Errorf("remove %s: %w", t, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLiteStore) List(ctx context.Context, username string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT w.ticker FROM watchlist_items w JOIN users u ON u.id = w.user_id
		 WHERE u.username = ? ORDER BY w.ticker`, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
