// Package watchlist stores the tickers each user monitors.
package watchlist

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrInvalidTicker is returned for empty or oversized symbols.
var ErrInvalidTicker = errors.New("invalid ticker")

const maxTickerLen = 32

// User owns a watchlist.
type User struct {
	ID        int64
	Username  string
	CreatedAt time.Time
}

// Store persists (user, ticker) pairs. Tickers are normalized on the way in and each
// pair is stored at most once.
type Store interface {
	GetOrCreateUser(ctx context.Context, username string) (User, error)
	// Add reports whether the ticker was newly added.
	Add(ctx context.Context, username, ticker string) (bool, error)
	// Remove reports whether the ticker was present.
	Remove(ctx context.Context, username, ticker string) (bool, error)
	// List returns the user's tickers in alphabetical order.
	List(ctx context.Context, username string) ([]string, error)
	Close() error
}

// Normalize trims and upper-cases ticker and validates its length.
func Normalize(ticker string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if t == "" || len(t) > maxTickerLen || strings.ContainsAny(t, " \t\n") {
		return "", ErrInvalidTicker
	}
	return t, nil
}

// Open picks the GORM/Postgres store for a postgres DSN and SQLite otherwise.
func Open(dsn, sqlitePath string, logger zerolog.Logger) (Store, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return NewGormStore(dsn, logger)
	}
	return NewSQLiteStore(sqlitePath, logger)
}
