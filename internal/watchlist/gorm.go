package watchlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type userRow struct {
	ID        int64     `gorm:"primaryKey"`
	Username  string    `gorm:"size:64;uniqueIndex;not null"`
	CreatedAt time.Time
	Items     []itemRow `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (userRow) TableName() string { return "users" }

type itemRow struct {
	ID        int64     `gorm:"primaryKey"`
	UserID    int64     `gorm:"not null;uniqueIndex:uq_user_ticker"`
	Ticker    string    `gorm:"size:32;not null;uniqueIndex:uq_user_ticker"`
	CreatedAt time.Time
}

func (itemRow) TableName() string { return "watchlist_items" }

// GormStore keeps watchlists in PostgreSQL through GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore connects to dsn and migrates the schema.
func NewGormStore(dsn string, log zerolog.Logger) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return newGormStore(db, log)
}

func newGormStore(db *gorm.DB, log zerolog.Logger) (*GormStore, error) {
	if err := db.AutoMigrate(&userRow{}, &itemRow{}); err != nil {
		return nil, fmt.Errorf("migrate watchlist: %w", err)
	}
	log.Info().Str("dialect", db.Dialector.Name()).Msg("gorm watchlist opened")
	return &GormStore{db: db}, nil
}

func (s *GormStore) GetOrCreateUser(ctx context.Context, username string) (User, error) {
	if username == "" {
		return User{}, fmt.Errorf("empty username")
	}
	var row userRow
	err := s.db.WithContext(ctx).Where(userRow{Username: username}).FirstOrCreate(&row).Error
	if err != nil {
		return User{}, fmt.Errorf("get or create user: %w", err)
	}
	return User{ID: row.ID, Username: row.Username, CreatedAt: row.CreatedAt}, nil
}

func (s *GormStore) Add(ctx context.Context, username, ticker string) (bool, error) {
	t, err := Normalize(ticker)
	if err != nil {
		return false, err
	}
	u, err := s.GetOrCreateUser(ctx, username)
	if err != nil {
		return false, err
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&itemRow{UserID: u.ID, Ticker: t})
	if res.Error != nil {
		return false, fmt.Errorf("add %s: %w", t, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) Remove(ctx context.Context, username, ticker string) (bool, error) {
	t, err := Normalize(ticker)
	if err != nil {
		return false, err
	}
	var u userRow
	err = s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load user: %w", err)
	}
	res := s.db.WithContext(ctx).Where("user_id = ? AND ticker = ?", u.ID, t).Delete(&itemRow{})
	if res.Error != nil {
		return false, fmt.Errorf("remove %s: %w", t, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) List(ctx context.Context, username string) ([]string, error) {
	var tickers []string
	err := s.db.WithContext(ctx).
		Model(&itemRow{}).
		Joins("JOIN users ON users.id = watchlist_items.user_id").
		Where("users.username = ?", username).
		Order("watchlist_items.ticker").
		Pluck("watchlist_items.ticker", &tickers).Error
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	return tickers, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
