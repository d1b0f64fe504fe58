package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"rapidapi", "yahoo"}, cfg.DataSource.Providers)
	assert.Equal(t, 3, cfg.DataSource.MaxRetries)
	assert.Equal(t, 30*time.Minute, cfg.Cache.DataTTL)
	assert.Equal(t, 5*time.Minute, cfg.Cache.ResultTTL)
	assert.Equal(t, "0 30 22 * * 1-5", cfg.Schedule.DailyCron)
	assert.Equal(t, 5, cfg.Analysis.Workers)

	p := cfg.Analysis.StrategyParams()
	assert.Equal(t, 2, p.Swing.Lookback)
	assert.Equal(t, 3.0, p.Swing.Prominence)
	assert.Equal(t, 30.0, p.Divergence.Oversold)
	assert.Equal(t, 80, p.Divergence.Window)
	assert.Equal(t, "windowed", p.RSIBackend)
}

func TestLoad_YAMLValues(t *testing.T) {
	path := writeConfig(t, `
data_source:
  providers: [yahoo, financego]
  retry_delay: 250ms
analysis:
  lookback: 3
  prominence: 0
  rsi_backend: talib
cache:
  data_ttl: 10m
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"yahoo", "financego"}, cfg.DataSource.Providers)
	assert.Equal(t, 250*time.Millisecond, cfg.DataSource.RetryDelay)
	assert.Equal(t, 10*time.Minute, cfg.Cache.DataTTL)

	p := cfg.Analysis.StrategyParams()
	assert.Equal(t, 3, p.Swing.Lookback)
	assert.Equal(t, 0.0, p.Swing.Prominence, "explicit zero disables the prominence filter")
	assert.Equal(t, "talib", p.RSIBackend)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
telegram:
  bot_token: from-file
  chat_id: "42"
cache:
  result_ttl: 1m
`)
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("REDIS_ADDR", "localhost:6380")
	t.Setenv("CLASS_CACHE_TTL", "90s")
	t.Setenv("DATABASE_URL", "postgres://watchdog@localhost/watchdog")
	t.Setenv("CRON_DAILY", "0 0 21 * * 1-5")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Telegram.BotToken)
	assert.Equal(t, "42", cfg.Telegram.ChatID)
	assert.True(t, cfg.TelegramEnabled())
	assert.Equal(t, "sk-test", cfg.Commentary.APIKey)
	assert.Equal(t, "localhost:6380", cfg.Cache.RedisAddr)
	assert.Equal(t, 90*time.Second, cfg.Cache.ResultTTL)
	assert.Equal(t, "postgres://watchdog@localhost/watchdog", cfg.Database.WatchlistDSN)
	assert.Equal(t, "0 0 21 * * 1-5", cfg.Schedule.DailyCron)
}

func TestLoad_BadInput(t *testing.T) {
	_, err := Load(writeConfig(t, "analysis: [unclosed"))
	assert.Error(t, err)

	t.Setenv("DATA_CACHE_TTL", "soon")
	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown provider", func(c *Config) { c.DataSource.Providers = []string{"bloomberg"} }},
		{"zero retries", func(c *Config) { c.DataSource.MaxRetries = -1 }},
		{"lookback", func(c *Config) { c.Analysis.Lookback = -2 }},
		{"oversold", func(c *Config) { c.Analysis.Oversold = 120 }},
		{"backend", func(c *Config) { c.Analysis.RSIBackend = "wilder" }},
		{"workers", func(c *Config) { c.Analysis.Workers = -1 }},
		{"negative prominence", func(c *Config) {
			v := -1.0
			c.Analysis.Prominence = &v
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
