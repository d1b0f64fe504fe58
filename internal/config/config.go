package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/calculator"
	"github.com/bantoinese83/Portfolio-Watchdog/internal/strategy"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Providers    []string      `yaml:"providers"`
		Period       string        `yaml:"period"`
		Interval     string        `yaml:"interval"`
		MaxRetries   int           `yaml:"max_retries"`
		RetryDelay   time.Duration `yaml:"retry_delay"`
		RateLimitRPS float64       `yaml:"rate_limit_rps"`
		RapidAPIKey  string        `yaml:"rapidapi_key"`
		RapidAPIHost string        `yaml:"rapidapi_host"`
	} `yaml:"data_source"`
	Cache struct {
		RedisAddr     string        `yaml:"redis_addr"`
		RedisPassword string        `yaml:"redis_password"`
		DataTTL       time.Duration `yaml:"data_ttl"`
		ResultTTL     time.Duration `yaml:"result_ttl"`
	} `yaml:"cache"`
	Commentary struct {
		APIKey  string        `yaml:"api_key"`
		Model   string        `yaml:"model"`
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"commentary"`
	Analysis Analysis `yaml:"analysis"`
	Schedule struct {
		DailyCron string `yaml:"daily_cron"`
	} `yaml:"schedule"`
	Portfolio struct {
		StateFile string   `yaml:"state_file"`
		Username  string   `yaml:"username"`
		Tickers   []string `yaml:"tickers"`
	} `yaml:"portfolio"`
	Database struct {
		SQLitePath   string `yaml:"sqlite_path"`
		WatchlistDSN string `yaml:"watchlist_dsn"`
	} `yaml:"database"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Analysis holds the classifier tunables.
type Analysis struct {
	Lookback         int      `yaml:"lookback"`
	Prominence       *float64 `yaml:"prominence"` // nil means default, 0 disables the filter
	Oversold         float64  `yaml:"oversold"`
	DivergenceWindow int      `yaml:"divergence_window"`
	FibWindow        int      `yaml:"fib_window"`
	FibTolerance     float64  `yaml:"fib_tolerance"`
	RSIBackend       string   `yaml:"rsi_backend"`
	Workers          int      `yaml:"workers"`
}

// StrategyParams converts the analysis section into classifier parameters.
func (a Analysis) StrategyParams() strategy.Params {
	p := strategy.DefaultParams()
	p.Swing = calculator.SwingParams{Lookback: a.Lookback, Prominence: a.ProminenceValue()}
	p.Divergence = strategy.DivergenceParams{Oversold: a.Oversold, Window: a.DivergenceWindow}
	if a.FibWindow > 0 {
		p.FibWindow = a.FibWindow
	}
	if a.FibTolerance > 0 {
		p.FibTolerance = a.FibTolerance
	}
	if a.RSIBackend != "" {
		p.RSIBackend = a.RSIBackend
	}
	return p
}

// ProminenceValue returns the configured prominence or the default.
func (a Analysis) ProminenceValue() float64 {
	if a.Prominence == nil {
		return calculator.DefaultSwingParams().Prominence
	}
	return *a.Prominence
}

// envOverrides lists every variable that can replace a file value. Zero values are ignored.
type envOverrides struct {
	TelegramBotToken string        `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string        `envconfig:"TELEGRAM_CHAT_ID"`
	RapidAPIKey      string        `envconfig:"RAPIDAPI_KEY"`
	RapidAPIHost     string        `envconfig:"RAPIDAPI_HOST"`
	OpenAIAPIKey     string        `envconfig:"OPENAI_API_KEY"`
	OpenAIModel      string        `envconfig:"OPENAI_MODEL"`
	OpenAIBaseURL    string        `envconfig:"OPENAI_BASE_URL"`
	RedisAddr        string        `envconfig:"REDIS_ADDR"`
	RedisPassword    string        `envconfig:"REDIS_PASSWORD"`
	DataCacheTTL     time.Duration `envconfig:"DATA_CACHE_TTL"`
	ClassCacheTTL    time.Duration `envconfig:"CLASS_CACHE_TTL"`
	DatabaseURL      string        `envconfig:"DATABASE_URL"`
	SQLitePath       string        `envconfig:"SQLITE_PATH"`
	HTTPAddr         string        `envconfig:"HTTP_ADDR"`
	DailyCron        string        `envconfig:"CRON_DAILY"`
	Proxy            string        `envconfig:"HTTPS_PROXY"`
	LogLevel         string        `envconfig:"LOG_LEVEL"`
}

var knownProviders = map[string]bool{"rapidapi": true, "yahoo": true, "financego": true, "mock": true}

// Load reads config from a YAML file, then applies .env and environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env is optional
	_ = godotenv.Load()

	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	cfg.applyEnv(env)
	cfg.applyDefaults()

	return cfg, nil
}

func (c *Config) applyEnv(env envOverrides) {
	setString(&c.Telegram.BotToken, env.TelegramBotToken)
	setString(&c.Telegram.ChatID, env.TelegramChatID)
	setString(&c.DataSource.RapidAPIKey, env.RapidAPIKey)
	setString(&c.DataSource.RapidAPIHost, env.RapidAPIHost)
	setString(&c.Commentary.APIKey, env.OpenAIAPIKey)
	setString(&c.Commentary.Model, env.OpenAIModel)
	setString(&c.Commentary.BaseURL, env.OpenAIBaseURL)
	setString(&c.Cache.RedisAddr, env.RedisAddr)
	setString(&c.Cache.RedisPassword, env.RedisPassword)
	setString(&c.Database.WatchlistDSN, env.DatabaseURL)
	setString(&c.Database.SQLitePath, env.SQLitePath)
	setString(&c.HTTP.Addr, env.HTTPAddr)
	setString(&c.Schedule.DailyCron, env.DailyCron)
	setString(&c.Proxy, env.Proxy)
	setString(&c.Log.Level, env.LogLevel)
	if env.DataCacheTTL > 0 {
		c.Cache.DataTTL = env.DataCacheTTL
	}
	if env.ClassCacheTTL > 0 {
		c.Cache.ResultTTL = env.ClassCacheTTL
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	ds := &c.DataSource
	if len(ds.Providers) == 0 {
		ds.Providers = []string{"rapidapi", "yahoo"}
	}
	if ds.Period == "" {
		ds.Period = "2y"
	}
	if ds.Interval == "" {
		ds.Interval = "1d"
	}
	if ds.MaxRetries == 0 {
		ds.MaxRetries = 3
	}
	if ds.RetryDelay == 0 {
		ds.RetryDelay = time.Second
	}
	if ds.RateLimitRPS == 0 {
		ds.RateLimitRPS = 2
	}
	if ds.RapidAPIHost == "" {
		ds.RapidAPIHost = "yahoo-finance166.p.rapidapi.com"
	}

	if c.Cache.DataTTL == 0 {
		c.Cache.DataTTL = 30 * time.Minute
	}
	if c.Cache.ResultTTL == 0 {
		c.Cache.ResultTTL = 5 * time.Minute
	}

	if c.Commentary.Model == "" {
		c.Commentary.Model = "gpt-4o-mini"
	}
	if c.Commentary.Timeout == 0 {
		c.Commentary.Timeout = 20 * time.Second
	}

	a := &c.Analysis
	if a.Lookback == 0 {
		a.Lookback = 2
	}
	if a.Prominence == nil {
		prominence := calculator.DefaultSwingParams().Prominence
		a.Prominence = &prominence
	}
	if a.Oversold == 0 {
		a.Oversold = 30
	}
	if a.DivergenceWindow == 0 {
		a.DivergenceWindow = 80
	}
	if a.RSIBackend == "" {
		a.RSIBackend = "windowed"
	}
	if a.Workers == 0 {
		a.Workers = 5
	}

	if c.Schedule.DailyCron == "" {
		c.Schedule.DailyCron = "0 30 22 * * 1-5"
	}
	if c.Portfolio.StateFile == "" {
		c.Portfolio.StateFile = "data/portfolio_state.json"
	}
	if c.Portfolio.Username == "" {
		c.Portfolio.Username = "default"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/watchdog.db"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks windows, ranges and provider names. Telegram is optional.
func (c *Config) Validate() error {
	if len(c.DataSource.Providers) == 0 {
		return fmt.Errorf("data_source.providers must not be empty")
	}
	for _, p := range c.DataSource.Providers {
		if !knownProviders[p] {
			return fmt.Errorf("data_source.providers: unknown provider %q", p)
		}
	}
	if c.DataSource.MaxRetries < 1 {
		return fmt.Errorf("data_source.max_retries must be at least 1")
	}
	if c.DataSource.RateLimitRPS <= 0 {
		return fmt.Errorf("data_source.rate_limit_rps must be positive")
	}
	a := c.Analysis
	if a.Lookback < 1 {
		return fmt.Errorf("analysis.lookback must be at least 1")
	}
	if a.ProminenceValue() < 0 {
		return fmt.Errorf("analysis.prominence must not be negative")
	}
	if a.Oversold <= 0 || a.Oversold >= 100 {
		return fmt.Errorf("analysis.oversold must be between 0 and 100")
	}
	if a.DivergenceWindow < 2 {
		return fmt.Errorf("analysis.divergence_window must be at least 2")
	}
	if a.FibWindow < 0 {
		return fmt.Errorf("analysis.fib_window must not be negative")
	}
	if a.FibTolerance < 0 {
		return fmt.Errorf("analysis.fib_tolerance must not be negative")
	}
	if a.RSIBackend != "windowed" && a.RSIBackend != "talib" {
		return fmt.Errorf("analysis.rsi_backend must be windowed or talib")
	}
	if a.Workers < 1 {
		return fmt.Errorf("analysis.workers must be at least 1")
	}
	if c.Cache.DataTTL < 0 || c.Cache.ResultTTL < 0 {
		return fmt.Errorf("cache ttls must not be negative")
	}
	return nil
}

// TelegramEnabled reports whether both bot token and chat id are set.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
