package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"MarketConcierge/internal/tickers"
)

// DefaultPath is where Load looks when no path is given.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	DataSource struct {
		Provider       string `yaml:"provider"`
		BaseURL        string `yaml:"base_url"`
		APIKey         string `yaml:"api_key"`
		RequestsPerSec int    `yaml:"requests_per_sec"`
		HistoryDays    int    `yaml:"history_days"`
	} `yaml:"data_source"`
	Market struct {
		Tickers      []string `yaml:"tickers"`
		Window       int      `yaml:"window"`
		ForecastDays int      `yaml:"forecast_days"`
		LotSize      int64    `yaml:"lot_size"`
	} `yaml:"market"`
	Schedule struct {
		IngestCron   string `yaml:"ingest_cron"`
		ForecastCron string `yaml:"forecast_cron"`
		RunOnStart   bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Database struct {
		Driver      string `yaml:"driver"`
		SQLitePath  string `yaml:"sqlite_path"`
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"database"`
	Ledger struct {
		StateFile      string          `yaml:"state_file"`
		InitialBalance decimal.Decimal `yaml:"initial_balance"`
	} `yaml:"ledger"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, loads .env if present, then applies
// environment variable overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
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

	// .env never overrides variables already set in the environment
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := []struct {
		key string
		dst *string
	}{
		{"SERVER_ADDR", &c.Server.Addr},
		{"DATA_PROVIDER", &c.DataSource.Provider},
		{"DATA_BASE_URL", &c.DataSource.BaseURL},
		{"DATA_API_KEY", &c.DataSource.APIKey},
		{"DB_DRIVER", &c.Database.Driver},
		{"SQLITE_PATH", &c.Database.SQLitePath},
		{"DATABASE_URL", &c.Database.PostgresDSN},
		{"LEDGER_STATE_FILE", &c.Ledger.StateFile},
		{"TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken},
		{"TELEGRAM_CHAT_ID", &c.Telegram.ChatID},
		{"LOG_LEVEL", &c.Log.Level},
		{"LOG_FORMAT", &c.Log.Format},
		{"HTTPS_PROXY", &c.Proxy},
		{"CRON_INGEST", &c.Schedule.IngestCron},
		{"CRON_FORECAST", &c.Schedule.ForecastCron},
	}
	for _, s := range strs {
		if v := os.Getenv(s.key); v != "" {
			*s.dst = v
		}
	}

	if v := os.Getenv("TICKERS"); v != "" {
		c.Market.Tickers = tickers.Parse(v)
	}
	if v := os.Getenv("INITIAL_BALANCE"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("INITIAL_BALANCE: %w", err)
		}
		c.Ledger.InitialBalance = d
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RUN_ON_START: %w", err)
		}
		c.Schedule.RunOnStart = b
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if c.DataSource.RequestsPerSec == 0 {
		c.DataSource.RequestsPerSec = 2
	}
	if c.DataSource.HistoryDays == 0 {
		c.DataSource.HistoryDays = 504
	}
	if len(c.Market.Tickers) == 0 {
		c.Market.Tickers = append([]string(nil), tickers.Default...)
	} else {
		c.Market.Tickers = tickers.Parse(strings.Join(c.Market.Tickers, ","))
	}
	if c.Market.Window == 0 {
		c.Market.Window = 90
	}
	if c.Market.ForecastDays == 0 {
		c.Market.ForecastDays = 7
	}
	if c.Market.LotSize == 0 {
		c.Market.LotSize = 100
	}
	if c.Schedule.IngestCron == "" {
		c.Schedule.IngestCron = "0 30 16 * * 1-5"
	}
	if c.Schedule.ForecastCron == "" {
		c.Schedule.ForecastCron = "0 0 17 * * 1-5"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/concierge.db"
	}
	if c.Ledger.StateFile == "" {
		c.Ledger.StateFile = "data/ledger.json"
	}
	if c.Ledger.InitialBalance.IsZero() {
		c.Ledger.InitialBalance = decimal.NewFromInt(100_000_000)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("data_source.provider %q is not one of yahoo, rest, mock", c.DataSource.Provider)
	}
	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if c.Database.PostgresDSN == "" {
			return fmt.Errorf("database.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver %q is not one of sqlite, postgres", c.Database.Driver)
	}
	if c.Market.Window <= 0 {
		return fmt.Errorf("market.window must be positive")
	}
	if c.Market.ForecastDays <= 0 {
		return fmt.Errorf("market.forecast_days must be positive")
	}
	if c.Market.LotSize <= 0 {
		return fmt.Errorf("market.lot_size must be positive")
	}
	if c.Ledger.InitialBalance.IsNegative() {
		return fmt.Errorf("ledger.initial_balance must not be negative")
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when bot_token is set")
	}
	return nil
}

// TelegramEnabled reports whether notifications should go to Telegram.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
