// Package config loads and validates the application configuration.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Sources    SourcesConfig    `mapstructure:"sources"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	MarketData MarketDataConfig `mapstructure:"marketdata"`
	Screener   ScreenerConfig   `mapstructure:"screener"`
	Spac       SpacConfig       `mapstructure:"spac"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Scan       ScanConfig       `mapstructure:"scan"`
}

// SourcesConfig holds the watchlist source endpoints.
type SourcesConfig struct {
	ListingURL         string `mapstructure:"listing_url"`
	FallbackListingURL string `mapstructure:"fallback_listing_url"`
	SECSearchURL       string `mapstructure:"sec_search_url"`
	SpinoffDaysBack    int    `mapstructure:"spinoff_days_back"`
	MaxTickers         int    `mapstructure:"max_tickers"` // 0 = uncapped; used for controlled test runs
}

// FetchConfig holds the retry policy for all upstream requests.
type FetchConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	RetryDelayBase  time.Duration `mapstructure:"retry_delay_base"`
	RetryMultiplier float64       `mapstructure:"retry_multiplier"`
	Timeout         time.Duration `mapstructure:"timeout"`
	UserAgent       string        `mapstructure:"user_agent"`
}

// MarketDataConfig holds the quote/news/options provider endpoints.
type MarketDataConfig struct {
	ChartURL   string `mapstructure:"chart_url"`
	OptionsURL string `mapstructure:"options_url"`
	SearchURL  string `mapstructure:"search_url"`
}

// ScreenerConfig holds the catalyst screening thresholds.
type ScreenerConfig struct {
	PriceMin     float64       `mapstructure:"price_min"`
	PriceMax     float64       `mapstructure:"price_max"`
	VolSpikeMult float64       `mapstructure:"vol_spike_mult"`
	PriceMovePct float64       `mapstructure:"price_move_pct"`
	NewsMin      int           `mapstructure:"news_min"`
	MaxDisplay   int           `mapstructure:"max_display"`
	HistoryDays  int           `mapstructure:"history_days"`
	TickerDelay  time.Duration `mapstructure:"ticker_delay"`
}

// SpacConfig holds the quiet-SPAC monitor parameters.
type SpacConfig struct {
	Watchlist       []string      `mapstructure:"watchlist"`
	PriceMin        float64       `mapstructure:"price_min"`
	PriceMax        float64       `mapstructure:"price_max"`
	AvgVolumeMax    float64       `mapstructure:"avg_volume_max"`
	NearestExpiries int           `mapstructure:"nearest_expiries"`
	SpikeMultiplier float64       `mapstructure:"spike_multiplier"`
	EMAAlpha        float64       `mapstructure:"ema_alpha"`
	HistoryDays     int           `mapstructure:"history_days"`
	TickerDelay     time.Duration `mapstructure:"ticker_delay"`
}

// TelegramConfig holds notification credentials. Missing credentials are not
// an error; dispatch degrades to the local log sink.
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	DBPath   string `mapstructure:"db_path"`
	AuditLog bool   `mapstructure:"audit_log"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ScanConfig controls the outer loop.
type ScanConfig struct {
	Mode         string        `mapstructure:"mode"` // catalyst, spac, or both
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// Load reads configuration from file and environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)
	v.SetEnvPrefix("CATALYST_WATCH")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sources.listing_url", "https://www.nasdaq.com/market-activity/ipos")
	v.SetDefault("sources.fallback_listing_url", "https://stockanalysis.com/ipos/")
	v.SetDefault("sources.sec_search_url", "https://efts.sec.gov/LATEST/search-index")
	v.SetDefault("sources.spinoff_days_back", 14)
	v.SetDefault("sources.max_tickers", 0)

	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.retry_delay_base", "1s")
	v.SetDefault("fetch.retry_multiplier", 2.0)
	v.SetDefault("fetch.timeout", "30s")
	v.SetDefault("fetch.user_agent", "Mozilla/5.0")

	v.SetDefault("marketdata.chart_url", "https://query1.finance.yahoo.com/v8/finance/chart")
	v.SetDefault("marketdata.options_url", "https://query1.finance.yahoo.com/v7/finance/options")
	v.SetDefault("marketdata.search_url", "https://query1.finance.yahoo.com/v1/finance/search")

	v.SetDefault("screener.price_min", 3.0)
	v.SetDefault("screener.price_max", 15.0)
	v.SetDefault("screener.vol_spike_mult", 3.0)
	v.SetDefault("screener.price_move_pct", 8.0)
	v.SetDefault("screener.news_min", 1)
	v.SetDefault("screener.max_display", 60)
	v.SetDefault("screener.history_days", 15)
	v.SetDefault("screener.ticker_delay", "600ms")

	v.SetDefault("spac.watchlist", []string{})
	v.SetDefault("spac.price_min", 9.0)
	v.SetDefault("spac.price_max", 11.0)
	v.SetDefault("spac.avg_volume_max", 500000)
	v.SetDefault("spac.nearest_expiries", 2)
	v.SetDefault("spac.spike_multiplier", 3.0)
	v.SetDefault("spac.ema_alpha", 0.2)
	v.SetDefault("spac.history_days", 30)
	v.SetDefault("spac.ticker_delay", "1s")

	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	v.SetDefault("storage.db_path", "./data/catalystwatch.db")
	v.SetDefault("storage.audit_log", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scan.mode", "both")
	v.SetDefault("scan.poll_interval", "15m")
}

// Validate checks that all configuration values are usable.
func (c *Config) Validate() error {
	if c.Sources.ListingURL == "" {
		return fmt.Errorf("sources.listing_url is required")
	}
	if c.Sources.SECSearchURL == "" {
		return fmt.Errorf("sources.sec_search_url is required")
	}
	if c.Sources.SpinoffDaysBack < 1 {
		return fmt.Errorf("sources.spinoff_days_back must be at least 1")
	}
	if c.Sources.MaxTickers < 0 {
		return fmt.Errorf("sources.max_tickers must not be negative")
	}

	if c.Fetch.MaxAttempts < 1 {
		return fmt.Errorf("fetch.max_attempts must be at least 1")
	}
	if c.Fetch.RetryMultiplier <= 0 {
		return fmt.Errorf("fetch.retry_multiplier must be positive")
	}

	if c.MarketData.ChartURL == "" || c.MarketData.OptionsURL == "" || c.MarketData.SearchURL == "" {
		return fmt.Errorf("marketdata endpoints are required")
	}

	if c.Screener.PriceMin < 0 || c.Screener.PriceMax <= c.Screener.PriceMin {
		return fmt.Errorf("screener price band must satisfy 0 <= min < max")
	}
	if c.Screener.VolSpikeMult <= 1.0 {
		return fmt.Errorf("screener.vol_spike_mult must be greater than 1")
	}
	if c.Screener.NewsMin < 1 {
		return fmt.Errorf("screener.news_min must be at least 1")
	}
	if c.Screener.HistoryDays < 12 {
		return fmt.Errorf("screener.history_days must cover the volume baseline")
	}

	if c.Spac.PriceMin < 0 || c.Spac.PriceMax <= c.Spac.PriceMin {
		return fmt.Errorf("spac price band must satisfy 0 <= min < max")
	}
	if c.Spac.EMAAlpha <= 0 || c.Spac.EMAAlpha > 1 {
		return fmt.Errorf("spac.ema_alpha must be in (0, 1]")
	}
	if c.Spac.SpikeMultiplier <= 1.0 {
		return fmt.Errorf("spac.spike_multiplier must be greater than 1")
	}
	if c.Spac.NearestExpiries < 1 {
		return fmt.Errorf("spac.nearest_expiries must be at least 1")
	}

	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}

	switch c.Scan.Mode {
	case "catalyst", "spac", "both":
	default:
		return fmt.Errorf("scan.mode must be one of: catalyst, spac, both")
	}
	if c.Scan.PollInterval < time.Minute {
		return fmt.Errorf("scan.poll_interval must be at least 1 minute")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}
	return nil
}

// TelegramEnabled reports whether real delivery credentials are present.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
