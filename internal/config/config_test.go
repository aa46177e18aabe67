package config

import (
	"os"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Remove(tmpfile.Name()) })
	if _, err := tmpfile.WriteString(content); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpfile.Name()
}

func TestLoadAndValidate(t *testing.T) {
	path := writeConfig(t, `
sources:
  spinoff_days_back: 7
  max_tickers: 25

screener:
  price_min: 2.0
  price_max: 20.0
  vol_spike_mult: 4.0
  ticker_delay: 750ms

spac:
  watchlist:
    - IPOF
    - KVSA
  ema_alpha: 0.3

telegram:
  bot_token: "test_token"
  chat_id: "12345"

scan:
  mode: catalyst
  poll_interval: 10m

logging:
  level: debug
  format: text
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Sources.SpinoffDaysBack != 7 {
		t.Errorf("spinoff_days_back = %d, want 7", cfg.Sources.SpinoffDaysBack)
	}
	if cfg.Sources.MaxTickers != 25 {
		t.Errorf("max_tickers = %d, want 25", cfg.Sources.MaxTickers)
	}
	if cfg.Screener.PriceMax != 20.0 {
		t.Errorf("price_max = %v, want 20", cfg.Screener.PriceMax)
	}
	if cfg.Screener.TickerDelay != 750*time.Millisecond {
		t.Errorf("ticker_delay = %v, want 750ms", cfg.Screener.TickerDelay)
	}
	if len(cfg.Spac.Watchlist) != 2 || cfg.Spac.Watchlist[0] != "IPOF" {
		t.Errorf("spac watchlist = %v", cfg.Spac.Watchlist)
	}
	if cfg.Spac.EMAAlpha != 0.3 {
		t.Errorf("ema_alpha = %v, want 0.3", cfg.Spac.EMAAlpha)
	}
	// Defaults fill the rest.
	if cfg.Screener.NewsMin != 1 {
		t.Errorf("news_min default = %d, want 1", cfg.Screener.NewsMin)
	}
	if cfg.Spac.NearestExpiries != 2 {
		t.Errorf("nearest_expiries default = %d, want 2", cfg.Spac.NearestExpiries)
	}
	if cfg.Scan.Mode != "catalyst" {
		t.Errorf("mode = %q", cfg.Scan.Mode)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if !cfg.TelegramEnabled() {
		t.Error("TelegramEnabled = false with both credentials set")
	}
}

func TestTelegramDisabledWithoutCredentials(t *testing.T) {
	path := writeConfig(t, "scan:\n  mode: both\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TelegramEnabled() {
		t.Error("TelegramEnabled = true without credentials")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("missing credentials must not fail validation: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	base := func() *Config {
		path := writeConfig(t, "scan:\n  mode: both\n")
		cfg, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"inverted price band", func(c *Config) { c.Screener.PriceMin = 20; c.Screener.PriceMax = 10 }},
		{"alpha above one", func(c *Config) { c.Spac.EMAAlpha = 1.5 }},
		{"alpha zero", func(c *Config) { c.Spac.EMAAlpha = 0 }},
		{"spike multiplier at one", func(c *Config) { c.Spac.SpikeMultiplier = 1.0 }},
		{"bad mode", func(c *Config) { c.Scan.Mode = "turbo" }},
		{"short history", func(c *Config) { c.Screener.HistoryDays = 5 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"empty db path", func(c *Config) { c.Storage.DBPath = "" }},
		{"sub-minute poll", func(c *Config) { c.Scan.PollInterval = time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
