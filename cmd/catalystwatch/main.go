package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rewired-gh/catalystwatch/internal/config"
	"github.com/rewired-gh/catalystwatch/internal/fetch"
	"github.com/rewired-gh/catalystwatch/internal/logger"
	"github.com/rewired-gh/catalystwatch/internal/marketdata"
	"github.com/rewired-gh/catalystwatch/internal/models"
	"github.com/rewired-gh/catalystwatch/internal/screener"
	"github.com/rewired-gh/catalystwatch/internal/sec"
	"github.com/rewired-gh/catalystwatch/internal/spac"
	"github.com/rewired-gh/catalystwatch/internal/storage"
	"github.com/rewired-gh/catalystwatch/internal/telegram"
	"github.com/rewired-gh/catalystwatch/internal/watchlist"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	modeFlag   = flag.String("mode", "", "Override scan mode: catalyst, spac, or both")
	once       = flag.Bool("once", false, "Run a single scan cycle and exit")
)

type app struct {
	cfg         *config.Config
	aggregator  *watchlist.Aggregator
	scanner     *screener.Scanner
	screenerCfg screener.Config
	monitor     *spac.Monitor
	spacCfg     spac.Config
	store       *storage.Store
	dispatcher  *telegram.Dispatcher
	mode        string
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *modeFlag != "" {
		cfg.Scan.Mode = *modeFlag
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	store, err := storage.Open(cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to open storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	fetcher := fetch.NewClient(fetch.Config{
		MaxAttempts: cfg.Fetch.MaxAttempts,
		DelayBase:   cfg.Fetch.RetryDelayBase,
		Multiplier:  cfg.Fetch.RetryMultiplier,
		Timeout:     cfg.Fetch.Timeout,
		UserAgent:   cfg.Fetch.UserAgent,
	})
	secClient := sec.NewClient(cfg.Sources.SECSearchURL, fetcher)
	mdClient := marketdata.NewClient(
		cfg.MarketData.ChartURL,
		cfg.MarketData.OptionsURL,
		cfg.MarketData.SearchURL,
		fetcher,
	)

	aggregator := watchlist.New(fetcher, secClient, store, watchlist.Config{
		ListingURL:         cfg.Sources.ListingURL,
		FallbackListingURL: cfg.Sources.FallbackListingURL,
		SpinoffDaysBack:    cfg.Sources.SpinoffDaysBack,
		MaxTickers:         cfg.Sources.MaxTickers,
	})

	screenerCfg := screener.Config{
		PriceMin:     cfg.Screener.PriceMin,
		PriceMax:     cfg.Screener.PriceMax,
		VolSpikeMult: cfg.Screener.VolSpikeMult,
		PriceMovePct: cfg.Screener.PriceMovePct,
		NewsMin:      cfg.Screener.NewsMin,
		MaxDisplay:   cfg.Screener.MaxDisplay,
		BaselineBars: screener.DefaultConfig().BaselineBars,
	}
	scanner := screener.NewScanner(mdClient, mdClient, secClient, screenerCfg,
		cfg.Screener.HistoryDays, cfg.Screener.TickerDelay)

	spacCfg := spac.Config{
		PriceMin:        cfg.Spac.PriceMin,
		PriceMax:        cfg.Spac.PriceMax,
		AvgVolumeMax:    cfg.Spac.AvgVolumeMax,
		NearestExpiries: cfg.Spac.NearestExpiries,
		HistoryDays:     cfg.Spac.HistoryDays,
		Detector: spac.DetectorConfig{
			Alpha:           cfg.Spac.EMAAlpha,
			SpikeMultiplier: cfg.Spac.SpikeMultiplier,
		},
	}
	var monitor *spac.Monitor
	if cfg.Storage.AuditLog {
		monitor = spac.NewMonitor(mdClient, store, spacCfg)
	} else {
		monitor = spac.NewMonitor(mdClient, nil, spacCfg)
	}

	var sender telegram.Sender
	if cfg.TelegramEnabled() {
		client, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID,
			cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		sender = client
		logger.Info("Telegram client initialized")
	} else {
		sender = telegram.LogSender{}
		logger.Info("Telegram credentials missing; alerts go to the local log sink")
	}

	a := &app{
		cfg:         cfg,
		aggregator:  aggregator,
		scanner:     scanner,
		screenerCfg: screenerCfg,
		monitor:     monitor,
		spacCfg:     spacCfg,
		store:       store,
		dispatcher:  telegram.NewDispatcher(sender),
		mode:        cfg.Scan.Mode,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	logger.Info("Starting scan service (mode: %s, interval: %v)", a.mode, cfg.Scan.PollInterval)

	consecutiveFailures := 0
	handleCycleResult := func(err error) {
		if err != nil {
			consecutiveFailures++
			logger.Error("Scan cycle failed: %v", err)
			if consecutiveFailures == 1 {
				a.dispatcher.Dispatch(fmt.Sprintf("⚠️ <b>Scan cycle failed</b>\n%s", err))
			}
			return
		}
		if consecutiveFailures > 0 {
			a.dispatcher.Dispatch(fmt.Sprintf("✅ <b>Scan recovered</b> after %d consecutive failure(s)", consecutiveFailures))
		}
		consecutiveFailures = 0
	}

	handleCycleResult(a.runCycle(ctx))
	if *once {
		logger.Info("Single cycle complete")
		return
	}

	ticker := time.NewTicker(cfg.Scan.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return
		case <-ticker.C:
			handleCycleResult(a.runCycle(ctx))
		}
	}
}

func (a *app) runCycle(ctx context.Context) error {
	start := time.Now()
	var errs []error
	if a.mode == "catalyst" || a.mode == "both" {
		if err := a.runCatalystCycle(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.mode == "spac" || a.mode == "both" {
		if err := a.runSpacCycle(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	logger.Info("Scan cycle completed in %v", time.Since(start))
	return errors.Join(errs...)
}

// runCatalystCycle aggregates the watchlist, screens every ticker, and
// dispatches one summary alert for the hits.
func (a *app) runCatalystCycle(ctx context.Context) error {
	snap, err := a.aggregator.Collect(ctx)
	if err != nil {
		return fmt.Errorf("watchlist collection failed: %w", err)
	}
	logger.Info("Watchlist size: %d (sources: %v)", len(snap.Tickers), snap.Sources)

	outcomes := a.scanner.Scan(ctx, snap.Tickers)
	var skipped int
	for _, o := range outcomes {
		if o.Status == screener.StatusSkipped {
			skipped++
		}
	}
	hits := screener.Hits(outcomes)
	logger.Info("Screened %d tickers: %d hits, %d skipped", len(outcomes), len(hits), skipped)

	if len(hits) == 0 {
		logger.Info("No catalysts today in range")
		return nil
	}
	a.dispatcher.Dispatch(telegram.FormatCatalystSummary(a.screenerCfg, hits))
	logger.Info("Alerts: %d tickers", len(hits))
	return nil
}

// runSpacCycle loads the state map once, walks the configured SPAC
// watchlist, and saves the whole map once at the end. A kill mid-cycle loses
// this cycle's updates, never prior history.
func (a *app) runSpacCycle(ctx context.Context) error {
	states, err := a.store.LoadStates()
	if err != nil {
		logger.Warn("Failed to load ticker states, reconstructing from scratch: %v", err)
		states = make(map[models.Ticker]models.TickerState)
	}

	var processed int
	for i, raw := range a.cfg.Spac.Watchlist {
		ticker, ok := models.NormalizeTicker(raw)
		if !ok {
			logger.Warn("Ignoring malformed SPAC watchlist entry %q", raw)
			continue
		}
		if i > 0 {
			time.Sleep(a.cfg.Spac.TickerDelay)
		}
		if ctx.Err() != nil {
			break
		}

		newState, events, err := a.monitor.ProcessTicker(ctx, ticker, states[ticker])
		states[ticker] = newState
		if err != nil {
			logger.Info("%s: skip (%v)", ticker, err)
			continue
		}
		processed++
		for _, e := range events {
			a.dispatcher.Dispatch(telegram.FormatSpacEvent(a.spacCfg, e))
		}
	}
	logger.Info("SPAC monitor processed %d/%d tickers", processed, len(a.cfg.Spac.Watchlist))

	if ctx.Err() != nil {
		logger.Info("Cycle interrupted; ticker states not persisted")
		return nil
	}
	if err := a.store.SaveStates(states); err != nil {
		logger.Error("Failed to persist ticker states: %v", err)
	}
	return nil
}
