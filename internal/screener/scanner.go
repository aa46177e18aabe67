package screener

import (
	"context"
	"errors"
	"time"

	"github.com/rewired-gh/catalystwatch/internal/logger"
	"github.com/rewired-gh/catalystwatch/internal/marketdata"
	"github.com/rewired-gh/catalystwatch/internal/models"
)

// SeriesProvider supplies daily bar history for one ticker.
type SeriesProvider interface {
	History(ctx context.Context, ticker models.Ticker, days int) (models.PriceVolumeSeries, error)
}

// NewsCounter counts recency-filtered news items for one ticker.
type NewsCounter interface {
	RecentNewsCount(ctx context.Context, ticker models.Ticker, window time.Duration) int
}

// FilingCounter counts recency-filtered regulatory filings for one ticker.
type FilingCounter interface {
	RecentFilingsCount(ctx context.Context, ticker models.Ticker, window time.Duration) int
}

// Status classifies the outcome of evaluating one ticker.
type Status int

const (
	StatusHit Status = iota
	StatusNoSignal
	StatusSkipped
)

// Outcome is the typed per-ticker result. The orchestrator decides to
// log-and-continue; nothing here aborts the scan loop.
type Outcome struct {
	Ticker models.Ticker
	Status Status
	Signal *models.CatalystSignal
	Err    error // set only for StatusSkipped
}

// Scanner walks the watchlist sequentially and evaluates each ticker.
type Scanner struct {
	series   SeriesProvider
	news     NewsCounter
	filings  FilingCounter
	cfg      Config
	histDays int
	window   time.Duration
	delay    time.Duration
	sleep    func(time.Duration)
}

// NewScanner builds a scanner with injected providers. histDays controls the
// history window requested per ticker; delay is the blocking pause between
// tickers that respects upstream rate limits.
func NewScanner(series SeriesProvider, news NewsCounter, filings FilingCounter, cfg Config, histDays int, delay time.Duration) *Scanner {
	return &Scanner{
		series:   series,
		news:     news,
		filings:  filings,
		cfg:      cfg,
		histDays: histDays,
		window:   24 * time.Hour,
		delay:    delay,
		sleep:    time.Sleep,
	}
}

// Scan evaluates every ticker in watchlist order. One ticker is fully
// processed before the next begins; a failure affects only that ticker.
func (s *Scanner) Scan(ctx context.Context, tickers []models.Ticker) []Outcome {
	outcomes := make([]Outcome, 0, len(tickers))
	for i, t := range tickers {
		if i > 0 {
			s.sleep(s.delay)
		}
		if err := ctx.Err(); err != nil {
			break
		}
		outcomes = append(outcomes, s.scanOne(ctx, t))
	}
	return outcomes
}

func (s *Scanner) scanOne(ctx context.Context, ticker models.Ticker) Outcome {
	series, err := s.series.History(ctx, ticker, s.histDays)
	if err != nil {
		if errors.Is(err, marketdata.ErrNoData) {
			logger.Debug("%s: no history, skipping", ticker)
		} else {
			logger.Info("%s: skip (%v)", ticker, err)
		}
		return Outcome{Ticker: ticker, Status: StatusSkipped, Err: err}
	}

	newsCount := s.news.RecentNewsCount(ctx, ticker, s.window)
	filingCount := s.filings.RecentFilingsCount(ctx, ticker, s.window)

	sig := Evaluate(s.cfg, ticker, series, newsCount, filingCount)
	if sig == nil {
		return Outcome{Ticker: ticker, Status: StatusNoSignal}
	}
	return Outcome{Ticker: ticker, Status: StatusHit, Signal: sig}
}

// Hits extracts the signals from hit outcomes, preserving watchlist order.
func Hits(outcomes []Outcome) []models.CatalystSignal {
	var hits []models.CatalystSignal
	for _, o := range outcomes {
		if o.Status == StatusHit {
			hits = append(hits, *o.Signal)
		}
	}
	return hits
}
