// Package watchlist builds the scan universe by unioning independent ticker
// sources and falling back to the last persisted snapshot when every source
// comes back empty.
package watchlist

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/rewired-gh/catalystwatch/internal/fetch"
	"github.com/rewired-gh/catalystwatch/internal/logger"
	"github.com/rewired-gh/catalystwatch/internal/models"
)

// SpinoffSource supplies tickers from regulatory spin-off filings.
type SpinoffSource interface {
	SpinoffTickers(ctx context.Context, daysBack int) ([]models.Ticker, error)
}

// SnapshotStore persists the last-known-good watchlist.
type SnapshotStore interface {
	SaveWatchlist(snap models.WatchlistSnapshot) error
	LoadWatchlist() (models.WatchlistSnapshot, bool, error)
}

// Config holds source endpoints and collection limits.
type Config struct {
	ListingURL         string // primary IPO listing page
	FallbackListingURL string // queried only when the primary yields nothing
	SpinoffDaysBack    int
	MaxTickers         int // 0 = no cap; used for controlled test runs
}

// Aggregator unions the listing and spin-off sources into one snapshot.
type Aggregator struct {
	fetcher  *fetch.Client
	spinoffs SpinoffSource
	store    SnapshotStore
	cfg      Config
	now      func() time.Time
}

// New creates an aggregator with explicitly injected collaborators.
func New(fetcher *fetch.Client, spinoffs SpinoffSource, store SnapshotStore, cfg Config) *Aggregator {
	return &Aggregator{fetcher: fetcher, spinoffs: spinoffs, store: store, cfg: cfg, now: time.Now}
}

// Collect gathers tickers from all sources. Source failures are logged and
// treated as empty contributions; only when the union is empty does the
// persisted snapshot serve as fallback.
func (a *Aggregator) Collect(ctx context.Context) (models.WatchlistSnapshot, error) {
	union := make(map[models.Ticker]bool)
	var sources []string

	primary, err := a.fetchListing(ctx, a.cfg.ListingURL)
	if err != nil {
		logger.Warn("primary listing source failed: %v", err)
	} else if len(primary) > 0 {
		sources = append(sources, "listing")
		for _, t := range primary {
			union[t] = true
		}
	}
	logger.Info("primary listing source: %d tickers", len(primary))

	if len(primary) == 0 && a.cfg.FallbackListingURL != "" {
		secondary, err := a.fetchListing(ctx, a.cfg.FallbackListingURL)
		if err != nil {
			logger.Warn("fallback listing source failed: %v", err)
		} else if len(secondary) > 0 {
			sources = append(sources, "listing-fallback")
			for _, t := range secondary {
				union[t] = true
			}
		}
		logger.Info("fallback listing source: %d tickers", len(secondary))
	}

	spins, err := a.spinoffs.SpinoffTickers(ctx, a.cfg.SpinoffDaysBack)
	if err != nil {
		logger.Warn("spin-off source failed: %v", err)
	} else if len(spins) > 0 {
		sources = append(sources, "spinoffs")
		for _, t := range spins {
			union[t] = true
		}
	}
	logger.Info("spin-off source: %d tickers", len(spins))

	if len(union) == 0 {
		prev, ok, err := a.store.LoadWatchlist()
		if err != nil {
			return models.WatchlistSnapshot{CollectedAt: a.now()}, fmt.Errorf("all sources empty and snapshot load failed: %w", err)
		}
		if !ok {
			logger.Warn("all sources empty and no persisted snapshot; returning empty watchlist")
			return models.WatchlistSnapshot{CollectedAt: a.now()}, nil
		}
		logger.Info("all sources empty; using persisted snapshot of %d tickers", len(prev.Tickers))
		return prev, nil
	}

	tickers := make([]models.Ticker, 0, len(union))
	for t := range union {
		tickers = append(tickers, t)
	}
	sort.Slice(tickers, func(i, j int) bool { return tickers[i] < tickers[j] })
	if a.cfg.MaxTickers > 0 && len(tickers) > a.cfg.MaxTickers {
		tickers = tickers[:a.cfg.MaxTickers]
	}

	snap := models.WatchlistSnapshot{
		Tickers:     tickers,
		Sources:     sources,
		CollectedAt: a.now(),
	}
	if err := a.store.SaveWatchlist(snap); err != nil {
		logger.Warn("failed to persist watchlist snapshot: %v", err)
	}
	return snap, nil
}

// fetchListing scrapes a listing page for first-column ticker tokens.
func (a *Aggregator) fetchListing(ctx context.Context, url string) ([]models.Ticker, error) {
	body, err := a.fetcher.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	return ParseListingPage(body), nil
}

// ParseListingPage scans every table row on the page and keeps first-column
// tokens that have the ticker shape. The page layout changes occasionally, so
// missing tables and rows yield zero results, never an error.
func ParseListingPage(html []byte) []models.Ticker {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil
	}
	seen := make(map[models.Ticker]bool)
	var tickers []models.Ticker
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cell := row.Find("td").First()
		if cell.Length() == 0 {
			return
		}
		t, ok := models.NormalizeTicker(cell.Text())
		if !ok || seen[t] {
			return
		}
		seen[t] = true
		tickers = append(tickers, t)
	})
	return tickers
}
