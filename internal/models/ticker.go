// Package models defines the core domain entities: tickers, watchlist
// snapshots, price/volume series, signals, and persisted per-ticker state.
package models

import (
	"errors"
	"strings"
	"time"
)

// Ticker is a normalized base symbol: uppercase, 1-5 alphabetic characters,
// unit (.U) and warrant (.W) suffixes stripped. It is the identity key for
// everything in the pipeline.
type Ticker string

// NormalizeTicker converts a raw token into a Ticker. The second return value
// is false when the token does not have the ticker shape after suffix
// stripping; malformed tokens are dropped by callers, never surfaced as errors.
func NormalizeTicker(raw string) (Ticker, bool) {
	base := strings.ToUpper(strings.TrimSpace(raw))
	base = strings.TrimSuffix(base, ".U")
	base = strings.TrimSuffix(base, ".W")
	if len(base) < 1 || len(base) > 5 {
		return "", false
	}
	for _, r := range base {
		if r < 'A' || r > 'Z' {
			return "", false
		}
	}
	return Ticker(base), true
}

// WatchlistSnapshot is the ordered, de-duplicated ticker set produced by one
// aggregation run, tagged with when it was collected and which sources
// contributed. It is persisted as the last-known-good fallback.
type WatchlistSnapshot struct {
	Tickers     []Ticker  `json:"tickers"`
	Sources     []string  `json:"sources"`
	CollectedAt time.Time `json:"collected_at"`
}

// Validate checks snapshot field constraints before persistence.
func (s *WatchlistSnapshot) Validate() error {
	if s.CollectedAt.IsZero() {
		return errors.New("collected at must be set")
	}
	seen := make(map[Ticker]bool, len(s.Tickers))
	var prev Ticker
	for i, t := range s.Tickers {
		if _, ok := NormalizeTicker(string(t)); !ok {
			return errors.New("snapshot contains a malformed ticker")
		}
		if seen[t] {
			return errors.New("snapshot contains duplicate tickers")
		}
		seen[t] = true
		if i > 0 && t < prev {
			return errors.New("snapshot tickers must be sorted")
		}
		prev = t
	}
	return nil
}
