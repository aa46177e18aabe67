// Package screener applies the per-ticker catalyst rules: price gate, volume
// spike, price move, and news/filing density.
package screener

import (
	"github.com/rewired-gh/catalystwatch/internal/models"
)

// Config holds the screening thresholds.
type Config struct {
	PriceMin     float64
	PriceMax     float64
	VolSpikeMult float64 // current volume vs mean of the prior 10 sessions
	PriceMovePct float64 // one-sided: only upward moves of at least this count
	NewsMin      int     // minimum fresh news + filings inside the window
	MaxDisplay   int     // rendered-alert cap; does not affect the hit count
	BaselineBars int     // sessions in the volume baseline
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		PriceMin:     3.0,
		PriceMax:     15.0,
		VolSpikeMult: 3.0,
		PriceMovePct: 8.0,
		NewsMin:      1,
		MaxDisplay:   60,
		BaselineBars: 10,
	}
}

// Evaluate scores one ticker. The price gate is a hard filter: a ticker
// priced outside the band never yields a signal regardless of the other
// rules. Returns nil when the ticker is not a hit.
func Evaluate(cfg Config, ticker models.Ticker, series models.PriceVolumeSeries, newsCount, filingCount int) *models.CatalystSignal {
	if len(series) == 0 {
		return nil
	}
	lastPrice := series.LastClose()
	if lastPrice < cfg.PriceMin || lastPrice > cfg.PriceMax {
		return nil
	}

	spike, volLast, volBase := volumeSpike(cfg, series)
	move, pct := priceMove(cfg, series)
	newsTotal := newsCount + filingCount
	newsHit := newsTotal >= cfg.NewsMin

	if !spike && !move && !newsHit {
		return nil
	}
	return &models.CatalystSignal{
		Ticker:         ticker,
		LastPrice:      lastPrice,
		VolumeSpike:    spike,
		VolumeLast:     volLast,
		VolumeBaseline: volBase,
		PriceMove:      move,
		PriceMovePct:   pct,
		NewsHit:        newsHit,
		NewsCount24h:   newsTotal,
		FilingCount24h: filingCount,
	}
}

// volumeSpike compares the last session's volume to the mean of the
// BaselineBars sessions immediately before it. Insufficient history or a
// non-positive baseline means no spike, never an error.
func volumeSpike(cfg Config, series models.PriceVolumeSeries) (bool, float64, float64) {
	n := len(series)
	if n < cfg.BaselineBars+1 {
		return false, 0, 0
	}
	last := series[n-1].Volume
	var sum float64
	for _, b := range series[n-1-cfg.BaselineBars : n-1] {
		sum += b.Volume
	}
	base := sum / float64(cfg.BaselineBars)
	if base <= 0 {
		return false, last, base
	}
	return last >= cfg.VolSpikeMult*base, last, base
}

// priceMove computes the percent change of the last close against the prior
// close. The comparison is one-sided: only upward moves count.
func priceMove(cfg Config, series models.PriceVolumeSeries) (bool, float64) {
	n := len(series)
	if n < 2 {
		return false, 0
	}
	pct := (series[n-1].Close/series[n-2].Close - 1.0) * 100.0
	return pct >= cfg.PriceMovePct, pct
}
