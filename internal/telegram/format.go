package telegram

import (
	"fmt"
	"strings"

	"github.com/rewired-gh/catalystwatch/internal/models"
	"github.com/rewired-gh/catalystwatch/internal/screener"
	"github.com/rewired-gh/catalystwatch/internal/spac"
)

// FormatCatalystSummary renders the per-run catalyst alert. Hits beyond the
// display cap are dropped from the rendered text only; the caller still logs
// the full hit count.
func FormatCatalystSummary(cfg screener.Config, hits []models.CatalystSignal) string {
	shown := hits
	if cfg.MaxDisplay > 0 && len(shown) > cfg.MaxDisplay {
		shown = shown[:cfg.MaxDisplay]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🚀 <b>Catalyst Watch</b> $%.0f–$%.0f\n", cfg.PriceMin, cfg.PriceMax)
	fmt.Fprintf(&b, "Triggers: Vol≥%.1f×, Δ≥%.1f%%, News≥%d\n", cfg.VolSpikeMult, cfg.PriceMovePct, cfg.NewsMin)

	for _, h := range shown {
		var flags []string
		if h.VolumeSpike {
			base := h.VolumeBaseline
			if base < 1 {
				base = 1
			}
			flags = append(flags, fmt.Sprintf("Vol≥%.1f× (%d/%d)", cfg.VolSpikeMult, int64(h.VolumeLast), int64(base)))
		}
		if h.PriceMove {
			flags = append(flags, fmt.Sprintf("Δ%.2f%%", h.PriceMovePct))
		}
		if h.NewsHit {
			flags = append(flags, fmt.Sprintf("News:%d (prov %d/SEC %d)",
				h.NewsCount24h, h.NewsCount24h-h.FilingCount24h, h.FilingCount24h))
		}
		line := fmt.Sprintf("%s ($%.2f)", h.Ticker, h.LastPrice)
		if len(flags) > 0 {
			line += " — " + strings.Join(flags, ", ")
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatSpacEvent renders one quiet-SPAC monitor event.
func FormatSpacEvent(cfg spac.Config, e spac.Event) string {
	switch e.Kind {
	case spac.EventOptionsListed:
		expiries := e.Expiries
		if len(expiries) > cfg.NearestExpiries {
			expiries = expiries[:cfg.NearestExpiries]
		}
		list := strings.Join(expiries, ", ")
		if list == "" {
			list = "—"
		}
		return fmt.Sprintf(
			"🟢 <b>%s</b>: options listed for the first time\n"+
				"Price: $%.2f, avg share volume: %d\n"+
				"Expiries (first %d): %s",
			e.Ticker, e.Price, int64(e.AvgVolume), cfg.NearestExpiries, list)

	case spac.EventVolumeSpike:
		var lines []string
		for _, ev := range e.ByExpiry {
			lines = append(lines, fmt.Sprintf("%s: C=%d, P=%d", ev.Expiry, ev.CallsVolume, ev.PutsVolume))
		}
		details := strings.Join(lines, "\n")
		if details == "" {
			details = "no data"
		}
		return fmt.Sprintf(
			"🔥 <b>%s</b>: option volume spike (≥%.1f×)\n"+
				"Price: $%.2f, avg share volume: %d\n"+
				"Current opt volume: %d, EMA: %d → %d\n"+
				"By expiry:\n%s",
			e.Ticker, cfg.Detector.SpikeMultiplier, e.Price, int64(e.AvgVolume),
			e.Current, int64(e.PrevEMA), int64(e.NewEMA), details)
	}
	return ""
}
