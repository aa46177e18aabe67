package spac

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rewired-gh/catalystwatch/internal/logger"
	"github.com/rewired-gh/catalystwatch/internal/marketdata"
	"github.com/rewired-gh/catalystwatch/internal/models"
)

// Config holds the quiet-instrument gate and monitor parameters.
type Config struct {
	PriceMin        float64
	PriceMax        float64
	AvgVolumeMax    float64 // trailing average daily share volume ceiling
	NearestExpiries int     // option expiries summed per snapshot
	HistoryDays     int     // window for the average-volume gate
	Detector        DetectorConfig
}

// DefaultConfig returns the production quiet-SPAC parameters.
func DefaultConfig() Config {
	return Config{
		PriceMin:        9.0,
		PriceMax:        11.0,
		AvgVolumeMax:    500000,
		NearestExpiries: 2,
		HistoryDays:     30,
		Detector: DetectorConfig{
			Alpha:           0.2,
			SpikeMultiplier: 3.0,
		},
	}
}

// DataProvider supplies the quiet-gate inputs and the options snapshot.
type DataProvider interface {
	GetQuote(ctx context.Context, ticker models.Ticker, days int) (marketdata.Quote, error)
	Options(ctx context.Context, ticker models.Ticker, nearestN int) (models.OptionsSnapshot, error)
}

// AuditEntry is one observation appended to the per-ticker daily audit log.
type AuditEntry struct {
	ID                string   `json:"id"`
	Timestamp         string   `json:"ts"`
	Price             float64  `json:"price"`
	AvgVolume30d      int64    `json:"avg_volume_30d"`
	TotalOptionVolume int64    `json:"total_option_volume"`
	EMA               float64  `json:"ema"`
	ExpiriesChecked   []string `json:"expiries_checked"`
}

// AuditSink records audit entries; failures are logged and swallowed.
type AuditSink interface {
	AppendAudit(ticker models.Ticker, entry AuditEntry) error
}

// Monitor evaluates one ticker per call against the quiet gate and the spike
// detector. The caller owns the state map: it loads once before the run,
// passes each node through ProcessTicker, and saves the whole map once after.
type Monitor struct {
	data  DataProvider
	audit AuditSink
	cfg   Config
	now   func() time.Time
}

// NewMonitor creates a monitor with injected collaborators. audit may be nil.
func NewMonitor(data DataProvider, audit AuditSink, cfg Config) *Monitor {
	return &Monitor{data: data, audit: audit, cfg: cfg, now: time.Now}
}

func (m *Monitor) isQuiet(q marketdata.Quote) bool {
	return q.LastClose >= m.cfg.PriceMin && q.LastClose <= m.cfg.PriceMax &&
		q.AvgVolume <= m.cfg.AvgVolumeMax
}

// ProcessTicker runs one observation cycle for ticker. The returned state
// must be written back into the caller's map even when empty-handed, so
// future transitions stay tracked. Errors mean "no data this cycle" and are
// non-fatal.
func (m *Monitor) ProcessTicker(ctx context.Context, ticker models.Ticker, state models.TickerState) (models.TickerState, []Event, error) {
	if state.Ticker == "" {
		state = models.NewTickerState(ticker)
	}

	quote, err := m.data.GetQuote(ctx, ticker, m.cfg.HistoryDays)
	if err != nil {
		return state, nil, err
	}

	if !m.isQuiet(quote) {
		logger.Info("%s: not a quiet instrument (price=%.2f, avgVol=%d)",
			ticker, quote.LastClose, int64(quote.AvgVolume))
		return state, nil, nil
	}

	snap, err := m.data.Options(ctx, ticker, m.cfg.NearestExpiries)
	if err != nil {
		return state, nil, err
	}

	newState, events := Apply(state, snap, m.cfg.Detector, m.now())
	for i := range events {
		events[i].Price = quote.LastClose
		events[i].AvgVolume = quote.AvgVolume
	}

	if m.audit != nil {
		checked := snap.Expiries
		if len(checked) > m.cfg.NearestExpiries {
			checked = checked[:m.cfg.NearestExpiries]
		}
		entry := AuditEntry{
			ID:                uuid.New().String(),
			Timestamp:         m.now().UTC().Format("2006-01-02T15:04:05Z"),
			Price:             quote.LastClose,
			AvgVolume30d:      int64(quote.AvgVolume),
			TotalOptionVolume: snap.TotalVolume,
			EMA:               *newState.OptionVolumeEMA,
			ExpiriesChecked:   checked,
		}
		if err := m.audit.AppendAudit(ticker, entry); err != nil {
			logger.Warn("%s: failed to append audit entry: %v", ticker, err)
		}
	}

	return newState, events, nil
}
