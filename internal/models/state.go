package models

import "time"

// TickerState is the persisted per-ticker node for the option-volume monitor.
// A nil OptionVolumeEMA means no observation has been recorded yet; the spike
// detector must never fire on the first observation.
type TickerState struct {
	Ticker           Ticker     `json:"ticker"`
	HadOptionsBefore bool       `json:"had_options_before"`
	KnownExpiries    []string   `json:"known_expiries"`
	OptionVolumeEMA  *float64   `json:"option_volume_ema,omitempty"`
	LastAlertAt      *time.Time `json:"last_alert_at,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// NewTickerState returns the default node created on first encounter.
func NewTickerState(ticker Ticker) TickerState {
	return TickerState{Ticker: ticker}
}
