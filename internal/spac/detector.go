// Package spac monitors quiet SPAC-like tickers for option listings and
// option-volume spikes using a persisted EMA per ticker.
package spac

import (
	"time"

	"github.com/rewired-gh/catalystwatch/internal/models"
)

// DetectorConfig holds the EMA and spike parameters.
type DetectorConfig struct {
	Alpha           float64 // EMA smoothing constant in (0,1]
	SpikeMultiplier float64
}

// EventKind discriminates monitor events.
type EventKind int

const (
	// EventOptionsListed fires once, the first time options appear.
	EventOptionsListed EventKind = iota
	// EventVolumeSpike fires when current volume clears the EMA threshold.
	EventVolumeSpike
)

// Event is an alert-worthy observation produced by the detector. Price and
// AvgVolume are filled in by the monitor before dispatch.
type Event struct {
	Kind      EventKind
	Ticker    models.Ticker
	Price     float64
	AvgVolume float64
	Expiries  []string
	Current   int64
	PrevEMA   float64
	NewEMA    float64
	ByExpiry  []models.ExpiryVolume
}

// Apply is the state transition for one observation. It returns the updated
// state and any events; the caller owns persisting the result. The spike rule
// requires a prior EMA, so the very first observation never fires.
func Apply(state models.TickerState, snap models.OptionsSnapshot, cfg DetectorConfig, now time.Time) (models.TickerState, []Event) {
	var events []Event

	if snap.HasOptions && !state.HadOptionsBefore {
		state.HadOptionsBefore = true
		state.KnownExpiries = append([]string(nil), snap.Expiries...)
		events = append(events, Event{
			Kind:     EventOptionsListed,
			Ticker:   state.Ticker,
			Expiries: snap.Expiries,
		})
	}

	current := float64(snap.TotalVolume)
	prev := state.OptionVolumeEMA
	newEMA := current
	if prev != nil {
		newEMA = cfg.Alpha*current + (1-cfg.Alpha)**prev
	}

	if prev != nil && snap.TotalVolume > 0 {
		// The 1.0 floor keeps a decayed EMA from making every print a spike.
		threshold := cfg.SpikeMultiplier * max(*prev, 1.0)
		if current >= threshold {
			events = append(events, Event{
				Kind:     EventVolumeSpike,
				Ticker:   state.Ticker,
				Current:  snap.TotalVolume,
				PrevEMA:  *prev,
				NewEMA:   newEMA,
				ByExpiry: snap.ByExpiry,
			})
			alertAt := now
			state.LastAlertAt = &alertAt
		}
	}

	state.OptionVolumeEMA = &newEMA
	state.UpdatedAt = now
	return state, events
}
