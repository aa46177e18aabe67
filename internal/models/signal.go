package models

// CatalystSignal is the per-ticker result of one screening pass. It is never
// persisted; it lives only for the duration of a single alert cycle.
type CatalystSignal struct {
	Ticker         Ticker
	LastPrice      float64
	VolumeSpike    bool
	VolumeLast     float64
	VolumeBaseline float64
	PriceMove      bool
	PriceMovePct   float64
	NewsHit        bool
	NewsCount24h   int
	FilingCount24h int
}

// ExpiryVolume is the call/put volume split for a single option expiry.
type ExpiryVolume struct {
	Expiry      string `json:"expiry"`
	CallsVolume int64  `json:"calls_volume"`
	PutsVolume  int64  `json:"puts_volume"`
}

// OptionsSnapshot is an ephemeral per-ticker view of the option chain:
// expiries nearest-first and volume summed over the checked expiries.
type OptionsSnapshot struct {
	HasOptions  bool
	Expiries    []string
	TotalVolume int64
	ByExpiry    []ExpiryVolume
}
