package models

import (
	"testing"
	"time"
)

func TestNormalizeTicker(t *testing.T) {
	tests := []struct {
		raw  string
		want Ticker
		ok   bool
	}{
		{"abcd", "ABCD", true},
		{" ABCD ", "ABCD", true},
		{"ABCD.U", "ABCD", true},
		{"ABCD.W", "ABCD", true},
		{"abcd.u", "ABCD", true},
		{"A", "A", true},
		{"ABCDE", "ABCDE", true},
		{"ABCDEF", "", false},
		{"BRK.A", "", false},
		{"AB1", "", false},
		{"", "", false},
		{".U", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeTicker(tt.raw)
		if ok != tt.ok || got != tt.want {
			t.Errorf("NormalizeTicker(%q) = (%q, %v), want (%q, %v)", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestWatchlistSnapshotValidate(t *testing.T) {
	now := time.Now()
	valid := WatchlistSnapshot{
		Tickers:     []Ticker{"AAA", "BBB"},
		Sources:     []string{"listing"},
		CollectedAt: now,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid snapshot rejected: %v", err)
	}

	tests := []struct {
		name string
		snap WatchlistSnapshot
	}{
		{"zero collected_at", WatchlistSnapshot{Tickers: []Ticker{"AAA"}}},
		{"malformed ticker", WatchlistSnapshot{Tickers: []Ticker{"aa1"}, CollectedAt: now}},
		{"duplicate ticker", WatchlistSnapshot{Tickers: []Ticker{"AAA", "AAA"}, CollectedAt: now}},
		{"unsorted tickers", WatchlistSnapshot{Tickers: []Ticker{"BBB", "AAA"}, CollectedAt: now}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.snap.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestSeriesHelpers(t *testing.T) {
	series := PriceVolumeSeries{
		{Date: time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), Close: 10.0, Volume: 1000},
		{Date: time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC), Close: 11.0, Volume: 2000},
		{Date: time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC), Close: 12.0, Volume: 3000},
	}
	if got := series.LastClose(); got != 12.0 {
		t.Errorf("LastClose() = %v, want 12.0", got)
	}
	if got := series.AverageVolume(); got != 2000 {
		t.Errorf("AverageVolume() = %v, want 2000", got)
	}

	var empty PriceVolumeSeries
	if got := empty.AverageVolume(); got != 0 {
		t.Errorf("empty AverageVolume() = %v, want 0", got)
	}
}

func TestNewTickerState(t *testing.T) {
	st := NewTickerState("ABCD")
	if st.Ticker != "ABCD" {
		t.Errorf("Ticker = %q, want ABCD", st.Ticker)
	}
	if st.HadOptionsBefore || st.OptionVolumeEMA != nil || st.LastAlertAt != nil {
		t.Error("fresh state must start with no options history and no EMA")
	}
}
