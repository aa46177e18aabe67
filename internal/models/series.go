package models

import "time"

// Bar is one daily session for a ticker.
type Bar struct {
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceVolumeSeries is a date-ascending sequence of daily bars. The last bar
// is the most recent session and drives all live thresholds.
type PriceVolumeSeries []Bar

// LastClose returns the most recent close, or 0 when the series is empty.
func (s PriceVolumeSeries) LastClose() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Close
}

// AverageVolume returns the mean daily volume across all bars, or 0 for an
// empty series.
func (s PriceVolumeSeries) AverageVolume() float64 {
	if len(s) == 0 {
		return 0
	}
	var sum float64
	for _, b := range s {
		sum += b.Volume
	}
	return sum / float64(len(s))
}
