package spac

import (
	"context"
	"errors"
	"testing"

	"github.com/rewired-gh/catalystwatch/internal/marketdata"
	"github.com/rewired-gh/catalystwatch/internal/models"
)

type fakeData struct {
	quotes   map[models.Ticker]marketdata.Quote
	quoteErr error
	snaps    map[models.Ticker]models.OptionsSnapshot
	optCalls int
}

func (f *fakeData) GetQuote(_ context.Context, t models.Ticker, _ int) (marketdata.Quote, error) {
	if f.quoteErr != nil {
		return marketdata.Quote{}, f.quoteErr
	}
	return f.quotes[t], nil
}

func (f *fakeData) Options(_ context.Context, t models.Ticker, _ int) (models.OptionsSnapshot, error) {
	f.optCalls++
	return f.snaps[t], nil
}

type fakeAudit struct {
	entries []AuditEntry
}

func (f *fakeAudit) AppendAudit(_ models.Ticker, e AuditEntry) error {
	f.entries = append(f.entries, e)
	return nil
}

func quietQuote() marketdata.Quote {
	return marketdata.Quote{LastClose: 10.0, AvgVolume: 100000}
}

func TestProcessTicker_QuietGatePasses(t *testing.T) {
	data := &fakeData{
		quotes: map[models.Ticker]marketdata.Quote{"IPOF": quietQuote()},
		snaps:  map[models.Ticker]models.OptionsSnapshot{"IPOF": snapshotWithVolume(120)},
	}
	audit := &fakeAudit{}
	m := NewMonitor(data, audit, DefaultConfig())
	m.now = testNow

	state, events, err := m.ProcessTicker(context.Background(), "IPOF", models.TickerState{})
	if err != nil {
		t.Fatalf("ProcessTicker: %v", err)
	}
	if state.OptionVolumeEMA == nil || *state.OptionVolumeEMA != 120 {
		t.Errorf("EMA = %v, want seeded 120", state.OptionVolumeEMA)
	}
	if len(events) != 1 || events[0].Kind != EventOptionsListed {
		t.Fatalf("events = %+v, want one options-listed", events)
	}
	if events[0].Price != 10.0 || events[0].AvgVolume != 100000 {
		t.Errorf("event gate inputs not filled: %+v", events[0])
	}
	if len(audit.entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(audit.entries))
	}
	e := audit.entries[0]
	if e.ID == "" || e.TotalOptionVolume != 120 || e.EMA != 120 {
		t.Errorf("audit entry = %+v", e)
	}
	if len(e.ExpiriesChecked) != DefaultConfig().NearestExpiries {
		t.Errorf("expiries checked = %v", e.ExpiriesChecked)
	}
}

func TestProcessTicker_QuietGateFails(t *testing.T) {
	tests := []struct {
		name  string
		quote marketdata.Quote
	}{
		{"price above band", marketdata.Quote{LastClose: 20.0, AvgVolume: 100000}},
		{"price below band", marketdata.Quote{LastClose: 5.0, AvgVolume: 100000}},
		{"too much share volume", marketdata.Quote{LastClose: 10.0, AvgVolume: 900000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := &fakeData{quotes: map[models.Ticker]marketdata.Quote{"LOUD": tt.quote}}
			m := NewMonitor(data, nil, DefaultConfig())

			state, events, err := m.ProcessTicker(context.Background(), "LOUD", models.TickerState{})
			if err != nil {
				t.Fatalf("ProcessTicker: %v", err)
			}
			if len(events) != 0 {
				t.Errorf("events = %+v, want none past a failed gate", events)
			}
			// The node is still recorded so future transitions are tracked,
			// but untouched: no EMA observation this cycle.
			if state.Ticker != "LOUD" {
				t.Errorf("state.Ticker = %q, want LOUD", state.Ticker)
			}
			if state.OptionVolumeEMA != nil {
				t.Errorf("EMA = %v, want untouched nil", state.OptionVolumeEMA)
			}
			if data.optCalls != 0 {
				t.Error("options snapshot must not be fetched for loud tickers")
			}
		})
	}
}

func TestProcessTicker_NoQuoteDataIsNonFatal(t *testing.T) {
	data := &fakeData{quoteErr: errors.New("no daily history")}
	m := NewMonitor(data, nil, DefaultConfig())

	state, events, err := m.ProcessTicker(context.Background(), "GONE", models.TickerState{})
	if err == nil {
		t.Fatal("expected error to surface for the orchestrator to log")
	}
	if len(events) != 0 {
		t.Errorf("events = %+v", events)
	}
	if state.Ticker != "GONE" {
		t.Errorf("state must still be initialized, got %+v", state)
	}
}

func TestProcessTicker_PreservesExistingState(t *testing.T) {
	prev := 100.0
	existing := models.NewTickerState("IPOF")
	existing.HadOptionsBefore = true
	existing.OptionVolumeEMA = &prev

	data := &fakeData{
		quotes: map[models.Ticker]marketdata.Quote{"IPOF": quietQuote()},
		snaps:  map[models.Ticker]models.OptionsSnapshot{"IPOF": snapshotWithVolume(400)},
	}
	m := NewMonitor(data, nil, DefaultConfig())
	m.now = testNow

	state, events, err := m.ProcessTicker(context.Background(), "IPOF", existing)
	if err != nil {
		t.Fatalf("ProcessTicker: %v", err)
	}
	// 400 >= 3 * max(100,1): spike, and EMA blends to 0.2*400+0.8*100 = 160.
	if len(events) != 1 || events[0].Kind != EventVolumeSpike {
		t.Fatalf("events = %+v, want one spike", events)
	}
	if *state.OptionVolumeEMA != 160 {
		t.Errorf("EMA = %v, want 160", *state.OptionVolumeEMA)
	}
}
