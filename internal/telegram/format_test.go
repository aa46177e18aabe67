package telegram

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/rewired-gh/catalystwatch/internal/logger"
	"github.com/rewired-gh/catalystwatch/internal/models"
	"github.com/rewired-gh/catalystwatch/internal/screener"
	"github.com/rewired-gh/catalystwatch/internal/spac"
)

func TestFormatCatalystSummary(t *testing.T) {
	cfg := screener.DefaultConfig()
	hits := []models.CatalystSignal{
		{
			Ticker: "ABCD", LastPrice: 10.50,
			VolumeSpike: true, VolumeLast: 5000, VolumeBaseline: 1000,
		},
		{
			Ticker: "EFGH", LastPrice: 4.20,
			PriceMove: true, PriceMovePct: 9.31,
			NewsHit: true, NewsCount24h: 3, FilingCount24h: 1,
		},
	}

	msg := FormatCatalystSummary(cfg, hits)
	for _, want := range []string{
		"<b>Catalyst Watch</b> $3–$15",
		"Triggers: Vol≥3.0×, Δ≥8.0%, News≥1",
		"ABCD ($10.50) — Vol≥3.0× (5000/1000)",
		"EFGH ($4.20) — Δ9.31%, News:3 (prov 2/SEC 1)",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatCatalystSummary_DisplayCap(t *testing.T) {
	cfg := screener.DefaultConfig()
	cfg.MaxDisplay = 1
	hits := []models.CatalystSignal{
		{Ticker: "AA", LastPrice: 5, NewsHit: true, NewsCount24h: 1},
		{Ticker: "BB", LastPrice: 6, NewsHit: true, NewsCount24h: 1},
	}
	msg := FormatCatalystSummary(cfg, hits)
	if !strings.Contains(msg, "AA") {
		t.Error("first hit must render")
	}
	if strings.Contains(msg, "BB") {
		t.Error("hits beyond the display cap must not render")
	}
}

func TestFormatCatalystSummary_MoveFlagFollowsDetection(t *testing.T) {
	// A large negative move does not fire detection, so it must not render
	// either: display follows the detector's one-sided semantics.
	cfg := screener.DefaultConfig()
	hits := []models.CatalystSignal{
		{Ticker: "DOWN", LastPrice: 5, PriceMove: false, PriceMovePct: -12.5, NewsHit: true, NewsCount24h: 1},
	}
	msg := FormatCatalystSummary(cfg, hits)
	if strings.Contains(msg, "Δ-12.50%") {
		t.Errorf("downward move rendered despite move=false:\n%s", msg)
	}
}

func TestFormatSpacEvent_OptionsListed(t *testing.T) {
	cfg := spac.DefaultConfig()
	msg := FormatSpacEvent(cfg, spac.Event{
		Kind:      spac.EventOptionsListed,
		Ticker:    "IPOF",
		Price:     10.02,
		AvgVolume: 123456,
		Expiries:  []string{"2024-04-19", "2024-05-17", "2024-06-21"},
	})
	for _, want := range []string{
		"🟢 <b>IPOF</b>: options listed for the first time",
		"Price: $10.02, avg share volume: 123456",
		"Expiries (first 2): 2024-04-19, 2024-05-17",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "2024-06-21") {
		t.Error("expiries beyond the checked count must not render")
	}
}

func TestFormatSpacEvent_VolumeSpike(t *testing.T) {
	cfg := spac.DefaultConfig()
	msg := FormatSpacEvent(cfg, spac.Event{
		Kind:      spac.EventVolumeSpike,
		Ticker:    "KVSA",
		Price:     9.85,
		AvgVolume: 200000,
		Current:   900,
		PrevEMA:   150,
		NewEMA:    300,
		ByExpiry: []models.ExpiryVolume{
			{Expiry: "2024-04-19", CallsVolume: 600, PutsVolume: 300},
		},
	})
	for _, want := range []string{
		"🔥 <b>KVSA</b>: option volume spike (≥3.0×)",
		"Current opt volume: 900, EMA: 150 → 300",
		"2024-04-19: C=600, P=300",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

type recordingSender struct {
	sent []string
	err  error
}

func (r *recordingSender) Send(text string) error {
	r.sent = append(r.sent, text)
	return r.err
}

func TestDispatcher_SwallowsDeliveryFailures(t *testing.T) {
	sender := &recordingSender{err: errors.New("telegram down")}
	d := NewDispatcher(sender)
	// Must not panic or propagate; the scan loop never sees delivery errors.
	d.Dispatch("hello")
	if len(sender.sent) != 1 {
		t.Errorf("sends = %d, want 1", len(sender.sent))
	}
}

func TestLogSender_MockModeIsMarked(t *testing.T) {
	var buf bytes.Buffer
	logger.Init("info", "json")
	logger.SetOutput(&buf)
	defer logger.SetOutput(os.Stderr)

	d := NewDispatcher(LogSender{})
	d.Dispatch("catalyst summary text")

	out := buf.String()
	if !strings.Contains(out, "[dispatch mock]") {
		t.Errorf("mock dispatch must be marked as such, got: %s", out)
	}
	if !strings.Contains(out, "catalyst summary text") {
		t.Errorf("mock dispatch must carry the formatted text, got: %s", out)
	}
}

func TestNewClient_InvalidChatID(t *testing.T) {
	if _, err := NewClient("token", "not-a-number", 3, 0); err == nil {
		t.Error("expected error for non-numeric chat ID")
	}
}
