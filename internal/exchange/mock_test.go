package exchange

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"DivergenceSentinel/internal/config"
	"DivergenceSentinel/internal/model"
)

func TestMock_DeterministicSeries(t *testing.T) {
	m := NewMock(100)
	a, err := m.FetchPriceSeries(context.Background(), "BTCUSDT", "4h", 50)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := m.FetchPriceSeries(context.Background(), "BTCUSDT", "4h", 50)
	if a.Len() != 50 {
		t.Fatalf("expected 50 bars, got %d", a.Len())
	}
	for i := range a.Bars {
		if a.Bars[i] != b.Bars[i] {
			t.Fatalf("bar %d differs", i)
		}
	}
	if step := a.Bars[1].Time.Sub(a.Bars[0].Time); step != 4*time.Hour {
		t.Errorf("expected 4h spacing, got %s", step)
	}
}

func TestMock_Overrides(t *testing.T) {
	m := NewMock(100)
	m.SetSeries("ETHUSDT", []model.OHLCV{{Close: 1}, {Close: 2}, {Close: 3}})
	m.SetPrice("ETHUSDT", 42)

	s, _ := m.FetchPriceSeries(context.Background(), "ETHUSDT", "1h", 2)
	if s.Len() != 2 || s.Last().Close != 3 {
		t.Errorf("expected last two override bars, got %+v", s.Bars)
	}
	if p, _ := m.FetchCurrentPrice(context.Background(), "ETHUSDT"); p != 42 {
		t.Errorf("expected price 42, got %v", p)
	}
}

func TestIntervalDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"1m", time.Minute, true},
		{"15m", 15 * time.Minute, true},
		{"4h", 4 * time.Hour, true},
		{"1d", 24 * time.Hour, true},
		{"1w", 7 * 24 * time.Hour, true},
		{"h", 0, false},
		{"0h", 0, false},
		{"3y", 0, false},
	}
	for _, tt := range tests {
		got, err := intervalDuration(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("intervalDuration(%q) = %s, %v", tt.in, got, err)
		}
	}
}

func TestNew_SimulationUsesPaperBroker(t *testing.T) {
	cfg := &config.Config{}
	cfg.Exchange.Name = "mock"
	cfg.Trading.Simulate = true
	cfg.Trading.InitialBalance = 500

	md, broker, err := New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if md.Name() != "mock" || broker.Name() != "paper" {
		t.Errorf("unexpected adapters: %s / %s", md.Name(), broker.Name())
	}

	cfg.Trading.Simulate = false
	if _, _, err := New(cfg, zerolog.Nop()); err == nil {
		t.Error("mock exchange must not trade live")
	}
}
