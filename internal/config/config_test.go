package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"DivergenceSentinel/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Exchange.Name != "binance" || !cfg.Trading.Simulate || !cfg.Exchange.Sandbox {
		t.Errorf("unexpected defaults: %+v", cfg.Exchange)
	}
	if cfg.Strategy != DefaultStrategy() {
		t.Errorf("strategy defaults not applied: %+v", cfg.Strategy)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
exchange:
  name: mock
  interval: 4h
trading:
  pairs: [ETHUSDT]
  simulate: true
strategy:
  rsi_period: 10
risk:
  symbols:
    ETHUSDT: {min_size: 0.001, precision: 3, price_precision: 2}
`)
	t.Setenv("TRADING_PAIRS", "BTCUSDT, SOLUSDT ,")
	t.Setenv("RSI_OVERSOLD", "25")
	t.Setenv("STOP_LOSS_PERCENTAGE", "2")
	t.Setenv("TAKE_PROFIT_PERCENTAGE", "6")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Exchange.Name != "mock" || cfg.Exchange.Interval != "4h" {
		t.Errorf("yaml not applied: %+v", cfg.Exchange)
	}
	if len(cfg.Trading.Pairs) != 2 || cfg.Trading.Pairs[1] != "SOLUSDT" {
		t.Errorf("env pairs not applied: %v", cfg.Trading.Pairs)
	}
	if cfg.Strategy.RSIPeriod != 10 || cfg.Strategy.Oversold != 25 {
		t.Errorf("strategy overrides not applied: %+v", cfg.Strategy)
	}
	if cfg.Risk.StopLossPct != 0.02 {
		t.Errorf("stop loss percent not converted: %v", cfg.Risk.StopLossPct)
	}
	if rr := cfg.Risk.RewardRiskRatio; rr < 2.999 || rr > 3.001 {
		t.Errorf("expected reward:risk 3 from 6%%/2%%, got %v", rr)
	}
	if r := cfg.Risk.Rules("ETHUSDT"); r.Precision != 3 {
		t.Errorf("per-symbol rules not loaded: %+v", r)
	}
	if r := cfg.Risk.Rules("XRPUSDT"); r != cfg.Risk.DefaultSymbol {
		t.Errorf("unknown symbol must fall back to defaults, got %+v", r)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "exchange: [")); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		cfg.Trading.Simulate = true
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"thresholds inverted", func(c *Config) { c.Strategy.Oversold, c.Strategy.Overbought = 70, 30 }},
		{"threshold above 100", func(c *Config) { c.Strategy.Overbought = 120 }},
		{"negative period", func(c *Config) { c.Strategy.RSIPeriod = -1 }},
		{"strength above 1", func(c *Config) { c.Strategy.MinDivergenceStrength = 1.5 }},
		{"lookback too short", func(c *Config) { c.Strategy.Lookback = 8 }},
		{"negative gap", func(c *Config) { c.Strategy.MinExtremaGap = -1 }},
		{"risk fraction above 1", func(c *Config) { c.Risk.RiskFraction = 2 }},
		{"negative stop loss", func(c *Config) { c.Risk.StopLossPct = -0.02 }},
		{"short target not positive", func(c *Config) { c.Risk.StopLossPct, c.Risk.RewardRiskRatio = 0.5, 2 }},
		{"max position above 1", func(c *Config) { c.Risk.MaxPositionFraction = 1.5 }},
		{"negative precision", func(c *Config) { c.Risk.Symbols = map[string]SymbolRules{"BTCUSDT": {Precision: -1}} }},
		{"unknown exchange", func(c *Config) { c.Exchange.Name = "kraken" }},
		{"no pairs", func(c *Config) { c.Trading.Pairs = nil }},
		{"live without credentials", func(c *Config) { c.Trading.Simulate = false }},
		{"live on yahoo", func(c *Config) { c.Trading.Simulate = false; c.Exchange.Name = "yahoo" }},
		{"limit below warm-up", func(c *Config) { c.Exchange.Limit = 50 }},
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("base config must validate: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, model.ErrInvalidConfiguration) {
				t.Errorf("expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}

func TestMinBars(t *testing.T) {
	if got := DefaultStrategy().MinBars(); got != 14+2*5+60 {
		t.Errorf("unexpected MinBars %d", got)
	}
}
