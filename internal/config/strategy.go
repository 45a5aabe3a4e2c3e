package config

import (
	"fmt"

	"DivergenceSentinel/internal/model"
)

// Strategy parameterizes the RSI, extrema, divergence and signal stages.
type Strategy struct {
	RSIPeriod             int     `yaml:"rsi_period"`
	Oversold              float64 `yaml:"oversold"`
	Overbought            float64 `yaml:"overbought"`
	MinDivergenceStrength float64 `yaml:"min_divergence_strength"`
	ExtremaOrder          int     `yaml:"extrema_order"`
	Lookback              int     `yaml:"lookback"`
	MinExtremaGap         int     `yaml:"min_extrema_gap"`
	MediumConfidence      float64 `yaml:"medium_confidence"`
}

// SymbolRules are the exchange lot constraints for one symbol.
type SymbolRules struct {
	MinSize        float64 `yaml:"min_size"`
	Precision      int32   `yaml:"precision"`
	PricePrecision int32   `yaml:"price_precision"`
}

// Risk parameterizes position sizing.
type Risk struct {
	RiskFraction        float64                `yaml:"risk_fraction"`
	StopLossPct         float64                `yaml:"stop_loss_pct"`
	RewardRiskRatio     float64                `yaml:"reward_risk_ratio"`
	MaxPositionFraction float64                `yaml:"max_position_fraction"`
	DefaultSymbol       SymbolRules            `yaml:"default_symbol"`
	Symbols             map[string]SymbolRules `yaml:"symbols"`
}

// DefaultStrategy returns the stock parameters (RSI 14, 30/70, strength gate 0.7).
func DefaultStrategy() Strategy {
	var s Strategy
	s.applyDefaults()
	return s
}

// DefaultRisk returns the stock sizing parameters.
func DefaultRisk() Risk {
	var r Risk
	r.applyDefaults()
	return r
}

func (s *Strategy) applyDefaults() {
	if s.RSIPeriod == 0 {
		s.RSIPeriod = 14
	}
	if s.Oversold == 0 {
		s.Oversold = 30
	}
	if s.Overbought == 0 {
		s.Overbought = 70
	}
	if s.MinDivergenceStrength == 0 {
		s.MinDivergenceStrength = 0.7
	}
	if s.ExtremaOrder == 0 {
		s.ExtremaOrder = 5
	}
	if s.Lookback == 0 {
		s.Lookback = 60
	}
	if s.MinExtremaGap == 0 {
		s.MinExtremaGap = 5
	}
	if s.MediumConfidence == 0 {
		s.MediumConfidence = 0.70
	}
}

func (r *Risk) applyDefaults() {
	if r.RiskFraction == 0 {
		r.RiskFraction = 0.01
	}
	if r.StopLossPct == 0 {
		r.StopLossPct = 0.02
	}
	if r.RewardRiskRatio == 0 {
		r.RewardRiskRatio = 2
	}
	if r.MaxPositionFraction == 0 {
		r.MaxPositionFraction = 0.5
	}
	if r.DefaultSymbol == (SymbolRules{}) {
		r.DefaultSymbol = SymbolRules{MinSize: 0.00001, Precision: 5, PricePrecision: 8}
	}
}

// MinBars is the shortest price series the strategy can evaluate.
func (s Strategy) MinBars() int {
	return s.RSIPeriod + 2*s.ExtremaOrder + s.Lookback
}

// Validate checks the strategy parameters.
func (s Strategy) Validate() error {
	if s.RSIPeriod < 1 {
		return invalid("strategy.rsi_period must be >= 1, got %d", s.RSIPeriod)
	}
	if !(0 < s.Oversold && s.Oversold < s.Overbought && s.Overbought < 100) {
		return invalid("rsi thresholds must satisfy 0 < oversold < overbought < 100, got %.2f/%.2f", s.Oversold, s.Overbought)
	}
	if s.MinDivergenceStrength < 0 || s.MinDivergenceStrength > 1 {
		return invalid("strategy.min_divergence_strength must be in [0,1], got %.2f", s.MinDivergenceStrength)
	}
	if s.ExtremaOrder < 1 {
		return invalid("strategy.extrema_order must be >= 1, got %d", s.ExtremaOrder)
	}
	if s.Lookback <= 2*s.ExtremaOrder {
		return invalid("strategy.lookback must exceed 2*extrema_order, got %d", s.Lookback)
	}
	if s.MinExtremaGap < 0 {
		return invalid("strategy.min_extrema_gap must be >= 0, got %d", s.MinExtremaGap)
	}
	if s.MediumConfidence < 0 || s.MediumConfidence > 1 {
		return invalid("strategy.medium_confidence must be in [0,1], got %.2f", s.MediumConfidence)
	}
	return nil
}

// Rules returns the lot constraints for symbol, falling back to DefaultSymbol.
func (r Risk) Rules(symbol string) SymbolRules {
	if rules, ok := r.Symbols[symbol]; ok {
		return rules
	}
	return r.DefaultSymbol
}

// Validate checks the sizing parameters and every symbol's rules.
func (r Risk) Validate() error {
	if r.RiskFraction <= 0 || r.RiskFraction > 1 {
		return invalid("risk.risk_fraction must be in (0,1], got %.4f", r.RiskFraction)
	}
	if r.StopLossPct <= 0 || r.StopLossPct >= 1 {
		return invalid("risk.stop_loss_pct must be in (0,1), got %.4f", r.StopLossPct)
	}
	if r.RewardRiskRatio <= 0 {
		return invalid("risk.reward_risk_ratio must be positive, got %.2f", r.RewardRiskRatio)
	}
	// A short target sits at entry*(1-stop_loss_pct*reward_risk_ratio).
	if r.StopLossPct*r.RewardRiskRatio >= 1 {
		return invalid("risk.stop_loss_pct*reward_risk_ratio must be below 1, got %.4f", r.StopLossPct*r.RewardRiskRatio)
	}
	if r.MaxPositionFraction <= 0 || r.MaxPositionFraction > 1 {
		return invalid("risk.max_position_fraction must be in (0,1], got %.4f", r.MaxPositionFraction)
	}
	if err := r.DefaultSymbol.validate("default_symbol"); err != nil {
		return err
	}
	for sym, rules := range r.Symbols {
		if err := rules.validate(sym); err != nil {
			return err
		}
	}
	return nil
}

func (s SymbolRules) validate(name string) error {
	if s.MinSize < 0 {
		return invalid("risk.%s.min_size must be >= 0", name)
	}
	if s.Precision < 0 || s.PricePrecision < 0 {
		return invalid("risk.%s precision must be >= 0", name)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", model.ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}
