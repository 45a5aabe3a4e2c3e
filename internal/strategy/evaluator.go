package strategy

import (
	"fmt"

	"github.com/rs/zerolog"

	"DivergenceSentinel/internal/calculator"
	"DivergenceSentinel/internal/config"
	"DivergenceSentinel/internal/divergence"
	"DivergenceSentinel/internal/model"
	"DivergenceSentinel/internal/risk"
)

// Evaluator runs the full analysis pipeline for one price series.
// It is safe for concurrent use; every call recomputes from its inputs.
type Evaluator struct {
	strategy config.Strategy
	risk     config.Risk
	sizer    *risk.Sizer
	logger   zerolog.Logger
}

// NewEvaluator binds the strategy and risk configuration.
func NewEvaluator(s config.Strategy, r config.Risk, logger zerolog.Logger) *Evaluator {
	return &Evaluator{
		strategy: s,
		risk:     r,
		sizer:    risk.NewSizer(logger),
		logger:   logger.With().Str("component", "strategy").Logger(),
	}
}

// Evaluate computes the signal for series and, when it is actionable, a sized plan
// against balance. Sizing failures are returned alongside the signal.
func (e *Evaluator) Evaluate(symbol string, series model.PriceSeries, balance float64) (model.Signal, *model.RiskPlan, error) {
	if err := e.strategy.Validate(); err != nil {
		return model.Signal{}, nil, err
	}
	if err := e.risk.Validate(); err != nil {
		return model.Signal{}, nil, err
	}
	if need := e.strategy.MinBars(); series.Len() < need {
		return model.Signal{}, nil, fmt.Errorf("%w: %s has %d bars, need %d", model.ErrInsufficientData, symbol, series.Len(), need)
	}

	closes := calculator.Closes(series.Bars)
	rsi, err := calculator.ComputeRSI(closes, e.strategy.RSIPeriod)
	if err != nil {
		return model.Signal{}, nil, err
	}

	priceExt := calculator.FindExtrema(closes, e.strategy.ExtremaOrder)
	oscExt := calculator.Shift(calculator.FindExtrema(rsi, e.strategy.ExtremaOrder), e.strategy.RSIPeriod)
	div := divergence.FindDivergence(priceExt, oscExt, len(closes), divergence.Params{
		Lookback: e.strategy.Lookback,
		MinGap:   e.strategy.MinExtremaGap,
	})

	sig := GenerateSignal(rsi[len(rsi)-1], div, e.strategy)
	last := series.Last()
	sig.Symbol = symbol
	sig.Price = last.Close
	sig.Timestamp = last.Time
	if levels, err := calculator.SupportResistance(series.Bars, priceExt); err == nil {
		sig.Levels = levels
	}

	e.logger.Debug().
		Str("symbol", symbol).
		Str("signal", string(sig.Type)).
		Float64("rsi", sig.RSI).
		Float64("confidence", sig.Confidence).
		Bool("divergence", div != nil).
		Msg("evaluated")

	if !sig.Actionable {
		return sig, nil, nil
	}
	plan, err := e.sizer.SizePosition(sig, last.Close, balance, e.risk.Rules(symbol), e.risk)
	if err != nil {
		return sig, nil, err
	}
	return sig, plan, nil
}
