// Package risk turns an actionable signal into a sized, bounded trade plan.
package risk

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"DivergenceSentinel/internal/config"
	"DivergenceSentinel/internal/model"
)

// Sizer computes RiskPlans. It holds no state besides its logger.
type Sizer struct {
	logger zerolog.Logger
}

// NewSizer creates a Sizer that logs max-position clipping on logger.
func NewSizer(logger zerolog.Logger) *Sizer {
	return &Sizer{logger: logger.With().Str("component", "risk").Logger()}
}

// SizePosition sizes sig at entry for an account of balance.
// size*entry never exceeds cfg.MaxPositionFraction*balance.
func (s *Sizer) SizePosition(sig model.Signal, entry, balance float64, rules config.SymbolRules, cfg config.Risk) (*model.RiskPlan, error) {
	if !sig.Actionable {
		return nil, fmt.Errorf("%w: %s (confidence %.2f)", model.ErrNotActionable, sig.Type, sig.Confidence)
	}
	side := model.SideOf(sig.Type)
	if side == "" {
		return nil, fmt.Errorf("%w: %s has no side", model.ErrNotActionable, sig.Type)
	}
	if entry <= 0 || balance <= 0 {
		return nil, fmt.Errorf("%w: entry %.8f and balance %.2f must be positive", model.ErrInvalidConfiguration, entry, balance)
	}

	one := decimal.NewFromInt(1)
	dEntry := decimal.NewFromFloat(entry)
	dBalance := decimal.NewFromFloat(balance)
	slPct := decimal.NewFromFloat(cfg.StopLossPct)
	rr := decimal.NewFromFloat(cfg.RewardRiskRatio)

	riskAmount := dBalance.Mul(decimal.NewFromFloat(cfg.RiskFraction))
	size := floorTo(riskAmount.Div(dEntry.Mul(slPct)), rules.Precision)

	capped := false
	maxNotional := dBalance.Mul(decimal.NewFromFloat(cfg.MaxPositionFraction))
	if size.Mul(dEntry).GreaterThan(maxNotional) {
		clipped := floorTo(maxNotional.Div(dEntry), rules.Precision)
		s.logger.Warn().
			Str("symbol", sig.Symbol).
			Str("raw_size", size.String()).
			Str("capped_size", clipped.String()).
			Str("max_notional", maxNotional.String()).
			Msg("position size clipped to max position fraction")
		size = clipped
		capped = true
	}

	if size.LessThan(decimal.NewFromFloat(rules.MinSize)) || !size.IsPositive() {
		return nil, fmt.Errorf("%w: size %s below minimum %.8f for %s", model.ErrPositionTooSmall, size.String(), rules.MinSize, sig.Symbol)
	}

	var stop, target decimal.Decimal
	if side == model.Long {
		stop = dEntry.Mul(one.Sub(slPct))
		target = dEntry.Mul(one.Add(slPct.Mul(rr)))
	} else {
		stop = dEntry.Mul(one.Add(slPct))
		target = dEntry.Mul(one.Sub(slPct.Mul(rr)))
	}
	if !levelsValid(side, dEntry, stop, target) {
		return nil, fmt.Errorf("%w: %s levels stop %s target %s around entry %s", model.ErrInvalidConfiguration, side, stop.String(), target.String(), dEntry.String())
	}
	if rs, rt := roundLevels(dEntry, stop, target, rules.PricePrecision); levelsValid(side, dEntry, rs, rt) {
		stop, target = rs, rt
	}

	stopDistance := dEntry.Sub(stop).Abs()
	riskAmount = size.Mul(stopDistance)
	realized := target.Sub(dEntry).Abs().Div(stopDistance)

	return &model.RiskPlan{
		Side:       side,
		Entry:      entry,
		StopLoss:   stop.InexactFloat64(),
		TakeProfit: target.InexactFloat64(),
		Size:       size.InexactFloat64(),
		RiskAmount: riskAmount.InexactFloat64(),
		RewardRisk: realized.InexactFloat64(),
		Capped:     capped,
	}, nil
}

// floorTo truncates d toward zero to places decimals. Sizes are never negative.
func floorTo(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Truncate(places)
}

const (
	// maxPricePlaces bounds the precision roundLevels may raise to.
	maxPricePlaces = 16
	// levelResolution is the number of price ticks a stop distance spans at least.
	levelResolution = 100
)

// roundLevels rounds stop and target to places decimals, raising places until
// one tick is at most 1/levelResolution of the stop distance. A symbol's
// configured precision is therefore a floor for sub-unit prices.
func roundLevels(entry, stop, target decimal.Decimal, places int32) (decimal.Decimal, decimal.Decimal) {
	resolution := entry.Sub(stop).Abs().Div(decimal.NewFromInt(levelResolution))
	for places < maxPricePlaces && decimal.New(1, -places).GreaterThan(resolution) {
		places++
	}
	return stop.Round(places), target.Round(places)
}

// levelsValid reports whether stop and target are positive and bracket entry
// in the direction of side.
func levelsValid(side model.Side, entry, stop, target decimal.Decimal) bool {
	if !stop.IsPositive() || !target.IsPositive() {
		return false
	}
	if side == model.Long {
		return stop.LessThan(entry) && target.GreaterThan(entry)
	}
	return stop.GreaterThan(entry) && target.LessThan(entry)
}
