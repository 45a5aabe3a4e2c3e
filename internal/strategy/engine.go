package strategy

import (
	"fmt"
	"math"

	"DivergenceSentinel/internal/config"
	"DivergenceSentinel/internal/model"
)

const (
	// StrongConfidenceFloor is the minimum confidence of STRONG_BUY / STRONG_SELL.
	StrongConfidenceFloor = 0.85
	// ActionableConfidence gates BUY / SELL execution.
	ActionableConfidence = 0.70
)

// GenerateSignal maps the latest RSI and the divergence (nil when absent) to a signal.
// Rows are evaluated top-down; the first match wins.
func GenerateSignal(rsi float64, div *model.DivergenceEvent, cfg config.Strategy) model.Signal {
	bull := qualifies(div, model.Bullish, cfg.MinDivergenceStrength)
	bear := qualifies(div, model.Bearish, cfg.MinDivergenceStrength)
	oversold := rsi <= cfg.Oversold
	overbought := rsi >= cfg.Overbought

	var sig model.Signal
	switch {
	case oversold && bull:
		sig.Type = model.StrongBuy
		sig.Confidence = math.Max(StrongConfidenceFloor, div.Strength)
		sig.Reasoning = fmt.Sprintf("RSI oversold (%.2f) + bullish divergence (%.2f)", rsi, div.Strength)
	case oversold:
		sig.Type = model.Buy
		sig.Confidence = cfg.MediumConfidence
		sig.Reasoning = fmt.Sprintf("RSI oversold (%.2f)", rsi)
	case !overbought && bull:
		sig.Type = model.WeakBuy
		sig.Confidence = div.Strength
		sig.Reasoning = fmt.Sprintf("bullish divergence (%.2f)", div.Strength)
	case overbought && bear:
		sig.Type = model.StrongSell
		sig.Confidence = math.Max(StrongConfidenceFloor, div.Strength)
		sig.Reasoning = fmt.Sprintf("RSI overbought (%.2f) + bearish divergence (%.2f)", rsi, div.Strength)
	case overbought:
		sig.Type = model.Sell
		sig.Confidence = cfg.MediumConfidence
		sig.Reasoning = fmt.Sprintf("RSI overbought (%.2f)", rsi)
	case bear:
		sig.Type = model.WeakSell
		sig.Confidence = div.Strength
		sig.Reasoning = fmt.Sprintf("bearish divergence (%.2f)", div.Strength)
	default:
		sig.Type = model.Hold
		sig.Reasoning = fmt.Sprintf("no clear signal (RSI %.2f)", rsi)
	}

	sig.Actionable = isActionable(sig)
	if !sig.Actionable && (sig.Type == model.Buy || sig.Type == model.Sell) {
		sig.Reasoning += fmt.Sprintf("; confidence %.2f below %.2f, not actionable", sig.Confidence, ActionableConfidence)
	}
	sig.RSI = rsi
	sig.Divergence = div
	return sig
}

func qualifies(div *model.DivergenceEvent, kind model.DivergenceKind, minStrength float64) bool {
	return div != nil && div.Kind == kind && div.Strength >= minStrength
}

func isActionable(sig model.Signal) bool {
	switch sig.Type {
	case model.StrongBuy, model.StrongSell:
		return true
	case model.Buy, model.Sell:
		return sig.Confidence >= ActionableConfidence
	default:
		return false
	}
}
