package model

import "time"

// SignalType is one of the seven evaluation outcomes.
type SignalType string

const (
	StrongBuy  SignalType = "STRONG_BUY"
	Buy        SignalType = "BUY"
	WeakBuy    SignalType = "WEAK_BUY"
	Hold       SignalType = "HOLD"
	WeakSell   SignalType = "WEAK_SELL"
	Sell       SignalType = "SELL"
	StrongSell SignalType = "STRONG_SELL"
)

// IsBuy reports whether the signal points long.
func (t SignalType) IsBuy() bool {
	return t == StrongBuy || t == Buy || t == WeakBuy
}

// IsSell reports whether the signal points short.
func (t SignalType) IsSell() bool {
	return t == StrongSell || t == Sell || t == WeakSell
}

// Side is the direction of a position.
type Side string

const (
	Long  Side = "long"
	Short Side = "short"
)

// SideOf maps a signal type to a position side. HOLD maps to "".
func SideOf(t SignalType) Side {
	switch {
	case t.IsBuy():
		return Long
	case t.IsSell():
		return Short
	default:
		return ""
	}
}

// Signal is the output of one evaluation. It is never mutated afterwards.
type Signal struct {
	Symbol     string
	Type       SignalType
	Confidence float64
	Actionable bool
	Reasoning  string
	RSI        float64
	Price      float64
	Divergence *DivergenceEvent
	Levels     Levels
	Timestamp  time.Time
}

// RiskPlan is the sized trade for an actionable signal.
type RiskPlan struct {
	Side       Side
	Entry      float64
	StopLoss   float64
	TakeProfit float64
	Size       float64
	RiskAmount float64
	RewardRisk float64
	Capped     bool
}
