package model

import "time"

// PositionStatus is the lifecycle state of a Position.
type PositionStatus string

const (
	StatusOpen   PositionStatus = "open"
	StatusClosed PositionStatus = "closed"
)

// Exit reasons recorded on closed positions.
const (
	ExitStopLoss   = "stop_loss"
	ExitTakeProfit = "take_profit"
	ExitShutdown   = "shutdown"
	ExitManual     = "manual"
)

// Position is owned by the orchestrator; the analysis core never touches it.
type Position struct {
	Symbol       string         `json:"symbol"`
	Side         Side           `json:"side"`
	Size         float64        `json:"size"`
	Entry        float64        `json:"entry"`
	StopLoss     float64        `json:"stop_loss"`
	TakeProfit   float64        `json:"take_profit"`
	OpenedAt     time.Time      `json:"opened_at"`
	Status       PositionStatus `json:"status"`
	EntryOrderID string         `json:"entry_order_id"`
	ExitPrice    float64        `json:"exit_price,omitempty"`
	ExitReason   string         `json:"exit_reason,omitempty"`
	RealizedPnL  float64        `json:"realized_pnl,omitempty"`
	ClosedAt     time.Time      `json:"closed_at,omitempty"`
}

// UnrealizedPnL returns the mark-to-market profit at price.
func (p *Position) UnrealizedPnL(price float64) float64 {
	if p.Side == Short {
		return (p.Entry - price) * p.Size
	}
	return (price - p.Entry) * p.Size
}

// TriggeredExit returns ExitStopLoss or ExitTakeProfit when price crosses a level, else "".
func (p *Position) TriggeredExit(price float64) string {
	if p.Side == Short {
		if p.StopLoss > 0 && price >= p.StopLoss {
			return ExitStopLoss
		}
		if p.TakeProfit > 0 && price <= p.TakeProfit {
			return ExitTakeProfit
		}
		return ""
	}
	if p.StopLoss > 0 && price <= p.StopLoss {
		return ExitStopLoss
	}
	if p.TakeProfit > 0 && price >= p.TakeProfit {
		return ExitTakeProfit
	}
	return ""
}

// OrderSide is the exchange-facing order direction.
type OrderSide string

const (
	OrderBuy  OrderSide = "BUY"
	OrderSell OrderSide = "SELL"
)

// EntrySide returns the order side that opens a position of side s.
func EntrySide(s Side) OrderSide {
	if s == Short {
		return OrderSell
	}
	return OrderBuy
}

// ExitSide returns the order side that closes a position of side s.
func ExitSide(s Side) OrderSide {
	if s == Short {
		return OrderBuy
	}
	return OrderSell
}

// OrderRequest is a market order handed to a Broker.
type OrderRequest struct {
	Symbol         string
	Side           OrderSide
	Quantity       float64
	ReferencePrice float64
}

// OrderResult is the broker's view of a submitted order.
type OrderResult struct {
	OrderID     string
	Symbol      string
	Side        OrderSide
	FilledQty   float64
	AvgPrice    float64
	Status      string
	SubmittedAt time.Time
}
