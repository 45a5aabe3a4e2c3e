package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"DivergenceSentinel/internal/model"
)

// Paper is a simulated Broker. Orders fill in full at their reference price;
// reducing a holding realizes PnL against its average cost into cash.
type Paper struct {
	mu       sync.Mutex
	initial  decimal.Decimal
	cash     decimal.Decimal
	holdings map[string]holding
	logger   zerolog.Logger
	now      func() time.Time
}

// holding is a signed net quantity: positive long, negative short.
type holding struct {
	qty     decimal.Decimal
	avgCost decimal.Decimal
}

// NewPaper creates a simulated account funded with initialBalance.
func NewPaper(initialBalance float64, logger zerolog.Logger) *Paper {
	return &Paper{
		initial:  decimal.NewFromFloat(initialBalance),
		cash:     decimal.NewFromFloat(initialBalance),
		holdings: make(map[string]holding),
		logger:   logger.With().Str("component", "paper").Logger(),
		now:      time.Now,
	}
}

func (p *Paper) Name() string { return "paper" }

func (p *Paper) SubmitOrder(_ context.Context, req model.OrderRequest) (*model.OrderResult, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("paper order %s: quantity must be positive, got %v", req.Symbol, req.Quantity)
	}
	if req.ReferencePrice <= 0 {
		return nil, fmt.Errorf("paper order %s: reference price required", req.Symbol)
	}

	price := decimal.NewFromFloat(req.ReferencePrice)
	delta := decimal.NewFromFloat(req.Quantity)
	if req.Side == model.OrderSell {
		delta = delta.Neg()
	}

	p.mu.Lock()
	realized := p.apply(req.Symbol, delta, price)
	p.cash = p.cash.Add(realized)
	cash := p.cash
	p.mu.Unlock()

	res := &model.OrderResult{
		OrderID:     uuid.NewString(),
		Symbol:      req.Symbol,
		Side:        req.Side,
		FilledQty:   req.Quantity,
		AvgPrice:    req.ReferencePrice,
		Status:      "FILLED",
		SubmittedAt: p.now(),
	}
	p.logger.Info().
		Str("order_id", res.OrderID).
		Str("symbol", req.Symbol).
		Str("side", string(req.Side)).
		Float64("qty", req.Quantity).
		Float64("price", req.ReferencePrice).
		Str("realized", realized.String()).
		Str("cash", cash.String()).
		Msg("simulated fill")
	return res, nil
}

// apply books delta at price and returns the PnL realized by any reduction.
// Caller holds p.mu.
func (p *Paper) apply(symbol string, delta, price decimal.Decimal) decimal.Decimal {
	h := p.holdings[symbol]
	realized := decimal.Zero

	if h.qty.IsZero() || h.qty.Sign() == delta.Sign() {
		// Opening or adding: blend the average cost.
		total := h.qty.Add(delta)
		h.avgCost = h.avgCost.Mul(h.qty.Abs()).Add(price.Mul(delta.Abs())).Div(total.Abs())
		h.qty = total
	} else {
		closing := decimal.Min(h.qty.Abs(), delta.Abs())
		realized = price.Sub(h.avgCost).Mul(closing)
		if h.qty.IsNegative() {
			realized = realized.Neg()
		}
		h.qty = h.qty.Add(delta)
		if h.qty.Sign() == delta.Sign() {
			// Flipped through zero; the remainder opens at price.
			h.avgCost = price
		}
	}

	if h.qty.IsZero() {
		delete(p.holdings, symbol)
	} else {
		p.holdings[symbol] = h
	}
	return realized
}

// Restore rebuilds the account after a restart: cash is the initial balance
// plus realizedPnL from earlier sessions, and each open position becomes a
// holding at its entry price.
func (p *Paper) Restore(positions []model.Position, realizedPnL float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cash = p.initial.Add(decimal.NewFromFloat(realizedPnL))
	p.holdings = make(map[string]holding, len(positions))
	for _, pos := range positions {
		qty := decimal.NewFromFloat(pos.Size)
		if pos.Side == model.Short {
			qty = qty.Neg()
		}
		p.holdings[pos.Symbol] = holding{qty: qty, avgCost: decimal.NewFromFloat(pos.Entry)}
	}
	p.logger.Info().
		Int("holdings", len(p.holdings)).
		Str("cash", p.cash.String()).
		Msg("paper account restored")
}

// FetchBalance returns the simulated cash balance; asset is ignored.
func (p *Paper) FetchBalance(_ context.Context, _ string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash.InexactFloat64(), nil
}

// Holding returns the signed net quantity held for symbol.
func (p *Paper) Holding(symbol string) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.holdings[symbol].qty.InexactFloat64()
}
