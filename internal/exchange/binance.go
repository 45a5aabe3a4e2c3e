package exchange

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"DivergenceSentinel/internal/config"
	"DivergenceSentinel/internal/model"
)

// Binance implements MarketData and Broker on the Binance spot API.
type Binance struct {
	client      *binance.Client
	rateLimiter *rate.Limiter
	logger      zerolog.Logger
}

// NewBinance creates a spot client. Sandbox mode targets the spot testnet.
func NewBinance(cfg config.Exchange, proxyURL string, logger zerolog.Logger) *Binance {
	binance.UseTestnet = cfg.Sandbox

	client := binance.NewClient(cfg.APIKey, cfg.APISecret)
	client.HTTPClient = newHTTPClient(proxyURL)

	return &Binance{
		client:      client,
		rateLimiter: rate.NewLimiter(rate.Limit(10), 20),
		logger:      logger.With().Str("component", "binance").Logger(),
	}
}

func (b *Binance) Name() string { return "binance" }

func (b *Binance) FetchPriceSeries(ctx context.Context, symbol, interval string, limit int) (model.PriceSeries, error) {
	if err := b.rateLimiter.Wait(ctx); err != nil {
		return model.PriceSeries{}, err
	}
	klines, err := b.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("binance klines %s: %w", symbol, err)
	}

	bars := make([]model.OHLCV, 0, len(klines))
	for _, k := range klines {
		bars = append(bars, model.OHLCV{
			Time:   time.UnixMilli(k.OpenTime).UTC(),
			Open:   parseFloat(k.Open),
			High:   parseFloat(k.High),
			Low:    parseFloat(k.Low),
			Close:  parseFloat(k.Close),
			Volume: parseFloat(k.Volume),
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	b.logger.Debug().Str("symbol", symbol).Str("interval", interval).Int("bars", len(bars)).Msg("fetched klines")
	return model.PriceSeries{Symbol: symbol, Interval: interval, Bars: bars}, nil
}

func (b *Binance) FetchCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if err := b.rateLimiter.Wait(ctx); err != nil {
		return 0, err
	}
	prices, err := b.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("binance price %s: %w", symbol, err)
	}
	for _, p := range prices {
		if p.Symbol == symbol {
			return parseFloat(p.Price), nil
		}
	}
	return 0, fmt.Errorf("binance price %s: symbol not returned", symbol)
}

// SubmitOrder places a market order for req.Quantity.
func (b *Binance) SubmitOrder(ctx context.Context, req model.OrderRequest) (*model.OrderResult, error) {
	if err := b.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}
	side := binance.SideTypeBuy
	if req.Side == model.OrderSell {
		side = binance.SideTypeSell
	}

	resp, err := b.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(side).
		Type(binance.OrderTypeMarket).
		Quantity(decimal.NewFromFloat(req.Quantity).String()).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance order %s %s: %w", req.Side, req.Symbol, err)
	}

	filled := parseDecimal(resp.ExecutedQuantity)
	avg := decimal.NewFromFloat(req.ReferencePrice)
	if quote := parseDecimal(resp.CummulativeQuoteQuantity); filled.IsPositive() && quote.IsPositive() {
		avg = quote.Div(filled)
	}

	return &model.OrderResult{
		OrderID:     strconv.FormatInt(resp.OrderID, 10),
		Symbol:      resp.Symbol,
		Side:        req.Side,
		FilledQty:   filled.InexactFloat64(),
		AvgPrice:    avg.InexactFloat64(),
		Status:      string(resp.Status),
		SubmittedAt: time.UnixMilli(resp.TransactTime).UTC(),
	}, nil
}

func (b *Binance) FetchBalance(ctx context.Context, asset string) (float64, error) {
	if err := b.rateLimiter.Wait(ctx); err != nil {
		return 0, err
	}
	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("binance account: %w", err)
	}
	for _, bal := range account.Balances {
		if bal.Asset == asset {
			return parseFloat(bal.Free), nil
		}
	}
	return 0, nil
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseFloat(s string) float64 {
	return parseDecimal(s).InexactFloat64()
}
