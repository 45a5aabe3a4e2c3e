// Package exchange hides venue-specific market data and order APIs behind
// two small capability interfaces.
package exchange

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"DivergenceSentinel/internal/config"
	"DivergenceSentinel/internal/model"
)

// MarketData supplies price history and quotes.
type MarketData interface {
	FetchPriceSeries(ctx context.Context, symbol, interval string, limit int) (model.PriceSeries, error)
	FetchCurrentPrice(ctx context.Context, symbol string) (float64, error)
	Name() string
}

// Broker executes orders and reports the account balance.
type Broker interface {
	SubmitOrder(ctx context.Context, req model.OrderRequest) (*model.OrderResult, error)
	FetchBalance(ctx context.Context, asset string) (float64, error)
	Name() string
}

// New builds the market data source and broker selected by cfg.
// Simulated trading always executes on a Paper broker.
func New(cfg *config.Config, logger zerolog.Logger) (MarketData, Broker, error) {
	var md MarketData
	var live Broker
	switch cfg.Exchange.Name {
	case "binance":
		b := NewBinance(cfg.Exchange, cfg.Proxy, logger)
		md, live = b, b
	case "yahoo":
		md = NewYahoo(cfg.Proxy)
	case "mock":
		md = NewMock(100)
	default:
		return nil, nil, fmt.Errorf("unsupported exchange %q", cfg.Exchange.Name)
	}

	if cfg.Trading.Simulate {
		return md, NewPaper(cfg.Trading.InitialBalance, logger), nil
	}
	if live == nil {
		return nil, nil, fmt.Errorf("exchange %q cannot trade live", cfg.Exchange.Name)
	}
	return md, live, nil
}

// newHTTPClient returns a client with a timeout and an optional proxy.
func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}

// intervalDuration parses exchange interval notation (1m, 4h, 1d, 1w).
func intervalDuration(interval string) (time.Duration, error) {
	if len(interval) < 2 {
		return 0, fmt.Errorf("invalid interval %q", interval)
	}
	var n int
	if _, err := fmt.Sscanf(interval[:len(interval)-1], "%d", &n); err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid interval %q", interval)
	}
	unit := map[byte]time.Duration{
		'm': time.Minute,
		'h': time.Hour,
		'd': 24 * time.Hour,
		'w': 7 * 24 * time.Hour,
	}[interval[len(interval)-1]]
	if unit == 0 {
		return 0, fmt.Errorf("invalid interval %q", interval)
	}
	return time.Duration(n) * unit, nil
}
