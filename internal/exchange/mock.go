package exchange

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"DivergenceSentinel/internal/model"
)

// Mock returns controllable fixed data for development and testing.
// Without overrides it serves a deterministic oscillating series.
type Mock struct {
	BasePrice float64
	Start     time.Time

	mu     sync.Mutex
	series map[string][]model.OHLCV
	prices map[string]float64
}

// NewMock creates a Mock around basePrice.
func NewMock(basePrice float64) *Mock {
	return &Mock{
		BasePrice: basePrice,
		Start:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		series:    make(map[string][]model.OHLCV),
		prices:    make(map[string]float64),
	}
}

func (m *Mock) Name() string { return "mock" }

// SetSeries fixes the bars served for symbol.
func (m *Mock) SetSeries(symbol string, bars []model.OHLCV) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.series[symbol] = bars
}

// SetPrice fixes the current price served for symbol.
func (m *Mock) SetPrice(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[symbol] = price
}

func (m *Mock) FetchPriceSeries(_ context.Context, symbol, interval string, limit int) (model.PriceSeries, error) {
	m.mu.Lock()
	bars, ok := m.series[symbol]
	m.mu.Unlock()
	if !ok {
		d, err := intervalDuration(interval)
		if err != nil {
			return model.PriceSeries{}, err
		}
		bars = generateMockBars(m.BasePrice, limit, m.Start, d)
	}
	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return model.PriceSeries{Symbol: symbol, Interval: interval, Bars: bars}, nil
}

func (m *Mock) FetchCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	m.mu.Lock()
	p, ok := m.prices[symbol]
	m.mu.Unlock()
	if ok {
		return p, nil
	}
	series, err := m.FetchPriceSeries(ctx, symbol, "1h", 1)
	if err != nil {
		return 0, err
	}
	if series.Len() == 0 {
		return 0, fmt.Errorf("mock: no data for %s", symbol)
	}
	return series.Last().Close, nil
}

func generateMockBars(basePrice float64, count int, start time.Time, step time.Duration) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + 0.04*math.Sin(float64(i)/5) + 0.0005*float64(i))
		bars[i] = model.OHLCV{
			Time:   start.Add(time.Duration(i) * step),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
