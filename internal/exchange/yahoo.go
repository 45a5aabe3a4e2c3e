package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"DivergenceSentinel/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// Yahoo implements MarketData using the Yahoo Finance chart API.
type Yahoo struct {
	BaseURL   string
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahoo creates a Yahoo Finance source with optional proxy support.
func NewYahoo(proxyURL string) *Yahoo {
	return &Yahoo{
		BaseURL: yahooBaseURL,
		Client:  newHTTPClient(proxyURL),
		SymbolMap: map[string]string{
			"BTCUSDT": "BTC-USD",
			"ETHUSDT": "ETH-USD",
			"SPX500":  "^GSPC",
		},
	}
}

func (y *Yahoo) Name() string { return "yahoo" }

func (y *Yahoo) yahooSymbol(symbol string) string {
	if mapped, ok := y.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from the chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func at(values []*float64, i int) float64 {
	if i >= len(values) || values[i] == nil {
		return 0
	}
	return *values[i]
}

func (y *Yahoo) fetchChart(ctx context.Context, symbol, interval, rng string) ([]model.OHLCV, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		y.BaseURL, url.PathEscape(y.yahooSymbol(symbol)), interval, rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := y.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: no data returned")
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]model.OHLCV, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		c := at(quote.Close, i)
		if c == 0 {
			continue // null bar
		}
		bars = append(bars, model.OHLCV{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   at(quote.Open, i),
			High:   at(quote.High, i),
			Low:    at(quote.Low, i),
			Close:  c,
			Volume: at(quote.Volume, i),
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func (y *Yahoo) FetchPriceSeries(ctx context.Context, symbol, interval string, limit int) (model.PriceSeries, error) {
	d, err := intervalDuration(interval)
	if err != nil {
		return model.PriceSeries{}, err
	}
	bars, err := y.fetchChart(ctx, symbol, yahooInterval(interval), yahooRange(d, limit))
	if err != nil {
		return model.PriceSeries{}, err
	}
	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return model.PriceSeries{Symbol: symbol, Interval: interval, Bars: bars}, nil
}

func (y *Yahoo) FetchCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	bars, err := y.fetchChart(ctx, symbol, "1d", "5d")
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("yahoo: no price data")
	}
	return bars[len(bars)-1].Close, nil
}

// yahooInterval translates weekly notation; the rest is shared.
func yahooInterval(interval string) string {
	if strings.HasSuffix(interval, "w") {
		return strings.TrimSuffix(interval, "w") + "wk"
	}
	return interval
}

// yahooRange picks the smallest chart range holding limit bars of width d.
// Markets that close overnight get a 3x margin.
func yahooRange(d time.Duration, limit int) string {
	need := 3 * time.Duration(limit) * d
	day := 24 * time.Hour
	ranges := []struct {
		span time.Duration
		name string
	}{
		{5 * day, "5d"},
		{30 * day, "1mo"},
		{90 * day, "3mo"},
		{180 * day, "6mo"},
		{365 * day, "1y"},
		{2 * 365 * day, "2y"},
		{5 * 365 * day, "5y"},
	}
	for _, r := range ranges {
		if need <= r.span {
			return r.name
		}
	}
	return "max"
}
