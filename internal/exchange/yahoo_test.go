package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const chartBody = `{"chart":{"result":[{"timestamp":[1700003600,1700000000,1700007200],
"indicators":{"quote":[{"open":[101,100,null],"high":[102,101,null],"low":[100,99,null],
"close":[101.5,100.5,null],"volume":[10,20,null]}]}}],"error":null}}`

func TestYahoo_FetchPriceSeries(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		w.Write([]byte(chartBody))
	}))
	defer srv.Close()

	y := NewYahoo("")
	y.BaseURL = srv.URL

	series, err := y.FetchPriceSeries(context.Background(), "BTCUSDT", "1h", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(gotPath, "/BTC-USD") {
		t.Errorf("symbol not mapped: %s", gotPath)
	}
	if !strings.Contains(gotQuery, "interval=1h") || !strings.Contains(gotQuery, "range=1mo") {
		t.Errorf("unexpected query: %s", gotQuery)
	}
	if series.Len() != 2 {
		t.Fatalf("expected null bar dropped, got %d bars", series.Len())
	}
	if series.Bars[0].Close != 100.5 || series.Bars[1].Close != 101.5 {
		t.Errorf("bars not sorted by time: %+v", series.Bars)
	}
}

func TestYahoo_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
	}))
	defer srv.Close()

	y := NewYahoo("")
	y.BaseURL = srv.URL
	if _, err := y.FetchCurrentPrice(context.Background(), "NOPE"); err == nil || !strings.Contains(err.Error(), "No data found") {
		t.Errorf("expected api error, got %v", err)
	}
}

func TestYahooRangeAndInterval(t *testing.T) {
	tests := []struct {
		d     time.Duration
		limit int
		want  string
	}{
		{time.Hour, 100, "1mo"},
		{24 * time.Hour, 100, "1y"},
		{24 * time.Hour, 500, "5y"},
		{time.Minute, 100, "5d"},
	}
	for _, tt := range tests {
		if got := yahooRange(tt.d, tt.limit); got != tt.want {
			t.Errorf("yahooRange(%s, %d): expected %s, got %s", tt.d, tt.limit, tt.want, got)
		}
	}
	if got := yahooInterval("1w"); got != "1wk" {
		t.Errorf("expected 1wk, got %s", got)
	}
}
