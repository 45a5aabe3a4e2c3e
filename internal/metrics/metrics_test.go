package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_CountersAndExposition(t *testing.T) {
	m := New()
	m.EvaluationsTotal.Inc()
	m.SignalsTotal.WithLabelValues("STRONG_BUY").Inc()
	m.SignalsTotal.WithLabelValues("STRONG_BUY").Inc()
	m.OpenPositions.Set(2)

	if got := testutil.ToFloat64(m.SignalsTotal.WithLabelValues("STRONG_BUY")); got != 2 {
		t.Errorf("expected 2 STRONG_BUY signals, got %v", got)
	}

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		"divergence_evaluations_total 1",
		`divergence_signals_total{type="STRONG_BUY"} 2`,
		"divergence_open_positions 2",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.RiskCappedTotal.Inc()
	if got := testutil.ToFloat64(b.RiskCappedTotal); got != 0 {
		t.Errorf("registries must not share state, got %v", got)
	}
}
