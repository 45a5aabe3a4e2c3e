// Package metrics exposes the bot's Prometheus instruments.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Metrics holds all Prometheus metrics for the trading loop.
type Metrics struct {
	EvaluationsTotal     prometheus.Counter
	EvaluationErrors     *prometheus.CounterVec // labels: kind
	SignalsTotal         *prometheus.CounterVec // labels: type
	OrdersTotal          *prometheus.CounterVec // labels: side
	PositionsClosedTotal *prometheus.CounterVec // labels: reason
	RiskCappedTotal      prometheus.Counter
	OpenPositions        prometheus.Gauge
	RealizedPnL          prometheus.Gauge
	EvaluationDuration   prometheus.Histogram

	registry *prometheus.Registry
}

// New creates the metrics on a private registry.
func New() *Metrics {
	m := &Metrics{
		EvaluationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "divergence_evaluations_total",
			Help: "Total symbol evaluations run",
		}),
		EvaluationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "divergence_evaluation_errors_total",
			Help: "Evaluation failures by kind (fetch, insufficient_data, position_too_small, order, other)",
		}, []string{"kind"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "divergence_signals_total",
			Help: "Signals generated by type",
		}, []string{"type"}),
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "divergence_orders_total",
			Help: "Orders submitted by side",
		}, []string{"side"}),
		PositionsClosedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "divergence_positions_closed_total",
			Help: "Closed positions by exit reason",
		}, []string{"reason"}),
		RiskCappedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "divergence_risk_capped_total",
			Help: "Plans clipped to the max position fraction",
		}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "divergence_open_positions",
			Help: "Currently open positions",
		}),
		RealizedPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "divergence_realized_pnl",
			Help: "Cumulative realized profit and loss in quote currency",
		}),
		EvaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "divergence_evaluation_duration_seconds",
			Help:    "Fetch plus evaluation latency per symbol",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.EvaluationsTotal,
		m.EvaluationErrors,
		m.SignalsTotal,
		m.OrdersTotal,
		m.PositionsClosedTotal,
		m.RiskCappedTotal,
		m.OpenPositions,
		m.RealizedPnL,
		m.EvaluationDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	srv    *http.Server
	logger zerolog.Logger
}

// NewServer creates a metrics server on addr.
func NewServer(addr string, m *Metrics, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info().Str("addr", s.srv.Addr).Msg("metrics server listening")
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("metrics server error")
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
