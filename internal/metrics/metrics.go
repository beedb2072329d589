// Package metrics provides Prometheus instrumentation for the settlement
// engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RunsCreatedTotal counts runs created.
	RunsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "redline_runs_created_total",
		Help: "Total number of runs created",
	})

	// PicksPlacedTotal counts picks placed.
	PicksPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "redline_picks_placed_total",
		Help: "Total number of picks placed",
	})

	// DepositsTotal counts wallet deposits applied. Idempotent replays
	// reported by the ledger are not counted, so this tracks effective
	// credits.
	DepositsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "redline_deposits_total",
		Help: "Total number of wallet deposits applied",
	})

	// SettlementsTotal counts runs settled.
	SettlementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "redline_settlements_total",
		Help: "Total number of runs settled",
	})

	// SettledPayoutTotal accumulates winner payouts across settlements.
	SettledPayoutTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "redline_settled_payout_total",
		Help: "Cumulative winner payouts across settled runs",
	})

	// WSClients tracks connected WebSocket clients.
	WSClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "redline_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redline_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "redline_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the raw path for the label; route cardinality is small.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
