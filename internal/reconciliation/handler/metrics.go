package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/payreto-reconciler/internal/reconciliation/domain"
	"github.com/tair/payreto-reconciler/internal/reconciliation/usecase/command"
)

// Metrics holds the reconciler's Prometheus collectors
type Metrics struct {
	requestCounter *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	outcomes       *prometheus.CounterVec
	anomalies      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconciler_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		requestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reconciler_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconciler_notifications_total",
				Help: "Gateway notifications by record kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		anomalies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconciler_state_anomalies_total",
				Help: "Notifications whose state does not follow from the previous booked state",
			},
			[]string{"kind", "from", "to"},
		),
	}

	reg.MustRegister(m.requestCounter, m.requestLatency, m.outcomes, m.anomalies)
	return m
}

// ObserveOutcome counts a processed notification
func (m *Metrics) ObserveOutcome(kind domain.Kind, outcome command.Outcome) {
	m.outcomes.WithLabelValues(string(kind), string(outcome)).Inc()
}

// ObserveAnomaly counts an illegal state transition
func (m *Metrics) ObserveAnomaly(kind domain.Kind, from, to domain.LedgerState) {
	m.anomalies.WithLabelValues(string(kind), from.String(), to.String()).Inc()
}

// Middleware records request count and latency per route template
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		m.requestCounter.WithLabelValues(r.Method, route, strconv.Itoa(ww.statusCode)).Inc()
		m.requestLatency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
