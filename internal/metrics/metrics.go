// Package metrics exposes the engine's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Finalize outcomes.
const (
	OutcomePersisted   = "persisted"
	OutcomeWriteFailed = "write_failed"
	OutcomeConflict    = "conflict"
	OutcomeReadFailed  = "read_failed"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	SessionsFinalized *prometheus.CounterVec
	Promotions        *prometheus.CounterVec
	StoreErrors       *prometheus.CounterVec
	SessionAccuracy   prometheus.Histogram
	RequestCounter    *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsFinalized: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nurture_sessions_finalized_total",
				Help: "Finalized sessions by outcome",
			},
			[]string{"outcome"},
		),
		Promotions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nurture_promotions_total",
				Help: "Expertise promotions by level pair",
			},
			[]string{"from", "to"},
		),
		StoreErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nurture_store_errors_total",
				Help: "Progress store failures by operation",
			},
			[]string{"op"},
		),
		SessionAccuracy: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "nurture_session_accuracy",
				Help:    "Accuracy of finalized sessions",
				Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
			},
		),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2},
			},
			[]string{"method", "endpoint"},
		),
	}
	reg.MustRegister(
		m.SessionsFinalized,
		m.Promotions,
		m.StoreErrors,
		m.SessionAccuracy,
		m.RequestCounter,
		m.RequestDuration,
	)
	return m
}

// ObserveFinalize counts a finalized session and records its accuracy.
func (m *Metrics) ObserveFinalize(outcome string, accuracy float64) {
	if m == nil {
		return
	}
	m.SessionsFinalized.WithLabelValues(outcome).Inc()
	m.SessionAccuracy.Observe(accuracy)
}

// ObservePromotion counts a level change.
func (m *Metrics) ObservePromotion(from, to string) {
	if m == nil {
		return
	}
	m.Promotions.WithLabelValues(from, to).Inc()
}

// ObserveStoreError counts a failed store operation.
func (m *Metrics) ObserveStoreError(op string) {
	if m == nil {
		return
	}
	m.StoreErrors.WithLabelValues(op).Inc()
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, endpoint, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestCounter.WithLabelValues(method, endpoint, status).Inc()
	m.RequestDuration.WithLabelValues(method, endpoint).Observe(seconds)
}
