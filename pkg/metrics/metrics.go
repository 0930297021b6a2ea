// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ingestion outcomes.
const (
	OutcomeInserted  = "inserted"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Live session modes.
const (
	ModeLive    = "live"
	ModePolling = "polling"
)

// Metrics owns a private registry so tests can build as many as they like.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry          *prometheus.Registry
	donationsIngested *prometheus.CounterVec
	liveSessions      *prometheus.GaugeVec
	chainValidation   prometheus.Histogram
}

// New creates and registers the application collectors plus the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		donationsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "donations_ingested_total",
			Help: "Donation claims processed, by ingestion source and outcome.",
		}, []string{"source", "outcome"}),
		liveSessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "live_sessions",
			Help: "Open viewer sessions, by delivery mode.",
		}, []string{"mode"}),
		chainValidation: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chain_validation_seconds",
			Help:    "Time spent validating a transaction against the chain.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 8),
		}),
	}

	m.registry.MustRegister(
		m.donationsIngested,
		m.liveSessions,
		m.chainValidation,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) IngestionOutcome(source, outcome string) {
	if m == nil {
		return
	}
	m.donationsIngested.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) ObserveValidation(d time.Duration) {
	if m == nil {
		return
	}
	m.chainValidation.Observe(d.Seconds())
}

// SessionMode moves one session gauge from one mode to another.
// An empty from or to means the session is opening or closing.
func (m *Metrics) SessionMode(from, to string) {
	if m == nil {
		return
	}
	if from != "" {
		m.liveSessions.WithLabelValues(from).Dec()
	}
	if to != "" {
		m.liveSessions.WithLabelValues(to).Inc()
	}
}
