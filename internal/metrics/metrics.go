// Package metrics exposes Prometheus metrics for ingestion and queries.
// All recording methods are safe to call on a nil *Manager.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the service's collectors and their registry.
type Manager struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	observationsFetched prometheus.Counter
	observationsStored  prometheus.Counter
	observationsInvalid prometheus.Counter
	embeddingsStored    prometheus.Counter
	ingestErrors        *prometheus.CounterVec
	ingestRunDuration   prometheus.Histogram

	providerRequests *prometheus.CounterVec

	queries       *prometheus.CounterVec
	queryDuration prometheus.Histogram
}

// NewManager creates a Manager with its own registry unless one is supplied.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "weatheriq",
		buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
		m.registry.MustRegister(collectors.NewGoCollector())
	}

	m.observationsFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "ingest", Name: "observations_fetched_total",
		Help: "Raw observations returned by the weather provider.",
	})
	m.observationsStored = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "ingest", Name: "observations_stored_total",
		Help: "Observations written to the structured table.",
	})
	m.observationsInvalid = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "ingest", Name: "observations_invalid_total",
		Help: "Observations rejected for missing required fields.",
	})
	m.embeddingsStored = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "ingest", Name: "embeddings_stored_total",
		Help: "Embeddings written to the vector table.",
	})
	m.ingestErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "ingest", Name: "errors_total",
		Help: "Ingestion failures by pipeline stage.",
	}, []string{"stage"})
	m.ingestRunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "ingest", Name: "run_duration_seconds",
		Help:    "Wall time of bulk ingestion runs.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})
	m.providerRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "provider", Name: "requests_total",
		Help: "Outbound provider requests by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})
	m.queries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "query", Name: "requests_total",
		Help: "Semantic queries by outcome.",
	}, []string{"outcome"})
	m.queryDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "query", Name: "duration_seconds",
		Help:    "Semantic query latency.",
		Buckets: m.buckets,
	})

	m.registry.MustRegister(
		m.observationsFetched,
		m.observationsStored,
		m.observationsInvalid,
		m.embeddingsStored,
		m.ingestErrors,
		m.ingestRunDuration,
		m.providerRequests,
		m.queries,
		m.queryDuration,
	)
	return m
}

// Registry returns the registry backing this manager.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Manager) ObservationsFetched(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.observationsFetched.Add(float64(n))
}

func (m *Manager) ObservationStored() {
	if m == nil {
		return
	}
	m.observationsStored.Inc()
}

func (m *Manager) ObservationInvalid() {
	if m == nil {
		return
	}
	m.observationsInvalid.Inc()
}

func (m *Manager) EmbeddingStored() {
	if m == nil {
		return
	}
	m.embeddingsStored.Inc()
}

// IngestError counts a failure at stage (group, current, air_quality, store, embed).
func (m *Manager) IngestError(stage string) {
	if m == nil {
		return
	}
	m.ingestErrors.WithLabelValues(stage).Inc()
}

func (m *Manager) IngestRun(d time.Duration) {
	if m == nil {
		return
	}
	m.ingestRunDuration.Observe(d.Seconds())
}

// ProviderRequest counts an outbound call; outcome is "ok" or "error".
func (m *Manager) ProviderRequest(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.providerRequests.WithLabelValues(endpoint, outcome).Inc()
}

// QueryServed records a query outcome (matches, empty, error) and its latency.
func (m *Manager) QueryServed(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(outcome).Inc()
	m.queryDuration.Observe(d.Seconds())
}
