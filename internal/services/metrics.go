// Package services holds process-wide supporting services for the engine,
// currently the Prometheus metrics registry.
package services

import (
	"contextd/internal/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the engine
type Metrics struct {
	// Record store metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	Evictions   prometheus.Counter

	// Generation metrics
	GenerationRequests prometheus.Counter
	GenerationLatency  prometheus.Histogram
	GenerationErrors   *prometheus.CounterVec
	CoalescedJoins     prometheus.Counter
	DebounceCollapses  prometheus.Counter

	// WebSocket metrics
	TypingConnections prometheus.Gauge
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics. The record store is
// exposed through a live gauge rather than a counter so restarts and
// evictions stay honest.
func InitMetrics(recordStore *store.RecordStore) *Metrics {
	metrics := &Metrics{
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contextd_cache_hits_total",
			Help: "Context record lookups served from the store without an external call",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contextd_cache_misses_total",
			Help: "Context record lookups that required generation",
		}),
		Evictions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contextd_record_evictions_total",
			Help: "Context records dropped by eviction passes",
		}),
		GenerationRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contextd_generation_requests_total",
			Help: "External summarizer calls launched",
		}),
		GenerationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "contextd_generation_duration_seconds",
			Help:    "External summarizer call latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60}, // LLM latencies
		}),
		GenerationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "contextd_generation_errors_total",
			Help: "Failed generation attempts by error type",
		}, []string{"error_type"}),
		CoalescedJoins: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contextd_coalesced_joins_total",
			Help: "Generation requests served by joining an in-flight call",
		}),
		DebounceCollapses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contextd_debounce_collapses_total",
			Help: "Typing triggers absorbed by the debounce window",
		}),
		TypingConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "contextd_typing_connections_active",
			Help: "Active live-typing WebSocket connections",
		}),
	}

	if recordStore != nil {
		prometheus.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "contextd_records_current",
				Help: "Context records currently held by the store",
			},
			func() float64 {
				return float64(recordStore.Count())
			},
		))
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance (nil before InitMetrics).
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordCacheHit increments the cache hit counter.
func (m *Metrics) RecordCacheHit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

// RecordCacheMiss increments the cache miss counter.
func (m *Metrics) RecordCacheMiss() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}

// RecordEvictions adds the dropped record count from an eviction pass.
func (m *Metrics) RecordEvictions(n int) {
	if m != nil {
		m.Evictions.Add(float64(n))
	}
}

// RecordGeneration records a launched external call.
func (m *Metrics) RecordGeneration() {
	if m != nil {
		m.GenerationRequests.Inc()
	}
}

// RecordGenerationLatency records external call latency.
func (m *Metrics) RecordGenerationLatency(seconds float64) {
	if m != nil {
		m.GenerationLatency.Observe(seconds)
	}
}

// RecordGenerationError records a failed generation by type.
func (m *Metrics) RecordGenerationError(errorType string) {
	if m != nil {
		m.GenerationErrors.WithLabelValues(errorType).Inc()
	}
}

// RecordCoalescedJoin records a request served by an in-flight call.
func (m *Metrics) RecordCoalescedJoin() {
	if m != nil {
		m.CoalescedJoins.Inc()
	}
}

// RecordDebounceCollapse records a typing trigger absorbed by the window.
func (m *Metrics) RecordDebounceCollapse() {
	if m != nil {
		m.DebounceCollapses.Inc()
	}
}

// RecordTypingConnect records a new live-typing connection.
func (m *Metrics) RecordTypingConnect() {
	if m != nil {
		m.TypingConnections.Inc()
	}
}

// RecordTypingDisconnect records a closed live-typing connection.
func (m *Metrics) RecordTypingDisconnect() {
	if m != nil {
		m.TypingConnections.Dec()
	}
}
