// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bibtools"

// Metrics holds the counters and histograms recorded during a run. Metrics
// are registered on a private registry so repeated construction never
// conflicts. Every Record method is safe to call on a nil *Metrics.
type Metrics struct {
	Registry *prometheus.Registry

	// ProviderAttempts counts provider calls, labeled by provider.
	ProviderAttempts *prometheus.CounterVec

	// ProviderRetries counts backoff waits, labeled by provider.
	ProviderRetries *prometheus.CounterVec

	// ProviderOutcomes counts finished queries, labeled by provider and outcome
	// (ok, not_found, rejected, exhausted, cancelled).
	ProviderOutcomes *prometheus.CounterVec

	// ProviderLatency observes single attempt duration in seconds.
	ProviderLatency *prometheus.HistogramVec

	// CacheLookups counts cache reads, labeled by result (hit, miss, error).
	CacheLookups *prometheus.CounterVec

	// CacheWrites counts cache writes, labeled by result (ok, error).
	CacheWrites *prometheus.CounterVec

	// Citations counts resolved citations, labeled by status and reason.
	Citations *prometheus.CounterVec

	// CanonicalRecords counts deduplicated records, labeled by merge basis.
	CanonicalRecords *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		ProviderAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_attempts_total",
			Help:      "Total number of provider query attempts",
		}, []string{"provider"}),
		ProviderRetries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_retries_total",
			Help:      "Total number of provider retries after a transient failure",
		}, []string{"provider"}),
		ProviderOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_queries_total",
			Help:      "Total number of completed provider queries by outcome",
		}, []string{"provider", "outcome"}),
		ProviderLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_attempt_duration_seconds",
			Help:      "Duration of single provider attempts in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"provider"}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Total number of identifier cache lookups by result",
		}, []string{"result"}),
		CacheWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_writes_total",
			Help:      "Total number of identifier cache writes by result",
		}, []string{"result"}),
		Citations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "citations_total",
			Help:      "Total number of citations resolved by status",
		}, []string{"status", "reason"}),
		CanonicalRecords: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "canonical_records_total",
			Help:      "Total number of canonical records by merge basis",
		}, []string{"basis"}),
	}
}

// RecordAttempt records one provider attempt and its duration.
func (m *Metrics) RecordAttempt(provider string, d time.Duration) {
	if m == nil {
		return
	}
	m.ProviderAttempts.WithLabelValues(provider).Inc()
	m.ProviderLatency.WithLabelValues(provider).Observe(d.Seconds())
}

// RecordRetry records a backoff wait before another attempt.
func (m *Metrics) RecordRetry(provider string) {
	if m == nil {
		return
	}
	m.ProviderRetries.WithLabelValues(provider).Inc()
}

// RecordOutcome records how a provider query finished.
func (m *Metrics) RecordOutcome(provider, outcome string) {
	if m == nil {
		return
	}
	m.ProviderOutcomes.WithLabelValues(provider, outcome).Inc()
}

// RecordCacheLookup records a cache read result: hit, miss, or error.
func (m *Metrics) RecordCacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// RecordCacheWrite records a cache write result: ok or error.
func (m *Metrics) RecordCacheWrite(result string) {
	if m == nil {
		return
	}
	m.CacheWrites.WithLabelValues(result).Inc()
}

// RecordCitation records a citation's terminal status.
func (m *Metrics) RecordCitation(status, reason string) {
	if m == nil {
		return
	}
	m.Citations.WithLabelValues(status, reason).Inc()
}

// RecordCanonical records a deduplicated record.
func (m *Metrics) RecordCanonical(basis string) {
	if m == nil {
		return
	}
	m.CanonicalRecords.WithLabelValues(basis).Inc()
}

// WriteFile writes every metric to path in the Prometheus text format, for
// the node exporter textfile collector or a later push.
func (m *Metrics) WriteFile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
