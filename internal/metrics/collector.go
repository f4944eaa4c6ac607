// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// Collector
// =============================================================================

// Collector holds the Prometheus series for the oracle pipeline: per-provider
// fetch counts/latency/reliability (C3 Provider Metrics), HTTP surface
// metrics for cmd/oracled, cache hit/miss counts for the Provider Cache (C2),
// and database connection metrics for the optional registry store.
type Collector struct {
	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Provider metrics (C3)
	providerFetchTotal    *prometheus.CounterVec
	providerFetchSuccess  *prometheus.CounterVec
	providerFetchFailure  *prometheus.CounterVec
	providerFetchDuration *prometheus.HistogramVec
	providerEMALatencyMs  *prometheus.GaugeVec
	providerReliability   *prometheus.GaugeVec

	// Consensus metrics
	consensusTotal        *prometheus.CounterVec
	consensusDuration     *prometheus.HistogramVec
	consensusOutliersDrop *prometheus.CounterVec

	// Audit metrics
	auditSubmitted *prometheus.CounterVec
	auditDropped   *prometheus.CounterVec

	// Cache metrics
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	// Database metrics
	dbConnectionsOpen *prometheus.GaugeVec
	dbConnectionsIdle *prometheus.GaugeVec
	dbQueryDuration   *prometheus.HistogramVec

	logger *zap.Logger
	mu     sync.RWMutex
}

// NewCollector creates a metrics collector registered under namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.providerFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_fetch_total",
			Help:      "Total number of provider fetch attempts",
		},
		[]string{"provider", "query_type"},
	)

	c.providerFetchSuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_fetch_success_total",
			Help:      "Total number of successful provider fetches",
		},
		[]string{"provider", "query_type"},
	)

	c.providerFetchFailure = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_fetch_failure_total",
			Help:      "Total number of failed provider fetches",
		},
		[]string{"provider", "query_type", "reason"},
	)

	c.providerFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_fetch_duration_seconds",
			Help:      "Provider fetch latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider"},
	)

	c.providerEMALatencyMs = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "provider_ema_latency_ms",
			Help:      "Exponentially-smoothed provider latency in milliseconds",
		},
		[]string{"provider"},
	)

	c.providerReliability = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "provider_reliability",
			Help:      "Observed provider reliability (successes / total), in [0,1]",
		},
		[]string{"provider"},
	)

	c.consensusTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consensus_total",
			Help:      "Total number of consensus computations, by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	c.consensusDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "consensus_duration_seconds",
			Help:      "End-to-end query() duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"query_type"},
	)

	c.consensusOutliersDrop = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consensus_outliers_dropped_total",
			Help:      "Total number of provider responses dropped as outliers",
		},
		[]string{"query_type"},
	)

	c.auditSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_records_submitted_total",
			Help:      "Total number of audit records accepted by the ledger",
		},
		[]string{"backend"},
	)

	c.auditDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_records_dropped_total",
			Help:      "Total number of audit records dropped after exhausting retries",
		},
		[]string{"backend"},
	)

	c.cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	c.cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	c.dbConnectionsOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_open",
			Help:      "Number of open database connections",
		},
		[]string{"database"},
	)

	c.dbConnectionsIdle = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Number of idle database connections",
		},
		[]string{"database"},
	)

	c.dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"database", "operation"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// HTTP
// =============================================================================

// RecordHTTPRequest records one HTTP request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// =============================================================================
// Provider (C3)
// =============================================================================

// RecordProviderFetch records the outcome of one provider fetch attempt.
// On failure, reason should name the failure Kind (see oracle.ProviderFailure).
func (c *Collector) RecordProviderFetch(provider, queryType string, duration time.Duration, success bool, reason string) {
	c.providerFetchTotal.WithLabelValues(provider, queryType).Inc()
	c.providerFetchDuration.WithLabelValues(provider).Observe(duration.Seconds())
	if success {
		c.providerFetchSuccess.WithLabelValues(provider, queryType).Inc()
	} else {
		c.providerFetchFailure.WithLabelValues(provider, queryType, reason).Inc()
	}
}

// SetProviderEMALatency publishes the provider's current EMA-smoothed
// latency gauge.
func (c *Collector) SetProviderEMALatency(provider string, ms float64) {
	c.providerEMALatencyMs.WithLabelValues(provider).Set(ms)
}

// SetProviderReliability publishes the provider's current observed
// reliability gauge (successes / total, in [0,1]).
func (c *Collector) SetProviderReliability(provider string, reliability float64) {
	c.providerReliability.WithLabelValues(provider).Set(reliability)
}

// =============================================================================
// Consensus
// =============================================================================

// RecordConsensus records one completed query() call.
func (c *Collector) RecordConsensus(method, queryType, outcome string, duration time.Duration) {
	c.consensusTotal.WithLabelValues(method, outcome).Inc()
	c.consensusDuration.WithLabelValues(queryType).Observe(duration.Seconds())
}

// RecordOutliersDropped records how many responses a consensus computation
// rejected as outliers.
func (c *Collector) RecordOutliersDropped(queryType string, n int) {
	if n <= 0 {
		return
	}
	c.consensusOutliersDrop.WithLabelValues(queryType).Add(float64(n))
}

// =============================================================================
// Audit (C8)
// =============================================================================

// RecordAuditSubmitted records one audit record accepted by the ledger.
func (c *Collector) RecordAuditSubmitted(backend string) {
	c.auditSubmitted.WithLabelValues(backend).Inc()
}

// RecordAuditDropped records one audit record dropped after exhausting
// retries.
func (c *Collector) RecordAuditDropped(backend string) {
	c.auditDropped.WithLabelValues(backend).Inc()
}

// =============================================================================
// Cache (C2)
// =============================================================================

// RecordCacheHit records a cache hit.
func (c *Collector) RecordCacheHit(cacheType string) {
	c.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records a cache miss.
func (c *Collector) RecordCacheMiss(cacheType string) {
	c.cacheMisses.WithLabelValues(cacheType).Inc()
}

// =============================================================================
// Database
// =============================================================================

// RecordDBConnections records the current open/idle connection counts.
func (c *Collector) RecordDBConnections(database string, open, idle int) {
	c.dbConnectionsOpen.WithLabelValues(database).Set(float64(open))
	c.dbConnectionsIdle.WithLabelValues(database).Set(float64(idle))
}

// RecordDBQuery records one database query's duration.
func (c *Collector) RecordDBQuery(database, operation string, duration time.Duration) {
	c.dbQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
}

// =============================================================================
// Helpers
// =============================================================================

func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
