/*
Package metrics provides Prometheus-based metrics collection for the oracle
pipeline, covering provider fetches, consensus computation, audit
submission, cache hit rate, and the HTTP/database surface.

# Overview

Collector registers and records Prometheus series through promauto's
auto-registration, so callers never manage a Registry by hand. All series
are namespace-scoped and label-grouped for Grafana-style dashboards.

# Core types

  - Collector: holds Counter/Histogram/Gauge vectors grouped by domain.

# Capabilities

  - Provider metrics: fetch totals/successes/failures, fetch latency
    histogram, EMA-latency gauge, observed reliability gauge — grouped by
    provider and query type.
  - Consensus metrics: computations by method/outcome, end-to-end query
    duration, outliers dropped.
  - Audit metrics: records submitted/dropped by ledger backend.
  - Cache metrics: hits/misses by cache type.
  - HTTP metrics: request totals and duration by method/path/status.
  - Database metrics: open/idle connection gauges, query duration
    histogram.
*/
package metrics
