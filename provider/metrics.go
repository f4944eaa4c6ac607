package provider

import (
	"sync"
	"time"

	"github.com/oraclemesh/oracle/internal/metrics"
)

// Metrics holds one provider's fetch counters: totals, successes,
// failures, an EMA-smoothed latency, and the derived observed
// reliability (successes/total). Mutated only by the owning provider's
// own fanout tasks — no cross-provider sharing (§5).
type Metrics struct {
	mu            sync.Mutex
	total         int64
	successes     int64
	failures      int64
	emaLatencyMs  float64
	emaSeeded     bool
	lastHealth    bool
	providerName  string
	collector     *metrics.Collector // may be nil (metrics export optional)
}

// NewMetrics creates a zeroed counter set for providerName, optionally
// publishing to a prometheus Collector (C3, modeled on
// internal/metrics/collector.go).
func NewMetrics(providerName string, collector *metrics.Collector) *Metrics {
	return &Metrics{providerName: providerName, collector: collector}
}

// RecordSuccess records one successful fetch of the given latency.
// Exactly one of RecordSuccess/RecordFailure is called per concluded
// fetch, and successes+failures == total always holds.
func (m *Metrics) RecordSuccess(queryType string, latency time.Duration) {
	m.mu.Lock()
	m.total++
	m.successes++
	m.updateEMA(latency)
	reliability := float64(m.successes) / float64(m.total)
	ema := m.emaLatencyMs
	m.mu.Unlock()

	if m.collector != nil {
		m.collector.RecordProviderFetch(m.providerName, queryType, latency, true, "")
		m.collector.SetProviderEMALatency(m.providerName, ema)
		m.collector.SetProviderReliability(m.providerName, reliability)
	}
}

// RecordFailure records one failed fetch, tagged with its failure reason.
func (m *Metrics) RecordFailure(queryType, reason string, latency time.Duration) {
	m.mu.Lock()
	m.total++
	m.failures++
	m.updateEMA(latency)
	reliability := float64(m.successes) / float64(m.total)
	ema := m.emaLatencyMs
	m.mu.Unlock()

	if m.collector != nil {
		m.collector.RecordProviderFetch(m.providerName, queryType, latency, false, reason)
		m.collector.SetProviderEMALatency(m.providerName, ema)
		m.collector.SetProviderReliability(m.providerName, reliability)
	}
}

// updateEMA applies the spec's smoothing factor of 0.1, seeding the
// average with the first observed latency on a fresh counter (§4.4).
func (m *Metrics) updateEMA(latency time.Duration) {
	observed := float64(latency.Milliseconds())
	if !m.emaSeeded {
		m.emaLatencyMs = observed
		m.emaSeeded = true
		return
	}
	m.emaLatencyMs = 0.9*m.emaLatencyMs + 0.1*observed
}

// SetHealth records the result of the most recent health probe.
func (m *Metrics) SetHealth(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastHealth = healthy
}

// Snapshot returns a point-in-time, race-free copy of the counters.
type Snapshot struct {
	Total               int64
	Successes           int64
	Failures            int64
	EMALatencyMs        float64
	ObservedReliability float64
	LastHealth          bool
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	var reliability float64
	if m.total > 0 {
		reliability = float64(m.successes) / float64(m.total)
	}

	return Snapshot{
		Total:               m.total,
		Successes:           m.successes,
		Failures:            m.failures,
		EMALatencyMs:        m.emaLatencyMs,
		ObservedReliability: reliability,
		LastHealth:          m.lastHealth,
	}
}
