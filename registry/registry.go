// Package registry maps provider names to ProviderRecords (C4), grounded
// on the teacher's llm.ProviderRegistry
// (_examples/BaSui01-agentflow/llm/registry.go): insertion/removal
// serialized under a single mutex, lookup safe for concurrent readers,
// last-writer-wins on duplicate registration.
package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oraclemesh/oracle/internal/cache"
	"github.com/oraclemesh/oracle/internal/metrics"
	"github.com/oraclemesh/oracle/provider"

	"go.uber.org/zap"
)

// Record is a registered provider's full bookkeeping: the adapter
// itself, its per-provider cache (C2), and its per-provider metrics
// (C3). Cache and metrics are mutated only by the owning provider's own
// fetch/health calls.
type Record struct {
	Provider provider.Provider
	Cache    *provider.Cache
	Metrics  *provider.Metrics
}

// Registry is the name -> Record map the classifier and fanout engine
// consult to resolve the eligible provider set into live adapters.
type Registry struct {
	mu       sync.RWMutex
	records  map[string]*Record
	l2Cache  *cache.RedisBackend
	metrics  *metrics.Collector
	logger   *zap.Logger

	cacheCapacity int
	cacheTTL      time.Duration

	healthCancel context.CancelFunc
}

// New creates an empty Registry. l2Cache may be nil to disable the
// shared Redis cache tier; collector may be nil to disable prometheus
// export.
func New(cacheCapacity int, cacheTTL time.Duration, l2Cache *cache.RedisBackend, collector *metrics.Collector, logger *zap.Logger) *Registry {
	return &Registry{
		records:       make(map[string]*Record),
		l2Cache:       l2Cache,
		metrics:       collector,
		logger:        logger.With(zap.String("component", "registry")),
		cacheCapacity: cacheCapacity,
		cacheTTL:      cacheTTL,
	}
}

// Register adds p to the registry, building its cache and metrics.
// Duplicate registration under the same name is last-writer-wins.
func (r *Registry) Register(p provider.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	r.records[name] = &Record{
		Provider: p,
		Cache:    provider.NewCache(name, r.cacheCapacity, r.cacheTTL, r.l2Cache, r.metrics, r.logger),
		Metrics:  provider.NewMetrics(name, r.metrics),
	}
	r.logger.Info("provider registered", zap.String("provider", name))
}

// Unregister removes name from the registry. It is a no-op if name was
// never registered.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, name)
	r.logger.Info("provider unregistered", zap.String("provider", name))
}

// Get returns the Record registered under name.
func (r *Registry) Get(name string) (*Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[name]
	return rec, ok
}

// Names returns the sorted names of all registered providers.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.records))
	for name := range r.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every registered provider adapter, for Custom-type fanout
// and healthCheckAll.
func (r *Registry) All() map[string]provider.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]provider.Provider, len(r.records))
	for name, rec := range r.records {
		out[name] = rec.Provider
	}
	return out
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// HealthCheckAll probes every registered provider and returns its
// healthy/unhealthy verdict, updating each provider's lastHealth metric.
func (r *Registry) HealthCheckAll(ctx context.Context) map[string]bool {
	r.mu.RLock()
	recs := make(map[string]*Record, len(r.records))
	for name, rec := range r.records {
		recs[name] = rec
	}
	r.mu.RUnlock()

	results := make(map[string]bool, len(recs))
	for name, rec := range recs {
		healthy := rec.Provider.HealthCheck(ctx)
		rec.Metrics.SetHealth(healthy)
		results[name] = healthy
	}
	return results
}

// Close stops the background health-probe loop, if running.
func (r *Registry) Close() {
	if r.healthCancel != nil {
		r.healthCancel()
	}
}
