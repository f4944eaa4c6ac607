// Package fanout implements the concurrent fetch engine (C6): given an
// eligible provider set and a timeout, fetch from every provider
// concurrently, collect the responses that arrived before their
// deadline, and discard the rest.
//
// Grounded on the teacher's agent/guardrails/chain.go parallel-mode
// validator chain, which spawns one goroutine per validator under an
// errgroup and collects results into a pre-sized slice; the fanout
// engine generalizes that shape to per-provider fetches with an
// individual deadline per goroutine instead of one shared context.
package fanout

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/oraclemesh/oracle/oracle"
	"github.com/oraclemesh/oracle/provider"
)

// Engine runs the fetch phase of a query against a fixed provider set.
type Engine struct {
	logger *zap.Logger
}

// New builds a fanout Engine.
func New(logger *zap.Logger) *Engine {
	return &Engine{logger: logger.With(zap.String("component", "fanout_engine"))}
}

// Target is one provider the engine will fetch from, paired with the
// registry bookkeeping (cache, metrics) the result must update.
type Target struct {
	Provider provider.Provider
	Cache    *provider.Cache
	Metrics  *provider.Metrics
}

const defaultCacheTTL = 60 * time.Second

// Fetch queries every target concurrently under the given per-provider
// timeout, returning only the responses that succeeded before their
// deadline. It never itself returns an error: a provider failure is
// recorded in that provider's Metrics and simply excluded from the
// result. The consensus engine, which the router calls next, compares
// the returned response count against minResponses and raises
// InsufficientResponses when too few came back (§4.4).
func (e *Engine) Fetch(ctx context.Context, query string, queryType oracle.QueryType, opts oracle.Options, targets []Target, timeout time.Duration) []oracle.Response {
	if len(targets) == 0 {
		return nil
	}

	results := make([]*oracle.Response, len(targets))

	g, gctx := errgroup.WithContext(ctx)

	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			resp, ok := e.fetchOne(gctx, query, queryType, opts, target, timeout)
			if ok {
				results[i] = &resp
			}
			return nil
		})
	}

	// Errors are never propagated upward: every goroutine above
	// swallows its own error into the metrics/cache side channel, so
	// Wait only waits for completion.
	_ = g.Wait()

	out := make([]oracle.Response, 0, len(targets))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

// fetchOne runs a single provider fetch with its own deadline,
// consulting the cache first and updating cache + metrics afterward.
func (e *Engine) fetchOne(ctx context.Context, query string, queryType oracle.QueryType, opts oracle.Options, target Target, timeout time.Duration) (oracle.Response, bool) {
	name := target.Provider.Name()

	if target.Cache != nil {
		if cached, hit := target.Cache.Get(ctx, query); hit {
			return cached, true
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, err := target.Provider.Fetch(fetchCtx, query, opts)
	latency := time.Since(start)

	if err != nil {
		reason := "error"
		if pf, ok := err.(*oracle.ProviderFailure); ok {
			reason = string(pf.Kind)
		}
		if target.Metrics != nil {
			target.Metrics.RecordFailure(string(queryType), reason, latency)
		}
		e.logger.Debug("provider fetch failed",
			zap.String("provider", name),
			zap.Error(err),
		)
		return oracle.Response{}, false
	}

	resp.LatencyMs = latency.Milliseconds()
	if resp.Source == "" {
		resp.Source = name
	}
	if resp.Timestamp.IsZero() {
		resp.Timestamp = time.Now()
	}

	if target.Metrics != nil {
		target.Metrics.RecordSuccess(string(queryType), latency)
	}

	if target.Cache != nil {
		ttl := opts.CacheTime
		if ttl <= 0 {
			ttl = defaultCacheTTL
		}
		target.Cache.Set(ctx, query, resp, ttl)
	}

	return resp, true
}
