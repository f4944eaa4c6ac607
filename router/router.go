// Package router implements the router (C9): the single public entry
// point that ties classification, fanout, consensus, and audit
// logging into the `query(text, options)` operation described in §6.
//
// Grounded on the teacher's llm/router/router.go WeightedRouter: a
// small struct holding references to its collaborators (there, a
// provider pool and health checker; here, a registry, fanout engine,
// consensus engine, and audit logger) behind a handful of
// concurrency-safe public methods. None of Router's own state needs
// its own mutex: every collaborator it holds already serializes its
// own mutations (registry.Registry, audit.Logger), so Router itself is
// safe for concurrent Query calls without an additional lock.
package router

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oraclemesh/oracle/audit"
	"github.com/oraclemesh/oracle/classifier"
	"github.com/oraclemesh/oracle/consensus"
	"github.com/oraclemesh/oracle/fanout"
	"github.com/oraclemesh/oracle/internal/ctxkeys"
	"github.com/oraclemesh/oracle/internal/metrics"
	"github.com/oraclemesh/oracle/oracle"
	"github.com/oraclemesh/oracle/prefilter"
	"github.com/oraclemesh/oracle/provider"
	"github.com/oraclemesh/oracle/registry"
)

// conversationalSource is the sentinel Response.Source the pre-filter
// short-circuit returns, per §4.7.
const conversationalSource = "conversational"

// Config parameterizes a Router's default behavior, mirroring
// config.OracleConfig's query-time fields (§6's "Configuration"
// table). A caller's per-query oracle.Options always takes priority
// over these defaults.
type Config struct {
	DefaultMethod  oracle.ConsensusMethod
	MinResponses   int
	DefaultTimeout time.Duration
}

// Router composes the pipeline stages into the single query()
// operation. It holds no mutable state of its own beyond the
// background-work bookkeeping used by Close.
type Router struct {
	registry  *registry.Registry
	fanout    *fanout.Engine
	consensus *consensus.Engine
	auditLog  *audit.Logger
	preFilter prefilter.Filter
	collector *metrics.Collector // may be nil (metrics export optional)
	logger    *zap.Logger

	cfg Config

	bgCtx    context.Context
	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New builds a Router. preFilter may be nil to disable the
// conversational short-circuit entirely (every query is classified
// and fanned out). collector may be nil to disable prometheus export.
func New(reg *registry.Registry, fanoutEngine *fanout.Engine, consensusEngine *consensus.Engine, auditLog *audit.Logger, preFilter prefilter.Filter, collector *metrics.Collector, cfg Config, logger *zap.Logger) *Router {
	bgCtx, bgCancel := context.WithCancel(context.Background())
	return &Router{
		registry:  reg,
		fanout:    fanoutEngine,
		consensus: consensusEngine,
		auditLog:  auditLog,
		preFilter: preFilter,
		collector: collector,
		logger:    logger.With(zap.String("component", "router")),
		cfg:       cfg,
		bgCtx:     bgCtx,
		bgCancel:  bgCancel,
	}
}

// Query runs the full pipeline for text: pre-filter, classify, fan
// out, reach consensus, and asynchronously submit an audit record.
// It returns either a ConsensusResult or a *oracle.QueryFailure
// describing why consensus could not be reached — never a partial
// result with silently dropped providers (§7).
func (r *Router) Query(ctx context.Context, text string, opts oracle.Options) (oracle.ConsensusResult, error) {
	if r.preFilter != nil && r.preFilter.IsConversational(text) {
		return oracle.ConsensusResult{
			Value:      oracle.NewStructValue(map[string]any{"reply": "conversational query, no data lookup performed"}),
			Confidence: 0.95,
			Method:     oracle.MethodMajorityVote,
			Sources:    []string{conversationalSource},
			Timestamp:  time.Now(),
		}, nil
	}

	queryID := uuid.NewString()
	ctx = ctxkeys.WithQueryID(ctx, queryID)
	log := r.logger.With(zap.String("query_id", queryID))
	start := time.Now()

	queryType := classifier.Classify(text)
	registered := r.registry.Names()

	method := opts.ConsensusMethod
	if method == "" {
		method = r.defaultMethod()
	}

	var eligible []string
	if len(opts.Sources) > 0 {
		eligible = classifier.Intersect(opts.Sources, registered)
	} else {
		eligible = classifier.Eligible(queryType, registered)
	}

	minResponses := r.minResponses()
	if len(eligible) < minResponses {
		r.recordConsensus(method, queryType, string(oracle.FailInsufficientProviders), start)
		return oracle.ConsensusResult{}, &oracle.QueryFailure{
			Kind:    oracle.FailInsufficientProviders,
			Message: "fewer eligible providers than minResponses for this query type",
		}
	}

	targets := make([]fanout.Target, 0, len(eligible))
	weights := make(map[string]float64, len(eligible))
	for _, name := range eligible {
		rec, ok := r.registry.Get(name)
		if !ok {
			continue
		}
		targets = append(targets, fanout.Target{Provider: rec.Provider, Cache: rec.Cache, Metrics: rec.Metrics})
		weights[name] = rec.Provider.Meta().Weight
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout()
	}

	responses := r.fanout.Fetch(ctx, text, queryType, opts, targets, timeout)

	result, qf := r.consensus.Compute(responses, method, weights, queryType)
	if qf != nil {
		log.Debug("query failed to reach consensus",
			zap.String("failure_kind", string(qf.Kind)),
			zap.Int("response_count", len(responses)),
		)
		r.recordConsensus(method, queryType, string(qf.Kind), start)
		return oracle.ConsensusResult{}, qf
	}

	r.recordConsensus(method, queryType, "success", start)
	r.submitAudit(ctx, queryID, text, result, log)

	return result, nil
}

// recordConsensus publishes one completed query()'s method, outcome,
// and latency, if a collector is configured.
func (r *Router) recordConsensus(method oracle.ConsensusMethod, queryType oracle.QueryType, outcome string, start time.Time) {
	if r.collector == nil {
		return
	}
	r.collector.RecordConsensus(string(method), string(queryType), outcome, time.Since(start))
}

// submitAudit enqueues the post-consensus audit record on a task
// separate from the query's own reply path, so a slow or failing
// ledger never blocks Query's return (§5). A caller-cancelled query
// never reaches here with a cancelled ctx still in effect, since
// Compute only returns a result on the success path; ctx.Err() is
// checked once more defensively before enqueuing.
func (r *Router) submitAudit(ctx context.Context, queryID, text string, result oracle.ConsensusResult, log *zap.Logger) {
	if ctx.Err() != nil {
		return
	}

	record := oracle.AuditRecord{
		QueryID:         queryID,
		QueryText:       text,
		ConsensusResult: result,
		SubmittedAt:     time.Now(),
	}

	submitCtx := context.WithoutCancel(ctx)

	r.bgWG.Add(1)
	go func() {
		defer r.bgWG.Done()
		txID, err := r.auditLog.Submit(submitCtx, record)
		if err != nil {
			log.Warn("audit submission failed", zap.Error(err))
			return
		}
		log.Debug("audit record submitted", zap.String("transaction_id", txID))
	}()
}

// RegisterProvider adds p to the router's registry.
func (r *Router) RegisterProvider(p provider.Provider) { r.registry.Register(p) }

// UnregisterProvider removes name from the router's registry.
func (r *Router) UnregisterProvider(name string) { r.registry.Unregister(name) }

// GetProvider returns the provider registered under name.
func (r *Router) GetProvider(name string) (provider.Provider, bool) {
	rec, ok := r.registry.Get(name)
	if !ok {
		return nil, false
	}
	return rec.Provider, true
}

// GetProviders returns every registered provider, keyed by name.
func (r *Router) GetProviders() map[string]provider.Provider { return r.registry.All() }

// HealthCheckAll probes every registered provider.
func (r *Router) HealthCheckAll(ctx context.Context) map[string]bool {
	return r.registry.HealthCheckAll(ctx)
}

// Close waits for in-flight background audit submissions to finish
// (it does not cancel them), then closes and flushes the audit logger.
// It does not close the registry, which the caller may still own and
// reuse elsewhere.
func (r *Router) Close(ctx context.Context) error {
	r.bgCancel()
	r.bgWG.Wait()
	return r.auditLog.Close(ctx)
}

func (r *Router) minResponses() int {
	if r.cfg.MinResponses > 0 {
		return r.cfg.MinResponses
	}
	return 1
}

func (r *Router) defaultTimeout() time.Duration {
	if r.cfg.DefaultTimeout > 0 {
		return r.cfg.DefaultTimeout
	}
	return 10 * time.Second
}

func (r *Router) defaultMethod() oracle.ConsensusMethod {
	if r.cfg.DefaultMethod != "" {
		return r.cfg.DefaultMethod
	}
	return oracle.MethodMedian
}
