package router

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/oraclemesh/oracle/audit"
	"github.com/oraclemesh/oracle/consensus"
	"github.com/oraclemesh/oracle/fanout"
	"github.com/oraclemesh/oracle/oracle"
	"github.com/oraclemesh/oracle/prefilter"
	"github.com/oraclemesh/oracle/provider"
	"github.com/oraclemesh/oracle/registry"
)

type fakeProvider struct {
	name  string
	value float64
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) Meta() provider.Meta {
	return provider.Meta{Name: f.name, Weight: 0.5, Reliability: 0.9}
}
func (f *fakeProvider) Fetch(ctx context.Context, query string, opts oracle.Options) (oracle.Response, error) {
	return oracle.Response{Value: oracle.NewScalarValue(f.value), Confidence: 0.8, Source: f.name}, nil
}
func (f *fakeProvider) HealthCheck(ctx context.Context) bool          { return true }
func (f *fakeProvider) CalculateConfidence(v oracle.Value) float64 { return 0.8 }

func newTestRouter(t *testing.T, preFilter prefilter.Filter, cfg Config) (*Router, *registry.Registry, *audit.MemoryLedger) {
	t.Helper()
	logger := zap.NewNop()
	reg := registry.New(10, time.Minute, nil, nil, logger)
	fanoutEngine := fanout.New(logger)
	consensusEngine := consensus.New(consensus.Config{MinResponses: cfg.MinResponses, OutlierThreshold: 0.3}, nil)
	ledger := audit.NewMemoryLedger()
	auditLogger := audit.NewLogger(ledger, audit.Config{BatchSize: 1, Topic: "test"}, nil, logger)

	r := New(reg, fanoutEngine, consensusEngine, auditLogger, preFilter, nil, cfg, logger)
	return r, reg, ledger
}

func TestRouter_Query_ConversationalShortCircuit(t *testing.T) {
	r, _, _ := newTestRouter(t, prefilter.NewKeywordFilter(), Config{MinResponses: 1})

	result, err := r.Query(context.Background(), "hello there", oracle.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Sources) != 1 || result.Sources[0] != conversationalSource {
		t.Fatalf("expected conversational sentinel source, got %v", result.Sources)
	}
	if result.Confidence != 0.95 {
		t.Errorf("expected confidence 0.95, got %v", result.Confidence)
	}
}

func TestRouter_Query_InsufficientProviders(t *testing.T) {
	r, _, _ := newTestRouter(t, nil, Config{MinResponses: 2})

	_, err := r.Query(context.Background(), "price of bitcoin", oracle.Options{})
	if err == nil {
		t.Fatal("expected an insufficient-providers failure")
	}
	qf, ok := err.(*oracle.QueryFailure)
	if !ok || qf.Kind != oracle.FailInsufficientProviders {
		t.Fatalf("expected FailInsufficientProviders, got %+v", err)
	}
}

func TestRouter_Query_SuccessSubmitsAudit(t *testing.T) {
	r, reg, ledger := newTestRouter(t, nil, Config{MinResponses: 2, DefaultTimeout: time.Second})

	reg.Register(&fakeProvider{name: "chainlink", value: 100})
	reg.Register(&fakeProvider{name: "coingecko", value: 102})

	result, err := r.Query(context.Background(), "price of bitcoin", oracle.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := result.Value.Scalar(); !ok || v != 101 {
		t.Errorf("expected median 101, got %v (ok=%v)", v, ok)
	}
	if len(result.Sources) != 2 {
		t.Errorf("expected 2 sources, got %v", result.Sources)
	}

	if err := r.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if len(ledger.Entries("test")) != 1 {
		t.Errorf("expected 1 audit entry to have been submitted, got %d", len(ledger.Entries("test")))
	}
}

func TestRouter_Query_ExplicitSourcesOverridesClassifier(t *testing.T) {
	r, reg, _ := newTestRouter(t, nil, Config{MinResponses: 1, DefaultTimeout: time.Second})
	reg.Register(&fakeProvider{name: "custom", value: 7})

	result, err := r.Query(context.Background(), "price of bitcoin", oracle.Options{Sources: []string{"custom"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Sources) != 1 || result.Sources[0] != "custom" {
		t.Fatalf("expected sources=[custom], got %v", result.Sources)
	}
}

func TestRouter_RegisterAndGetProvider(t *testing.T) {
	r, _, _ := newTestRouter(t, nil, Config{MinResponses: 1})
	r.RegisterProvider(&fakeProvider{name: "p1", value: 1})

	p, ok := r.GetProvider("p1")
	if !ok || p.Name() != "p1" {
		t.Fatalf("expected to find p1, got ok=%v p=%v", ok, p)
	}

	r.UnregisterProvider("p1")
	if _, ok := r.GetProvider("p1"); ok {
		t.Fatal("expected p1 to be gone after unregister")
	}
}
