package fanout

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/oraclemesh/oracle/oracle"
	"github.com/oraclemesh/oracle/provider"
)

type fakeProvider struct {
	name    string
	delay   time.Duration
	failErr error
	value   float64
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) Meta() provider.Meta {
	return provider.Meta{Name: f.name, Weight: 0.5, Reliability: 0.9}
}
func (f *fakeProvider) Fetch(ctx context.Context, query string, opts oracle.Options) (oracle.Response, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return oracle.Response{}, &oracle.ProviderFailure{Kind: oracle.FailureTimeout, Message: "deadline exceeded"}
		}
	}
	if f.failErr != nil {
		return oracle.Response{}, f.failErr
	}
	return oracle.Response{Value: oracle.NewScalarValue(f.value), Confidence: 0.8, Source: f.name}, nil
}
func (f *fakeProvider) HealthCheck(ctx context.Context) bool { return true }
func (f *fakeProvider) CalculateConfidence(v oracle.Value) float64 { return 0.8 }

func TestEngine_Fetch_CollectsSuccessesAndDropsFailures(t *testing.T) {
	logger := zap.NewNop()
	e := New(logger)

	targets := []Target{
		{Provider: &fakeProvider{name: "p1", value: 100}},
		{Provider: &fakeProvider{name: "p2", failErr: &oracle.ProviderFailure{Kind: oracle.FailureUpstream, Message: "boom"}}},
		{Provider: &fakeProvider{name: "p3", value: 102}},
	}

	results := e.Fetch(context.Background(), "btc price", oracle.QueryPriceFeed, oracle.Options{}, targets, time.Second)

	if len(results) != 2 {
		t.Fatalf("expected 2 successful responses, got %d", len(results))
	}
}

func TestEngine_Fetch_RespectsPerProviderTimeout(t *testing.T) {
	logger := zap.NewNop()
	e := New(logger)

	targets := []Target{
		{Provider: &fakeProvider{name: "slow", delay: 200 * time.Millisecond, value: 1}},
		{Provider: &fakeProvider{name: "fast", value: 2}},
	}

	start := time.Now()
	results := e.Fetch(context.Background(), "q", oracle.QueryCustom, oracle.Options{}, targets, 50*time.Millisecond)
	elapsed := time.Since(start)

	if len(results) != 1 {
		t.Fatalf("expected 1 response (fast only), got %d", len(results))
	}
	if elapsed > 150*time.Millisecond {
		t.Errorf("fetch took too long: %v", elapsed)
	}
}

func TestEngine_Fetch_EmptyTargets(t *testing.T) {
	e := New(zap.NewNop())
	results := e.Fetch(context.Background(), "q", oracle.QueryCustom, oracle.Options{}, nil, time.Second)
	if results != nil {
		t.Errorf("expected nil, got %v", results)
	}
}

func TestEngine_Fetch_UsesCache(t *testing.T) {
	logger := zap.NewNop()
	e := New(logger)

	p := &fakeProvider{name: "cached", value: 42}
	c := provider.NewCache("cached", 10, time.Minute, nil, nil, logger)
	targets := []Target{{Provider: p, Cache: c}}

	first := e.Fetch(context.Background(), "q", oracle.QueryCustom, oracle.Options{}, targets, time.Second)
	if len(first) != 1 {
		t.Fatalf("expected 1 response, got %d", len(first))
	}

	if c.Len() != 1 {
		t.Errorf("expected cache to be populated, len=%d", c.Len())
	}

	second := e.Fetch(context.Background(), "q", oracle.QueryCustom, oracle.Options{}, targets, time.Second)
	if len(second) != 1 {
		t.Fatalf("expected 1 cached response, got %d", len(second))
	}
}
