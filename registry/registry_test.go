package registry

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/oraclemesh/oracle/oracle"
	"github.com/oraclemesh/oracle/testutil/mocks"
)

func newTestRegistry() *Registry {
	return New(10, time.Minute, nil, nil, zap.NewNop())
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := newTestRegistry()
	p := mocks.NewMockProvider("coingecko").WithResponse(42000, 0.9)

	r.Register(p)

	rec, ok := r.Get("coingecko")
	if !ok {
		t.Fatal("expected coingecko to be registered")
	}
	if rec.Provider.Name() != "coingecko" {
		t.Errorf("expected name coingecko, got %s", rec.Provider.Name())
	}
	if rec.Cache == nil || rec.Metrics == nil {
		t.Error("expected registration to build a cache and metrics record")
	}
}

func TestRegistry_DuplicateRegistrationIsLastWriterWins(t *testing.T) {
	r := newTestRegistry()
	r.Register(mocks.NewMockProvider("chainlink").WithResponse(1, 0.9))
	r.Register(mocks.NewMockProvider("chainlink").WithResponse(2, 0.9))

	if r.Len() != 1 {
		t.Fatalf("expected exactly one record under a shared name, got %d", r.Len())
	}
	rec, _ := r.Get("chainlink")
	resp, err := rec.Provider.Fetch(context.Background(), "q", oracle.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := resp.Value.Scalar(); v != 2 {
		t.Errorf("expected the second registration to win, got value %v", v)
	}
}

func TestRegistry_UnregisterRemovesProvider(t *testing.T) {
	r := newTestRegistry()
	r.Register(mocks.NewMockProvider("dia"))
	r.Unregister("dia")

	if _, ok := r.Get("dia"); ok {
		t.Fatal("expected dia to be gone after unregister")
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got len=%d", r.Len())
	}
}

func TestRegistry_UnregisterUnknownNameIsNoOp(t *testing.T) {
	r := newTestRegistry()
	r.Unregister("never-registered")
	if r.Len() != 0 {
		t.Fatalf("expected len=0, got %d", r.Len())
	}
}

func TestRegistry_NamesIsSorted(t *testing.T) {
	r := newTestRegistry()
	r.Register(mocks.NewMockProvider("wikipedia"))
	r.Register(mocks.NewMockProvider("chainlink"))
	r.Register(mocks.NewMockProvider("dia"))

	names := r.Names()
	want := []string{"chainlink", "dia", "wikipedia"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, names)
		}
	}
}

func TestRegistry_HealthCheckAllUpdatesMetrics(t *testing.T) {
	r := newTestRegistry()
	r.Register(mocks.NewMockProvider("openweather"))
	r.Register(mocks.NewMockProvider("newsapi").WithUnhealthy())

	results := r.HealthCheckAll(context.Background())
	if !results["openweather"] {
		t.Error("expected openweather to report healthy")
	}
	if results["newsapi"] {
		t.Error("expected newsapi to report unhealthy")
	}

	rec, _ := r.Get("newsapi")
	if rec.Metrics.Snapshot().LastHealth {
		t.Error("expected newsapi's metrics to reflect the unhealthy probe")
	}
}

func TestRegistry_AllReturnsEveryProvider(t *testing.T) {
	r := newTestRegistry()
	r.Register(mocks.NewMockProvider("a"))
	r.Register(mocks.NewMockProvider("b"))

	all := r.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(all))
	}
}
