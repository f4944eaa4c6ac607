package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"
)

// newTestBackend wires a RedisBackend to an in-process miniredis
// server so the L2 cache's get/set/TTL/close behavior is exercised
// without a live redis deployment.
func newTestBackend(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()

	srv, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(srv.Close)

	backend, err := NewRedisBackend(Config{
		Addr:       srv.Addr(),
		DefaultTTL: time.Minute,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to dial miniredis: %v", err)
	}
	t.Cleanup(func() { backend.Close() })

	return backend, srv
}

func TestRedisBackend_SetThenGet(t *testing.T) {
	backend, _ := newTestBackend(t)
	ctx := context.Background()

	if err := backend.Set(ctx, "oracle:cache:coingecko:abc", `{"value":42000}`, time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val, err := backend.Get(ctx, "oracle:cache:coingecko:abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != `{"value":42000}` {
		t.Errorf("expected round-tripped value, got %q", val)
	}
}

func TestRedisBackend_GetMissReturnsCacheMiss(t *testing.T) {
	backend, _ := newTestBackend(t)

	_, err := backend.Get(context.Background(), "never-set")
	if !IsCacheMiss(err) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestRedisBackend_TTLExpiry(t *testing.T) {
	backend, srv := newTestBackend(t)
	ctx := context.Background()

	if err := backend.Set(ctx, "k", "v", 5*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	srv.FastForward(6 * time.Second)

	_, err := backend.Get(ctx, "k")
	if !IsCacheMiss(err) {
		t.Fatalf("expected a miss after TTL expiry, got %v", err)
	}
}

func TestRedisBackend_Delete(t *testing.T) {
	backend, _ := newTestBackend(t)
	ctx := context.Background()

	backend.Set(ctx, "k1", "v1", time.Minute)
	if err := backend.Delete(ctx, "k1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := backend.Get(ctx, "k1")
	if !IsCacheMiss(err) {
		t.Fatalf("expected a miss after delete, got %v", err)
	}
}

func TestRedisBackend_OperationsFailAfterClose(t *testing.T) {
	backend, _ := newTestBackend(t)
	if err := backend.Close(); err != nil {
		t.Fatalf("unexpected error closing: %v", err)
	}

	if err := backend.Set(context.Background(), "k", "v", time.Minute); err == nil {
		t.Fatal("expected Set to fail on a closed backend")
	}
}
