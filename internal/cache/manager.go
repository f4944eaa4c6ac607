// Package cache provides the oracle's shared L2 cache backend: a thin
// redis wrapper that the per-provider Cache (provider.Cache) uses as an
// optional second tier, so that multiple oracled replicas behind a load
// balancer share provider-response caching instead of each cold-starting
// their own in-process LRU. Grounded on the teacher's
// llm/cache/prompt_cache.go MultiLevelCache's redis half and
// internal/cache/manager.go's connection/health-check plumbing.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBackend is the L2 cache backend shared across oracled replicas.
type RedisBackend struct {
	redis  *redis.Client
	config Config
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
}

// Config configures the redis connection backing the L2 cache.
type Config struct {
	Addr                string        `yaml:"addr" json:"addr"`
	Password            string        `yaml:"password" json:"password"`
	DB                  int           `yaml:"db" json:"db"`
	DefaultTTL          time.Duration `yaml:"default_ttl" json:"default_ttl"`
	MaxRetries          int           `yaml:"max_retries" json:"max_retries"`
	PoolSize            int           `yaml:"pool_size" json:"pool_size"`
	MinIdleConns        int           `yaml:"min_idle_conns" json:"min_idle_conns"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval"`
}

// DefaultConfig returns sane defaults for the L2 cache connection.
func DefaultConfig() Config {
	return Config{
		Addr:                "localhost:6379",
		DefaultTTL:          60 * time.Second,
		MaxRetries:          3,
		PoolSize:            10,
		MinIdleConns:        2,
		HealthCheckInterval: 30 * time.Second,
	}
}

// NewRedisBackend dials redis and starts the background health-check loop.
func NewRedisBackend(config Config, logger *zap.Logger) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		MaxRetries:   config.MaxRetries,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis L2 cache: %w", err)
	}

	b := &RedisBackend{
		redis:  client,
		config: config,
		logger: logger.With(zap.String("component", "l2cache")),
	}

	if config.HealthCheckInterval > 0 {
		go b.healthCheckLoop()
	}

	logger.Info("L2 cache backend initialized", zap.String("addr", config.Addr))
	return b, nil
}

// Get returns the raw string stored at key, or ErrCacheMiss.
func (b *RedisBackend) Get(ctx context.Context, key string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return "", fmt.Errorf("L2 cache backend is closed")
	}

	val, err := b.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("L2 cache get failed: %w", err)
	}
	return val, nil
}

// Set stores value at key with ttl (falling back to DefaultTTL when zero).
func (b *RedisBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("L2 cache backend is closed")
	}
	if ttl <= 0 {
		ttl = b.config.DefaultTTL
	}
	if err := b.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("L2 cache set failed: %w", err)
	}
	return nil
}

// Delete removes one or more keys.
func (b *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed || len(keys) == 0 {
		return nil
	}
	return b.redis.Del(ctx, keys...).Err()
}

// Ping checks the underlying redis connection.
func (b *RedisBackend) Ping(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("L2 cache backend is closed")
	}
	return b.redis.Ping(ctx).Err()
}

// Close shuts down the redis client.
func (b *RedisBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.logger.Info("closing L2 cache backend")
	return b.redis.Close()
}

func (b *RedisBackend) healthCheckLoop() {
	ticker := time.NewTicker(b.config.HealthCheckInterval)
	defer ticker.Stop()

	for range ticker.C {
		b.mu.RLock()
		if b.closed {
			b.mu.RUnlock()
			return
		}
		b.mu.RUnlock()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := b.Ping(ctx); err != nil {
			b.logger.Warn("L2 cache health check failed", zap.Error(err))
		}
		cancel()
	}
}

// ErrCacheMiss indicates the requested key was not present.
var ErrCacheMiss = fmt.Errorf("cache miss")

// IsCacheMiss reports whether err is ErrCacheMiss.
func IsCacheMiss(err error) bool {
	return err == ErrCacheMiss
}
