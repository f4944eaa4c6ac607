package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/oraclemesh/oracle/internal/cache"
	"github.com/oraclemesh/oracle/internal/metrics"
	"github.com/oraclemesh/oracle/oracle"

	"go.uber.org/zap"
)

// Cache is a per-provider response cache keyed by (query, effective
// options). It is a two-level cache: an in-process doubly-linked-list LRU
// (L1, always present) and an optional shared Redis layer (L2), so that
// multiple oracled replicas behind a load balancer share provider-response
// caching. Modeled on the teacher's llm/cache/prompt_cache.go
// MultiLevelCache + LRUCache.
type Cache struct {
	providerName string
	local        *lruCache
	l2           *cache.RedisBackend // nil when L2 is disabled
	collector    *metrics.Collector  // may be nil (metrics export optional)
	logger       *zap.Logger
}

// NewCache builds a provider cache with capacity-bounded L1 and an
// optional L2 backend (pass nil to disable).
func NewCache(providerName string, capacity int, ttl time.Duration, l2 *cache.RedisBackend, collector *metrics.Collector, logger *zap.Logger) *Cache {
	return &Cache{
		providerName: providerName,
		local:        newLRUCache(capacity, ttl),
		l2:           l2,
		collector:    collector,
		logger:       logger.With(zap.String("provider", providerName)),
	}
}

// Key returns the effective cache key for (query, opts). Per §9's
// "Caching correctness" note, only fields that influence a single
// provider's answer are included: the key is the query text alone.
// cacheTime's TTL window is not part of the key (TTL only bounds
// freshness), and sources/consensusMethod never are, since they don't
// affect what a single provider returns.
func Key(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:16])
}

// Get returns a live cached Response, or a miss. A cache hit does not
// update provider metrics (§4.1): the fetch that populated the entry
// already counted once.
func (c *Cache) Get(ctx context.Context, query string) (oracle.Response, bool) {
	key := Key(query)

	if resp, ok := c.local.get(key); ok {
		c.recordHit()
		return resp, true
	}

	if c.l2 != nil {
		var resp oracle.Response
		raw, err := c.l2.Get(ctx, c.redisKey(key))
		if err == nil {
			if jsonErr := json.Unmarshal([]byte(raw), &resp); jsonErr == nil {
				c.local.set(key, resp, c.local.ttl)
				c.recordHit()
				return resp, true
			}
		}
	}

	c.recordMiss()
	return oracle.Response{}, false
}

func (c *Cache) recordHit() {
	if c.collector != nil {
		c.collector.RecordCacheHit(c.providerName)
	}
}

func (c *Cache) recordMiss() {
	if c.collector != nil {
		c.collector.RecordCacheMiss(c.providerName)
	}
}

// Set stores resp under query's cache key with the configured TTL.
func (c *Cache) Set(ctx context.Context, query string, resp oracle.Response, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.local.ttl
	}
	key := Key(query)
	c.local.set(key, resp, ttl)

	if c.l2 != nil {
		data, err := json.Marshal(resp)
		if err != nil {
			return
		}
		if err := c.l2.Set(ctx, c.redisKey(key), string(data), ttl); err != nil {
			c.logger.Debug("L2 cache set failed", zap.Error(err))
		}
	}
}

// Len reports the L1 cache's current entry count (for tests/diagnostics).
func (c *Cache) Len() int { return c.local.len() }

func (c *Cache) redisKey(key string) string {
	return "oracle:cache:" + c.providerName + ":" + key
}

// =============================================================================
// L1: in-process doubly-linked-list LRU with per-entry TTL.
// =============================================================================

type lruCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*lruNode
	head     *lruNode
	tail     *lruNode
}

type lruNode struct {
	key       string
	resp      oracle.Response
	expiresAt time.Time
	prev      *lruNode
	next      *lruNode
}

func newLRUCache(capacity int, ttl time.Duration) *lruCache {
	if capacity <= 0 {
		capacity = 100
	}
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &lruCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*lruNode),
	}
}

func (c *lruCache) get(key string) (oracle.Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.items[key]
	if !ok {
		return oracle.Response{}, false
	}

	if time.Now().After(node.expiresAt) {
		c.removeNode(node)
		delete(c.items, key)
		return oracle.Response{}, false
	}

	c.moveToHead(node)
	return node.resp, true
}

func (c *lruCache) set(key string, resp oracle.Response, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if node, ok := c.items[key]; ok {
		node.resp = resp
		node.expiresAt = time.Now().Add(ttl)
		c.moveToHead(node)
		return
	}

	if len(c.items) >= c.capacity {
		c.evictTail()
	}

	node := &lruNode{key: key, resp: resp, expiresAt: time.Now().Add(ttl)}
	c.items[key] = node
	c.addToHead(node)
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *lruCache) addToHead(node *lruNode) {
	node.prev = nil
	node.next = c.head
	if c.head != nil {
		c.head.prev = node
	}
	c.head = node
	if c.tail == nil {
		c.tail = node
	}
}

func (c *lruCache) removeNode(node *lruNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		c.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		c.tail = node.prev
	}
}

func (c *lruCache) moveToHead(node *lruNode) {
	if node == c.head {
		return
	}
	c.removeNode(node)
	c.addToHead(node)
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.items, c.tail.key)
	c.removeNode(c.tail)
}
