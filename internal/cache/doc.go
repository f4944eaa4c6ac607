/*
Package cache provides the oracle's shared L2 cache backend: a thin,
redis-backed key/value store that the per-provider Cache
(see package provider) uses as an optional second tier behind its
in-process L1 LRU, so multiple oracled replicas sharing one redis
instance also share provider-response caching.

# Core types

  - RedisBackend: owns the redis client and connection pool, provides
    Get/Set/Delete/Ping, and runs a background health-check loop.
  - Config: address, credentials, pool sizing, default TTL, and the
    health-check interval.

# Error semantics

ErrCacheMiss is the sentinel returned by Get when the key is absent;
IsCacheMiss distinguishes a miss from a genuine backend error.
*/
package cache
