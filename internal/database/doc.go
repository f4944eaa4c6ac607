/*
Package database provides GORM-based connection pool management for
the optional provider-registry store: health checks, pool statistics,
and retrying transactions.

# Core types

  - PoolManager: owns the GORM DB instance and its underlying sql.DB,
    exposing DB(), Ping(), Stats(), Close().
  - PoolConfig: pool sizing (max idle/open connections, connection
    lifetime, idle timeout) and the health-check interval.
  - PoolStats: a friendlier view over sql.DBStats.
  - TransactionFunc: the callback type run inside a transaction.

# Capabilities

  - Pool tuning via MaxIdleConns/MaxOpenConns/ConnMaxLifetime.
  - Background health checks: periodic PingContext, logged via zap.
  - WithTransaction for a single unit of work, WithTransactionRetry
    for exponential-backoff retry on deadlocks and serialization
    failures.
  - GetStats for structured pool metrics.
*/
package database
