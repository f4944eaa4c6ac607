// =============================================================================
// Oracle default configuration
// =============================================================================
// Supplies sane defaults for every configuration field, matching the
// published configuration table.
// =============================================================================
package config

import "time"

// DefaultConfig returns the oracle service's default configuration.
func DefaultConfig() *Config {
	return &Config{
		Oracle:    DefaultOracleConfig(),
		Providers: DefaultProviders(),
		Audit:     DefaultAuditConfig(),
		Cache:     DefaultCacheConfig(),
		Redis:     DefaultRedisConfig(),
		Database:  DefaultDatabaseConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Server:    DefaultServerConfig(),
	}
}

// DefaultOracleConfig returns the published consensus-pipeline defaults.
func DefaultOracleConfig() OracleConfig {
	return OracleConfig{
		DefaultMethod:      "median",
		MinResponses:       2,
		MaxResponseTime:    10 * time.Second,
		OutlierThreshold:   0.3,
		CacheTTL:           60 * time.Second,
		CacheCapacity:      100,
		AuditBatchSize:     10,
		AuditBatchWindowMs: 5000,
	}
}

// DefaultProviders returns an empty provider list; providers are expected
// to be supplied via YAML, environment, or the optional SQLite-backed
// registry store.
func DefaultProviders() []ProviderConfig {
	return nil
}

// DefaultAuditConfig returns the default audit-logger configuration.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		LedgerBackend:   "memory",
		MongoURI:        "mongodb://localhost:27017",
		MongoDatabase:   "oracle",
		MongoCollection: "audit",
		MaxMessageBytes: 1024,
	}
}

// DefaultCacheConfig returns the default provider-cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		RedisEnabled: false,
		KeyPrefix:    "oracle:cache:",
	}
}

// DefaultRedisConfig returns the default redis client configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultDatabaseConfig returns the default provider-registry store
// configuration: a local SQLite file, no server required.
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Host:            "",
		Port:            0,
		User:            "",
		Password:        "",
		Name:            "oracle.db",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultLogConfig returns the default zap logging configuration.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig returns the default OTel configuration.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "oracle",
		SampleRate:   0.1,
	}
}

// DefaultServerConfig returns the default HTTP/WS server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		WSStreamEnabled: true,
	}
}
