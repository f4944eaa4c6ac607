// =============================================================================
// Oracle configuration loader
// =============================================================================
// Unified config loading: YAML file + environment variable overrides.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("oracle.yaml").
//	    WithEnvPrefix("ORACLE").
//	    Load()
//
// Priority: defaults -> YAML file -> environment variables
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Core configuration tree
// =============================================================================

// Config is the oracle service's full configuration tree.
type Config struct {
	// Oracle holds the consensus pipeline's own tunables.
	Oracle OracleConfig `yaml:"oracle" env:"ORACLE"`

	// Providers lists the statically-configured data providers. Env
	// override does not apply to this slice; it is YAML/DB-only.
	Providers []ProviderConfig `yaml:"providers" env:"-"`

	// Audit configures the append-only audit ledger.
	Audit AuditConfig `yaml:"audit" env:"AUDIT"`

	// Cache configures the two-level provider response cache.
	Cache CacheConfig `yaml:"cache" env:"CACHE"`

	// Redis configures the shared L2 cache backend.
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Database configures the optional SQLite/Postgres/MySQL-backed
	// provider registry store.
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Log configures the zap logger.
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry configures the OTel tracer/meter providers.
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Server configures the HTTP/WS listener.
	Server ServerConfig `yaml:"server" env:"SERVER"`
}

// OracleConfig holds the consensus pipeline's configuration, matching the
// published defaults for method selection, quorum, and audit batching.
type OracleConfig struct {
	// DefaultMethod is used when a query doesn't request a specific
	// ConsensusMethod: median, weighted_average, majority_vote, or
	// confidence_weighted.
	DefaultMethod string `yaml:"default_method" env:"DEFAULT_METHOD"`
	// MinResponses is the minimum number of provider responses required
	// before consensus can be computed.
	MinResponses int `yaml:"min_responses" env:"MIN_RESPONSES"`
	// MaxResponseTime bounds how long the fanout engine waits for any
	// single provider before treating it as a timeout.
	MaxResponseTime time.Duration `yaml:"max_response_time" env:"MAX_RESPONSE_TIME"`
	// OutlierThreshold scales the 3-sigma outlier rejection rule.
	OutlierThreshold float64 `yaml:"outlier_threshold" env:"OUTLIER_THRESHOLD"`
	// CacheTTL is the default provider-cache entry lifetime.
	CacheTTL time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
	// CacheCapacity bounds the in-process L1 LRU's entry count.
	CacheCapacity int `yaml:"cache_capacity" env:"CACHE_CAPACITY"`
	// AuditBatchSize is the number of audit records buffered before a
	// flush, clamped to [1,50]. 1 means submit immediately.
	AuditBatchSize int `yaml:"audit_batch_size" env:"AUDIT_BATCH_SIZE"`
	// AuditBatchWindowMs is loaded and defaulted but not read by the
	// audit logger, whose partial-batch window is a fixed 5s.
	AuditBatchWindowMs int `yaml:"audit_batch_window_ms" env:"AUDIT_BATCH_WINDOW_MS"`
}

// ProviderConfig describes one statically-configured data provider.
type ProviderConfig struct {
	Name           string  `yaml:"name"`
	Type           string  `yaml:"type"`
	BaseURL        string  `yaml:"base_url"`
	APIKey         string  `yaml:"api_key"`
	Weight         float64 `yaml:"weight"`
	Reliability    float64 `yaml:"reliability"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
	Enabled        bool    `yaml:"enabled"`
}

// AuditConfig configures the audit logger's ledger backend and transport.
type AuditConfig struct {
	// LedgerBackend selects the Ledger implementation: "memory", "mongo",
	// or "gateway".
	LedgerBackend string `yaml:"ledger_backend" env:"LEDGER_BACKEND"`
	// MongoURI/MongoDatabase/MongoCollection configure the MongoDB-backed
	// append-only ledger, when LedgerBackend is "mongo".
	MongoURI        string `yaml:"mongo_uri" env:"MONGO_URI"`
	MongoDatabase   string `yaml:"mongo_database" env:"MONGO_DATABASE"`
	MongoCollection string `yaml:"mongo_collection" env:"MONGO_COLLECTION"`
	// MaxMessageBytes records the per-record size budget; the audit
	// codec does not read it and prunes or chunks against a fixed
	// 1024-byte budget.
	MaxMessageBytes int `yaml:"max_message_bytes" env:"MAX_MESSAGE_BYTES"`
	// GatewayURL/GatewayToken configure an optional hosted ledger gateway
	// behind bearer-token auth, reached over HTTP instead of a direct
	// Mongo connection.
	GatewayURL   string `yaml:"gateway_url" env:"GATEWAY_URL"`
	GatewayToken string `yaml:"gateway_token" env:"GATEWAY_TOKEN"`
}

// CacheConfig configures the provider response cache.
type CacheConfig struct {
	// RedisEnabled turns on the shared L2 cache backed by Redis.
	RedisEnabled bool `yaml:"redis_enabled" env:"REDIS_ENABLED"`
	// KeyPrefix is loaded and defaulted but not read by the provider
	// cache, whose Redis keys always start with "oracle:cache:".
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
}

// RedisConfig configures the redis client used by the L2 cache.
type RedisConfig struct {
	Addr         string `yaml:"addr" env:"ADDR"`
	Password     string `yaml:"password" env:"PASSWORD"`
	DB           int    `yaml:"db" env:"DB"`
	PoolSize     int    `yaml:"pool_size" env:"POOL_SIZE"`
	MinIdleConns int    `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
}

// DatabaseConfig configures the optional provider-registry store.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver" env:"DRIVER"`
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	User            string        `yaml:"user" env:"USER"`
	Password        string        `yaml:"password" env:"PASSWORD"`
	Name            string        `yaml:"name" env:"NAME"`
	SSLMode         string        `yaml:"ssl_mode" env:"SSL_MODE"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level            string   `yaml:"level" env:"LEVEL"`
	Format           string   `yaml:"format" env:"FORMAT"`
	OutputPaths      []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	EnableCaller     bool     `yaml:"enable_caller" env:"ENABLE_CALLER"`
	EnableStacktrace bool     `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig configures the OTel SDK.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// ServerConfig configures the HTTP/WS listener that exposes health,
// metrics, and the live consensus-result stream.
type ServerConfig struct {
	HTTPPort        int           `yaml:"http_port" env:"HTTP_PORT"`
	MetricsPort     int           `yaml:"metrics_port" env:"METRICS_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	WSStreamEnabled bool          `yaml:"ws_stream_enabled" env:"WS_STREAM_ENABLED"`
}

// =============================================================================
// Loader
// =============================================================================

// Loader loads Config using the builder pattern.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "ORACLE",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath sets the YAML config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator registers a config validator run after loading.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load loads the configuration.
// Priority: defaults -> YAML file -> environment variables.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables.
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv walks the struct tree, overriding fields from env vars.
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue sets a single reflect field from its string env value.
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// Helpers
// =============================================================================

// MustLoad loads configuration, panicking on failure.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

var validMethods = map[string]bool{
	"median":              true,
	"weighted_average":    true,
	"majority_vote":       true,
	"confidence_weighted": true,
}

// Validate checks the configuration for internally-inconsistent values.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}

	if !validMethods[c.Oracle.DefaultMethod] {
		errs = append(errs, fmt.Sprintf("unknown default_method %q", c.Oracle.DefaultMethod))
	}
	if c.Oracle.MinResponses < 1 {
		errs = append(errs, "min_responses must be at least 1")
	}
	if c.Oracle.OutlierThreshold <= 0 {
		errs = append(errs, "outlier_threshold must be positive")
	}
	if c.Oracle.AuditBatchSize < 1 || c.Oracle.AuditBatchSize > 50 {
		errs = append(errs, "audit_batch_size must be between 1 and 50")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// DSN returns the database connection string for the configured driver.
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}
