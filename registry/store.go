package registry

import (
	"context"
	"fmt"
	"time"

	appconfig "github.com/oraclemesh/oracle/config"
	"github.com/oraclemesh/oracle/internal/database"
	"github.com/oraclemesh/oracle/internal/metrics"
	"github.com/oraclemesh/oracle/internal/migration"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ProviderConfigModel is the gorm row backing one statically-configured
// provider, giving the registry's "static provider config" half a real
// persistence story instead of requiring YAML on every deploy. Grounded
// on the teacher's config/loader.go + gorm combination used elsewhere
// for durable config, schema-migrated by package migration.
type ProviderConfigModel struct {
	ID             uint      `gorm:"primaryKey"`
	Name           string    `gorm:"uniqueIndex;size:191"`
	Type           string
	BaseURL        string
	APIKey         string
	Weight         float64
	Reliability    float64
	RateLimitRPS   float64
	RateLimitBurst int
	Enabled        bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName pins the gorm table name to match the migration's DDL.
func (ProviderConfigModel) TableName() string { return "provider_configs" }

// Store is the optional SQLite/Postgres/MySQL-backed provider registry
// persistence layer (§11 DOMAIN STACK).
type Store struct {
	pool      *database.PoolManager
	driver    string
	collector *metrics.Collector // may be nil (metrics export optional)
	logger    *zap.Logger
}

// OpenStore migrates the configured database to the latest schema and
// opens a pooled gorm connection to it. collector may be nil to
// disable prometheus export.
func OpenStore(cfg appconfig.DatabaseConfig, collector *metrics.Collector, logger *zap.Logger) (*Store, error) {
	migrator, err := migration.NewMigratorFromDatabaseConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("create registry store migrator: %w", err)
	}
	defer migrator.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := migrator.Up(ctx); err != nil && err.Error() != "no change" {
		return nil, fmt.Errorf("migrate registry store schema: %w", err)
	}

	db, err := openGorm(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := database.NewPoolManager(db, database.DefaultPoolConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("open registry store pool: %w", err)
	}

	return &Store{
		pool:      pool,
		driver:    cfg.Driver,
		collector: collector,
		logger:    logger.With(zap.String("component", "registry_store")),
	}, nil
}

// recordQuery publishes operation's duration against the store's
// dialect, if a collector is configured.
func (s *Store) recordQuery(operation string, start time.Time) {
	if s.collector != nil {
		s.collector.RecordDBQuery(s.driver, operation, time.Since(start))
	}
}

func openGorm(cfg appconfig.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Driver {
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	case "mysql":
		return gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	case "sqlite", "":
		name := cfg.Name
		if name == "" {
			name = "oracle.db"
		}
		return gorm.Open(sqlite.Open(name), &gorm.Config{})
	default:
		return nil, fmt.Errorf("unsupported registry store driver: %s", cfg.Driver)
	}
}

// Load returns every enabled provider config row, converted to the
// config package's ProviderConfig shape so it can feed the same
// provider-construction path as YAML-sourced configuration.
func (s *Store) Load(ctx context.Context) ([]appconfig.ProviderConfig, error) {
	defer s.recordQuery("load", time.Now())

	var rows []ProviderConfigModel
	if err := s.pool.DB().WithContext(ctx).Where("enabled = ?", true).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load provider configs: %w", err)
	}

	out := make([]appconfig.ProviderConfig, 0, len(rows))
	for _, r := range rows {
		out = append(out, appconfig.ProviderConfig{
			Name:           r.Name,
			Type:           r.Type,
			BaseURL:        r.BaseURL,
			APIKey:         r.APIKey,
			Weight:         r.Weight,
			Reliability:    r.Reliability,
			RateLimitRPS:   r.RateLimitRPS,
			RateLimitBurst: r.RateLimitBurst,
			Enabled:        r.Enabled,
		})
	}
	return out, nil
}

// Upsert inserts or updates one provider's persisted configuration,
// keyed by name.
func (s *Store) Upsert(ctx context.Context, cfg appconfig.ProviderConfig) error {
	defer s.recordQuery("upsert", time.Now())

	row := ProviderConfigModel{
		Name:           cfg.Name,
		Type:           cfg.Type,
		BaseURL:        cfg.BaseURL,
		APIKey:         cfg.APIKey,
		Weight:         cfg.Weight,
		Reliability:    cfg.Reliability,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Enabled:        cfg.Enabled,
	}

	return s.pool.DB().WithContext(ctx).
		Where("name = ?", cfg.Name).
		Assign(row).
		FirstOrCreate(&row).Error
}

// Delete removes a provider's persisted configuration by name.
func (s *Store) Delete(ctx context.Context, name string) error {
	defer s.recordQuery("delete", time.Now())
	return s.pool.DB().WithContext(ctx).Where("name = ?", name).Delete(&ProviderConfigModel{}).Error
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}
