package registry

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/oraclemesh/oracle/internal/database"
)

// newMockStore builds a Store around a sqlmock-backed gorm connection,
// so the provider-config persistence path (Load/Upsert/Delete) is
// exercised without a real SQLite/Postgres/MySQL instance.
func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	dialector := postgres.New(postgres.Config{Conn: sqlDB, WithoutReturning: true})
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open gorm over sqlmock: %v", err)
	}

	pool, err := database.NewPoolManager(db, database.PoolConfig{MaxIdleConns: 1, MaxOpenConns: 1}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to build pool manager: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return &Store{pool: pool, logger: zap.NewNop()}, mock
}

func TestStore_LoadReturnsEnabledProviderConfigs(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "name", "type", "base_url", "api_key", "weight", "reliability", "rate_limit_rps", "rate_limit_burst", "enabled", "created_at", "updated_at"}).
		AddRow(1, "chainlink", "pricefeed", "https://example.test", "", 0.9, 0.95, 5.0, 10, true, time.Now(), time.Now())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "provider_configs" WHERE enabled = $1`)).
		WithArgs(true).
		WillReturnRows(rows)

	cfgs, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfgs) != 1 || cfgs[0].Name != "chainlink" {
		t.Fatalf("expected one chainlink config, got %+v", cfgs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStore_DeleteIssuesDeleteStatement(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "provider_configs" WHERE name = $1`)).
		WithArgs("dia").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := store.Delete(context.Background(), "dia"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
