// Package integration runs the fund services against a real PostgreSQL
// started with testcontainers. Tests are skipped under -short.
package integration

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/schoolfund/backend/internal/infrastructure/migration"
)

// postgresServer is started once per package and migrated on first use
var postgresServer struct {
	once      sync.Once
	container *tcpostgres.PostgresContainer
	dsn       string
	err       error
}

// TestDB is a migrated fund database with every table emptied
type TestDB struct {
	DB *gorm.DB
}

// NewSharedTestDB connects to the package's PostgreSQL container and
// truncates the fund tables before handing it over.
func NewSharedTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}

	postgresServer.once.Do(bootPostgres)
	require.NoError(t, postgresServer.err, "PostgreSQL container unavailable")

	db := openGorm(t, postgresServer.dsn)
	truncateFundTables(t, db)
	return &TestDB{DB: db}
}

func bootPostgres() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("schoolfund_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("fund_test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	if err != nil {
		postgresServer.err = fmt.Errorf("start container: %w", err)
		return
	}
	postgresServer.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		postgresServer.err = fmt.Errorf("connection string: %w", err)
		return
	}
	postgresServer.dsn = dsn
	postgresServer.err = migrateSchema(dsn)
}

// migrateSchema applies the embedded migrations through a throwaway handle
func migrateSchema(dsn string) error {
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	m, err := migration.New(sqlDB, "", zap.NewNop())
	if err != nil {
		return fmt.Errorf("migrator: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	if version, dirty, err := m.Version(); err != nil || dirty {
		return fmt.Errorf("schema at version %d left dirty=%t: %v", version, dirty, err)
	}
	return nil
}

func openGorm(t *testing.T, dsn string) *gorm.DB {
	t.Helper()

	level := gormlogger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = gormlogger.Info
	}
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(level)})
	require.NoError(t, err, "connect to PostgreSQL")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// The concurrent transfer test runs twenty writers at once.
	sqlDB.SetMaxOpenConns(16)
	sqlDB.SetMaxIdleConns(4)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func truncateFundTables(t *testing.T, db *gorm.DB) {
	t.Helper()

	var tables []string
	require.NoError(t, db.Raw(`
		SELECT tablename FROM pg_tables
		WHERE schemaname = 'public' AND tablename <> 'schema_migrations'
	`).Scan(&tables).Error)

	for _, table := range tables {
		require.NoError(t, db.Exec(fmt.Sprintf("TRUNCATE TABLE %q CASCADE", table)).Error, table)
	}
}

// CleanupSharedContainer terminates the container. Call it from TestMain.
func CleanupSharedContainer() {
	if postgresServer.container == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = postgresServer.container.Terminate(ctx)
}
