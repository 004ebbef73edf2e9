package persistence

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/schoolfund/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newMockDatabase opens GORM over sqlmock with pings monitored. GORM's
// automatic ping on open is disabled so every ping is one a test expects.
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
		Logger:                 gormlogger.Discard,
	})
	require.NoError(t, err)

	return &Database{DB: gormDB}, mock, mockDB
}

func TestMockDatabase_OpensWithoutRoundTrips(t *testing.T) {
	_, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Ping(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	mock.ExpectPing()
	require.NoError(t, db.Ping(t.Context()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	err := db.Ping(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping database")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Close(t *testing.T) {
	db, mock, _ := newMockDatabase(t)
	mock.ExpectClose()

	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigurePool(t *testing.T) {
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	configurePool(mockDB, &config.DatabaseConfig{
		MaxOpenConns:    12,
		MaxIdleConns:    3,
		ConnMaxLifetime: 30,
		ConnMaxIdleTime: 5,
	})
	assert.Equal(t, 12, mockDB.Stats().MaxOpenConnections)
}

func TestWithGormLogger(t *testing.T) {
	custom := gormlogger.Default.LogMode(gormlogger.Warn)
	cfg := &gorm.Config{}
	WithGormLogger(custom)(cfg)
	assert.Equal(t, custom, cfg.Logger)
}
