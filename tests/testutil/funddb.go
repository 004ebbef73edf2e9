package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/schoolfund/backend/internal/domain/shared"
	"github.com/schoolfund/backend/internal/domain/vault"
	"github.com/schoolfund/backend/internal/infrastructure/persistence/models"
)

// NewFundDB opens a private in-memory SQLite database with every fund table
// migrated. Each call gets its own database so tests can run in parallel.
func NewFundDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to open SQLite database")

	require.NoError(t, db.AutoMigrate(models.FundModels()...), "Failed to migrate fund tables")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps the shared-cache database alive and serialises writers.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// SeedUser inserts a user row and returns its id
func SeedUser(t *testing.T, db *gorm.DB, username, displayName string) uuid.UUID {
	t.Helper()
	u := &models.UserModel{ID: uuid.New(), Username: username, DisplayName: displayName}
	require.NoError(t, db.Create(u).Error)
	return u.ID
}

// SeedEmployee inserts a staff detail row for userID and returns the employee id
func SeedEmployee(t *testing.T, db *gorm.DB, userID uuid.UUID, fullName string) uuid.UUID {
	t.Helper()
	m := &models.EmployeeDetailModel{UserID: userID, FullName: fullName}
	m.ID = uuid.New()
	require.NoError(t, db.Create(m).Error)
	return m.ID
}

// SeedVault inserts a vault with the given balance
func SeedVault(t *testing.T, db *gorm.DB, name string, vaultType vault.Type, balance int64) *vault.Vault {
	t.Helper()
	v, err := vault.NewVault(name, vaultType)
	require.NoError(t, err)
	v.Balance = balance
	require.NoError(t, db.Create(models.VaultModelFromDomain(v)).Error)
	return v
}

// VaultBalance reads the stored balance of a vault
func VaultBalance(t *testing.T, db *gorm.DB, id uuid.UUID) int64 {
	t.Helper()
	var m models.VaultModel
	require.NoError(t, db.WithContext(context.Background()).First(&m, "id = ?", id).Error)
	return m.Balance
}

// RequireCode asserts that err is a domain error with the given code
func RequireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, shared.IsCode(err, code), "expected %s, got %v", code, err)
}
