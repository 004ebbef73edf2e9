package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/shared"
	"github.com/schoolfund/backend/internal/domain/vault"
	"github.com/schoolfund/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormVaultRepository implements vault.Repository using GORM
type GormVaultRepository struct {
	db *gorm.DB
}

// NewGormVaultRepository creates a new GormVaultRepository
func NewGormVaultRepository(db *gorm.DB) *GormVaultRepository {
	return &GormVaultRepository{db: db}
}

// FindByID finds a vault by its ID
func (r *GormVaultRepository) FindByID(ctx context.Context, id uuid.UUID) (*vault.Vault, error) {
	var model models.VaultModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate reads a vault with SELECT ... FOR UPDATE. Dialects
// without row locks (sqlite) drop the locking clause.
func (r *GormVaultRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*vault.Vault, error) {
	var model models.VaultModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindFirstByType returns the oldest vault of a type
func (r *GormVaultRepository) FindFirstByType(ctx context.Context, vaultType vault.Type) (*vault.Vault, error) {
	var model models.VaultModel
	err := r.db.WithContext(ctx).
		Where("type = ?", vaultType).
		Order("created_at ASC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists every vault, cash vaults first
func (r *GormVaultRepository) FindAll(ctx context.Context) ([]vault.Vault, error) {
	var vaultModels []models.VaultModel
	if err := r.db.WithContext(ctx).Order("type DESC, name ASC").Find(&vaultModels).Error; err != nil {
		return nil, err
	}
	vaults := make([]vault.Vault, len(vaultModels))
	for i, model := range vaultModels {
		vaults[i] = *model.ToDomain()
	}
	return vaults, nil
}

// Create inserts a new vault
func (r *GormVaultRepository) Create(ctx context.Context, v *vault.Vault) error {
	return r.db.WithContext(ctx).Create(models.VaultModelFromDomain(v)).Error
}

// ApplyDelta adds delta to the stored balance with a single conditional
// UPDATE so the balance can never be taken below zero, then reads the new
// balance back inside the same connection.
func (r *GormVaultRepository) ApplyDelta(ctx context.Context, id uuid.UUID, delta int64) (int64, bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.VaultModel{}).
		Where("id = ? AND balance + ? >= 0", id, delta).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance + ?", delta),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, false, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, false, nil
	}

	var balance int64
	if err := r.db.WithContext(ctx).
		Model(&models.VaultModel{}).
		Where("id = ?", id).
		Pluck("balance", &balance).Error; err != nil {
		return 0, false, err
	}
	return balance, true, nil
}

// GormVaultTransactionRepository implements vault.TransactionRepository using GORM.
// It exposes no update or delete.
type GormVaultTransactionRepository struct {
	db *gorm.DB
}

// NewGormVaultTransactionRepository creates a new GormVaultTransactionRepository
func NewGormVaultTransactionRepository(db *gorm.DB) *GormVaultTransactionRepository {
	return &GormVaultTransactionRepository{db: db}
}

// Append writes one audit row
func (r *GormVaultTransactionRepository) Append(ctx context.Context, tx *vault.Transaction) error {
	return r.db.WithContext(ctx).Create(models.VaultTransactionModelFromDomain(tx)).Error
}

// FindAll lists audit rows newest first
func (r *GormVaultTransactionRepository) FindAll(ctx context.Context, filter vault.TransactionFilter) ([]vault.Transaction, error) {
	query := r.db.WithContext(ctx).Model(&models.VaultTransactionModel{})
	if filter.VaultID != nil {
		query = query.Where("(source_vault_id = ? OR destination_vault_id = ?)", *filter.VaultID, *filter.VaultID)
	}
	if filter.ReferenceID != nil {
		query = query.Where("reference_id = ?", *filter.ReferenceID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var txModels []models.VaultTransactionModel
	if err := query.Order("created_at DESC").Find(&txModels).Error; err != nil {
		return nil, err
	}
	txs := make([]vault.Transaction, 0, len(txModels))
	for i := range txModels {
		tx, err := txModels[i].ToDomain()
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	return txs, nil
}

// Ensure the repositories implement their domain interfaces
var (
	_ vault.Repository            = (*GormVaultRepository)(nil)
	_ vault.TransactionRepository = (*GormVaultTransactionRepository)(nil)
)
