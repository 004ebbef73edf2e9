package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/savings"
	"github.com/schoolfund/backend/internal/domain/shared"
	"github.com/schoolfund/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDepositEntryRepository implements savings.EntryRepository using GORM
type GormDepositEntryRepository struct {
	db *gorm.DB
}

// NewGormDepositEntryRepository creates a new GormDepositEntryRepository
func NewGormDepositEntryRepository(db *gorm.DB) *GormDepositEntryRepository {
	return &GormDepositEntryRepository{db: db}
}

// FindAll lists entries newest first
func (r *GormDepositEntryRepository) FindAll(ctx context.Context, filter savings.EntryFilter) ([]savings.DepositEntry, error) {
	query := r.db.WithContext(ctx).Model(&models.DepositEntryModel{})
	if filter.CollectorID != nil {
		query = query.Where("collector_id = ?", *filter.CollectorID)
	}
	if filter.BatchID != nil {
		query = query.Where("batch_id = ?", *filter.BatchID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Unbatched {
		query = query.Where("batch_id IS NULL")
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	return r.find(query.Order("created_at DESC"))
}

// FindUnbatchedPending lists a collector's pending entries not yet in a batch, oldest first
func (r *GormDepositEntryRepository) FindUnbatchedPending(ctx context.Context, collectorID uuid.UUID) ([]savings.DepositEntry, error) {
	query := r.db.WithContext(ctx).
		Where("collector_id = ? AND status = ? AND batch_id IS NULL", collectorID, savings.StatusPending).
		Order("created_at ASC")
	return r.find(query)
}

// FindByBatch lists the entries linked to a batch
func (r *GormDepositEntryRepository) FindByBatch(ctx context.Context, batchID uuid.UUID) ([]savings.DepositEntry, error) {
	query := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at ASC")
	return r.find(query)
}

func (r *GormDepositEntryRepository) find(query *gorm.DB) ([]savings.DepositEntry, error) {
	var entryModels []models.DepositEntryModel
	if err := query.Find(&entryModels).Error; err != nil {
		return nil, err
	}
	entries := make([]savings.DepositEntry, len(entryModels))
	for i, model := range entryModels {
		entries[i] = *model.ToDomain()
	}
	return entries, nil
}

// Create inserts an entry
func (r *GormDepositEntryRepository) Create(ctx context.Context, e *savings.DepositEntry) error {
	return r.db.WithContext(ctx).Create(models.DepositEntryModelFromDomain(e)).Error
}

// LinkToBatch attaches pending unbatched entries to a batch. Entries taken by
// a concurrent batch are skipped and show up as a short row count.
func (r *GormDepositEntryRepository) LinkToBatch(ctx context.Context, batchID uuid.UUID, entryIDs []uuid.UUID) (int64, error) {
	if len(entryIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.DepositEntryModel{}).
		Where("id IN ? AND status = ? AND batch_id IS NULL", entryIDs, savings.StatusPending).
		Updates(map[string]interface{}{
			"batch_id":   batchID,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// SetStatusByBatch cascades a status to every entry linked to a batch
func (r *GormDepositEntryRepository) SetStatusByBatch(ctx context.Context, batchID uuid.UUID, status savings.Status) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.DepositEntryModel{}).
		Where("batch_id = ?", batchID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// GormDepositBatchRepository implements savings.BatchRepository using GORM
type GormDepositBatchRepository struct {
	db *gorm.DB
}

// NewGormDepositBatchRepository creates a new GormDepositBatchRepository
func NewGormDepositBatchRepository(db *gorm.DB) *GormDepositBatchRepository {
	return &GormDepositBatchRepository{db: db}
}

// FindByID finds a batch by its ID without its entries
func (r *GormDepositBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*savings.DepositBatch, error) {
	var model models.DepositBatchModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate finds a batch and locks its row for the surrounding transaction
func (r *GormDepositBatchRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*savings.DepositBatch, error) {
	var model models.DepositBatchModel
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

// FindAll lists batches newest first
func (r *GormDepositBatchRepository) FindAll(ctx context.Context, filter savings.BatchFilter) ([]savings.DepositBatch, error) {
	query := r.db.WithContext(ctx).Model(&models.DepositBatchModel{})
	if filter.CollectorID != nil {
		query = query.Where("collector_id = ?", *filter.CollectorID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var batchModels []models.DepositBatchModel
	if err := query.Order("created_at DESC").Find(&batchModels).Error; err != nil {
		return nil, err
	}
	batches := make([]savings.DepositBatch, len(batchModels))
	for i, model := range batchModels {
		batches[i] = *model.ToDomain()
	}
	return batches, nil
}

// Create inserts a batch
func (r *GormDepositBatchRepository) Create(ctx context.Context, b *savings.DepositBatch) error {
	return r.db.WithContext(ctx).Create(models.DepositBatchModelFromDomain(b)).Error
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormDepositBatchRepository) SaveWithLock(ctx context.Context, b *savings.DepositBatch) error {
	result := r.db.WithContext(ctx).
		Model(&models.DepositBatchModel{}).
		Where("id = ? AND version = ?", b.ID, b.Version-1).
		Updates(map[string]interface{}{
			"status":      b.Status,
			"notes":       b.Notes,
			"verified_by": b.VerifiedBy,
			"verified_at": b.VerifiedAt,
			"version":     b.Version,
			"updated_at":  b.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Ensure the repositories implement their domain interfaces
var (
	_ savings.EntryRepository = (*GormDepositEntryRepository)(nil)
	_ savings.BatchRepository = (*GormDepositBatchRepository)(nil)
)
