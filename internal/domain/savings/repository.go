package savings

import (
	"context"

	"github.com/google/uuid"
)

// EntryFilter defines filtering options for entry queries
type EntryFilter struct {
	CollectorID *uuid.UUID
	BatchID     *uuid.UUID
	Status      *Status
	Unbatched   bool
	Limit       int
}

// BatchFilter defines filtering options for batch queries
type BatchFilter struct {
	CollectorID *uuid.UUID
	Status      *Status
	Limit       int
}

// EntryRepository defines the interface for deposit entry persistence
type EntryRepository interface {
	// FindAll lists entries newest first
	FindAll(ctx context.Context, filter EntryFilter) ([]DepositEntry, error)

	// FindUnbatchedPending lists a collector's pending entries not yet in a batch
	FindUnbatchedPending(ctx context.Context, collectorID uuid.UUID) ([]DepositEntry, error)

	// FindByBatch lists the entries linked to a batch
	FindByBatch(ctx context.Context, batchID uuid.UUID) ([]DepositEntry, error)

	// Create inserts an entry
	Create(ctx context.Context, e *DepositEntry) error

	// LinkToBatch attaches pending unbatched entries to a batch. It returns the
	// number of rows linked so callers can detect entries taken concurrently.
	LinkToBatch(ctx context.Context, batchID uuid.UUID, entryIDs []uuid.UUID) (int64, error)

	// SetStatusByBatch cascades a status to every entry linked to a batch
	SetStatusByBatch(ctx context.Context, batchID uuid.UUID, status Status) (int64, error)
}

// BatchRepository defines the interface for batch persistence
type BatchRepository interface {
	// FindByID finds a batch by ID without its entries
	FindByID(ctx context.Context, id uuid.UUID) (*DepositBatch, error)

	// FindByIDForUpdate finds a batch and locks its row until the surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*DepositBatch, error)

	// FindAll lists batches newest first
	FindAll(ctx context.Context, filter BatchFilter) ([]DepositBatch, error)

	// Create inserts a batch
	Create(ctx context.Context, b *DepositBatch) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, b *DepositBatch) error
}
