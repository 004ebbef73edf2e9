package savings

import (
	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/shared"
)

// Event type constants
const (
	EventTypeBatchVerified = "SavingsBatchVerified"
	EventTypeBatchRejected = "SavingsBatchRejected"
)

// AggregateTypeBatch names the batch aggregate in events
const AggregateTypeBatch = "SavingsDepositBatch"

// BatchVerifiedEvent is raised when the treasurer accepts a batch
type BatchVerifiedEvent struct {
	shared.BaseDomainEvent
	CollectorID uuid.UUID `json:"collector_id"`
	BatchType   BatchType `json:"batch_type"`
	TotalAmount int64     `json:"total_amount"`
	EntryCount  int       `json:"entry_count"`
}

// NewBatchVerifiedEvent creates a BatchVerifiedEvent
func NewBatchVerifiedEvent(b *DepositBatch, treasurerID uuid.UUID) *BatchVerifiedEvent {
	return &BatchVerifiedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchVerified, AggregateTypeBatch, b.ID, treasurerID),
		CollectorID:     b.CollectorID,
		BatchType:       b.Type,
		TotalAmount:     b.TotalAmount,
		EntryCount:      len(b.Entries),
	}
}

// BatchRejectedEvent is raised when the treasurer refuses a batch
type BatchRejectedEvent struct {
	shared.BaseDomainEvent
	CollectorID uuid.UUID `json:"collector_id"`
	Reason      string    `json:"reason"`
	EntryCount  int       `json:"entry_count"`
}

// NewBatchRejectedEvent creates a BatchRejectedEvent
func NewBatchRejectedEvent(b *DepositBatch, reason string, actor uuid.UUID) *BatchRejectedEvent {
	return &BatchRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchRejected, AggregateTypeBatch, b.ID, actor),
		CollectorID:     b.CollectorID,
		Reason:          reason,
		EntryCount:      len(b.Entries),
	}
}
