package savings

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/shared"
)

// RejectionMarker prefixes the reason appended to a rejected batch's notes
const RejectionMarker = "[REJECTED]"

// BatchType is the direction cash physically moves between collector and treasurer
type BatchType string

const (
	BatchTypeDepositToTreasurer      BatchType = "deposit_to_treasurer"
	BatchTypeWithdrawalFromTreasurer BatchType = "withdrawal_from_treasurer"
)

// IsValid checks if the batch type is valid
func (t BatchType) IsValid() bool {
	return t == BatchTypeDepositToTreasurer || t == BatchTypeWithdrawalFromTreasurer
}

// DepositBatch ("setoran") bundles one collector's pending entries for
// verification by the treasurer.
type DepositBatch struct {
	shared.BaseAggregateRoot
	CollectorID uuid.UUID
	Type        BatchType
	TotalAmount int64 // absolute net; Type carries the direction
	Status      Status
	Notes       *string
	VerifiedBy  *uuid.UUID
	VerifiedAt  *time.Time
	Entries     []DepositEntry
}

// NewDepositBatch bundles entries into a pending batch and links them to it.
// The batch amount is the net of deposits minus withdrawals and its type
// follows the sign of that net.
func NewDepositBatch(collectorID uuid.UUID, notes *string, entries []DepositEntry) (*DepositBatch, error) {
	if collectorID == uuid.Nil {
		return nil, shared.NewValidationError("Collector is required")
	}
	if len(entries) == 0 {
		return nil, shared.NewValidationError("There are no pending entries to bundle")
	}

	b := &DepositBatch{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CollectorID:       collectorID,
		Status:            StatusPending,
		Notes:             trimmedNotes(notes),
		Entries:           make([]DepositEntry, 0, len(entries)),
	}

	var net int64
	for _, e := range entries {
		if e.CollectorID != collectorID {
			return nil, shared.NewValidationError("Entry %s belongs to another collector", e.ID)
		}
		if !e.IsBatchable() {
			return nil, shared.NewInvalidStateError("Entry %s is already batched or finalized", e.ID)
		}
		net += e.SignedAmount()
		batchID := b.ID
		e.BatchID = &batchID
		e.touch()
		b.Entries = append(b.Entries, e)
	}

	if net > 0 {
		b.Type = BatchTypeDepositToTreasurer
		b.TotalAmount = net
	} else {
		b.Type = BatchTypeWithdrawalFromTreasurer
		b.TotalAmount = -net
	}
	return b, nil
}

// Verify finalizes a pending batch and cascades verified to its entries
func (b *DepositBatch) Verify(treasurerID uuid.UUID) error {
	if b.Status != StatusPending {
		return shared.NewInvalidStateError("Batch is already %s", b.Status)
	}
	if treasurerID == uuid.Nil {
		return shared.NewValidationError("Treasurer is required")
	}
	now := time.Now()
	b.Status = StatusVerified
	b.VerifiedBy = &treasurerID
	b.VerifiedAt = &now
	b.cascade(StatusVerified)
	b.Bump(now)
	b.AddDomainEvent(NewBatchVerifiedEvent(b, treasurerID))
	return nil
}

// Reject finalizes a pending batch as rejected. The reason is appended to the
// notes behind RejectionMarker so the original notes survive.
func (b *DepositBatch) Reject(reason string, actor uuid.UUID) error {
	if b.Status != StatusPending {
		return shared.NewInvalidStateError("Batch is already %s", b.Status)
	}
	b.Status = StatusRejected
	reason = strings.TrimSpace(reason)
	if reason != "" {
		marked := RejectionMarker + " " + reason
		if b.Notes != nil && *b.Notes != "" {
			marked = *b.Notes + "\n" + marked
		}
		b.Notes = &marked
	}
	b.cascade(StatusRejected)
	b.Bump(time.Now())
	b.AddDomainEvent(NewBatchRejectedEvent(b, reason, actor))
	return nil
}

func (b *DepositBatch) cascade(status Status) {
	for i := range b.Entries {
		b.Entries[i].Status = status
		b.Entries[i].touch()
	}
}

// NetSigned returns the net amount with deposits positive
func (b *DepositBatch) NetSigned() int64 {
	if b.Type == BatchTypeWithdrawalFromTreasurer {
		return -b.TotalAmount
	}
	return b.TotalAmount
}

func trimmedNotes(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
