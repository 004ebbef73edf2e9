package savings

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/savings"
)

// RecordEntryRequest records one student's deposit or withdrawal
type RecordEntryRequest struct {
	StudentRef  string    `json:"student_ref" binding:"required,max=100"`
	CollectorID uuid.UUID `json:"collector_id" binding:"required"`
	Type        string    `json:"type" binding:"required,savings_entry_type"`
	Amount      int64     `json:"amount" binding:"required,gt=0"`
	Notes       *string   `json:"notes"`
}

// CreateBatchRequest bundles a collector's pending entries
type CreateBatchRequest struct {
	CollectorID uuid.UUID `json:"collector_id" binding:"required"`
	Notes       *string   `json:"notes"`
}

// VerifyBatchRequest accepts a batch. Settle also moves the batch total
// between the cash and bank vaults in the same transaction.
type VerifyBatchRequest struct {
	Settle      bool      `json:"settle"`
	TreasurerID uuid.UUID `json:"-"`
}

// RejectBatchRequest refuses a batch
type RejectBatchRequest struct {
	Reason  string    `json:"reason" binding:"omitempty,max=500"`
	ActorID uuid.UUID `json:"-"`
}

// TreasuryTransferRequest moves money between the cash and bank vaults
type TreasuryTransferRequest struct {
	Kind    string    `json:"kind" binding:"required,treasury_kind"`
	Amount  int64     `json:"amount" binding:"required,gt=0"`
	Note    string    `json:"note" binding:"omitempty,max=500"`
	ActorID uuid.UUID `json:"-"`
}

// EntryListFilter narrows an entry listing
type EntryListFilter struct {
	CollectorID *uuid.UUID `form:"-"`
	BatchID     *uuid.UUID `form:"-"`
	Status      string     `form:"status" binding:"omitempty,savings_status"`
	Unbatched   bool       `form:"unbatched"`
	Limit       int        `form:"limit" binding:"omitempty,min=1"`
}

// BatchListFilter narrows a batch listing
type BatchListFilter struct {
	CollectorID *uuid.UUID `form:"-"`
	Status      string     `form:"status" binding:"omitempty,savings_status"`
	Limit       int        `form:"limit" binding:"omitempty,min=1"`
}

// EntryResponse represents a deposit entry
type EntryResponse struct {
	ID          uuid.UUID  `json:"id"`
	StudentRef  string     `json:"student_ref"`
	CollectorID uuid.UUID  `json:"collector_id"`
	Type        string     `json:"type"`
	Amount      int64      `json:"amount"`
	Status      string     `json:"status"`
	BatchID     *uuid.UUID `json:"batch_id,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// BatchResponse represents a deposit batch, with entries when requested
type BatchResponse struct {
	ID          uuid.UUID       `json:"id"`
	CollectorID uuid.UUID       `json:"collector_id"`
	Type        string          `json:"type"`
	TotalAmount int64           `json:"total_amount"`
	Status      string          `json:"status"`
	Notes       *string         `json:"notes,omitempty"`
	VerifiedBy  *uuid.UUID      `json:"verified_by,omitempty"`
	VerifiedAt  *time.Time      `json:"verified_at,omitempty"`
	Entries     []EntryResponse `json:"entries,omitempty"`
	Version     int             `json:"version"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ToEntryResponse converts a deposit entry to a response
func ToEntryResponse(e *savings.DepositEntry) EntryResponse {
	return EntryResponse{
		ID:          e.ID,
		StudentRef:  e.StudentRef,
		CollectorID: e.CollectorID,
		Type:        string(e.Type),
		Amount:      e.Amount,
		Status:      string(e.Status),
		BatchID:     e.BatchID,
		Notes:       e.Notes,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// ToEntryResponses converts a slice of entries
func ToEntryResponses(entries []savings.DepositEntry) []EntryResponse {
	out := make([]EntryResponse, len(entries))
	for i := range entries {
		out[i] = ToEntryResponse(&entries[i])
	}
	return out
}

// ToBatchResponse converts a batch and any loaded entries to a response
func ToBatchResponse(b *savings.DepositBatch) BatchResponse {
	resp := BatchResponse{
		ID:          b.ID,
		CollectorID: b.CollectorID,
		Type:        string(b.Type),
		TotalAmount: b.TotalAmount,
		Status:      string(b.Status),
		Notes:       b.Notes,
		VerifiedBy:  b.VerifiedBy,
		VerifiedAt:  b.VerifiedAt,
		Version:     b.Version,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
	if len(b.Entries) > 0 {
		resp.Entries = ToEntryResponses(b.Entries)
	}
	return resp
}
