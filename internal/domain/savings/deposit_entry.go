package savings

import (
	"strings"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/shared"
)

// EntryType is the direction of a per-student savings entry
type EntryType string

const (
	EntryTypeDeposit    EntryType = "deposit"
	EntryTypeWithdrawal EntryType = "withdrawal"
)

// IsValid checks if the entry type is valid
func (t EntryType) IsValid() bool {
	return t == EntryTypeDeposit || t == EntryTypeWithdrawal
}

// Status is shared by entries and batches
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusRejected:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// DepositEntry is one student's deposit or withdrawal collected by a
// classroom rep, waiting to be bundled and verified.
type DepositEntry struct {
	shared.BaseEntity
	StudentRef  string
	CollectorID uuid.UUID
	Type        EntryType
	Amount      int64
	Status      Status
	BatchID     *uuid.UUID
	Notes       *string
}

// NewDepositEntry records a pending, unbatched entry
func NewDepositEntry(studentRef string, collectorID uuid.UUID, entryType EntryType, amount int64, notes *string) (*DepositEntry, error) {
	studentRef = strings.TrimSpace(studentRef)
	if studentRef == "" {
		return nil, shared.NewValidationError("Student reference is required")
	}
	if collectorID == uuid.Nil {
		return nil, shared.NewValidationError("Collector is required")
	}
	if !entryType.IsValid() {
		return nil, shared.NewValidationError("Entry type must be deposit or withdrawal")
	}
	if amount <= 0 {
		return nil, shared.NewValidationError("Amount must be greater than zero")
	}
	var n *string
	if notes != nil && strings.TrimSpace(*notes) != "" {
		v := strings.TrimSpace(*notes)
		n = &v
	}
	return &DepositEntry{
		BaseEntity:  shared.NewBaseEntity(),
		StudentRef:  studentRef,
		CollectorID: collectorID,
		Type:        entryType,
		Amount:      amount,
		Status:      StatusPending,
		Notes:       n,
	}, nil
}

// SignedAmount is positive for deposits and negative for withdrawals
func (e *DepositEntry) SignedAmount() int64 {
	if e.Type == EntryTypeWithdrawal {
		return -e.Amount
	}
	return e.Amount
}

// IsBatchable reports whether the entry can still be bundled
func (e *DepositEntry) IsBatchable() bool {
	return e.Status == StatusPending && e.BatchID == nil
}

func (e *DepositEntry) touch() {
	e.Touch()
}
