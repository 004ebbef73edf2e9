package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/shared"
)

// TransactionType is the kind of cash flow a transaction records
type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "INCOME"
	TransactionTypeExpense  TransactionType = "EXPENSE"
	TransactionTypeTransfer TransactionType = "TRANSFER"
)

// IsValid checks if the transaction type is valid
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeIncome, TransactionTypeExpense, TransactionTypeTransfer:
		return true
	}
	return false
}

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// TransactionStatus is the approval state of a transaction
type TransactionStatus string

const (
	TransactionStatusPending  TransactionStatus = "PENDING"
	TransactionStatusApproved TransactionStatus = "APPROVED"
	TransactionStatusRejected TransactionStatus = "REJECTED"
)

// IsValid checks if the status is valid
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusApproved, TransactionStatusRejected:
		return true
	}
	return false
}

// String returns the string representation of TransactionStatus
func (s TransactionStatus) String() string {
	return string(s)
}

// Transaction records one movement of money against one account, or between
// two accounts for TRANSFER.
type Transaction struct {
	shared.BaseEntity
	Date          time.Time
	Type          TransactionType
	AccountID     uuid.UUID
	ToAccountID   *uuid.UUID
	CategoryID    *uuid.UUID
	Amount        int64
	Description   *string
	AttachmentRef *string
	Status        TransactionStatus
	CreatedBy     uuid.UUID
}

// TransactionInput carries the fields accepted when recording a transaction
type TransactionInput struct {
	Type          TransactionType
	AccountID     uuid.UUID
	ToAccountID   *uuid.UUID
	CategoryID    *uuid.UUID
	Amount        int64
	Description   *string
	AttachmentRef *string
	Date          time.Time
	Status        TransactionStatus
	CreatedBy     uuid.UUID
}

// NewTransaction validates and normalizes input into a new transaction.
// A zero Date means now and an empty Status means APPROVED.
func NewTransaction(in TransactionInput) (*Transaction, error) {
	tx := &Transaction{
		BaseEntity:    shared.NewBaseEntity(),
		Date:          in.Date,
		Type:          in.Type,
		AccountID:     in.AccountID,
		ToAccountID:   normalizeID(in.ToAccountID),
		CategoryID:    normalizeID(in.CategoryID),
		Amount:        in.Amount,
		Description:   normalizeText(in.Description),
		AttachmentRef: normalizeText(in.AttachmentRef),
		Status:        in.Status,
		CreatedBy:     in.CreatedBy,
	}
	if tx.Date.IsZero() {
		tx.Date = tx.CreatedAt
	}
	if tx.Status == "" {
		tx.Status = TransactionStatusApproved
	}
	if err := tx.normalize(); err != nil {
		return nil, err
	}
	return tx, nil
}

// TransactionPatch holds the fields present in a partial update. A non-nil
// pointer to uuid.Nil clears the reference.
type TransactionPatch struct {
	Type          *TransactionType
	AccountID     *uuid.UUID
	ToAccountID   *uuid.UUID
	CategoryID    *uuid.UUID
	Amount        *int64
	Description   *string
	AttachmentRef *string
	Date          *time.Time
}

// Apply merges the patch and re-validates the whole record
func (t *Transaction) Apply(p TransactionPatch) error {
	next := *t
	if p.Type != nil {
		next.Type = *p.Type
	}
	if p.AccountID != nil {
		next.AccountID = *p.AccountID
	}
	if p.ToAccountID != nil {
		next.ToAccountID = normalizeID(p.ToAccountID)
	}
	if p.CategoryID != nil {
		next.CategoryID = normalizeID(p.CategoryID)
	}
	if p.Amount != nil {
		next.Amount = *p.Amount
	}
	if p.Description != nil {
		next.Description = normalizeText(p.Description)
	}
	if p.AttachmentRef != nil {
		next.AttachmentRef = normalizeText(p.AttachmentRef)
	}
	if p.Date != nil && !p.Date.IsZero() {
		next.Date = *p.Date
	}
	if err := next.normalize(); err != nil {
		return err
	}
	next.Touch()
	*t = next
	return nil
}

// normalize enforces the shape rules shared by create and update
func (t *Transaction) normalize() error {
	if !t.Type.IsValid() {
		return shared.NewValidationError("Transaction type must be INCOME, EXPENSE or TRANSFER")
	}
	if !t.Status.IsValid() {
		return shared.NewValidationError("Transaction status must be PENDING, APPROVED or REJECTED")
	}
	if t.Amount <= 0 {
		return shared.NewValidationError("Amount must be greater than zero")
	}
	if t.AccountID == uuid.Nil {
		return shared.NewValidationError("Source account is required")
	}
	switch t.Type {
	case TransactionTypeTransfer:
		if t.ToAccountID == nil {
			return shared.NewValidationError("Destination account is required for a transfer")
		}
		if *t.ToAccountID == t.AccountID {
			return shared.NewValidationError("Destination account must differ from the source account")
		}
		t.CategoryID = nil
	default:
		t.ToAccountID = nil
	}
	return nil
}

// Approve moves a pending transaction into the balance
func (t *Transaction) Approve() error {
	if t.Status != TransactionStatusPending {
		return shared.NewInvalidStateError("Only pending transactions can be approved")
	}
	t.Status = TransactionStatusApproved
	t.Touch()
	return nil
}

// Reject declines a pending transaction
func (t *Transaction) Reject() error {
	if t.Status != TransactionStatusPending {
		return shared.NewInvalidStateError("Only pending transactions can be rejected")
	}
	t.Status = TransactionStatusRejected
	t.Touch()
	return nil
}

// Void soft-cancels an approved transaction, removing it from every derived
// balance without deleting the row.
func (t *Transaction) Void() error {
	if t.Status != TransactionStatusApproved {
		return shared.NewInvalidStateError("Only approved transactions can be voided")
	}
	t.Status = TransactionStatusRejected
	t.Touch()
	return nil
}

// Touches reports whether the transaction references the account on either leg
func (t *Transaction) Touches(accountID uuid.UUID) bool {
	if t.AccountID == accountID {
		return true
	}
	return t.ToAccountID != nil && *t.ToAccountID == accountID
}

// DeltaFor returns the signed contribution of the transaction to one account
func (t *Transaction) DeltaFor(accountID uuid.UUID) int64 {
	switch t.Type {
	case TransactionTypeIncome:
		if t.AccountID == accountID {
			return t.Amount
		}
	case TransactionTypeExpense:
		if t.AccountID == accountID {
			return -t.Amount
		}
	case TransactionTypeTransfer:
		var delta int64
		if t.AccountID == accountID {
			delta -= t.Amount
		}
		if t.ToAccountID != nil && *t.ToAccountID == accountID {
			delta += t.Amount
		}
		return delta
	}
	return 0
}

// NetDelta returns the contribution to the institution as a whole.
// Transfers are internal movements and net to zero.
func (t *Transaction) NetDelta() int64 {
	switch t.Type {
	case TransactionTypeIncome:
		return t.Amount
	case TransactionTypeExpense:
		return -t.Amount
	}
	return 0
}

func normalizeID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	v := *id
	return &v
}
