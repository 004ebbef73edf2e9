package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/shared"
)

// OpeningBalanceDescription is stored on the INCOME transaction that seeds a new account.
const OpeningBalanceDescription = "opening balance"

// Account is a bookkeeping money container. Its balance is never stored:
// it is derived by replaying approved transactions.
type Account struct {
	shared.BaseEntity
	Name          string
	AccountNumber *string // external reference, e.g. a bank account number
	Description   *string
	IsSystem      bool
}

// NewAccount creates a new account
func NewAccount(name string, accountNumber, description *string) (*Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("Account name cannot be empty")
	}
	if len(name) > 100 {
		return nil, shared.NewValidationError("Account name cannot exceed 100 characters")
	}
	return &Account{
		BaseEntity:    shared.NewBaseEntity(),
		Name:          name,
		AccountNumber: normalizeText(accountNumber),
		Description:   normalizeText(description),
	}, nil
}

// Update overwrites the editable fields that are present
func (a *Account) Update(name *string, accountNumber, description *string) error {
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return shared.NewValidationError("Account name cannot be empty")
		}
		a.Name = trimmed
	}
	if accountNumber != nil {
		a.AccountNumber = normalizeText(accountNumber)
	}
	if description != nil {
		a.Description = normalizeText(description)
	}
	a.Touch()
	return nil
}

// CanDelete checks the system-protection flag. Usage by transactions is
// checked by the caller against the repository.
func (a *Account) CanDelete() error {
	if a.IsSystem {
		return shared.NewConstraintError("Cannot delete a system account")
	}
	return nil
}

// OpeningTransaction builds the APPROVED INCOME transaction that carries an
// initial balance into a freshly created account.
func (a *Account) OpeningTransaction(amount int64, createdBy uuid.UUID) (*Transaction, error) {
	desc := OpeningBalanceDescription
	return NewTransaction(TransactionInput{
		Type:        TransactionTypeIncome,
		AccountID:   a.ID,
		Amount:      amount,
		Description: &desc,
		Date:        time.Now(),
		Status:      TransactionStatusApproved,
		CreatedBy:   createdBy,
	})
}

// normalizeText turns blank optional strings into nil
func normalizeText(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
