package vault

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/shared"
)

// Transaction is an append-only audit row written with every vault balance
// change. Debits set only the source vault, credits set only the destination
// vault and transfers set both. Amount is always positive.
type Transaction struct {
	ID                 uuid.UUID
	Kind               Kind
	SourceVaultID      *uuid.UUID
	DestinationVaultID *uuid.UUID
	Amount             int64
	Note               string
	ReferenceID        *uuid.UUID // loan, batch or other originating record
	ActorID            uuid.UUID
	CreatedAt          time.Time
}

// NewTransaction builds an audit row
func NewTransaction(kind Kind, source, destination *uuid.UUID, amount int64, note string, referenceID *uuid.UUID, actorID uuid.UUID) (*Transaction, error) {
	if kind.IsZero() {
		return nil, shared.NewValidationError("Vault movement kind is required")
	}
	if amount <= 0 {
		return nil, shared.NewValidationError("Amount must be greater than zero")
	}
	if source == nil && destination == nil {
		return nil, shared.NewValidationError("A vault movement needs at least one vault")
	}
	return &Transaction{
		ID:                 uuid.New(),
		Kind:               kind,
		SourceVaultID:      source,
		DestinationVaultID: destination,
		Amount:             amount,
		Note:               note,
		ReferenceID:        referenceID,
		ActorID:            actorID,
		CreatedAt:          time.Now(),
	}, nil
}

// DeltaFor returns the signed effect of the row on one vault
func (t *Transaction) DeltaFor(vaultID uuid.UUID) int64 {
	var delta int64
	if t.SourceVaultID != nil && *t.SourceVaultID == vaultID {
		delta -= t.Amount
	}
	if t.DestinationVaultID != nil && *t.DestinationVaultID == vaultID {
		delta += t.Amount
	}
	return delta
}
