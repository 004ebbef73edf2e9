package vault

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/shared"
)

// Mutation is a single-vault balance change
type Mutation struct {
	VaultID     uuid.UUID
	Delta       int64 // negative debits, positive credits
	Kind        Kind
	Note        string
	ActorID     uuid.UUID
	ReferenceID *uuid.UUID
}

// Transfer moves an amount from one vault to another
type Transfer struct {
	SourceID      uuid.UUID
	DestinationID uuid.UUID
	Amount        int64
	Kind          Kind
	Note          string
	ActorID       uuid.UUID
	ReferenceID   *uuid.UUID
}

// Custody is the only writer of vault balances. Every balance change it makes
// is paired with exactly one audit row. It must be built over repositories
// bound to the caller's database transaction so both writes commit together.
type Custody struct {
	vaults  Repository
	journal TransactionRepository
}

// NewCustody creates a custody service over transaction-bound repositories
func NewCustody(vaults Repository, journal TransactionRepository) *Custody {
	return &Custody{vaults: vaults, journal: journal}
}

// Mutate applies delta to one vault and appends its audit row
func (c *Custody) Mutate(ctx context.Context, m Mutation) (*Transaction, error) {
	if m.Kind.IsZero() {
		return nil, shared.NewValidationError("Vault movement kind is required")
	}
	if m.Delta == 0 {
		return nil, shared.NewValidationError("Amount must be greater than zero")
	}
	switch m.Kind.Direction() {
	case DirectionDebit:
		if m.Delta > 0 {
			return nil, shared.NewValidationError("%s must decrease the vault balance", m.Kind)
		}
	case DirectionCredit:
		if m.Delta < 0 {
			return nil, shared.NewValidationError("%s must increase the vault balance", m.Kind)
		}
	default:
		return nil, shared.NewValidationError("%s moves money between two vaults; use a transfer", m.Kind)
	}

	v, err := c.vaults.FindByIDForUpdate(ctx, m.VaultID)
	if err != nil {
		return nil, err
	}
	if err := checkType(v, requiredType(m.Kind, m.Delta)); err != nil {
		return nil, err
	}
	if m.Delta < 0 && !v.CanCover(-m.Delta) {
		return nil, insufficient(v, -m.Delta)
	}
	if _, ok, err := c.vaults.ApplyDelta(ctx, v.ID, m.Delta); err != nil {
		return nil, err
	} else if !ok {
		return nil, insufficient(v, -m.Delta)
	}

	var source, destination *uuid.UUID
	amount := m.Delta
	if m.Delta < 0 {
		source = &v.ID
		amount = -m.Delta
	} else {
		destination = &v.ID
	}
	row, err := NewTransaction(m.Kind, source, destination, amount, m.Note, m.ReferenceID, m.ActorID)
	if err != nil {
		return nil, err
	}
	if err := c.journal.Append(ctx, row); err != nil {
		return nil, fmt.Errorf("append vault transaction: %w", err)
	}
	return row, nil
}

// Transfer debits the source and credits the destination as one movement
// with a single audit row. If either leg fails the caller's transaction must
// be rolled back, so neither leg becomes visible.
func (c *Custody) Transfer(ctx context.Context, t Transfer) (*Transaction, error) {
	if !t.Kind.IsTransfer() {
		return nil, shared.NewValidationError("%q is not a vault transfer kind", t.Kind.String())
	}
	if t.Amount <= 0 {
		return nil, shared.NewValidationError("Amount must be greater than zero")
	}
	if t.SourceID == t.DestinationID {
		return nil, shared.NewValidationError("Source and destination vaults must differ")
	}

	source, destination, err := c.lockPair(ctx, t.SourceID, t.DestinationID)
	if err != nil {
		return nil, err
	}
	if err := checkType(source, t.Kind.SourceType()); err != nil {
		return nil, err
	}
	if err := checkType(destination, t.Kind.DestinationType()); err != nil {
		return nil, err
	}
	if !source.CanCover(t.Amount) {
		return nil, insufficient(source, t.Amount)
	}

	if _, ok, err := c.vaults.ApplyDelta(ctx, source.ID, -t.Amount); err != nil {
		return nil, err
	} else if !ok {
		return nil, insufficient(source, t.Amount)
	}
	if _, ok, err := c.vaults.ApplyDelta(ctx, destination.ID, t.Amount); err != nil {
		return nil, err
	} else if !ok {
		return nil, shared.NewNotFoundError("Vault %s no longer exists", destination.ID)
	}

	row, err := NewTransaction(t.Kind, &source.ID, &destination.ID, t.Amount, t.Note, t.ReferenceID, t.ActorID)
	if err != nil {
		return nil, err
	}
	if err := c.journal.Append(ctx, row); err != nil {
		return nil, fmt.Errorf("append vault transaction: %w", err)
	}
	return row, nil
}

// lockPair locks both vaults in id order so two opposite transfers cannot
// deadlock each other.
func (c *Custody) lockPair(ctx context.Context, sourceID, destinationID uuid.UUID) (*Vault, *Vault, error) {
	first, second := sourceID, destinationID
	if bytes.Compare(first[:], second[:]) > 0 {
		first, second = second, first
	}
	a, err := c.vaults.FindByIDForUpdate(ctx, first)
	if err != nil {
		return nil, nil, incomplete(err)
	}
	b, err := c.vaults.FindByIDForUpdate(ctx, second)
	if err != nil {
		return nil, nil, incomplete(err)
	}
	if a.ID == sourceID {
		return a, b, nil
	}
	return b, a, nil
}

func requiredType(k Kind, delta int64) Type {
	if delta < 0 {
		return k.SourceType()
	}
	return k.DestinationType()
}

func checkType(v *Vault, required Type) error {
	if required == "" || v.Type == required {
		return nil
	}
	return shared.NewConstraintError("Vault %q is a %s vault; this operation requires a %s vault", v.Name, v.Type, required)
}

func insufficient(v *Vault, amount int64) error {
	return shared.NewInsufficientBalanceError("Vault %q balance %d cannot cover %d", v.Name, v.Balance, amount)
}

func incomplete(err error) error {
	if shared.IsCode(err, shared.CodeNotFound) {
		return shared.NewNotFoundError("Vault configuration incomplete")
	}
	return err
}
