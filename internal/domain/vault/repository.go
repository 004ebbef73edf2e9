package vault

import (
	"context"

	"github.com/google/uuid"
)

// TransactionFilter defines filtering options for audit log queries
type TransactionFilter struct {
	VaultID     *uuid.UUID // either leg
	ReferenceID *uuid.UUID
	Limit       int
}

// Repository defines the interface for vault persistence
type Repository interface {
	// FindByID finds a vault by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Vault, error)

	// FindByIDForUpdate finds a vault and locks its row until the surrounding
	// transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Vault, error)

	// FindFirstByType returns the oldest vault of a type
	FindFirstByType(ctx context.Context, vaultType Type) (*Vault, error)

	// FindAll lists every vault
	FindAll(ctx context.Context) ([]Vault, error)

	// Create inserts a new vault
	Create(ctx context.Context, v *Vault) error

	// ApplyDelta adds delta to the stored balance in a single conditional
	// update that refuses to take the balance below zero. It returns the new
	// balance, or ok=false when no row satisfied the condition.
	ApplyDelta(ctx context.Context, id uuid.UUID, delta int64) (balance int64, ok bool, err error)
}

// TransactionRepository persists the vault audit log. It has no update or
// delete: rows are append-only.
type TransactionRepository interface {
	// Append writes one audit row
	Append(ctx context.Context, tx *Transaction) error

	// FindAll lists audit rows newest first
	FindAll(ctx context.Context, filter TransactionFilter) ([]Transaction, error)
}
