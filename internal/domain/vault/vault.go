package vault

import (
	"strings"

	"github.com/schoolfund/backend/internal/domain/shared"
)

// Type is the physical nature of a vault
type Type string

const (
	TypeCash Type = "cash"
	TypeBank Type = "bank"
)

// IsValid checks if the vault type is valid
func (t Type) IsValid() bool {
	return t == TypeCash || t == TypeBank
}

// String returns the string representation of Type
func (t Type) String() string {
	return string(t)
}

// Vault is a physical money pool. Unlike ledger accounts its balance is
// stored and authoritative; it only changes through Custody.
type Vault struct {
	shared.BaseEntity
	Name    string
	Type    Type
	Balance int64
}

// NewVault creates an empty vault
func NewVault(name string, vaultType Type) (*Vault, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("Vault name cannot be empty")
	}
	if !vaultType.IsValid() {
		return nil, shared.NewValidationError("Vault type must be cash or bank")
	}
	return &Vault{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Type:       vaultType,
	}, nil
}

// CanCover reports whether the vault holds at least amount
func (v *Vault) CanCover(amount int64) bool {
	return v.Balance >= amount
}
