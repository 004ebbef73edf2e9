package vault

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/vault"
)

// CreateVaultRequest represents a request to create a vault
type CreateVaultRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
	Type string `json:"type" binding:"required,vault_type"`
}

// AdjustRequest represents a manual balance correction.
// A positive delta records adjustment-in, a negative one adjustment-out.
type AdjustRequest struct {
	Delta   int64     `json:"delta" binding:"required"`
	Note    string    `json:"note" binding:"required,min=1,max=500"`
	ActorID uuid.UUID `json:"-"`
}

// TransferRequest represents a transfer between two vaults
type TransferRequest struct {
	SourceVaultID      uuid.UUID `json:"source_vault_id" binding:"required"`
	DestinationVaultID uuid.UUID `json:"destination_vault_id" binding:"required"`
	Amount             int64     `json:"amount" binding:"required,gt=0"`
	Kind               string    `json:"kind" binding:"required,treasury_kind"`
	Note               string    `json:"note" binding:"max=500"`
	ActorID            uuid.UUID `json:"-"`
}

// TransactionListFilter narrows the vault audit log
type TransactionListFilter struct {
	VaultID     *uuid.UUID `form:"-"`
	ReferenceID *uuid.UUID `form:"-"`
	Limit       int        `form:"limit" binding:"omitempty,min=1,max=500"`
}

// VaultResponse represents a vault in API responses
type VaultResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TransactionResponse represents one vault audit row
type TransactionResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Kind               string     `json:"kind"`
	Domain             string     `json:"domain"`
	SourceVaultID      *uuid.UUID `json:"source_vault_id,omitempty"`
	DestinationVaultID *uuid.UUID `json:"destination_vault_id,omitempty"`
	Amount             int64      `json:"amount"`
	Note               string     `json:"note"`
	ReferenceID        *uuid.UUID `json:"reference_id,omitempty"`
	ActorID            uuid.UUID  `json:"actor_id"`
	CreatedAt          time.Time  `json:"created_at"`
}

// ToVaultResponse converts a domain vault to a response
func ToVaultResponse(v *vault.Vault) VaultResponse {
	return VaultResponse{
		ID:        v.ID,
		Name:      v.Name,
		Type:      string(v.Type),
		Balance:   v.Balance,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}

// ToTransactionResponse converts an audit row to a response
func ToTransactionResponse(t *vault.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:                 t.ID,
		Kind:               t.Kind.String(),
		Domain:             string(t.Kind.Domain()),
		SourceVaultID:      t.SourceVaultID,
		DestinationVaultID: t.DestinationVaultID,
		Amount:             t.Amount,
		Note:               t.Note,
		ReferenceID:        t.ReferenceID,
		ActorID:            t.ActorID,
		CreatedAt:          t.CreatedAt,
	}
}
