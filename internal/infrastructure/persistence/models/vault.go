package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/vault"
)

// VaultModel is the persistence model for a cash or bank vault
type VaultModel struct {
	BaseModel
	Name    string     `gorm:"type:varchar(100);not null"`
	Type    vault.Type `gorm:"type:varchar(10);not null;index"`
	Balance int64      `gorm:"not null;default:0;check:balance >= 0"`
}

// TableName returns the table name for GORM
func (VaultModel) TableName() string {
	return "vaults"
}

// ToDomain converts the persistence model to a domain Vault
func (m *VaultModel) ToDomain() *vault.Vault {
	return &vault.Vault{
		BaseEntity: m.Entity(),
		Name:       m.Name,
		Type:       m.Type,
		Balance:    m.Balance,
	}
}

// FromDomain populates the persistence model from a domain Vault
func (m *VaultModel) FromDomain(v *vault.Vault) {
	m.SetEntity(v.BaseEntity)
	m.Name = v.Name
	m.Type = v.Type
	m.Balance = v.Balance
}

// VaultModelFromDomain creates a new persistence model from domain
func VaultModelFromDomain(v *vault.Vault) *VaultModel {
	m := &VaultModel{}
	m.FromDomain(v)
	return m
}

// VaultTransactionModel is one append-only row of the vault audit log
type VaultTransactionModel struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primary_key"`
	Kind               string     `gorm:"type:varchar(40);not null;index"`
	SourceVaultID      *uuid.UUID `gorm:"type:uuid;index"`
	DestinationVaultID *uuid.UUID `gorm:"type:uuid;index"`
	Amount             int64      `gorm:"not null"`
	Note               string     `gorm:"type:text"`
	ReferenceID        *uuid.UUID `gorm:"type:uuid;index"`
	ActorID            uuid.UUID  `gorm:"type:uuid;not null"`
	CreatedAt          time.Time  `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (VaultTransactionModel) TableName() string {
	return "vault_transactions"
}

// ToDomain converts the persistence model to a domain vault Transaction.
// It fails when the stored kind tag is unknown.
func (m *VaultTransactionModel) ToDomain() (*vault.Transaction, error) {
	kind, err := vault.ParseKind(m.Kind)
	if err != nil {
		return nil, fmt.Errorf("vault transaction %s: %w", m.ID, err)
	}
	return &vault.Transaction{
		ID:                 m.ID,
		Kind:               kind,
		SourceVaultID:      m.SourceVaultID,
		DestinationVaultID: m.DestinationVaultID,
		Amount:             m.Amount,
		Note:               m.Note,
		ReferenceID:        m.ReferenceID,
		ActorID:            m.ActorID,
		CreatedAt:          m.CreatedAt,
	}, nil
}

// VaultTransactionModelFromDomain creates a new persistence model from domain
func VaultTransactionModelFromDomain(t *vault.Transaction) *VaultTransactionModel {
	return &VaultTransactionModel{
		ID:                 t.ID,
		Kind:               t.Kind.String(),
		SourceVaultID:      t.SourceVaultID,
		DestinationVaultID: t.DestinationVaultID,
		Amount:             t.Amount,
		Note:               t.Note,
		ReferenceID:        t.ReferenceID,
		ActorID:            t.ActorID,
		CreatedAt:          t.CreatedAt,
	}
}
