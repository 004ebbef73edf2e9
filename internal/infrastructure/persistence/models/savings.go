package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/savings"
)

// DepositEntryModel is the persistence model for a student savings entry
type DepositEntryModel struct {
	BaseModel
	StudentRef  string            `gorm:"type:varchar(100);not null;index"`
	CollectorID uuid.UUID         `gorm:"type:uuid;not null;index"`
	Type        savings.EntryType `gorm:"type:varchar(12);not null"`
	Amount      int64             `gorm:"not null"`
	Status      savings.Status    `gorm:"type:varchar(10);not null;default:'pending';index"`
	BatchID     *uuid.UUID        `gorm:"type:uuid;index"`
	Notes       *string           `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (DepositEntryModel) TableName() string {
	return "savings_deposit_entries"
}

// ToDomain converts the persistence model to a domain DepositEntry
func (m *DepositEntryModel) ToDomain() *savings.DepositEntry {
	return &savings.DepositEntry{
		BaseEntity:  m.Entity(),
		StudentRef:  m.StudentRef,
		CollectorID: m.CollectorID,
		Type:        m.Type,
		Amount:      m.Amount,
		Status:      m.Status,
		BatchID:     m.BatchID,
		Notes:       m.Notes,
	}
}

// DepositEntryModelFromDomain creates a new persistence model from domain
func DepositEntryModelFromDomain(e *savings.DepositEntry) *DepositEntryModel {
	m := &DepositEntryModel{
		StudentRef:  e.StudentRef,
		CollectorID: e.CollectorID,
		Type:        e.Type,
		Amount:      e.Amount,
		Status:      e.Status,
		BatchID:     e.BatchID,
		Notes:       e.Notes,
	}
	m.SetEntity(e.BaseEntity)
	return m
}

// DepositBatchModel is the persistence model for the DepositBatch aggregate root
type DepositBatchModel struct {
	AggregateModel
	CollectorID uuid.UUID         `gorm:"type:uuid;not null;index"`
	Type        savings.BatchType `gorm:"type:varchar(30);not null"`
	TotalAmount int64             `gorm:"not null"`
	Status      savings.Status    `gorm:"type:varchar(10);not null;default:'pending';index"`
	Notes       *string           `gorm:"type:text"`
	VerifiedBy  *uuid.UUID        `gorm:"type:uuid"`
	VerifiedAt  *time.Time
}

// TableName returns the table name for GORM
func (DepositBatchModel) TableName() string {
	return "savings_deposit_batches"
}

// ToDomain converts the persistence model to a domain DepositBatch without entries
func (m *DepositBatchModel) ToDomain() *savings.DepositBatch {
	return &savings.DepositBatch{
		BaseAggregateRoot: m.Aggregate(),
		CollectorID:       m.CollectorID,
		Type:              m.Type,
		TotalAmount:       m.TotalAmount,
		Status:            m.Status,
		Notes:             m.Notes,
		VerifiedBy:        m.VerifiedBy,
		VerifiedAt:        m.VerifiedAt,
	}
}

// FromDomain populates the persistence model from a domain DepositBatch
func (m *DepositBatchModel) FromDomain(b *savings.DepositBatch) {
	m.SetAggregate(b.BaseAggregateRoot)
	m.CollectorID = b.CollectorID
	m.Type = b.Type
	m.TotalAmount = b.TotalAmount
	m.Status = b.Status
	m.Notes = b.Notes
	m.VerifiedBy = b.VerifiedBy
	m.VerifiedAt = b.VerifiedAt
}

// DepositBatchModelFromDomain creates a new persistence model from domain
func DepositBatchModelFromDomain(b *savings.DepositBatch) *DepositBatchModel {
	m := &DepositBatchModel{}
	m.FromDomain(b)
	return m
}
