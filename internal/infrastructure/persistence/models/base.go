package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/shared"
)

// BaseModel carries the columns every fund table has
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (m *BaseModel) Entity() shared.BaseEntity {
	return shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func (m *BaseModel) SetEntity(e shared.BaseEntity) {
	m.ID, m.CreatedAt, m.UpdatedAt = e.ID, e.CreatedAt, e.UpdatedAt
}

// AggregateModel adds the optimistic-lock version used by loans and
// savings batches.
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

// Aggregate rebuilds the aggregate root with no pending events
func (m *AggregateModel) Aggregate() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{BaseEntity: m.Entity(), Version: m.Version}
}

func (m *AggregateModel) SetAggregate(a shared.BaseAggregateRoot) {
	m.SetEntity(a.BaseEntity)
	m.Version = a.Version
}

// FundModels lists every model owned by this service in dependency order.
// Tests auto-migrate these; production schemas come from the SQL migrations.
func FundModels() []any {
	return []any{
		&UserModel{},
		&EmployeeDetailModel{},
		&AccountModel{},
		&CategoryModel{},
		&TransactionModel{},
		&VaultModel{},
		&VaultTransactionModel{},
		&LoanModel{},
		&InstallmentModel{},
		&DepositBatchModel{},
		&DepositEntryModel{},
	}
}
