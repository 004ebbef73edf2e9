package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/ledger"
)

// AccountModel is the persistence model for a ledger account
type AccountModel struct {
	BaseModel
	Name          string  `gorm:"type:varchar(100);not null"`
	AccountNumber *string `gorm:"type:varchar(100)"`
	Description   *string `gorm:"type:text"`
	IsSystem      bool    `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the persistence model to a domain Account
func (m *AccountModel) ToDomain() *ledger.Account {
	return &ledger.Account{
		BaseEntity:    m.Entity(),
		Name:          m.Name,
		AccountNumber: m.AccountNumber,
		Description:   m.Description,
		IsSystem:      m.IsSystem,
	}
}

// FromDomain populates the persistence model from a domain Account
func (m *AccountModel) FromDomain(a *ledger.Account) {
	m.SetEntity(a.BaseEntity)
	m.Name = a.Name
	m.AccountNumber = a.AccountNumber
	m.Description = a.Description
	m.IsSystem = a.IsSystem
}

// AccountModelFromDomain creates a new persistence model from domain
func AccountModelFromDomain(a *ledger.Account) *AccountModel {
	m := &AccountModel{}
	m.FromDomain(a)
	return m
}

// CategoryModel is the persistence model for a budget category
type CategoryModel struct {
	BaseModel
	Name        string              `gorm:"type:varchar(100);not null"`
	Type        ledger.CategoryType `gorm:"type:varchar(10);not null;index"`
	Description *string             `gorm:"type:text"`
	IsSystem    bool                `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (CategoryModel) TableName() string {
	return "categories"
}

// ToDomain converts the persistence model to a domain Category
func (m *CategoryModel) ToDomain() *ledger.Category {
	return &ledger.Category{
		BaseEntity:  m.Entity(),
		Name:        m.Name,
		Type:        m.Type,
		Description: m.Description,
		IsSystem:    m.IsSystem,
	}
}

// FromDomain populates the persistence model from a domain Category
func (m *CategoryModel) FromDomain(c *ledger.Category) {
	m.SetEntity(c.BaseEntity)
	m.Name = c.Name
	m.Type = c.Type
	m.Description = c.Description
	m.IsSystem = c.IsSystem
}

// CategoryModelFromDomain creates a new persistence model from domain
func CategoryModelFromDomain(c *ledger.Category) *CategoryModel {
	m := &CategoryModel{}
	m.FromDomain(c)
	return m
}

// TransactionModel is the persistence model for a ledger transaction
type TransactionModel struct {
	BaseModel
	Date          time.Time                `gorm:"not null;index"`
	Type          ledger.TransactionType   `gorm:"type:varchar(10);not null"`
	AccountID     uuid.UUID                `gorm:"type:uuid;not null;index"`
	ToAccountID   *uuid.UUID               `gorm:"type:uuid;index"`
	CategoryID    *uuid.UUID               `gorm:"type:uuid;index"`
	Amount        int64                    `gorm:"not null"`
	Description   *string                  `gorm:"type:text"`
	AttachmentRef *string                  `gorm:"type:varchar(500)"`
	Status        ledger.TransactionStatus `gorm:"type:varchar(10);not null;default:'APPROVED';index"`
	CreatedBy     uuid.UUID                `gorm:"type:uuid;not null"`
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "transactions"
}

// ToDomain converts the persistence model to a domain Transaction
func (m *TransactionModel) ToDomain() *ledger.Transaction {
	return &ledger.Transaction{
		BaseEntity:    m.Entity(),
		Date:          m.Date,
		Type:          m.Type,
		AccountID:     m.AccountID,
		ToAccountID:   m.ToAccountID,
		CategoryID:    m.CategoryID,
		Amount:        m.Amount,
		Description:   m.Description,
		AttachmentRef: m.AttachmentRef,
		Status:        m.Status,
		CreatedBy:     m.CreatedBy,
	}
}

// FromDomain populates the persistence model from a domain Transaction
func (m *TransactionModel) FromDomain(t *ledger.Transaction) {
	m.SetEntity(t.BaseEntity)
	m.Date = t.Date
	m.Type = t.Type
	m.AccountID = t.AccountID
	m.ToAccountID = t.ToAccountID
	m.CategoryID = t.CategoryID
	m.Amount = t.Amount
	m.Description = t.Description
	m.AttachmentRef = t.AttachmentRef
	m.Status = t.Status
	m.CreatedBy = t.CreatedBy
}

// TransactionModelFromDomain creates a new persistence model from domain
func TransactionModelFromDomain(t *ledger.Transaction) *TransactionModel {
	m := &TransactionModel{}
	m.FromDomain(t)
	return m
}

// TransactionViewRow is the scan target for transactions joined with names
type TransactionViewRow struct {
	TransactionModel
	AccountName   string
	ToAccountName *string
	CategoryName  *string
	CreatorName   *string
}

// ToDomain converts the joined row to a domain TransactionView
func (r *TransactionViewRow) ToDomain() ledger.TransactionView {
	return ledger.TransactionView{
		Transaction:   *r.TransactionModel.ToDomain(),
		AccountName:   r.AccountName,
		ToAccountName: r.ToAccountName,
		CategoryName:  r.CategoryName,
		CreatorName:   r.CreatorName,
	}
}

// AccountBalanceRow is the scan target for accounts with an aggregated balance
type AccountBalanceRow struct {
	AccountModel
	Balance int64
}

// ToDomain converts the aggregated row to a domain AccountBalance
func (r *AccountBalanceRow) ToDomain() ledger.AccountBalance {
	return ledger.AccountBalance{
		Account: *r.AccountModel.ToDomain(),
		Balance: r.Balance,
	}
}
