package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/loan"
)

// LoanModel is the persistence model for the Loan aggregate root
type LoanModel struct {
	AggregateModel
	BorrowerType    loan.BorrowerType `gorm:"type:varchar(10);not null;index"`
	EmployeeID      *uuid.UUID        `gorm:"type:uuid;index"`
	BorrowerName    *string           `gorm:"type:varchar(200)"`
	LoanType        loan.Type         `gorm:"column:loan_type;type:varchar(10);not null"`
	AmountRequested int64             `gorm:"not null"`
	AmountApproved  *int64
	AdminFee        int64       `gorm:"not null;default:0"`
	TenorMonths     int         `gorm:"not null;default:1"`
	Status          loan.Status `gorm:"type:varchar(10);not null;default:'PENDING';index"`
	RejectionReason *string     `gorm:"type:text"`
	DisbursedAt     *time.Time
	SourceVaultID   *uuid.UUID `gorm:"type:uuid"`
	Notes           *string    `gorm:"type:text"`
	CreatedBy       uuid.UUID  `gorm:"type:uuid;not null"`
}

// TableName returns the table name for GORM
func (LoanModel) TableName() string {
	return "loans"
}

// ToDomain converts the persistence model to a domain Loan
func (m *LoanModel) ToDomain() *loan.Loan {
	return &loan.Loan{
		BaseAggregateRoot: m.Aggregate(),
		BorrowerType:      m.BorrowerType,
		EmployeeID:        m.EmployeeID,
		BorrowerName:      m.BorrowerName,
		Type:              m.LoanType,
		AmountRequested:   m.AmountRequested,
		AmountApproved:    m.AmountApproved,
		AdminFee:          m.AdminFee,
		TenorMonths:       m.TenorMonths,
		Status:            m.Status,
		RejectionReason:   m.RejectionReason,
		DisbursedAt:       m.DisbursedAt,
		SourceVaultID:     m.SourceVaultID,
		Notes:             m.Notes,
		CreatedBy:         m.CreatedBy,
	}
}

// FromDomain populates the persistence model from a domain Loan
func (m *LoanModel) FromDomain(l *loan.Loan) {
	m.SetAggregate(l.BaseAggregateRoot)
	m.BorrowerType = l.BorrowerType
	m.EmployeeID = l.EmployeeID
	m.BorrowerName = l.BorrowerName
	m.LoanType = l.Type
	m.AmountRequested = l.AmountRequested
	m.AmountApproved = l.AmountApproved
	m.AdminFee = l.AdminFee
	m.TenorMonths = l.TenorMonths
	m.Status = l.Status
	m.RejectionReason = l.RejectionReason
	m.DisbursedAt = l.DisbursedAt
	m.SourceVaultID = l.SourceVaultID
	m.Notes = l.Notes
	m.CreatedBy = l.CreatedBy
}

// LoanModelFromDomain creates a new persistence model from domain
func LoanModelFromDomain(l *loan.Loan) *LoanModel {
	m := &LoanModel{}
	m.FromDomain(l)
	return m
}

// LoanSummaryRow is the scan target for loans joined with installment totals
type LoanSummaryRow struct {
	LoanModel
	EmployeeName     *string
	PaidAmount       int64
	InstallmentCount int
}

// ToDomain converts the joined row to a domain Summary
func (r *LoanSummaryRow) ToDomain() loan.Summary {
	return loan.Summary{
		Loan:             *r.LoanModel.ToDomain(),
		EmployeeName:     r.EmployeeName,
		PaidAmount:       r.PaidAmount,
		InstallmentCount: r.InstallmentCount,
	}
}

// InstallmentModel is the persistence model for a loan installment
type InstallmentModel struct {
	BaseModel
	LoanID        uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_installment_loan_seq,priority:1"`
	Sequence      int                    `gorm:"not null;uniqueIndex:idx_installment_loan_seq,priority:2"`
	DueDate       time.Time              `gorm:"not null"`
	Amount        int64                  `gorm:"not null"`
	Status        loan.InstallmentStatus `gorm:"type:varchar(10);not null;default:'PAID'"`
	PaidAt        time.Time              `gorm:"not null"`
	PaymentMethod string                 `gorm:"type:varchar(20);not null;default:'CASH'"`
	Notes         *string                `gorm:"type:text"`
	VaultID       uuid.UUID              `gorm:"type:uuid;not null"`
}

// TableName returns the table name for GORM
func (InstallmentModel) TableName() string {
	return "loan_installments"
}

// ToDomain converts the persistence model to a domain Installment
func (m *InstallmentModel) ToDomain() *loan.Installment {
	return &loan.Installment{
		BaseEntity:    m.Entity(),
		LoanID:        m.LoanID,
		Sequence:      m.Sequence,
		DueDate:       m.DueDate,
		Amount:        m.Amount,
		Status:        m.Status,
		PaidAt:        m.PaidAt,
		PaymentMethod: m.PaymentMethod,
		Notes:         m.Notes,
		VaultID:       m.VaultID,
	}
}

// InstallmentModelFromDomain creates a new persistence model from domain
func InstallmentModelFromDomain(in *loan.Installment) *InstallmentModel {
	m := &InstallmentModel{
		LoanID:        in.LoanID,
		Sequence:      in.Sequence,
		DueDate:       in.DueDate,
		Amount:        in.Amount,
		Status:        in.Status,
		PaidAt:        in.PaidAt,
		PaymentMethod: in.PaymentMethod,
		Notes:         in.Notes,
		VaultID:       in.VaultID,
	}
	m.SetEntity(in.BaseEntity)
	return m
}
