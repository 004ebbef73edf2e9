package loan

import (
	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/shared"
)

// Event type constants
const (
	EventTypeLoanCreated     = "LoanCreated"
	EventTypeLoanApproved    = "LoanApproved"
	EventTypeLoanRejected    = "LoanRejected"
	EventTypeInstallmentPaid = "LoanInstallmentPaid"
	EventTypeLoanDelinquent  = "LoanDelinquent"
)

// AggregateTypeLoan names the loan aggregate in events
const AggregateTypeLoan = "Loan"

// LoanCreatedEvent is raised when a loan request is filed
type LoanCreatedEvent struct {
	shared.BaseDomainEvent
	BorrowerType    BorrowerType `json:"borrower_type"`
	AmountRequested int64        `json:"amount_requested"`
}

// NewLoanCreatedEvent creates a LoanCreatedEvent
func NewLoanCreatedEvent(l *Loan) *LoanCreatedEvent {
	return &LoanCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLoanCreated, AggregateTypeLoan, l.ID, l.CreatedBy),
		BorrowerType:    l.BorrowerType,
		AmountRequested: l.AmountRequested,
	}
}

// LoanApprovedEvent is raised when a loan is disbursed
type LoanApprovedEvent struct {
	shared.BaseDomainEvent
	AmountApproved int64     `json:"amount_approved"`
	AdminFee       int64     `json:"admin_fee"`
	SourceVaultID  uuid.UUID `json:"source_vault_id"`
}

// NewLoanApprovedEvent creates a LoanApprovedEvent
func NewLoanApprovedEvent(l *Loan, actor uuid.UUID) *LoanApprovedEvent {
	e := &LoanApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLoanApproved, AggregateTypeLoan, l.ID, actor),
		AdminFee:        l.AdminFee,
	}
	if l.AmountApproved != nil {
		e.AmountApproved = *l.AmountApproved
	}
	if l.SourceVaultID != nil {
		e.SourceVaultID = *l.SourceVaultID
	}
	return e
}

// LoanRejectedEvent is raised when a loan request is declined
type LoanRejectedEvent struct {
	shared.BaseDomainEvent
	Reason string `json:"reason"`
}

// NewLoanRejectedEvent creates a LoanRejectedEvent
func NewLoanRejectedEvent(l *Loan, actor uuid.UUID) *LoanRejectedEvent {
	e := &LoanRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLoanRejected, AggregateTypeLoan, l.ID, actor),
	}
	if l.RejectionReason != nil {
		e.Reason = *l.RejectionReason
	}
	return e
}

// LoanDelinquentEvent is raised when an approved loan is flagged MACET
type LoanDelinquentEvent struct {
	shared.BaseDomainEvent
	TotalDue int64 `json:"total_due"`
}

// NewLoanDelinquentEvent creates a LoanDelinquentEvent
func NewLoanDelinquentEvent(l *Loan, actor uuid.UUID) *LoanDelinquentEvent {
	return &LoanDelinquentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLoanDelinquent, AggregateTypeLoan, l.ID, actor),
		TotalDue:        l.TotalDue(),
	}
}

// InstallmentPaidEvent is raised when a repayment is recorded
type InstallmentPaidEvent struct {
	shared.BaseDomainEvent
	InstallmentID uuid.UUID `json:"installment_id"`
	Sequence      int       `json:"sequence"`
	Amount        int64     `json:"amount"`
	Remaining     int64     `json:"remaining"`
}

// NewInstallmentPaidEvent creates an InstallmentPaidEvent
func NewInstallmentPaidEvent(l *Loan, in *Installment, remaining int64, actor uuid.UUID) *InstallmentPaidEvent {
	return &InstallmentPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInstallmentPaid, AggregateTypeLoan, l.ID, actor),
		InstallmentID:   in.ID,
		Sequence:        in.Sequence,
		Amount:          in.Amount,
		Remaining:       remaining,
	}
}
