package loan

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/shared"
)

// BorrowerType classifies who receives the loan
type BorrowerType string

const (
	BorrowerEmployee BorrowerType = "EMPLOYEE"
	BorrowerSchool   BorrowerType = "SCHOOL"
	BorrowerExternal BorrowerType = "EXTERNAL"
)

// IsValid checks if the borrower type is valid
func (b BorrowerType) IsValid() bool {
	switch b {
	case BorrowerEmployee, BorrowerSchool, BorrowerExternal:
		return true
	}
	return false
}

// Type is the repayment shape of a loan
type Type string

const (
	TypeCashAdvance Type = "KASBON" // one-shot cash advance
	TypeTerm        Type = "TERM"   // multi-installment term loan
)

// IsValid checks if the loan type is valid
func (t Type) IsValid() bool {
	return t == TypeCashAdvance || t == TypeTerm
}

// Status is the lifecycle state of a loan
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusApproved   Status = "APPROVED"
	StatusRejected   Status = "REJECTED"
	StatusPaidOff    Status = "LUNAS"
	StatusDelinquent Status = "MACET"
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusPaidOff, StatusDelinquent:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if no further transition is possible
func (s Status) IsTerminal() bool {
	return s == StatusRejected || s == StatusPaidOff
}

// AcceptsPayments returns true while repayments can be recorded
func (s Status) AcceptsPayments() bool {
	return s == StatusApproved || s == StatusDelinquent
}

// Loan is a loan request and, once approved, the debt it creates
type Loan struct {
	shared.BaseAggregateRoot
	BorrowerType    BorrowerType
	EmployeeID      *uuid.UUID
	BorrowerName    *string
	Type            Type
	AmountRequested int64
	AmountApproved  *int64
	AdminFee        int64
	TenorMonths     int
	Status          Status
	RejectionReason *string
	DisbursedAt     *time.Time
	SourceVaultID   *uuid.UUID
	Notes           *string
	CreatedBy       uuid.UUID
}

// NewLoanInput carries the fields of a loan request
type NewLoanInput struct {
	BorrowerType    BorrowerType
	EmployeeID      *uuid.UUID // resolved employee detail, required for EMPLOYEE
	BorrowerName    *string    // required otherwise
	Type            Type
	AmountRequested int64
	TenorMonths     int
	Notes           *string
	CreatedBy       uuid.UUID
}

// NewLoan creates a PENDING loan. AmountApproved starts equal to the requested
// amount and only becomes meaningful on approval.
func NewLoan(in NewLoanInput) (*Loan, error) {
	if !in.BorrowerType.IsValid() {
		return nil, shared.NewValidationError("Borrower type must be EMPLOYEE, SCHOOL or EXTERNAL")
	}
	if !in.Type.IsValid() {
		return nil, shared.NewValidationError("Loan type must be KASBON or TERM")
	}
	if in.AmountRequested <= 0 {
		return nil, shared.NewValidationError("Requested amount must be greater than zero")
	}

	l := &Loan{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		BorrowerType:      in.BorrowerType,
		Type:              in.Type,
		AmountRequested:   in.AmountRequested,
		TenorMonths:       in.TenorMonths,
		Status:            StatusPending,
		Notes:             trimmed(in.Notes),
		CreatedBy:         in.CreatedBy,
	}
	approved := in.AmountRequested
	l.AmountApproved = &approved

	if in.BorrowerType == BorrowerEmployee {
		if in.EmployeeID == nil || *in.EmployeeID == uuid.Nil {
			return nil, shared.NewValidationError("Employee reference is required for an employee loan")
		}
		id := *in.EmployeeID
		l.EmployeeID = &id
	} else {
		name := trimmed(in.BorrowerName)
		if name == nil {
			return nil, shared.NewValidationError("Borrower name is required")
		}
		l.BorrowerName = name
	}

	if l.Type == TypeCashAdvance {
		l.TenorMonths = 1
	} else if l.TenorMonths < 1 {
		return nil, shared.NewValidationError("Tenor must be at least one month")
	}

	l.AddDomainEvent(NewLoanCreatedEvent(l))
	return l, nil
}

// Approve disburses the loan. A nil amount approves the requested amount.
func (l *Loan) Approve(amount *int64, adminFee int64, sourceVaultID uuid.UUID, actor uuid.UUID) error {
	if l.Status != StatusPending {
		return shared.NewInvalidStateError("Only pending loans can be approved, current status is %s", l.Status)
	}
	approved := l.AmountRequested
	if amount != nil {
		approved = *amount
	}
	if approved <= 0 {
		return shared.NewValidationError("Approved amount must be greater than zero")
	}
	if adminFee < 0 {
		return shared.NewValidationError("Admin fee cannot be negative")
	}
	now := time.Now()
	l.Status = StatusApproved
	l.AmountApproved = &approved
	l.AdminFee = adminFee
	l.DisbursedAt = &now
	vaultID := sourceVaultID
	l.SourceVaultID = &vaultID
	l.Bump(now)
	l.AddDomainEvent(NewLoanApprovedEvent(l, actor))
	return nil
}

// Reject declines a pending loan with a mandatory reason
func (l *Loan) Reject(reason string, actor uuid.UUID) error {
	if l.Status != StatusPending {
		return shared.NewInvalidStateError("Only pending loans can be rejected, current status is %s", l.Status)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewValidationError("Rejection reason is required")
	}
	l.Status = StatusRejected
	l.RejectionReason = &reason
	l.Bump(time.Now())
	l.AddDomainEvent(NewLoanRejectedEvent(l, actor))
	return nil
}

// RecordPayment builds the next installment. existing is the number of
// installments already recorded; the new one gets sequence existing+1.
func (l *Loan) RecordPayment(existing int, amount int64, method string, notes *string, vaultID uuid.UUID) (*Installment, error) {
	if !l.Status.AcceptsPayments() {
		return nil, shared.NewInvalidStateError("Payments can only be recorded on an approved loan, current status is %s", l.Status)
	}
	if amount <= 0 {
		return nil, shared.NewValidationError("Payment amount must be greater than zero")
	}
	return newPaidInstallment(l, existing+1, amount, method, notes, vaultID), nil
}

// TotalDue is the approved principal plus the admin fee
func (l *Loan) TotalDue() int64 {
	if l.AmountApproved == nil {
		return l.AmountRequested + l.AdminFee
	}
	return *l.AmountApproved + l.AdminFee
}

// RemainingAmount derives what is still owed given the sum of paid installments
func (l *Loan) RemainingAmount(paid int64) int64 {
	return l.TotalDue() - paid
}

// SettleIfRepaid moves the loan to LUNAS once nothing remains
func (l *Loan) SettleIfRepaid(paid int64) bool {
	if !l.Status.AcceptsPayments() || l.RemainingAmount(paid) > 0 {
		return false
	}
	l.Status = StatusPaidOff
	l.Bump(time.Now())
	return true
}

// MarkDelinquent flags an approved loan as MACET
func (l *Loan) MarkDelinquent(actor uuid.UUID) error {
	if l.Status != StatusApproved {
		return shared.NewInvalidStateError("Only approved loans can be marked delinquent, current status is %s", l.Status)
	}
	l.Status = StatusDelinquent
	l.Bump(time.Now())
	l.AddDomainEvent(NewLoanDelinquentEvent(l, actor))
	return nil
}

// Borrower returns the display name for non-employee borrowers
func (l *Loan) Borrower() string {
	if l.BorrowerName != nil {
		return *l.BorrowerName
	}
	return ""
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
