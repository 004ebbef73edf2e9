package loan

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/loan"
)

// CreateLoanRequest represents a request to file a loan. For EMPLOYEE loans
// employee_ref may be either an employee detail id or a user id.
type CreateLoanRequest struct {
	BorrowerType    string     `json:"borrower_type" binding:"required,borrower_type"`
	EmployeeRef     *uuid.UUID `json:"employee_ref"`
	BorrowerName    *string    `json:"borrower_name" binding:"omitempty,max=200"`
	LoanType        string     `json:"loan_type" binding:"required,loan_type"`
	AmountRequested int64      `json:"amount_requested" binding:"required,gt=0"`
	TenorMonths     int        `json:"tenor_months" binding:"omitempty,min=1,max=120"`
	Notes           *string    `json:"notes"`
	CreatedBy       uuid.UUID  `json:"-"`
}

// ApproveLoanRequest approves a pending loan against a cash vault.
// A missing amount approves the requested amount.
type ApproveLoanRequest struct {
	AmountApproved *int64    `json:"amount_approved" binding:"omitempty,gt=0"`
	SourceVaultID  uuid.UUID `json:"source_vault_id" binding:"required"`
	ActorID        uuid.UUID `json:"-"`
}

// RejectLoanRequest declines a pending loan
type RejectLoanRequest struct {
	Reason  string    `json:"reason" binding:"required,min=1,max=500"`
	ActorID uuid.UUID `json:"-"`
}

// AddPaymentRequest records a repayment into a cash vault
type AddPaymentRequest struct {
	Amount        int64     `json:"amount" binding:"required,gt=0"`
	Notes         *string   `json:"notes"`
	TargetVaultID uuid.UUID `json:"target_vault_id" binding:"required"`
	PaymentMethod string    `json:"payment_method" binding:"omitempty,max=50"`
	ActorID       uuid.UUID `json:"-"`
}

// LoanListFilter narrows a loan listing
type LoanListFilter struct {
	Search       string     `form:"search"`
	Status       string     `form:"status" binding:"omitempty,loan_status"`
	BorrowerType string     `form:"borrower_type" binding:"omitempty,borrower_type"`
	EmployeeID   *uuid.UUID `form:"-"`
	Page         int        `form:"page" binding:"omitempty,min=1"`
	PageSize     int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy      string     `form:"order_by"`
	OrderDir     string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// LoanResponse represents a loan with its derived repayment totals
type LoanResponse struct {
	ID               uuid.UUID  `json:"id"`
	BorrowerType     string     `json:"borrower_type"`
	EmployeeID       *uuid.UUID `json:"employee_id,omitempty"`
	EmployeeName     *string    `json:"employee_name,omitempty"`
	BorrowerName     *string    `json:"borrower_name,omitempty"`
	LoanType         string     `json:"loan_type"`
	AmountRequested  int64      `json:"amount_requested"`
	AmountApproved   *int64     `json:"amount_approved,omitempty"`
	AdminFee         int64      `json:"admin_fee"`
	TenorMonths      int        `json:"tenor_months"`
	Status           string     `json:"status"`
	RejectionReason  *string    `json:"rejection_reason,omitempty"`
	DisbursedAt      *time.Time `json:"disbursed_at,omitempty"`
	SourceVaultID    *uuid.UUID `json:"source_vault_id,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
	PaidAmount       int64      `json:"paid_amount"`
	RemainingAmount  int64      `json:"remaining_amount"`
	InstallmentCount int        `json:"installment_count"`
	CreatedBy        uuid.UUID  `json:"created_by"`
	Version          int        `json:"version"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// InstallmentResponse represents a recorded repayment
type InstallmentResponse struct {
	ID            uuid.UUID `json:"id"`
	LoanID        uuid.UUID `json:"loan_id"`
	Sequence      int       `json:"sequence"`
	DueDate       time.Time `json:"due_date"`
	Amount        int64     `json:"amount"`
	Status        string    `json:"status"`
	PaidAt        time.Time `json:"paid_at"`
	PaymentMethod string    `json:"payment_method"`
	Notes         *string   `json:"notes,omitempty"`
	VaultID       uuid.UUID `json:"vault_id"`
}

// PaymentResponse is the result of a repayment
type PaymentResponse struct {
	Installment InstallmentResponse `json:"installment"`
	Loan        LoanResponse        `json:"loan"`
}

// ToLoanResponse converts a loan and its paid total to a response
func ToLoanResponse(l *loan.Loan, paid int64, count int) LoanResponse {
	return LoanResponse{
		ID:               l.ID,
		BorrowerType:     string(l.BorrowerType),
		EmployeeID:       l.EmployeeID,
		BorrowerName:     l.BorrowerName,
		LoanType:         string(l.Type),
		AmountRequested:  l.AmountRequested,
		AmountApproved:   l.AmountApproved,
		AdminFee:         l.AdminFee,
		TenorMonths:      l.TenorMonths,
		Status:           string(l.Status),
		RejectionReason:  l.RejectionReason,
		DisbursedAt:      l.DisbursedAt,
		SourceVaultID:    l.SourceVaultID,
		Notes:            l.Notes,
		PaidAmount:       paid,
		RemainingAmount:  l.RemainingAmount(paid),
		InstallmentCount: count,
		CreatedBy:        l.CreatedBy,
		Version:          l.Version,
		CreatedAt:        l.CreatedAt,
		UpdatedAt:        l.UpdatedAt,
	}
}

// ToLoanSummaryResponse converts a listed loan summary to a response
func ToLoanSummaryResponse(s *loan.Summary) LoanResponse {
	resp := ToLoanResponse(&s.Loan, s.PaidAmount, s.InstallmentCount)
	resp.EmployeeName = s.EmployeeName
	return resp
}

// ToInstallmentResponse converts an installment to a response
func ToInstallmentResponse(in *loan.Installment) InstallmentResponse {
	return InstallmentResponse{
		ID:            in.ID,
		LoanID:        in.LoanID,
		Sequence:      in.Sequence,
		DueDate:       in.DueDate,
		Amount:        in.Amount,
		Status:        string(in.Status),
		PaidAt:        in.PaidAt,
		PaymentMethod: in.PaymentMethod,
		Notes:         in.Notes,
		VaultID:       in.VaultID,
	}
}
