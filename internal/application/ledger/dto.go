package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/ledger"
)

// =============================================================================
// Account DTOs
// =============================================================================

// CreateAccountRequest represents a request to create an account
type CreateAccountRequest struct {
	Name           string  `json:"name" binding:"required,min=1,max=100"`
	AccountNumber  *string `json:"account_number" binding:"omitempty,max=100"`
	Description    *string `json:"description"`
	InitialBalance int64   `json:"initial_balance" binding:"min=0"`
}

// UpdateAccountRequest represents a request to update an account
type UpdateAccountRequest struct {
	Name          *string `json:"name" binding:"omitempty,min=1,max=100"`
	AccountNumber *string `json:"account_number" binding:"omitempty,max=100"`
	Description   *string `json:"description"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	AccountNumber *string   `json:"account_number,omitempty"`
	Description   *string   `json:"description,omitempty"`
	IsSystem      bool      `json:"is_system"`
	Balance       *int64    `json:"balance,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ToAccountResponse converts a domain account to a response
func ToAccountResponse(a *ledger.Account) AccountResponse {
	return AccountResponse{
		ID:            a.ID,
		Name:          a.Name,
		AccountNumber: a.AccountNumber,
		Description:   a.Description,
		IsSystem:      a.IsSystem,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// =============================================================================
// Category DTOs
// =============================================================================

// CreateCategoryRequest represents a request to create a category
type CreateCategoryRequest struct {
	Name        string  `json:"name" binding:"required,min=1,max=100"`
	Type        string  `json:"type" binding:"required,category_type"`
	Description *string `json:"description"`
}

// UpdateCategoryRequest represents a request to update a category
type UpdateCategoryRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Type        *string `json:"type" binding:"omitempty,category_type"`
	Description *string `json:"description"`
}

// CategoryResponse represents a category in API responses
type CategoryResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Description *string   `json:"description,omitempty"`
	IsSystem    bool      `json:"is_system"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ToCategoryResponse converts a domain category to a response
func ToCategoryResponse(c *ledger.Category) CategoryResponse {
	return CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Type:        string(c.Type),
		Description: c.Description,
		IsSystem:    c.IsSystem,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// =============================================================================
// Transaction DTOs
// =============================================================================

// CreateTransactionRequest represents a request to record a transaction
type CreateTransactionRequest struct {
	Type          string     `json:"type" binding:"required,ledger_tx_type"`
	AccountID     uuid.UUID  `json:"account_id" binding:"required"`
	ToAccountID   *uuid.UUID `json:"to_account_id"`
	CategoryID    *uuid.UUID `json:"category_id"`
	Amount        int64      `json:"amount" binding:"required,gt=0"`
	Description   *string    `json:"description"`
	AttachmentRef *string    `json:"attachment_ref" binding:"omitempty,max=500"`
	Date          *time.Time `json:"date"`
	CreatedBy     uuid.UUID  `json:"-"`
}

// UpdateTransactionRequest represents a partial update. A zero uuid in
// to_account_id or category_id clears the reference.
type UpdateTransactionRequest struct {
	Type          *string    `json:"type" binding:"omitempty,ledger_tx_type"`
	AccountID     *uuid.UUID `json:"account_id"`
	ToAccountID   *uuid.UUID `json:"to_account_id"`
	CategoryID    *uuid.UUID `json:"category_id"`
	Amount        *int64     `json:"amount" binding:"omitempty,gt=0"`
	Description   *string    `json:"description"`
	AttachmentRef *string    `json:"attachment_ref" binding:"omitempty,max=500"`
	Date          *time.Time `json:"date"`
}

// TransactionListFilter narrows a transaction listing
type TransactionListFilter struct {
	AccountID *uuid.UUID `form:"-"`
	Status    *string    `form:"status" binding:"omitempty,ledger_tx_status"`
	FromDate  *time.Time `form:"from" time_format:"2006-01-02"`
	ToDate    *time.Time `form:"to" time_format:"2006-01-02"`
	Limit     int        `form:"limit" binding:"omitempty,min=1"`
}

// TransactionResponse represents a transaction with its display names
type TransactionResponse struct {
	ID            uuid.UUID  `json:"id"`
	Date          time.Time  `json:"date"`
	Type          string     `json:"type"`
	AccountID     uuid.UUID  `json:"account_id"`
	AccountName   string     `json:"account_name,omitempty"`
	ToAccountID   *uuid.UUID `json:"to_account_id,omitempty"`
	ToAccountName *string    `json:"to_account_name,omitempty"`
	CategoryID    *uuid.UUID `json:"category_id,omitempty"`
	CategoryName  *string    `json:"category_name,omitempty"`
	Amount        int64      `json:"amount"`
	Description   *string    `json:"description,omitempty"`
	AttachmentRef *string    `json:"attachment_ref,omitempty"`
	Status        string     `json:"status"`
	CreatedBy     uuid.UUID  `json:"created_by"`
	CreatorName   *string    `json:"creator_name,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ToTransactionResponse converts a bare transaction to a response
func ToTransactionResponse(t *ledger.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:            t.ID,
		Date:          t.Date,
		Type:          string(t.Type),
		AccountID:     t.AccountID,
		ToAccountID:   t.ToAccountID,
		CategoryID:    t.CategoryID,
		Amount:        t.Amount,
		Description:   t.Description,
		AttachmentRef: t.AttachmentRef,
		Status:        string(t.Status),
		CreatedBy:     t.CreatedBy,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

// ToTransactionViewResponse converts a joined transaction view to a response
func ToTransactionViewResponse(v *ledger.TransactionView) TransactionResponse {
	resp := ToTransactionResponse(&v.Transaction)
	resp.AccountName = v.AccountName
	resp.ToAccountName = v.ToAccountName
	resp.CategoryName = v.CategoryName
	resp.CreatorName = v.CreatorName
	return resp
}

// =============================================================================
// Report DTOs
// =============================================================================

// ReportRequest selects the account and inclusive date range of a report.
// A nil account reports across every account.
type ReportRequest struct {
	AccountID *uuid.UUID `form:"-"`
	StartDate time.Time  `form:"start_date" binding:"required" time_format:"2006-01-02"`
	EndDate   time.Time  `form:"end_date" binding:"required" time_format:"2006-01-02"`
}

// ReportRowResponse is one report line
type ReportRowResponse struct {
	TransactionResponse
	Delta          int64  `json:"delta"`
	RunningBalance int64  `json:"running_balance"`
	AmountDisplay  string `json:"amount_display"`
	BalanceDisplay string `json:"balance_display"`
}

// ReportResponse is a balance-annotated ledger slice
type ReportResponse struct {
	AccountID      *uuid.UUID          `json:"account_id,omitempty"`
	StartDate      time.Time           `json:"start_date"`
	EndDate        time.Time           `json:"end_date"`
	OpeningBalance int64               `json:"opening_balance"`
	TotalIn        int64               `json:"total_in"`
	TotalOut       int64               `json:"total_out"`
	ClosingBalance int64               `json:"closing_balance"`
	Rows           []ReportRowResponse `json:"rows"`
}
