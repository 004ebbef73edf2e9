package loan

import (
	"context"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/shared"
)

// Filter defines filtering options for loan queries
type Filter struct {
	shared.PageRequest
	Status       *Status
	BorrowerType *BorrowerType
	EmployeeID   *uuid.UUID
}

// Summary is a loan with the totals derived from its installments
type Summary struct {
	Loan
	EmployeeName     *string
	PaidAmount       int64
	InstallmentCount int
}

// RemainingAmount derives the outstanding balance
func (s *Summary) RemainingAmount() int64 {
	return s.Loan.RemainingAmount(s.PaidAmount)
}

// Repository defines the interface for loan persistence
type Repository interface {
	// FindByID finds a loan by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Loan, error)

	// FindByIDForUpdate finds a loan and locks its row until the surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Loan, error)

	// FindSummaries lists loans with their paid totals
	FindSummaries(ctx context.Context, filter Filter) ([]Summary, error)

	// Count counts loans matching the filter
	Count(ctx context.Context, filter Filter) (int64, error)

	// Create inserts a new loan
	Create(ctx context.Context, l *Loan) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, l *Loan) error
}

// InstallmentRepository defines the interface for installment persistence
type InstallmentRepository interface {
	// FindByLoan lists installments of a loan by sequence
	FindByLoan(ctx context.Context, loanID uuid.UUID) ([]Installment, error)

	// CountByLoan counts installments of a loan
	CountByLoan(ctx context.Context, loanID uuid.UUID) (int64, error)

	// SumPaidByLoan totals the paid installments of a loan
	SumPaidByLoan(ctx context.Context, loanID uuid.UUID) (int64, error)

	// Create inserts an installment
	Create(ctx context.Context, in *Installment) error
}
