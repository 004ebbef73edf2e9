package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/loan"
	"github.com/schoolfund/backend/internal/domain/shared"
	"github.com/schoolfund/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLoanRepository implements loan.Repository using GORM
type GormLoanRepository struct {
	db *gorm.DB
}

// NewGormLoanRepository creates a new GormLoanRepository
func NewGormLoanRepository(db *gorm.DB) *GormLoanRepository {
	return &GormLoanRepository{db: db}
}

// FindByID finds a loan by its ID
func (r *GormLoanRepository) FindByID(ctx context.Context, id uuid.UUID) (*loan.Loan, error) {
	var model models.LoanModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate finds a loan and locks its row for the surrounding transaction
func (r *GormLoanRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*loan.Loan, error) {
	var model models.LoanModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindSummaries lists loans joined with the employee name and installment totals
func (r *GormLoanRepository) FindSummaries(ctx context.Context, filter loan.Filter) ([]loan.Summary, error) {
	query := r.db.WithContext(ctx).
		Table("loans AS l").
		Select(`l.*,
			e.full_name AS employee_name,
			COALESCE(i.paid_amount, 0) AS paid_amount,
			COALESCE(i.installment_count, 0) AS installment_count`).
		Joins("LEFT JOIN employee_details e ON e.id = l.employee_id").
		Joins(`LEFT JOIN (
			SELECT loan_id, SUM(amount) AS paid_amount, COUNT(*) AS installment_count
			FROM loan_installments
			WHERE status = ?
			GROUP BY loan_id
		) i ON i.loan_id = l.id`, loan.InstallmentStatusPaid)
	query = applyLoanFilter(query, filter)

	query = query.Order(loanSortColumns.orderBy("l", filter.OrderBy, filter.OrderDir, "created_at"))

	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize).Offset(filter.Offset())
	}

	var rows []models.LoanSummaryRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	summaries := make([]loan.Summary, len(rows))
	for i := range rows {
		summaries[i] = rows[i].ToDomain()
	}
	return summaries, nil
}

// Count counts loans matching the filter
func (r *GormLoanRepository) Count(ctx context.Context, filter loan.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Table("loans AS l")
	query = applyLoanFilter(query, filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Create inserts a new loan
func (r *GormLoanRepository) Create(ctx context.Context, l *loan.Loan) error {
	return r.db.WithContext(ctx).Create(models.LoanModelFromDomain(l)).Error
}

// SaveWithLock saves with optimistic locking. The domain bumps the version
// once per transition, so the stored row must still carry Version-1.
func (r *GormLoanRepository) SaveWithLock(ctx context.Context, l *loan.Loan) error {
	result := r.db.WithContext(ctx).
		Model(&models.LoanModel{}).
		Where("id = ? AND version = ?", l.ID, l.Version-1).
		Updates(map[string]interface{}{
			"amount_approved":  l.AmountApproved,
			"admin_fee":        l.AdminFee,
			"status":           l.Status,
			"rejection_reason": l.RejectionReason,
			"disbursed_at":     l.DisbursedAt,
			"source_vault_id":  l.SourceVaultID,
			"notes":            l.Notes,
			"version":          l.Version,
			"updated_at":       l.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

func applyLoanFilter(query *gorm.DB, filter loan.Filter) *gorm.DB {
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("LOWER(l.borrower_name) LIKE LOWER(?)", pattern)
	}
	if filter.Status != nil {
		query = query.Where("l.status = ?", *filter.Status)
	}
	if filter.BorrowerType != nil {
		query = query.Where("l.borrower_type = ?", *filter.BorrowerType)
	}
	if filter.EmployeeID != nil {
		query = query.Where("l.employee_id = ?", *filter.EmployeeID)
	}
	return query
}

// GormInstallmentRepository implements loan.InstallmentRepository using GORM
type GormInstallmentRepository struct {
	db *gorm.DB
}

// NewGormInstallmentRepository creates a new GormInstallmentRepository
func NewGormInstallmentRepository(db *gorm.DB) *GormInstallmentRepository {
	return &GormInstallmentRepository{db: db}
}

// FindByLoan lists installments of a loan by sequence
func (r *GormInstallmentRepository) FindByLoan(ctx context.Context, loanID uuid.UUID) ([]loan.Installment, error) {
	var installmentModels []models.InstallmentModel
	if err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("sequence ASC").
		Find(&installmentModels).Error; err != nil {
		return nil, err
	}
	installments := make([]loan.Installment, len(installmentModels))
	for i, model := range installmentModels {
		installments[i] = *model.ToDomain()
	}
	return installments, nil
}

// CountByLoan counts installments of a loan
func (r *GormInstallmentRepository) CountByLoan(ctx context.Context, loanID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.InstallmentModel{}).
		Where("loan_id = ?", loanID).
		Count(&count).Error
	return count, err
}

// SumPaidByLoan totals the paid installments of a loan
func (r *GormInstallmentRepository) SumPaidByLoan(ctx context.Context, loanID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.InstallmentModel{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("loan_id = ? AND status = ?", loanID, loan.InstallmentStatusPaid).
		Scan(&total).Error
	return total, err
}

// Create inserts an installment
func (r *GormInstallmentRepository) Create(ctx context.Context, in *loan.Installment) error {
	return r.db.WithContext(ctx).Create(models.InstallmentModelFromDomain(in)).Error
}

// Ensure the repositories implement their domain interfaces
var (
	_ loan.Repository            = (*GormLoanRepository)(nil)
	_ loan.InstallmentRepository = (*GormInstallmentRepository)(nil)
)
