package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/ledger"
	"github.com/schoolfund/backend/internal/domain/shared"
	"github.com/schoolfund/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// accountDeltaSQL is the signed contribution of transactions row t to account ?.
// It takes the account id three times.
const accountDeltaSQL = `CASE
	WHEN t.type = 'INCOME' AND t.account_id = ? THEN t.amount
	WHEN t.type IN ('EXPENSE', 'TRANSFER') AND t.account_id = ? THEN -t.amount
	WHEN t.type = 'TRANSFER' AND t.to_account_id = ? THEN t.amount
	ELSE 0 END`

// netDeltaSQL is the contribution of transactions row t to the institution; transfers net to zero
const netDeltaSQL = `CASE
	WHEN t.type = 'INCOME' THEN t.amount
	WHEN t.type = 'EXPENSE' THEN -t.amount
	ELSE 0 END`

// approvedSum selects the approved net movement of one account, or of the
// institution when accountID is nil
func approvedSum(db *gorm.DB, accountID *uuid.UUID) *gorm.DB {
	query := db.Table("transactions AS t").Where("t.status = ?", ledger.TransactionStatusApproved)
	if accountID == nil {
		return query.Select("COALESCE(SUM(" + netDeltaSQL + "), 0)")
	}
	id := *accountID
	return query.Select("COALESCE(SUM("+accountDeltaSQL+"), 0)", id, id, id).
		Where("(t.account_id = ? OR t.to_account_id = ?)", id, id)
}

// GormAccountRepository implements ledger.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByID finds an account by its ID
func (r *GormAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists every account ordered by name
func (r *GormAccountRepository) FindAll(ctx context.Context) ([]ledger.Account, error) {
	var accountModels []models.AccountModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&accountModels).Error; err != nil {
		return nil, err
	}
	accounts := make([]ledger.Account, len(accountModels))
	for i, model := range accountModels {
		accounts[i] = *model.ToDomain()
	}
	return accounts, nil
}

// FindAllWithBalance lists accounts with balances replayed from approved transactions in SQL
func (r *GormAccountRepository) FindAllWithBalance(ctx context.Context) ([]ledger.AccountBalance, error) {
	var rows []models.AccountBalanceRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT a.*, COALESCE(SUM(CASE
			WHEN t.type = 'INCOME' AND t.account_id = a.id THEN t.amount
			WHEN t.type IN ('EXPENSE', 'TRANSFER') AND t.account_id = a.id THEN -t.amount
			WHEN t.type = 'TRANSFER' AND t.to_account_id = a.id THEN t.amount
			ELSE 0 END), 0) AS balance
		FROM accounts a
		LEFT JOIN transactions t
			ON (t.account_id = a.id OR t.to_account_id = a.id) AND t.status = ?
		GROUP BY a.id
		ORDER BY a.name ASC`, ledger.TransactionStatusApproved).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	balances := make([]ledger.AccountBalance, len(rows))
	for i := range rows {
		balances[i] = rows[i].ToDomain()
	}
	return balances, nil
}

// Balance sums the approved transactions touching one account
func (r *GormAccountRepository) Balance(ctx context.Context, id uuid.UUID) (int64, error) {
	var total int64
	if err := approvedSum(r.db.WithContext(ctx), &id).Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// Save creates or updates an account
func (r *GormAccountRepository) Save(ctx context.Context, account *ledger.Account) error {
	model := models.AccountModelFromDomain(account)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete hard deletes an account
func (r *GormAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.AccountModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GormCategoryRepository implements ledger.CategoryRepository using GORM
type GormCategoryRepository struct {
	db *gorm.DB
}

// NewGormCategoryRepository creates a new GormCategoryRepository
func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

// FindByID finds a category by its ID
func (r *GormCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Category, error) {
	var model models.CategoryModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists categories ordered by type and name
func (r *GormCategoryRepository) FindAll(ctx context.Context, categoryType *ledger.CategoryType) ([]ledger.Category, error) {
	var categoryModels []models.CategoryModel
	query := r.db.WithContext(ctx).Model(&models.CategoryModel{})
	if categoryType != nil {
		query = query.Where("type = ?", *categoryType)
	}
	if err := query.Order("type ASC, name ASC").Find(&categoryModels).Error; err != nil {
		return nil, err
	}
	categories := make([]ledger.Category, len(categoryModels))
	for i, model := range categoryModels {
		categories[i] = *model.ToDomain()
	}
	return categories, nil
}

// Save creates or updates a category
func (r *GormCategoryRepository) Save(ctx context.Context, category *ledger.Category) error {
	model := models.CategoryModelFromDomain(category)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete hard deletes a category
func (r *GormCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.CategoryModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GormTransactionRepository implements ledger.TransactionRepository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// FindByID finds a transaction by its ID
func (r *GormTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	var model models.TransactionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// viewQuery selects transactions joined with the names the listing shows
func (r *GormTransactionRepository) viewQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("transactions AS t").
		Select(`t.*,
			a.name AS account_name,
			ta.name AS to_account_name,
			c.name AS category_name,
			u.display_name AS creator_name`).
		Joins("JOIN accounts a ON a.id = t.account_id").
		Joins("LEFT JOIN accounts ta ON ta.id = t.to_account_id").
		Joins("LEFT JOIN categories c ON c.id = t.category_id").
		Joins("LEFT JOIN users u ON u.id = t.created_by")
}

// FindViews lists transactions joined with display names, newest first
func (r *GormTransactionRepository) FindViews(ctx context.Context, filter ledger.TransactionFilter) ([]ledger.TransactionView, error) {
	query := r.viewQuery(ctx)
	if filter.AccountID != nil {
		query = query.Where("(t.account_id = ? OR t.to_account_id = ?)", *filter.AccountID, *filter.AccountID)
	}
	if filter.Status != nil {
		query = query.Where("t.status = ?", *filter.Status)
	}
	if filter.FromDate != nil {
		query = query.Where("t.date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("t.date <= ?", *filter.ToDate)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []models.TransactionViewRow
	if err := query.Order("t.date DESC, t.created_at DESC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return toViews(rows), nil
}

// FindApprovedInRange returns approved transactions dated within [from, to], oldest first
func (r *GormTransactionRepository) FindApprovedInRange(ctx context.Context, accountID *uuid.UUID, from, to time.Time) ([]ledger.TransactionView, error) {
	query := r.viewQuery(ctx).
		Where("t.status = ?", ledger.TransactionStatusApproved).
		Where("t.date >= ? AND t.date <= ?", from, to)
	if accountID != nil {
		query = query.Where("(t.account_id = ? OR t.to_account_id = ?)", *accountID, *accountID)
	}

	var rows []models.TransactionViewRow
	if err := query.Order("t.date ASC, t.created_at ASC, t.id ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return toViews(rows), nil
}

// SumApprovedBefore derives the balance carried into a period starting at before
func (r *GormTransactionRepository) SumApprovedBefore(ctx context.Context, accountID *uuid.UUID, before time.Time) (int64, error) {
	var total int64
	err := approvedSum(r.db.WithContext(ctx), accountID).
		Where("t.date < ?", before).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

// CountByAccount counts transactions referencing the account on either leg
func (r *GormTransactionRepository) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TransactionModel{}).
		Where("account_id = ? OR to_account_id = ?", accountID, accountID).
		Count(&count).Error
	return count, err
}

// CountByCategory counts transactions classified under the category
func (r *GormTransactionRepository) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TransactionModel{}).
		Where("category_id = ?", categoryID).
		Count(&count).Error
	return count, err
}

// Save creates or updates a transaction
func (r *GormTransactionRepository) Save(ctx context.Context, tx *ledger.Transaction) error {
	model := models.TransactionModelFromDomain(tx)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete hard deletes a transaction
func (r *GormTransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.TransactionModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func toViews(rows []models.TransactionViewRow) []ledger.TransactionView {
	views := make([]ledger.TransactionView, len(rows))
	for i := range rows {
		views[i] = rows[i].ToDomain()
	}
	return views
}

// Ensure the repositories implement their domain interfaces
var (
	_ ledger.AccountRepository     = (*GormAccountRepository)(nil)
	_ ledger.CategoryRepository    = (*GormCategoryRepository)(nil)
	_ ledger.TransactionRepository = (*GormTransactionRepository)(nil)
)
