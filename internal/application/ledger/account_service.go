package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/ledger"
	"github.com/schoolfund/backend/internal/domain/shared"
	"github.com/schoolfund/backend/internal/infrastructure/telemetry"
)

// AccountService handles account and category bookkeeping
type AccountService struct {
	accountRepo  ledger.AccountRepository
	categoryRepo ledger.CategoryRepository
	txScope      TransactionScope
}

// NewAccountService creates a new AccountService
func NewAccountService(accountRepo ledger.AccountRepository, categoryRepo ledger.CategoryRepository, txScope TransactionScope) *AccountService {
	return &AccountService{
		accountRepo:  accountRepo,
		categoryRepo: categoryRepo,
		txScope:      txScope,
	}
}

// CreateAccount creates an account. A positive initial balance is recorded as
// an approved INCOME transaction committed together with the account.
func (s *AccountService) CreateAccount(ctx context.Context, req CreateAccountRequest, actor uuid.UUID) (*AccountResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "create_account")
	defer span.End()

	if req.InitialBalance < 0 {
		return nil, shared.NewValidationError("Initial balance cannot be negative")
	}
	account, err := ledger.NewAccount(req.Name, req.AccountNumber, req.Description)
	if err != nil {
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAccountID, account.ID.String(),
		telemetry.SpanAttrAmount, req.InitialBalance,
	)

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.AccountRepo().Save(ctx, account); err != nil {
			return fmt.Errorf("save account: %w", err)
		}
		if req.InitialBalance == 0 {
			return nil
		}
		opening, err := account.OpeningTransaction(req.InitialBalance, actor)
		if err != nil {
			return err
		}
		if err := repos.LedgerTransactionRepo().Save(ctx, opening); err != nil {
			return fmt.Errorf("save opening transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	resp := ToAccountResponse(account)
	balance := req.InitialBalance
	resp.Balance = &balance
	return &resp, nil
}

// GetAccount returns one account with its derived balance
func (s *AccountService) GetAccount(ctx context.Context, id uuid.UUID) (*AccountResponse, error) {
	account, err := s.accountRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	balance, err := s.accountRepo.Balance(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("account balance: %w", err)
	}
	resp := ToAccountResponse(account)
	resp.Balance = &balance
	return &resp, nil
}

// ListAccounts returns every account with its derived balance
func (s *AccountService) ListAccounts(ctx context.Context) ([]AccountResponse, error) {
	rows, err := s.accountRepo.FindAllWithBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]AccountResponse, len(rows))
	for i := range rows {
		out[i] = ToAccountResponse(&rows[i].Account)
		balance := rows[i].Balance
		out[i].Balance = &balance
	}
	return out, nil
}

// AccountBalance replays the approved transactions touching one account
func (s *AccountService) AccountBalance(ctx context.Context, id uuid.UUID) (int64, error) {
	if _, err := s.accountRepo.FindByID(ctx, id); err != nil {
		return 0, err
	}
	balance, err := s.accountRepo.Balance(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("account balance: %w", err)
	}
	return balance, nil
}

// UpdateAccount overwrites the fields present in the request
func (s *AccountService) UpdateAccount(ctx context.Context, id uuid.UUID, req UpdateAccountRequest) (*AccountResponse, error) {
	account, err := s.accountRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := account.Update(req.Name, req.AccountNumber, req.Description); err != nil {
		return nil, err
	}
	if err := s.accountRepo.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("save account: %w", err)
	}
	resp := ToAccountResponse(account)
	return &resp, nil
}

// DeleteAccount hard deletes an account that is neither system-protected nor
// referenced by any transaction.
func (s *AccountService) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "delete_account")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrAccountID, id.String())

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		account, err := repos.AccountRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := account.CanDelete(); err != nil {
			return err
		}
		used, err := repos.LedgerTransactionRepo().CountByAccount(ctx, id)
		if err != nil {
			return fmt.Errorf("count account transactions: %w", err)
		}
		if used > 0 {
			return shared.NewConstraintError("Cannot delete account %q: it has transaction history", account.Name)
		}
		return repos.AccountRepo().Delete(ctx, id)
	})
	telemetry.RecordError(span, err)
	return err
}

// CreateCategory creates a budget category
func (s *AccountService) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*CategoryResponse, error) {
	category, err := ledger.NewCategory(req.Name, ledger.CategoryType(req.Type), req.Description)
	if err != nil {
		return nil, err
	}
	if err := s.categoryRepo.Save(ctx, category); err != nil {
		return nil, fmt.Errorf("save category: %w", err)
	}
	resp := ToCategoryResponse(category)
	return &resp, nil
}

// ListCategories lists categories, optionally of one type
func (s *AccountService) ListCategories(ctx context.Context, categoryType *string) ([]CategoryResponse, error) {
	var filter *ledger.CategoryType
	if categoryType != nil && *categoryType != "" {
		t := ledger.CategoryType(*categoryType)
		if !t.IsValid() {
			return nil, shared.NewValidationError("Category type must be INCOME or EXPENSE")
		}
		filter = &t
	}
	categories, err := s.categoryRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]CategoryResponse, len(categories))
	for i := range categories {
		out[i] = ToCategoryResponse(&categories[i])
	}
	return out, nil
}

// UpdateCategory overwrites the fields present in the request
func (s *AccountService) UpdateCategory(ctx context.Context, id uuid.UUID, req UpdateCategoryRequest) (*CategoryResponse, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	var categoryType *ledger.CategoryType
	if req.Type != nil {
		t := ledger.CategoryType(*req.Type)
		categoryType = &t
	}
	if err := category.Update(req.Name, categoryType, req.Description); err != nil {
		return nil, err
	}
	if err := s.categoryRepo.Save(ctx, category); err != nil {
		return nil, fmt.Errorf("save category: %w", err)
	}
	resp := ToCategoryResponse(category)
	return &resp, nil
}

// DeleteCategory hard deletes a category no transaction is classified under
func (s *AccountService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		category, err := repos.CategoryRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := category.CanDelete(); err != nil {
			return err
		}
		used, err := repos.LedgerTransactionRepo().CountByCategory(ctx, id)
		if err != nil {
			return fmt.Errorf("count category transactions: %w", err)
		}
		if used > 0 {
			return shared.NewConstraintError("Cannot delete category %q: it has transaction history", category.Name)
		}
		return repos.CategoryRepo().Delete(ctx, id)
	})
}
