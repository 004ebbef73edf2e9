package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AccountBalance pairs an account with its replayed balance
type AccountBalance struct {
	Account
	Balance int64
}

// TransactionFilter defines filtering options for transaction queries
type TransactionFilter struct {
	AccountID *uuid.UUID         // source OR destination
	Status    *TransactionStatus // Filter by status
	FromDate  *time.Time         // inclusive
	ToDate    *time.Time         // inclusive
	Limit     int
}

// AccountRepository defines the interface for account persistence
type AccountRepository interface {
	// FindByID finds an account by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// FindAll lists every account ordered by name
	FindAll(ctx context.Context) ([]Account, error)

	// FindAllWithBalance lists accounts with their balance derived from approved transactions
	FindAllWithBalance(ctx context.Context) ([]AccountBalance, error)

	// Balance sums the approved transactions touching one account
	Balance(ctx context.Context, id uuid.UUID) (int64, error)

	// Save creates or updates an account
	Save(ctx context.Context, account *Account) error

	// Delete hard deletes an account
	Delete(ctx context.Context, id uuid.UUID) error
}

// CategoryRepository defines the interface for category persistence
type CategoryRepository interface {
	// FindByID finds a category by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Category, error)

	// FindAll lists categories, optionally restricted to one type
	FindAll(ctx context.Context, categoryType *CategoryType) ([]Category, error)

	// Save creates or updates a category
	Save(ctx context.Context, category *Category) error

	// Delete hard deletes a category
	Delete(ctx context.Context, id uuid.UUID) error
}

// TransactionRepository defines the interface for transaction persistence
type TransactionRepository interface {
	// FindByID finds a transaction by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// FindViews lists transactions joined with display names, newest first
	FindViews(ctx context.Context, filter TransactionFilter) ([]TransactionView, error)

	// FindApprovedInRange returns approved transactions dated within [from, to],
	// optionally restricted to one account, oldest first
	FindApprovedInRange(ctx context.Context, accountID *uuid.UUID, from, to time.Time) ([]TransactionView, error)

	// SumApprovedBefore derives the balance carried into a report starting at before
	SumApprovedBefore(ctx context.Context, accountID *uuid.UUID, before time.Time) (int64, error)

	// CountByAccount counts transactions referencing the account on either leg
	CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)

	// CountByCategory counts transactions classified under the category
	CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)

	// Save creates or updates a transaction
	Save(ctx context.Context, tx *Transaction) error

	// Delete hard deletes a transaction
	Delete(ctx context.Context, id uuid.UUID) error
}
