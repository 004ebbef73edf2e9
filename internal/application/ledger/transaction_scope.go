package ledger

import (
	"context"

	"github.com/schoolfund/backend/internal/domain/ledger"
)

// TransactionScope runs ledger writes inside one database transaction.
// If fn returns an error every write made through repos is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories are ledger repositories bound to one transaction
type TransactionalRepositories interface {
	AccountRepo() ledger.AccountRepository
	CategoryRepo() ledger.CategoryRepository
	LedgerTransactionRepo() ledger.TransactionRepository
}
