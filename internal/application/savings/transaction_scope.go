package savings

import (
	"context"

	appvault "github.com/schoolfund/backend/internal/application/vault"
	"github.com/schoolfund/backend/internal/domain/savings"
)

// TransactionScope runs batch writes, their entry cascade and any treasury
// movement inside one database transaction.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories are the savings and custody repositories bound to one transaction
type TransactionalRepositories interface {
	appvault.TransactionalRepositories
	EntryRepo() savings.EntryRepository
	BatchRepo() savings.BatchRepository
}
