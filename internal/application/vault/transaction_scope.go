package vault

import (
	"context"

	"github.com/schoolfund/backend/internal/domain/vault"
)

// TransactionScope runs custody writes inside one database transaction.
// A balance change and its audit row either both commit or neither does.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories are vault repositories bound to one transaction
type TransactionalRepositories interface {
	VaultRepo() vault.Repository
	VaultTransactionRepo() vault.TransactionRepository
}

// CustodyFor builds the custody domain service over tx-bound repositories
func CustodyFor(repos TransactionalRepositories) *vault.Custody {
	return vault.NewCustody(repos.VaultRepo(), repos.VaultTransactionRepo())
}
