package loan

import (
	"context"

	appvault "github.com/schoolfund/backend/internal/application/vault"
	"github.com/schoolfund/backend/internal/domain/directory"
	"github.com/schoolfund/backend/internal/domain/loan"
)

// TransactionScope runs a loan transition and its vault movement inside one
// database transaction.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories are the loan and custody repositories bound to one transaction
type TransactionalRepositories interface {
	appvault.TransactionalRepositories
	LoanRepo() loan.Repository
	InstallmentRepo() loan.InstallmentRepository
	Directory() directory.Directory
}
