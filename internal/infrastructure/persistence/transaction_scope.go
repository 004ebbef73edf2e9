package persistence

import (
	"context"

	appledger "github.com/schoolfund/backend/internal/application/ledger"
	apploan "github.com/schoolfund/backend/internal/application/loan"
	appsavings "github.com/schoolfund/backend/internal/application/savings"
	appvault "github.com/schoolfund/backend/internal/application/vault"
	"github.com/schoolfund/backend/internal/domain/directory"
	"github.com/schoolfund/backend/internal/domain/ledger"
	"github.com/schoolfund/backend/internal/domain/loan"
	"github.com/schoolfund/backend/internal/domain/savings"
	"github.com/schoolfund/backend/internal/domain/vault"
	"gorm.io/gorm"
)

// GormTransactionScope implements every application TransactionScope using
// GORM transactions. The fund contexts differ only in which repositories the
// callback sees, so one scope type backs all of them.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

func (s *GormTransactionScope) run(ctx context.Context, fn func(repos *gormTransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// Ledger returns the scope seen by the ledger services
func (s *GormTransactionScope) Ledger() appledger.TransactionScope { return ledgerScope{s} }

// Vault returns the scope seen by the custody service
func (s *GormTransactionScope) Vault() appvault.TransactionScope { return vaultScope{s} }

// Loan returns the scope seen by the loan service
func (s *GormTransactionScope) Loan() apploan.TransactionScope { return loanScope{s} }

// Savings returns the scope seen by the savings service
func (s *GormTransactionScope) Savings() appsavings.TransactionScope { return savingsScope{s} }

type ledgerScope struct{ s *GormTransactionScope }

func (l ledgerScope) Execute(ctx context.Context, fn func(repos appledger.TransactionalRepositories) error) error {
	return l.s.run(ctx, func(r *gormTransactionalRepositories) error { return fn(r) })
}

type vaultScope struct{ s *GormTransactionScope }

func (v vaultScope) Execute(ctx context.Context, fn func(repos appvault.TransactionalRepositories) error) error {
	return v.s.run(ctx, func(r *gormTransactionalRepositories) error { return fn(r) })
}

type loanScope struct{ s *GormTransactionScope }

func (l loanScope) Execute(ctx context.Context, fn func(repos apploan.TransactionalRepositories) error) error {
	return l.s.run(ctx, func(r *gormTransactionalRepositories) error { return fn(r) })
}

type savingsScope struct{ s *GormTransactionScope }

func (sv savingsScope) Execute(ctx context.Context, fn func(repos appsavings.TransactionalRepositories) error) error {
	return sv.s.run(ctx, func(r *gormTransactionalRepositories) error { return fn(r) })
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) AccountRepo() ledger.AccountRepository {
	return NewGormAccountRepository(r.tx)
}

func (r *gormTransactionalRepositories) CategoryRepo() ledger.CategoryRepository {
	return NewGormCategoryRepository(r.tx)
}

func (r *gormTransactionalRepositories) LedgerTransactionRepo() ledger.TransactionRepository {
	return NewGormTransactionRepository(r.tx)
}

func (r *gormTransactionalRepositories) VaultRepo() vault.Repository {
	return NewGormVaultRepository(r.tx)
}

func (r *gormTransactionalRepositories) VaultTransactionRepo() vault.TransactionRepository {
	return NewGormVaultTransactionRepository(r.tx)
}

func (r *gormTransactionalRepositories) LoanRepo() loan.Repository {
	return NewGormLoanRepository(r.tx)
}

func (r *gormTransactionalRepositories) InstallmentRepo() loan.InstallmentRepository {
	return NewGormInstallmentRepository(r.tx)
}

func (r *gormTransactionalRepositories) Directory() directory.Directory {
	return NewGormDirectory(r.tx)
}

func (r *gormTransactionalRepositories) EntryRepo() savings.EntryRepository {
	return NewGormDepositEntryRepository(r.tx)
}

func (r *gormTransactionalRepositories) BatchRepo() savings.BatchRepository {
	return NewGormDepositBatchRepository(r.tx)
}

var (
	_ appledger.TransactionalRepositories  = (*gormTransactionalRepositories)(nil)
	_ appvault.TransactionalRepositories   = (*gormTransactionalRepositories)(nil)
	_ apploan.TransactionalRepositories    = (*gormTransactionalRepositories)(nil)
	_ appsavings.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
