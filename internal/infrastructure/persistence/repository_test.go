package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	appvault "github.com/schoolfund/backend/internal/application/vault"
	"github.com/schoolfund/backend/internal/domain/ledger"
	"github.com/schoolfund/backend/internal/domain/loan"
	"github.com/schoolfund/backend/internal/domain/savings"
	"github.com/schoolfund/backend/internal/domain/shared"
	"github.com/schoolfund/backend/internal/domain/vault"
	"github.com/schoolfund/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVaultRepository_ApplyDelta(t *testing.T) {
	db := testutil.NewFundDB(t)
	repo := NewGormVaultRepository(db)
	ctx := t.Context()
	v := testutil.SeedVault(t, db, "Brankas", vault.TypeCash, 1_000)

	balance, ok, err := repo.ApplyDelta(ctx, v.ID, 500)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1_500), balance)

	balance, ok, err = repo.ApplyDelta(ctx, v.ID, -1_500)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(0), balance)

	_, ok, err = repo.ApplyDelta(ctx, v.ID, -1)
	require.NoError(t, err)
	assert.False(t, ok, "debit below zero must not apply")
	assert.Equal(t, int64(0), testutil.VaultBalance(t, db, v.ID))

	_, ok, err = repo.ApplyDelta(ctx, uuid.New(), 10)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVaultRepository_Lookups(t *testing.T) {
	db := testutil.NewFundDB(t)
	repo := NewGormVaultRepository(db)
	ctx := t.Context()

	bank := testutil.SeedVault(t, db, "Rekening BRI", vault.TypeBank, 0)
	cash := testutil.SeedVault(t, db, "Brankas", vault.TypeCash, 0)

	found, err := repo.FindFirstByType(ctx, vault.TypeBank)
	require.NoError(t, err)
	assert.Equal(t, bank.ID, found.ID)

	locked, err := repo.FindByIDForUpdate(ctx, cash.ID)
	require.NoError(t, err)
	assert.Equal(t, "Brankas", locked.Name)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, vault.TypeCash, all[0].Type)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestVaultRepository_ApplyDeltaSQL(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	mock.ExpectExec(`UPDATE "vaults" SET "balance"=balance \+ \$1,"updated_at"=\$2 WHERE .*balance \+ \$4 >= 0`).
		WithArgs(int64(-500), sqlmock.AnyArg(), sqlmock.AnyArg(), int64(-500)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, ok, err := NewGormVaultRepository(db.DB).ApplyDelta(context.Background(), uuid.New(), -500)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionScope_RollsBackOnError(t *testing.T) {
	db := testutil.NewFundDB(t)
	scope := NewGormTransactionScope(db)
	src := testutil.SeedVault(t, db, "Brankas", vault.TypeCash, 1_000)
	dst := testutil.SeedVault(t, db, "Rekening", vault.TypeBank, 0)
	injected := errors.New("second leg failed")

	err := scope.Vault().Execute(t.Context(), func(repos appvault.TransactionalRepositories) error {
		if _, _, err := repos.VaultRepo().ApplyDelta(t.Context(), src.ID, -400); err != nil {
			return err
		}
		return injected
	})
	require.ErrorIs(t, err, injected)
	assert.Equal(t, int64(1_000), testutil.VaultBalance(t, db, src.ID))
	assert.Equal(t, int64(0), testutil.VaultBalance(t, db, dst.ID))
}

func TestVaultTransactionRepository_AppendAndFilter(t *testing.T) {
	db := testutil.NewFundDB(t)
	repo := NewGormVaultTransactionRepository(db)
	ctx := t.Context()
	actor := testutil.SeedUser(t, db, "bendahara", "Bendahara")
	a := testutil.SeedVault(t, db, "Brankas", vault.TypeCash, 0)
	b := testutil.SeedVault(t, db, "Rekening", vault.TypeBank, 0)

	transfer, err := vault.NewTransaction(vault.KindDepositToBank, &a.ID, &b.ID, 250, "setoran", nil, actor)
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, transfer))

	onB, err := repo.FindAll(ctx, vault.TransactionFilter{VaultID: &b.ID})
	require.NoError(t, err)
	require.Len(t, onB, 1)
	assert.Equal(t, int64(250), onB[0].Amount)

	other := uuid.New()
	none, err := repo.FindAll(ctx, vault.TransactionFilter{VaultID: &other})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAccountRepository_BalancesFromApprovedTransactions(t *testing.T) {
	db := testutil.NewFundDB(t)
	ctx := t.Context()
	actor := testutil.SeedUser(t, db, "admin", "Admin")
	accounts := NewGormAccountRepository(db)
	txs := NewGormTransactionRepository(db)

	kas, err := ledger.NewAccount("Kas Utama", nil, nil)
	require.NoError(t, err)
	bank, err := ledger.NewAccount("Bank", nil, nil)
	require.NoError(t, err)
	require.NoError(t, accounts.Save(ctx, kas))
	require.NoError(t, accounts.Save(ctx, bank))

	record := func(in ledger.TransactionInput) {
		in.CreatedBy = actor
		tx, err := ledger.NewTransaction(in)
		require.NoError(t, err)
		require.NoError(t, txs.Save(ctx, tx))
	}
	record(ledger.TransactionInput{Type: ledger.TransactionTypeIncome, AccountID: kas.ID, Amount: 1_000})
	record(ledger.TransactionInput{Type: ledger.TransactionTypeExpense, AccountID: kas.ID, Amount: 300})
	record(ledger.TransactionInput{Type: ledger.TransactionTypeTransfer, AccountID: kas.ID, ToAccountID: &bank.ID, Amount: 200})
	record(ledger.TransactionInput{Type: ledger.TransactionTypeIncome, AccountID: bank.ID, Amount: 5_000, Status: ledger.TransactionStatusPending})

	balances, err := accounts.FindAllWithBalance(ctx)
	require.NoError(t, err)
	byName := map[string]int64{}
	for _, b := range balances {
		byName[b.Name] = b.Balance
	}
	assert.Equal(t, int64(500), byName["Kas Utama"])
	assert.Equal(t, int64(200), byName["Bank"], "pending income is not counted")

	kasBalance, err := accounts.Balance(ctx, kas.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), kasBalance)
	bankBalance, err := accounts.Balance(ctx, bank.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), bankBalance)
	unknown, err := accounts.Balance(ctx, uuid.New())
	require.NoError(t, err)
	assert.Zero(t, unknown)

	count, err := txs.CountByAccount(ctx, bank.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	before, err := txs.SumApprovedBefore(ctx, nil, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(700), before, "transfers net to zero across the institution")
}

func TestAccountRepository_DeleteMissing(t *testing.T) {
	db := testutil.NewFundDB(t)
	err := NewGormAccountRepository(db).Delete(t.Context(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestLoanRepository_SaveWithLock(t *testing.T) {
	db := testutil.NewFundDB(t)
	ctx := t.Context()
	repo := NewGormLoanRepository(db)
	actor := testutil.SeedUser(t, db, "admin", "Admin")
	name := "Koperasi Guru"

	l, err := loan.NewLoan(loan.NewLoanInput{
		BorrowerType:    loan.BorrowerExternal,
		BorrowerName:    &name,
		Type:            loan.TypeCashAdvance,
		AmountRequested: 100_000,
		CreatedBy:       actor,
	})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, l))

	stale, err := repo.FindByID(ctx, l.ID)
	require.NoError(t, err)

	require.NoError(t, l.Reject("dana tidak tersedia", actor))
	require.NoError(t, repo.SaveWithLock(ctx, l))

	require.NoError(t, stale.Reject("duplikat", actor))
	err = repo.SaveWithLock(ctx, stale)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	stored, err := repo.FindByIDForUpdate(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, loan.StatusRejected, stored.Status)
}

func TestDepositEntryRepository_LinkAndCascade(t *testing.T) {
	db := testutil.NewFundDB(t)
	ctx := t.Context()
	entries := NewGormDepositEntryRepository(db)
	batches := NewGormDepositBatchRepository(db)
	collector := testutil.SeedUser(t, db, "wali", "Wali Kelas")

	var pending []savings.DepositEntry
	for _, amount := range []int64{10_000, 15_000} {
		e, err := savings.NewDepositEntry("S-001", collector, savings.EntryTypeDeposit, amount, nil)
		require.NoError(t, err)
		require.NoError(t, entries.Create(ctx, e))
		pending = append(pending, *e)
	}

	found, err := entries.FindUnbatchedPending(ctx, collector)
	require.NoError(t, err)
	require.Len(t, found, 2)

	batch, err := savings.NewDepositBatch(collector, nil, found)
	require.NoError(t, err)
	require.NoError(t, batches.Create(ctx, batch))

	ids := []uuid.UUID{pending[0].ID, pending[1].ID}
	linked, err := entries.LinkToBatch(ctx, batch.ID, ids)
	require.NoError(t, err)
	assert.Equal(t, int64(2), linked)

	again, err := entries.LinkToBatch(ctx, uuid.New(), ids)
	require.NoError(t, err)
	assert.Zero(t, again, "entries already batched are skipped")

	updated, err := entries.SetStatusByBatch(ctx, batch.ID, savings.StatusVerified)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	inBatch, err := entries.FindByBatch(ctx, batch.ID)
	require.NoError(t, err)
	for _, e := range inBatch {
		assert.Equal(t, savings.StatusVerified, e.Status)
	}
}
