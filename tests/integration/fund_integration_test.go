package integration

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appledger "github.com/schoolfund/backend/internal/application/ledger"
	apploan "github.com/schoolfund/backend/internal/application/loan"
	appsavings "github.com/schoolfund/backend/internal/application/savings"
	appvault "github.com/schoolfund/backend/internal/application/vault"
	"github.com/schoolfund/backend/internal/domain/loan"
	"github.com/schoolfund/backend/internal/domain/shared"
	"github.com/schoolfund/backend/internal/domain/vault"
	"github.com/schoolfund/backend/internal/infrastructure/persistence"
	"github.com/schoolfund/backend/tests/testutil"
)

func TestMain(m *testing.M) {
	code := m.Run()
	CleanupSharedContainer()
	os.Exit(code)
}

func TestLedgerBalancesOnPostgres(t *testing.T) {
	tdb := NewSharedTestDB(t)
	ctx := t.Context()
	actor := testutil.SeedUser(t, tdb.DB, "bendahara", "Bendahara")

	scope := persistence.NewGormTransactionScope(tdb.DB)
	accountRepo := persistence.NewGormAccountRepository(tdb.DB)
	txRepo := persistence.NewGormTransactionRepository(tdb.DB)
	accounts := appledger.NewAccountService(accountRepo, persistence.NewGormCategoryRepository(tdb.DB), scope.Ledger())
	txs := appledger.NewTransactionService(txRepo, scope.Ledger(), appledger.DefaultPolicy())
	reports := appledger.NewReportService(accountRepo, txRepo)

	kas, err := accounts.CreateAccount(ctx, appledger.CreateAccountRequest{Name: "Kas Utama", InitialBalance: 1_000_000}, actor)
	require.NoError(t, err)
	bank, err := accounts.CreateAccount(ctx, appledger.CreateAccountRequest{Name: "Bank BRI"}, actor)
	require.NoError(t, err)

	_, err = txs.CreateTransaction(ctx, appledger.CreateTransactionRequest{
		Type: "EXPENSE", AccountID: kas.ID, Amount: 250_000, CreatedBy: actor,
	})
	require.NoError(t, err)
	_, err = txs.CreateTransaction(ctx, appledger.CreateTransactionRequest{
		Type: "TRANSFER", AccountID: kas.ID, ToAccountID: &bank.ID, Amount: 300_000, CreatedBy: actor,
	})
	require.NoError(t, err)

	kasBalance, err := accounts.AccountBalance(ctx, kas.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(450_000), kasBalance)
	bankBalance, err := accounts.AccountBalance(ctx, bank.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300_000), bankBalance)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	report, err := reports.GenerateReport(ctx, appledger.ReportRequest{
		AccountID: &kas.ID,
		StartDate: today.AddDate(0, 0, -1),
		EndDate:   today.AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), report.OpeningBalance)
	assert.Equal(t, int64(450_000), report.ClosingBalance)
	assert.Len(t, report.Rows, 3)
}

func TestConcurrentTransfersNeverOverdraw(t *testing.T) {
	tdb := NewSharedTestDB(t)
	actor := testutil.SeedUser(t, tdb.DB, "bendahara", "Bendahara")
	cash := testutil.SeedVault(t, tdb.DB, "Brankas TU", vault.TypeCash, 1_000)
	bank := testutil.SeedVault(t, tdb.DB, "Rekening BRI", vault.TypeBank, 0)

	custody := appvault.NewCustodyService(
		persistence.NewGormVaultRepository(tdb.DB),
		persistence.NewGormVaultTransactionRepository(tdb.DB),
		persistence.NewGormTransactionScope(tdb.DB).Vault(),
	)

	const workers = 20
	var succeeded, refused atomic.Int32
	var wg sync.WaitGroup
	for range workers {
		wg.Go(func() {
			_, err := custody.Transfer(t.Context(), appvault.TransferRequest{
				SourceVaultID:      cash.ID,
				DestinationVaultID: bank.ID,
				Amount:             100,
				Kind:               "deposit-to-bank",
				ActorID:            actor,
			})
			switch {
			case err == nil:
				succeeded.Add(1)
			case shared.IsCode(err, shared.CodeInsufficientBalance):
				refused.Add(1)
			default:
				t.Errorf("unexpected transfer error: %v", err)
			}
		})
	}
	wg.Wait()

	assert.Equal(t, int32(10), succeeded.Load())
	assert.Equal(t, int32(10), refused.Load())
	assert.Equal(t, int64(0), testutil.VaultBalance(t, tdb.DB, cash.ID))
	assert.Equal(t, int64(1_000), testutil.VaultBalance(t, tdb.DB, bank.ID))

	rows, err := custody.ListTransactions(t.Context(), appvault.TransactionListFilter{VaultID: &cash.ID})
	require.NoError(t, err)
	assert.Len(t, rows, 10, "one audit row per applied transfer")
}

func TestLoanLifecycleOnPostgres(t *testing.T) {
	tdb := NewSharedTestDB(t)
	ctx := t.Context()
	actor := testutil.SeedUser(t, tdb.DB, "kepala.tu", "Kepala TU")
	borrowerUser := testutil.SeedUser(t, tdb.DB, "guru.budi", "Budi")
	employee := testutil.SeedEmployee(t, tdb.DB, borrowerUser, "Budi Santoso")
	cash := testutil.SeedVault(t, tdb.DB, "Brankas TU", vault.TypeCash, 2_000_000)

	policy, err := loan.NewAdminFeePolicy("0.01")
	require.NoError(t, err)
	scope := persistence.NewGormTransactionScope(tdb.DB)
	loans := apploan.NewLoanService(
		persistence.NewGormLoanRepository(tdb.DB),
		persistence.NewGormInstallmentRepository(tdb.DB),
		persistence.NewGormDirectory(tdb.DB),
		scope.Loan(),
		policy,
	)

	// The borrower may be referenced by user id.
	created, err := loans.CreateLoan(ctx, apploan.CreateLoanRequest{
		BorrowerType:    "EMPLOYEE",
		EmployeeRef:     &borrowerUser,
		LoanType:        "TERM",
		AmountRequested: 1_000_000,
		TenorMonths:     10,
		CreatedBy:       actor,
	})
	require.NoError(t, err)
	require.NotNil(t, created.EmployeeID)
	assert.Equal(t, employee, *created.EmployeeID)

	approved, err := loans.ApproveLoan(ctx, created.ID, apploan.ApproveLoanRequest{SourceVaultID: cash.ID, ActorID: actor})
	require.NoError(t, err)
	assert.Equal(t, "APPROVED", approved.Status)
	assert.Equal(t, int64(10_000), approved.AdminFee)
	assert.Equal(t, int64(1_000_000), testutil.VaultBalance(t, tdb.DB, cash.ID))

	payment, err := loans.AddPayment(ctx, created.ID, apploan.AddPaymentRequest{
		Amount: 1_010_000, TargetVaultID: cash.ID, ActorID: actor,
	})
	require.NoError(t, err)
	assert.Equal(t, "LUNAS", payment.Loan.Status)
	assert.Equal(t, int64(0), payment.Loan.RemainingAmount)
	assert.Equal(t, int64(2_010_000), testutil.VaultBalance(t, tdb.DB, cash.ID))

	_, err = loans.MarkDelinquent(ctx, created.ID, actor)
	testutil.RequireCode(t, err, shared.CodeInvalidState)

	page, err := loans.ListLoans(ctx, apploan.LoanListFilter{EmployeeID: &employee})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, created.ID, page.Items[0].ID)
}

func TestSavingsSettlementOnPostgres(t *testing.T) {
	tdb := NewSharedTestDB(t)
	ctx := t.Context()
	collector := testutil.SeedUser(t, tdb.DB, "wali.7a", "Wali Kelas 7A")
	treasurer := testutil.SeedUser(t, tdb.DB, "bendahara", "Bendahara")
	cash := testutil.SeedVault(t, tdb.DB, "Brankas TU", vault.TypeCash, 500_000)
	bank := testutil.SeedVault(t, tdb.DB, "Rekening BRI", vault.TypeBank, 0)

	svc := appsavings.NewSavingsService(
		persistence.NewGormDepositEntryRepository(tdb.DB),
		persistence.NewGormDepositBatchRepository(tdb.DB),
		persistence.NewGormTransactionScope(tdb.DB).Savings(),
	)

	for i, amount := range []int64{25_000, 40_000, 35_000} {
		_, err := svc.RecordDepositEntry(ctx, appsavings.RecordEntryRequest{
			StudentRef:  fmt.Sprintf("NIS-%03d", i+1),
			CollectorID: collector,
			Type:        "deposit",
			Amount:      amount,
		})
		require.NoError(t, err)
	}

	batch, err := svc.CreateBatch(ctx, appsavings.CreateBatchRequest{CollectorID: collector})
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), batch.TotalAmount)

	verified, err := svc.VerifyBatch(ctx, batch.ID, appsavings.VerifyBatchRequest{Settle: true, TreasurerID: treasurer})
	require.NoError(t, err)
	assert.Equal(t, "verified", verified.Status)

	_, err = svc.VerifyBatch(ctx, batch.ID, appsavings.VerifyBatchRequest{Settle: true, TreasurerID: treasurer})
	testutil.RequireCode(t, err, shared.CodeInvalidState)

	assert.Equal(t, int64(400_000), testutil.VaultBalance(t, tdb.DB, cash.ID))
	assert.Equal(t, int64(100_000), testutil.VaultBalance(t, tdb.DB, bank.ID), "settlement applied exactly once")

	entries, err := svc.ListEntries(ctx, appsavings.EntryListFilter{BatchID: &batch.ID})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Equal(t, "verified", e.Status)
	}

	_, err = svc.CreateBatch(ctx, appsavings.CreateBatchRequest{CollectorID: uuid.New()})
	require.Error(t, err, "a collector without pending entries cannot batch")
}
