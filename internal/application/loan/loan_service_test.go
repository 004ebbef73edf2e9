package loan_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	apploan "github.com/schoolfund/backend/internal/application/loan"
	appvault "github.com/schoolfund/backend/internal/application/vault"
	"github.com/schoolfund/backend/internal/domain/loan"
	"github.com/schoolfund/backend/internal/domain/shared"
	"github.com/schoolfund/backend/internal/domain/vault"
	"github.com/schoolfund/backend/internal/infrastructure/persistence"
	"github.com/schoolfund/backend/internal/infrastructure/persistence/models"
	"github.com/schoolfund/backend/tests/testutil"
)

type loanFixture struct {
	db      *gorm.DB
	loans   *apploan.LoanService
	custody *appvault.CustodyService
	events  *testutil.MockEventHandler
	actor   uuid.UUID
}

func newLoanFixture(t *testing.T, feeRate string) *loanFixture {
	t.Helper()
	db := testutil.NewFundDB(t)
	policy, err := loan.NewAdminFeePolicy(feeRate)
	require.NoError(t, err)

	scope := persistence.NewGormTransactionScope(db)
	svc := apploan.NewLoanService(
		persistence.NewGormLoanRepository(db),
		persistence.NewGormInstallmentRepository(db),
		persistence.NewGormDirectory(db),
		scope.Loan(),
		policy,
	)
	events := testutil.NewMockEventHandler()
	svc.SetEventPublisher(events)

	return &loanFixture{
		db:    db,
		loans: svc,
		custody: appvault.NewCustodyService(
			persistence.NewGormVaultRepository(db),
			persistence.NewGormVaultTransactionRepository(db),
			scope.Vault(),
		),
		events: events,
		actor:  testutil.SeedUser(t, db, "petugas", "Petugas Koperasi"),
	}
}

func (f *loanFixture) externalLoan(t *testing.T, amount int64) *apploan.LoanResponse {
	t.Helper()
	name := "Komite Sekolah"
	resp, err := f.loans.CreateLoan(context.Background(), apploan.CreateLoanRequest{
		BorrowerType:    "EXTERNAL",
		BorrowerName:    &name,
		LoanType:        "TERM",
		AmountRequested: amount,
		TenorMonths:     5,
		CreatedBy:       f.actor,
	})
	require.NoError(t, err)
	return resp
}

func TestLoanRoundTrip(t *testing.T) {
	f := newLoanFixture(t, "")
	ctx := context.Background()
	cash := testutil.SeedVault(t, f.db, "Brankas TU", vault.TypeCash, 2_000_000)

	created := f.externalLoan(t, 500_000)
	assert.Equal(t, "PENDING", created.Status)
	require.NotNil(t, created.AmountApproved)
	assert.Equal(t, int64(500_000), *created.AmountApproved)

	approved, err := f.loans.ApproveLoan(ctx, created.ID, apploan.ApproveLoanRequest{SourceVaultID: cash.ID, ActorID: f.actor})
	require.NoError(t, err)
	assert.Equal(t, "APPROVED", approved.Status)
	require.NotNil(t, approved.DisbursedAt)
	assert.Equal(t, int64(1_500_000), testutil.VaultBalance(t, f.db, cash.ID))

	payment, err := f.loans.AddPayment(ctx, created.ID, apploan.AddPaymentRequest{
		Amount: 100_000, TargetVaultID: cash.ID, ActorID: f.actor,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, payment.Installment.Sequence)
	assert.Equal(t, "PAID", payment.Installment.Status)
	assert.Equal(t, "CASH", payment.Installment.PaymentMethod)
	assert.Equal(t, int64(400_000), payment.Loan.RemainingAmount)
	assert.Equal(t, int64(1_600_000), testutil.VaultBalance(t, f.db, cash.ID))

	installments, err := f.loans.ListInstallments(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, installments, 1)
	assert.Equal(t, 1, installments[0].Sequence)

	// Both movements reference the loan in the vault audit trail.
	rows, err := f.custody.ListTransactions(ctx, appvault.TransactionListFilter{ReferenceID: &created.ID})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	types := f.events.CountByType()
	assert.Equal(t, 1, types[loan.EventTypeLoanCreated])
	assert.Equal(t, 1, types[loan.EventTypeLoanApproved])
	assert.Equal(t, 1, types[loan.EventTypeInstallmentPaid])
	assert.Equal(t, 2, types[vault.EventTypeMovementRecorded])
}

func TestApproveLoan_AdminFeeAndPartialAmount(t *testing.T) {
	f := newLoanFixture(t, "0.015")
	ctx := context.Background()
	cash := testutil.SeedVault(t, f.db, "Brankas TU", vault.TypeCash, 1_000_000)
	created := f.externalLoan(t, 500_000)

	amount := int64(300_000)
	approved, err := f.loans.ApproveLoan(ctx, created.ID, apploan.ApproveLoanRequest{
		AmountApproved: &amount, SourceVaultID: cash.ID, ActorID: f.actor,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4_500), approved.AdminFee)
	assert.Equal(t, int64(304_500), approved.RemainingAmount)
	assert.Equal(t, int64(700_000), testutil.VaultBalance(t, f.db, cash.ID), "only the principal leaves the vault")
}

func TestApproveLoan_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("bank vault", func(t *testing.T) {
		f := newLoanFixture(t, "")
		bank := testutil.SeedVault(t, f.db, "Rekening BRI", vault.TypeBank, 5_000_000)
		created := f.externalLoan(t, 500_000)
		_, err := f.loans.ApproveLoan(ctx, created.ID, apploan.ApproveLoanRequest{SourceVaultID: bank.ID, ActorID: f.actor})
		testutil.RequireCode(t, err, shared.CodeConstraint)
		assert.Equal(t, int64(5_000_000), testutil.VaultBalance(t, f.db, bank.ID))

		got, err := f.loans.GetLoan(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "PENDING", got.Status, "loan unchanged after a refused disbursement")
	})

	t.Run("insufficient cash", func(t *testing.T) {
		f := newLoanFixture(t, "")
		cash := testutil.SeedVault(t, f.db, "Brankas TU", vault.TypeCash, 100_000)
		created := f.externalLoan(t, 500_000)
		_, err := f.loans.ApproveLoan(ctx, created.ID, apploan.ApproveLoanRequest{SourceVaultID: cash.ID, ActorID: f.actor})
		testutil.RequireCode(t, err, shared.CodeInsufficientBalance)

		got, err := f.loans.GetLoan(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "PENDING", got.Status)
	})

	t.Run("already approved", func(t *testing.T) {
		f := newLoanFixture(t, "")
		cash := testutil.SeedVault(t, f.db, "Brankas TU", vault.TypeCash, 2_000_000)
		created := f.externalLoan(t, 500_000)
		_, err := f.loans.ApproveLoan(ctx, created.ID, apploan.ApproveLoanRequest{SourceVaultID: cash.ID, ActorID: f.actor})
		require.NoError(t, err)
		_, err = f.loans.ApproveLoan(ctx, created.ID, apploan.ApproveLoanRequest{SourceVaultID: cash.ID, ActorID: f.actor})
		testutil.RequireCode(t, err, shared.CodeInvalidState)
		assert.Equal(t, int64(1_500_000), testutil.VaultBalance(t, f.db, cash.ID))
	})

	t.Run("unknown loan", func(t *testing.T) {
		f := newLoanFixture(t, "")
		cash := testutil.SeedVault(t, f.db, "Brankas TU", vault.TypeCash, 2_000_000)
		_, err := f.loans.ApproveLoan(ctx, uuid.New(), apploan.ApproveLoanRequest{SourceVaultID: cash.ID, ActorID: f.actor})
		testutil.RequireCode(t, err, shared.CodeNotFound)
	})
}

func TestRejectLoan(t *testing.T) {
	f := newLoanFixture(t, "")
	ctx := context.Background()
	created := f.externalLoan(t, 500_000)

	_, err := f.loans.RejectLoan(ctx, created.ID, apploan.RejectLoanRequest{Reason: "  ", ActorID: f.actor})
	testutil.RequireCode(t, err, shared.CodeValidation)

	rejected, err := f.loans.RejectLoan(ctx, created.ID, apploan.RejectLoanRequest{Reason: "Dana belum tersedia", ActorID: f.actor})
	require.NoError(t, err)
	assert.Equal(t, "REJECTED", rejected.Status)
	require.NotNil(t, rejected.RejectionReason)

	_, err = f.loans.RejectLoan(ctx, created.ID, apploan.RejectLoanRequest{Reason: "lagi", ActorID: f.actor})
	testutil.RequireCode(t, err, shared.CodeInvalidState)

	cash := testutil.SeedVault(t, f.db, "Brankas TU", vault.TypeCash, 1_000_000)
	_, err = f.loans.AddPayment(ctx, created.ID, apploan.AddPaymentRequest{Amount: 1, TargetVaultID: cash.ID, ActorID: f.actor})
	testutil.RequireCode(t, err, shared.CodeInvalidState)
}

func TestAddPayment_SettlesLoan(t *testing.T) {
	f := newLoanFixture(t, "")
	ctx := context.Background()
	cash := testutil.SeedVault(t, f.db, "Brankas TU", vault.TypeCash, 1_000_000)
	created := f.externalLoan(t, 200_000)
	_, err := f.loans.ApproveLoan(ctx, created.ID, apploan.ApproveLoanRequest{SourceVaultID: cash.ID, ActorID: f.actor})
	require.NoError(t, err)

	first, err := f.loans.AddPayment(ctx, created.ID, apploan.AddPaymentRequest{Amount: 150_000, TargetVaultID: cash.ID, ActorID: f.actor})
	require.NoError(t, err)
	assert.Equal(t, "APPROVED", first.Loan.Status)

	second, err := f.loans.AddPayment(ctx, created.ID, apploan.AddPaymentRequest{Amount: 50_000, TargetVaultID: cash.ID, ActorID: f.actor})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Installment.Sequence)
	assert.Equal(t, "LUNAS", second.Loan.Status)
	assert.Zero(t, second.Loan.RemainingAmount)

	_, err = f.loans.AddPayment(ctx, created.ID, apploan.AddPaymentRequest{Amount: 1, TargetVaultID: cash.ID, ActorID: f.actor})
	testutil.RequireCode(t, err, shared.CodeInvalidState)
	assert.Equal(t, int64(1_000_000), testutil.VaultBalance(t, f.db, cash.ID))
}

func TestAddPayment_RequiresCashVault(t *testing.T) {
	f := newLoanFixture(t, "")
	ctx := context.Background()
	cash := testutil.SeedVault(t, f.db, "Brankas TU", vault.TypeCash, 1_000_000)
	bank := testutil.SeedVault(t, f.db, "Rekening BRI", vault.TypeBank, 0)
	created := f.externalLoan(t, 200_000)
	_, err := f.loans.ApproveLoan(ctx, created.ID, apploan.ApproveLoanRequest{SourceVaultID: cash.ID, ActorID: f.actor})
	require.NoError(t, err)

	_, err = f.loans.AddPayment(ctx, created.ID, apploan.AddPaymentRequest{Amount: 10_000, TargetVaultID: bank.ID, ActorID: f.actor})
	testutil.RequireCode(t, err, shared.CodeConstraint)

	installments, err := f.loans.ListInstallments(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, installments, "no installment without its vault credit")
}

func TestMarkDelinquent(t *testing.T) {
	f := newLoanFixture(t, "")
	ctx := context.Background()
	cash := testutil.SeedVault(t, f.db, "Brankas TU", vault.TypeCash, 1_000_000)
	created := f.externalLoan(t, 200_000)

	_, err := f.loans.MarkDelinquent(ctx, created.ID, f.actor)
	testutil.RequireCode(t, err, shared.CodeInvalidState)
	assert.Zero(t, f.events.CountByType()[loan.EventTypeLoanDelinquent])

	_, err = f.loans.ApproveLoan(ctx, created.ID, apploan.ApproveLoanRequest{SourceVaultID: cash.ID, ActorID: f.actor})
	require.NoError(t, err)
	macet, err := f.loans.MarkDelinquent(ctx, created.ID, f.actor)
	require.NoError(t, err)
	assert.Equal(t, "MACET", macet.Status)
	assert.Equal(t, 1, f.events.CountByType()[loan.EventTypeLoanDelinquent])

	// Delinquent loans still accept repayments.
	_, err = f.loans.AddPayment(ctx, created.ID, apploan.AddPaymentRequest{Amount: 200_000, TargetVaultID: cash.ID, ActorID: f.actor})
	require.NoError(t, err)
	got, err := f.loans.GetLoan(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "LUNAS", got.Status)
}

func TestCreateLoan_EmployeeResolution(t *testing.T) {
	ctx := context.Background()

	t.Run("by employee detail id", func(t *testing.T) {
		f := newLoanFixture(t, "")
		userID := testutil.SeedUser(t, f.db, "guru1", "Ibu Sari")
		empID := testutil.SeedEmployee(t, f.db, userID, "Sari Wulandari")
		resp, err := f.loans.CreateLoan(ctx, apploan.CreateLoanRequest{
			BorrowerType: "EMPLOYEE", EmployeeRef: &empID, LoanType: "KASBON", AmountRequested: 250_000, TenorMonths: 6, CreatedBy: f.actor,
		})
		require.NoError(t, err)
		require.NotNil(t, resp.EmployeeID)
		assert.Equal(t, empID, *resp.EmployeeID)
		assert.Equal(t, 1, resp.TenorMonths, "cash advances are single-installment")
	})

	t.Run("by user id with existing detail", func(t *testing.T) {
		f := newLoanFixture(t, "")
		userID := testutil.SeedUser(t, f.db, "guru2", "Pak Budi")
		empID := testutil.SeedEmployee(t, f.db, userID, "Budi Santoso")
		resp, err := f.loans.CreateLoan(ctx, apploan.CreateLoanRequest{
			BorrowerType: "EMPLOYEE", EmployeeRef: &userID, LoanType: "TERM", AmountRequested: 1_000_000, TenorMonths: 10, CreatedBy: f.actor,
		})
		require.NoError(t, err)
		assert.Equal(t, empID, *resp.EmployeeID)
	})

	t.Run("user without detail gets one created", func(t *testing.T) {
		f := newLoanFixture(t, "")
		userID := testutil.SeedUser(t, f.db, "staf", "Staf TU")
		resp, err := f.loans.CreateLoan(ctx, apploan.CreateLoanRequest{
			BorrowerType: "EMPLOYEE", EmployeeRef: &userID, LoanType: "TERM", AmountRequested: 100_000, TenorMonths: 2, CreatedBy: f.actor,
		})
		require.NoError(t, err)

		var detail models.EmployeeDetailModel
		require.NoError(t, f.db.First(&detail, "user_id = ?", userID).Error)
		assert.Equal(t, detail.ID, *resp.EmployeeID)
		assert.Equal(t, "Staf TU", detail.FullName)

		got, err := f.loans.GetLoan(ctx, resp.ID)
		require.NoError(t, err)
		require.NotNil(t, got.EmployeeName)
		assert.Equal(t, "Staf TU", *got.EmployeeName)
	})

	t.Run("unknown reference", func(t *testing.T) {
		f := newLoanFixture(t, "")
		ref := uuid.New()
		_, err := f.loans.CreateLoan(ctx, apploan.CreateLoanRequest{
			BorrowerType: "EMPLOYEE", EmployeeRef: &ref, LoanType: "TERM", AmountRequested: 100_000, TenorMonths: 2, CreatedBy: f.actor,
		})
		testutil.RequireCode(t, err, shared.CodeNotFound)
	})

	t.Run("non-employee without name", func(t *testing.T) {
		f := newLoanFixture(t, "")
		_, err := f.loans.CreateLoan(ctx, apploan.CreateLoanRequest{
			BorrowerType: "SCHOOL", LoanType: "TERM", AmountRequested: 100_000, TenorMonths: 2, CreatedBy: f.actor,
		})
		testutil.RequireCode(t, err, shared.CodeValidation)
	})
}

func TestListLoans(t *testing.T) {
	f := newLoanFixture(t, "")
	ctx := context.Background()
	cash := testutil.SeedVault(t, f.db, "Brankas TU", vault.TypeCash, 5_000_000)

	first := f.externalLoan(t, 100_000)
	f.externalLoan(t, 200_000)
	f.externalLoan(t, 300_000)
	_, err := f.loans.ApproveLoan(ctx, first.ID, apploan.ApproveLoanRequest{SourceVaultID: cash.ID, ActorID: f.actor})
	require.NoError(t, err)
	_, err = f.loans.AddPayment(ctx, first.ID, apploan.AddPaymentRequest{Amount: 40_000, TargetVaultID: cash.ID, ActorID: f.actor})
	require.NoError(t, err)

	page, err := f.loans.ListLoans(ctx, apploan.LoanListFilter{PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 2)

	approved, err := f.loans.ListLoans(ctx, apploan.LoanListFilter{Status: "APPROVED"})
	require.NoError(t, err)
	require.Len(t, approved.Items, 1)
	assert.Equal(t, int64(40_000), approved.Items[0].PaidAmount)
	assert.Equal(t, int64(60_000), approved.Items[0].RemainingAmount)
	assert.Equal(t, 1, approved.Items[0].InstallmentCount)
}
