package vault_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	appvault "github.com/schoolfund/backend/internal/application/vault"
	"github.com/schoolfund/backend/internal/domain/shared"
	"github.com/schoolfund/backend/internal/domain/vault"
	"github.com/schoolfund/backend/internal/infrastructure/persistence"
	"github.com/schoolfund/backend/tests/testutil"
)

func newCustodyService(t *testing.T) (*appvault.CustodyService, *gorm.DB) {
	t.Helper()
	db := testutil.NewFundDB(t)
	svc := appvault.NewCustodyService(
		persistence.NewGormVaultRepository(db),
		persistence.NewGormVaultTransactionRepository(db),
		persistence.NewGormTransactionScope(db).Vault(),
	)
	return svc, db
}

func TestCreateVault_StartsEmpty(t *testing.T) {
	svc, _ := newCustodyService(t)
	ctx := context.Background()

	resp, err := svc.CreateVault(ctx, appvault.CreateVaultRequest{Name: "Brankas TU", Type: "cash"})
	require.NoError(t, err)
	assert.Zero(t, resp.Balance)

	_, err = svc.CreateVault(ctx, appvault.CreateVaultRequest{Name: "Brankas", Type: "safe"})
	testutil.RequireCode(t, err, shared.CodeValidation)
}

func TestAdjust_RecordsAuditRow(t *testing.T) {
	svc, db := newCustodyService(t)
	ctx := context.Background()
	cash := testutil.SeedVault(t, db, "Brankas TU", vault.TypeCash, 0)
	actor := uuid.New()
	events := testutil.NewMockEventHandler()
	svc.SetEventPublisher(events)

	row, err := svc.Adjust(ctx, cash.ID, appvault.AdjustRequest{Delta: 150_000, Note: "stock opname", ActorID: actor})
	require.NoError(t, err)
	assert.Equal(t, "adjustment-in", row.Kind)
	assert.Equal(t, int64(150_000), testutil.VaultBalance(t, db, cash.ID))

	row, err = svc.Adjust(ctx, cash.ID, appvault.AdjustRequest{Delta: -50_000, Note: "selisih kas", ActorID: actor})
	require.NoError(t, err)
	assert.Equal(t, "adjustment-out", row.Kind)
	assert.Equal(t, int64(50_000), row.Amount)
	assert.Equal(t, int64(100_000), testutil.VaultBalance(t, db, cash.ID))

	rows, err := svc.ListTransactions(ctx, appvault.TransactionListFilter{VaultID: &cash.ID})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, 2, events.CountByType()[vault.EventTypeMovementRecorded])
}

func TestAdjust_NeverGoesNegative(t *testing.T) {
	svc, db := newCustodyService(t)
	ctx := context.Background()
	cash := testutil.SeedVault(t, db, "Brankas TU", vault.TypeCash, 100)
	events := testutil.NewMockEventHandler()
	svc.SetEventPublisher(events)

	_, err := svc.Adjust(ctx, cash.ID, appvault.AdjustRequest{Delta: -101, Note: "koreksi"})
	testutil.RequireCode(t, err, shared.CodeInsufficientBalance)
	assert.Equal(t, int64(100), testutil.VaultBalance(t, db, cash.ID))

	rows, err := svc.ListTransactions(ctx, appvault.TransactionListFilter{VaultID: &cash.ID})
	require.NoError(t, err)
	assert.Empty(t, rows, "a refused movement leaves no audit row")
	assert.Zero(t, events.HandledCount())
}

func TestAdjust_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	svc, db := newCustodyService(t)
	cash := testutil.SeedVault(t, db, "Brankas TU", vault.TypeCash, 1_000)

	var wg sync.WaitGroup
	var succeeded, refused atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Adjust(context.Background(), cash.ID, appvault.AdjustRequest{Delta: -300, Note: "tarik"})
			switch {
			case err == nil:
				succeeded.Add(1)
			case shared.IsCode(err, shared.CodeInsufficientBalance):
				refused.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(3), succeeded.Load())
	assert.Equal(t, int32(7), refused.Load())
	assert.Equal(t, int64(100), testutil.VaultBalance(t, db, cash.ID))
}

func TestTransfer_ConservesTotal(t *testing.T) {
	svc, db := newCustodyService(t)
	ctx := context.Background()
	cash := testutil.SeedVault(t, db, "Brankas TU", vault.TypeCash, 2_000_000)
	bank := testutil.SeedVault(t, db, "Rekening BRI", vault.TypeBank, 500_000)

	row, err := svc.Transfer(ctx, appvault.TransferRequest{
		SourceVaultID: cash.ID, DestinationVaultID: bank.ID, Amount: 750_000, Kind: "deposit-to-bank",
	})
	require.NoError(t, err)
	require.NotNil(t, row.SourceVaultID)
	require.NotNil(t, row.DestinationVaultID)

	_, err = svc.Transfer(ctx, appvault.TransferRequest{
		SourceVaultID: bank.ID, DestinationVaultID: cash.ID, Amount: 250_000, Kind: "withdraw-from-bank",
	})
	require.NoError(t, err)

	cashBal := testutil.VaultBalance(t, db, cash.ID)
	bankBal := testutil.VaultBalance(t, db, bank.ID)
	assert.Equal(t, int64(1_500_000), cashBal)
	assert.Equal(t, int64(1_000_000), bankBal)
	assert.Equal(t, int64(2_500_000), cashBal+bankBal)
}

func TestTransfer_Rejections(t *testing.T) {
	svc, db := newCustodyService(t)
	ctx := context.Background()
	cash := testutil.SeedVault(t, db, "Brankas TU", vault.TypeCash, 100_000)
	bank := testutil.SeedVault(t, db, "Rekening BRI", vault.TypeBank, 0)

	tests := []struct {
		name string
		req  appvault.TransferRequest
		code string
	}{
		{
			name: "insufficient source",
			req:  appvault.TransferRequest{SourceVaultID: cash.ID, DestinationVaultID: bank.ID, Amount: 100_001, Kind: "deposit-to-bank"},
			code: shared.CodeInsufficientBalance,
		},
		{
			name: "wrong direction for kind",
			req:  appvault.TransferRequest{SourceVaultID: cash.ID, DestinationVaultID: bank.ID, Amount: 10, Kind: "withdraw-from-bank"},
			code: shared.CodeConstraint,
		},
		{
			name: "same vault",
			req:  appvault.TransferRequest{SourceVaultID: cash.ID, DestinationVaultID: cash.ID, Amount: 10, Kind: "deposit-to-bank"},
			code: shared.CodeValidation,
		},
		{
			name: "unknown kind",
			req:  appvault.TransferRequest{SourceVaultID: cash.ID, DestinationVaultID: bank.ID, Amount: 10, Kind: "teleport"},
			code: shared.CodeValidation,
		},
		{
			name: "missing vault",
			req:  appvault.TransferRequest{SourceVaultID: cash.ID, DestinationVaultID: uuid.New(), Amount: 10, Kind: "deposit-to-bank"},
			code: shared.CodeNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Transfer(ctx, tt.req)
			testutil.RequireCode(t, err, tt.code)
		})
	}

	assert.Equal(t, int64(100_000), testutil.VaultBalance(t, db, cash.ID))
	assert.Equal(t, int64(0), testutil.VaultBalance(t, db, bank.ID))
}

// failingScope wraps a real scope and makes the Nth ApplyDelta inside it fail
type failingScope struct {
	inner  appvault.TransactionScope
	failAt int
}

func (s failingScope) Execute(ctx context.Context, fn func(appvault.TransactionalRepositories) error) error {
	return s.inner.Execute(ctx, func(repos appvault.TransactionalRepositories) error {
		return fn(failingRepos{TransactionalRepositories: repos, failAt: s.failAt, calls: new(int)})
	})
}

type failingRepos struct {
	appvault.TransactionalRepositories
	failAt int
	calls  *int
}

func (r failingRepos) VaultRepo() vault.Repository {
	return failingVaultRepo{Repository: r.TransactionalRepositories.VaultRepo(), failAt: r.failAt, calls: r.calls}
}

type failingVaultRepo struct {
	vault.Repository
	failAt int
	calls  *int
}

var errInjected = errors.New("injected storage failure")

func (r failingVaultRepo) ApplyDelta(ctx context.Context, id uuid.UUID, delta int64) (int64, bool, error) {
	*r.calls++
	if *r.calls == r.failAt {
		return 0, false, errInjected
	}
	return r.Repository.ApplyDelta(ctx, id, delta)
}

func TestTransfer_FailureBetweenLegsRollsBack(t *testing.T) {
	db := testutil.NewFundDB(t)
	ctx := context.Background()
	cash := testutil.SeedVault(t, db, "Brankas TU", vault.TypeCash, 1_000_000)
	bank := testutil.SeedVault(t, db, "Rekening BRI", vault.TypeBank, 0)

	svc := appvault.NewCustodyService(
		persistence.NewGormVaultRepository(db),
		persistence.NewGormVaultTransactionRepository(db),
		failingScope{inner: persistence.NewGormTransactionScope(db).Vault(), failAt: 2},
	)

	_, err := svc.Transfer(ctx, appvault.TransferRequest{
		SourceVaultID: cash.ID, DestinationVaultID: bank.ID, Amount: 400_000, Kind: "deposit-to-bank",
	})
	require.ErrorIs(t, err, errInjected)

	assert.Equal(t, int64(1_000_000), testutil.VaultBalance(t, db, cash.ID), "debit leg rolled back")
	assert.Equal(t, int64(0), testutil.VaultBalance(t, db, bank.ID))

	rows, err := svc.ListTransactions(ctx, appvault.TransactionListFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestVaultBalances(t *testing.T) {
	svc, db := newCustodyService(t)
	testutil.SeedVault(t, db, "Brankas TU", vault.TypeCash, 10)
	testutil.SeedVault(t, db, "Rekening BRI", vault.TypeBank, 20)

	balances, err := svc.VaultBalances(context.Background())
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, "cash", balances[0].Type)
	assert.Equal(t, int64(10), balances[0].Balance)
}
