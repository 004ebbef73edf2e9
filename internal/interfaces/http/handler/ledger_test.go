package handler

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appledger "github.com/schoolfund/backend/internal/application/ledger"
)

func (f *apiFixture) createAccount(t *testing.T, name string, initial int64) appledger.AccountResponse {
	t.Helper()
	w := f.do(t, http.MethodPost, "/ledger/accounts", jsonBody{"name": name, "initial_balance": initial})
	requireStatus(t, w, http.StatusCreated)
	return decode[appledger.AccountResponse](t, w).Data
}

func TestLedgerHandler_AccountLifecycle(t *testing.T) {
	f := newAPIFixture(t)

	account := f.createAccount(t, "Kas Utama", 1_000_000)
	require.NotNil(t, account.Balance)
	assert.Equal(t, int64(1_000_000), *account.Balance)

	w := f.do(t, http.MethodGet, "/ledger/accounts/"+account.ID.String()+"/balance", nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, int64(1_000_000), decode[BalanceData](t, w).Data.Balance)

	w = f.do(t, http.MethodPatch, "/ledger/accounts/"+account.ID.String(), jsonBody{"name": "Kas Kecil"})
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, "Kas Kecil", decode[appledger.AccountResponse](t, w).Data.Name)

	w = f.do(t, http.MethodGet, "/ledger/accounts", nil)
	requireStatus(t, w, http.StatusOK)
	assert.Len(t, decode[[]appledger.AccountResponse](t, w).Data, 1)

	// The opening balance transaction references the account.
	w = f.do(t, http.MethodDelete, "/ledger/accounts/"+account.ID.String(), nil)
	requireErrorCode(t, w, http.StatusConflict, "CONSTRAINT_VIOLATION")

	empty := f.createAccount(t, "Bank BRI", 0)
	w = f.do(t, http.MethodDelete, "/ledger/accounts/"+empty.ID.String(), nil)
	requireStatus(t, w, http.StatusNoContent)
}

func TestLedgerHandler_RequestErrors(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("validation failure names the field", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/ledger/accounts", jsonBody{"initial_balance": 10})
		requireErrorCode(t, w, http.StatusBadRequest, "VALIDATION_FAILED")
		assert.Contains(t, w.Body.String(), `"field":"name"`)
	})

	t.Run("malformed id", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/ledger/accounts/not-a-uuid", nil)
		requireErrorCode(t, w, http.StatusBadRequest, "BAD_REQUEST")
	})

	t.Run("unknown account", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/ledger/accounts/"+uuid.NewString(), nil)
		requireErrorCode(t, w, http.StatusNotFound, "NOT_FOUND")
	})

	t.Run("unauthenticated write", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/ledger/accounts", jsonBody{"name": "Kas"}, "X-Anonymous", "1")
		requireErrorCode(t, w, http.StatusUnauthorized, "UNAUTHORIZED")
	})

	t.Run("transaction against unknown account", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/ledger/transactions", jsonBody{
			"type": "INCOME", "account_id": uuid.NewString(), "amount": 1000,
		})
		requireErrorCode(t, w, http.StatusNotFound, "NOT_FOUND")
	})
}

func TestLedgerHandler_TransactionsAndReport(t *testing.T) {
	f := newAPIFixture(t)
	cash := f.createAccount(t, "Kas Utama", 0)
	bank := f.createAccount(t, "Bank BRI", 0)

	record := func(payload jsonBody) appledger.TransactionResponse {
		t.Helper()
		w := f.do(t, http.MethodPost, "/ledger/transactions", payload)
		requireStatus(t, w, http.StatusCreated)
		return decode[appledger.TransactionResponse](t, w).Data
	}
	record(jsonBody{"type": "INCOME", "account_id": cash.ID, "amount": 1_000_000, "date": "2026-01-05T00:00:00Z"})
	expense := record(jsonBody{"type": "EXPENSE", "account_id": cash.ID, "amount": 200_000, "date": "2026-02-03T00:00:00Z"})
	record(jsonBody{"type": "TRANSFER", "account_id": cash.ID, "to_account_id": bank.ID, "amount": 300_000, "date": "2026-02-28T00:00:00Z"})
	assert.Equal(t, "APPROVED", expense.Status)
	assert.Equal(t, f.actor, expense.CreatedBy)

	w := f.do(t, http.MethodGet, "/ledger/reports?account_id="+cash.ID.String()+"&start_date=2026-02-01&end_date=2026-02-28", nil)
	requireStatus(t, w, http.StatusOK)
	report := decode[appledger.ReportResponse](t, w).Data
	assert.Equal(t, int64(1_000_000), report.OpeningBalance)
	require.Len(t, report.Rows, 2)
	assert.Equal(t, int64(500_000), report.ClosingBalance)

	w = f.do(t, http.MethodGet, "/ledger/reports?start_date=2026-02-01", nil)
	requireErrorCode(t, w, http.StatusBadRequest, "VALIDATION_FAILED")

	w = f.do(t, http.MethodPost, "/ledger/transactions/"+expense.ID.String()+"/void", nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, "REJECTED", decode[appledger.TransactionResponse](t, w).Data.Status)

	w = f.do(t, http.MethodGet, "/ledger/accounts/"+cash.ID.String()+"/balance", nil)
	assert.Equal(t, int64(700_000), decode[BalanceData](t, w).Data.Balance)

	w = f.do(t, http.MethodGet, "/ledger/transactions?account_id="+cash.ID.String()+"&status=APPROVED", nil)
	requireStatus(t, w, http.StatusOK)
	assert.Len(t, decode[[]appledger.TransactionResponse](t, w).Data, 2)
}

func TestLedgerHandler_Categories(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/ledger/categories", jsonBody{"name": "SPP", "type": "INCOME"})
	requireStatus(t, w, http.StatusCreated)
	category := decode[appledger.CategoryResponse](t, w).Data

	w = f.do(t, http.MethodPost, "/ledger/categories", jsonBody{"name": "Gaji", "type": "SALARY"})
	requireErrorCode(t, w, http.StatusBadRequest, "VALIDATION_FAILED")

	w = f.do(t, http.MethodGet, "/ledger/categories?type=INCOME", nil)
	requireStatus(t, w, http.StatusOK)
	names := []string{}
	for _, c := range decode[[]appledger.CategoryResponse](t, w).Data {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "SPP")

	w = f.do(t, http.MethodDelete, "/ledger/categories/"+category.ID.String(), nil)
	requireStatus(t, w, http.StatusNoContent)
}
