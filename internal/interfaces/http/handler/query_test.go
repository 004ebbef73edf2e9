package handler

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appledger "github.com/schoolfund/backend/internal/application/ledger"
	apploan "github.com/schoolfund/backend/internal/application/loan"
	appsavings "github.com/schoolfund/backend/internal/application/savings"
	appvault "github.com/schoolfund/backend/internal/application/vault"
	"github.com/schoolfund/backend/internal/domain/vault"
	"github.com/schoolfund/backend/tests/testutil"
)

func TestQueryIDFilters_AcceptValidIDs(t *testing.T) {
	f := newAPIFixture(t)
	id := uuid.NewString()

	tests := []struct {
		path   string
		status int
	}{
		// An unknown account reaches the service and is reported as missing.
		{"/ledger/reports?account_id=" + id + "&start_date=2026-01-01&end_date=2026-01-31", http.StatusNotFound},
		{"/ledger/transactions?account_id=" + id, http.StatusOK},
		{"/savings/entries?collector_id=" + id + "&batch_id=" + id, http.StatusOK},
		{"/savings/batches?collector_id=" + id, http.StatusOK},
		{"/vaults/transactions?vault_id=" + id + "&reference_id=" + id, http.StatusOK},
		{"/loans?employee_id=" + id, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			requireStatus(t, f.do(t, http.MethodGet, tt.path, nil), tt.status)
		})
	}
}

func TestQueryIDFilters_RejectMalformedIDs(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		path  string
		param string
	}{
		{"/ledger/reports?account_id=kas&start_date=2026-01-01&end_date=2026-01-31", "account_id"},
		{"/ledger/transactions?account_id=42", "account_id"},
		{"/savings/entries?batch_id=abc", "batch_id"},
		{"/savings/batches?collector_id=wali-7a", "collector_id"},
		{"/vaults/transactions?vault_id=brankas", "vault_id"},
		{"/vaults/transactions?reference_id=x", "reference_id"},
		{"/loans?employee_id=budi", "employee_id"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := f.do(t, http.MethodGet, tt.path, nil)
			requireErrorCode(t, w, http.StatusBadRequest, "VALIDATION_FAILED")
			assert.Contains(t, w.Body.String(), tt.param)
		})
	}
}

func TestQueryIDFilters_NarrowResults(t *testing.T) {
	f := newAPIFixture(t)
	cash := f.createAccount(t, "Kas Utama", 1_000_000)
	f.createAccount(t, "Bank BRI", 250_000)

	w := f.do(t, http.MethodGet, "/ledger/transactions?account_id="+cash.ID.String(), nil)
	requireStatus(t, w, http.StatusOK)
	txs := decode[[]appledger.TransactionResponse](t, w).Data
	require.Len(t, txs, 1)
	assert.Equal(t, cash.ID, txs[0].AccountID)

	brankas := testutil.SeedVault(t, f.db, "Brankas TU", vault.TypeCash, 0)
	testutil.SeedVault(t, f.db, "Rekening BRI", vault.TypeBank, 0)
	w = f.do(t, http.MethodPost, "/vaults/"+brankas.ID.String()+"/adjust", jsonBody{"delta": 5_000, "note": "selisih kas"})
	requireStatus(t, w, http.StatusCreated)

	w = f.do(t, http.MethodGet, "/vaults/transactions?vault_id="+brankas.ID.String(), nil)
	requireStatus(t, w, http.StatusOK)
	assert.Len(t, decode[[]appvault.TransactionResponse](t, w).Data, 1)

	collector := testutil.SeedUser(t, f.db, "wali.7a", "Wali Kelas 7A")
	w = f.do(t, http.MethodPost, "/savings/entries", jsonBody{
		"student_ref": "NIS-001", "collector_id": collector, "type": "deposit", "amount": 10_000,
	})
	requireStatus(t, w, http.StatusCreated)

	w = f.do(t, http.MethodGet, "/savings/entries?collector_id="+collector.String(), nil)
	requireStatus(t, w, http.StatusOK)
	assert.Len(t, decode[[]appsavings.EntryResponse](t, w).Data, 1)

	w = f.do(t, http.MethodGet, "/savings/entries?collector_id="+uuid.NewString(), nil)
	requireStatus(t, w, http.StatusOK)
	assert.Empty(t, decode[[]appsavings.EntryResponse](t, w).Data)

	w = f.do(t, http.MethodGet, "/loans?employee_id="+uuid.NewString(), nil)
	requireStatus(t, w, http.StatusOK)
	assert.Empty(t, decode[[]apploan.LoanResponse](t, w).Data)
}
