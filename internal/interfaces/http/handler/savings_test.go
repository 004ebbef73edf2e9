package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appsavings "github.com/schoolfund/backend/internal/application/savings"
	appvault "github.com/schoolfund/backend/internal/application/vault"
	"github.com/schoolfund/backend/internal/domain/vault"
	"github.com/schoolfund/backend/tests/testutil"
)

func TestSavingsHandler_BatchVerification(t *testing.T) {
	f := newAPIFixture(t)
	collector := testutil.SeedUser(t, f.db, "wali.kelas", "Wali Kelas 7A")

	for _, e := range []jsonBody{
		{"student_ref": "NIS-001", "collector_id": collector, "type": "deposit", "amount": 50_000},
		{"student_ref": "NIS-002", "collector_id": collector, "type": "deposit", "amount": 30_000},
		{"student_ref": "NIS-003", "collector_id": collector, "type": "withdrawal", "amount": 20_000},
	} {
		requireStatus(t, f.do(t, http.MethodPost, "/savings/entries", e), http.StatusCreated)
	}

	w := f.do(t, http.MethodGet, "/savings/entries?unbatched=true&collector_id="+collector.String(), nil)
	requireStatus(t, w, http.StatusOK)
	assert.Len(t, decode[[]appsavings.EntryResponse](t, w).Data, 3)

	w = f.do(t, http.MethodPost, "/savings/batches", jsonBody{"collector_id": collector})
	requireStatus(t, w, http.StatusCreated)
	batch := decode[appsavings.BatchResponse](t, w).Data
	assert.Equal(t, int64(60_000), batch.TotalAmount)
	batchPath := "/savings/batches/" + batch.ID.String()

	w = f.do(t, http.MethodPost, batchPath+"/verify", nil)
	requireStatus(t, w, http.StatusOK)
	verified := decode[appsavings.BatchResponse](t, w).Data
	assert.Equal(t, "verified", verified.Status)
	require.NotNil(t, verified.VerifiedBy)
	assert.Equal(t, f.actor, *verified.VerifiedBy)

	w = f.do(t, http.MethodPost, batchPath+"/verify", nil)
	requireErrorCode(t, w, http.StatusUnprocessableEntity, "INVALID_STATE")

	w = f.do(t, http.MethodGet, batchPath, nil)
	requireStatus(t, w, http.StatusOK)
	for _, e := range decode[appsavings.BatchResponse](t, w).Data.Entries {
		assert.Equal(t, "verified", e.Status)
	}

	w = f.do(t, http.MethodGet, "/savings/batches?status=verified", nil)
	requireStatus(t, w, http.StatusOK)
	assert.Len(t, decode[[]appsavings.BatchResponse](t, w).Data, 1)
}

func TestSavingsHandler_RejectBatch(t *testing.T) {
	f := newAPIFixture(t)
	collector := testutil.SeedUser(t, f.db, "wali.kelas", "Wali Kelas 7B")
	requireStatus(t, f.do(t, http.MethodPost, "/savings/entries", jsonBody{
		"student_ref": "NIS-010", "collector_id": collector, "type": "deposit", "amount": 10_000,
	}), http.StatusCreated)

	w := f.do(t, http.MethodPost, "/savings/batches", jsonBody{"collector_id": collector})
	requireStatus(t, w, http.StatusCreated)
	id := decode[appsavings.BatchResponse](t, w).Data.ID.String()

	w = f.do(t, http.MethodPost, "/savings/batches/"+id+"/reject", jsonBody{"reason": "uang kurang"})
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, "rejected", decode[appsavings.BatchResponse](t, w).Data.Status)

	w = f.do(t, http.MethodPost, "/savings/batches/"+id+"/verify", nil)
	requireErrorCode(t, w, http.StatusUnprocessableEntity, "INVALID_STATE")
}

func TestSavingsHandler_TreasuryTransfer(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/savings/treasury/transfer", jsonBody{"kind": "deposit-to-bank", "amount": 10_000})
	requireErrorCode(t, w, http.StatusNotFound, "NOT_FOUND")

	cash := testutil.SeedVault(t, f.db, "Brankas TU", vault.TypeCash, 200_000)
	bank := testutil.SeedVault(t, f.db, "Rekening BSI", vault.TypeBank, 0)

	w = f.do(t, http.MethodPost, "/savings/treasury/transfer", jsonBody{"kind": "deposit-to-bank", "amount": 150_000})
	requireStatus(t, w, http.StatusCreated)
	row := decode[appvault.TransactionResponse](t, w).Data
	assert.Equal(t, "deposit-to-bank", row.Kind)
	assert.Equal(t, int64(50_000), testutil.VaultBalance(t, f.db, cash.ID))
	assert.Equal(t, int64(150_000), testutil.VaultBalance(t, f.db, bank.ID))

	w = f.do(t, http.MethodPost, "/savings/treasury/transfer", jsonBody{"kind": "adjustment-in", "amount": 1})
	requireErrorCode(t, w, http.StatusBadRequest, "VALIDATION_FAILED")
}
