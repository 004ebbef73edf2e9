package handler

import (
	"github.com/gin-gonic/gin"
	appsavings "github.com/schoolfund/backend/internal/application/savings"
	appvault "github.com/schoolfund/backend/internal/application/vault"
)

// TreasuryTransferResponse is the vault movement a treasury transfer records
type TreasuryTransferResponse = appvault.TransactionResponse

// SavingsHandler serves savings deposit collection and verification
type SavingsHandler struct {
	responder
	savings *appsavings.SavingsService
}

// NewSavingsHandler creates a new SavingsHandler
func NewSavingsHandler(savings *appsavings.SavingsService) *SavingsHandler {
	return &SavingsHandler{savings: savings}
}

// RecordEntry godoc
// @ID           recordSavingsEntry
// @Summary      Record a student deposit or withdrawal
// @Description  Entries stay pending until their batch is verified
// @Tags         savings
// @Accept       json
// @Produce      json
// @Param        request body appsavings.RecordEntryRequest true "Entry"
// @Success      201 {object} Envelope[appsavings.EntryResponse]
// @Failure      400 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /savings/entries [post]
func (h *SavingsHandler) RecordEntry(c *gin.Context) {
	var req appsavings.RecordEntryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	entry, err := h.savings.RecordDepositEntry(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.created(c, entry)
}

// ListEntries godoc
// @ID           listSavingsEntries
// @Summary      List deposit entries
// @Tags         savings
// @Produce      json
// @Param        collector_id query string false "Collector ID" format(uuid)
// @Param        batch_id query string false "Batch ID" format(uuid)
// @Param        status query string false "pending, verified or rejected"
// @Param        unbatched query bool false "Only entries not yet in a batch"
// @Param        limit query int false "Maximum rows"
// @Success      200 {object} Envelope[[]appsavings.EntryResponse]
// @Failure      400 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /savings/entries [get]
func (h *SavingsHandler) ListEntries(c *gin.Context) {
	var filter appsavings.EntryListFilter
	if !h.bindQuery(c, &filter) ||
		!h.queryID(c, "collector_id", &filter.CollectorID) ||
		!h.queryID(c, "batch_id", &filter.BatchID) {
		return
	}
	entries, err := h.savings.ListEntries(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, entries)
}

// CreateBatch godoc
// @ID           createSavingsBatch
// @Summary      Bundle a collector's pending entries
// @Description  The batch total is the signed sum of its entries; the batch type follows its sign
// @Tags         savings
// @Accept       json
// @Produce      json
// @Param        request body appsavings.CreateBatchRequest true "Batch"
// @Success      201 {object} Envelope[appsavings.BatchResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /savings/batches [post]
func (h *SavingsHandler) CreateBatch(c *gin.Context) {
	var req appsavings.CreateBatchRequest
	if !h.bindJSON(c, &req) {
		return
	}
	batch, err := h.savings.CreateBatch(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.created(c, batch)
}

// ListBatches godoc
// @ID           listSavingsBatches
// @Summary      List deposit batches
// @Tags         savings
// @Produce      json
// @Param        collector_id query string false "Collector ID" format(uuid)
// @Param        status query string false "pending, verified or rejected"
// @Param        limit query int false "Maximum rows"
// @Success      200 {object} Envelope[[]appsavings.BatchResponse]
// @Failure      400 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /savings/batches [get]
func (h *SavingsHandler) ListBatches(c *gin.Context) {
	var filter appsavings.BatchListFilter
	if !h.bindQuery(c, &filter) || !h.queryID(c, "collector_id", &filter.CollectorID) {
		return
	}
	batches, err := h.savings.ListBatches(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, batches)
}

// GetBatch godoc
// @ID           getSavingsBatch
// @Summary      Get a batch with its entries
// @Tags         savings
// @Produce      json
// @Param        id path string true "Batch ID" format(uuid)
// @Success      200 {object} Envelope[appsavings.BatchResponse]
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /savings/batches/{id} [get]
func (h *SavingsHandler) GetBatch(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	batch, err := h.savings.GetBatch(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, batch)
}

// VerifyBatch godoc
// @ID           verifySavingsBatch
// @Summary      Verify a batch
// @Description  Verifies the batch and every entry in it. With settle the total also moves between the cash and bank vaults.
// @Tags         savings
// @Accept       json
// @Produce      json
// @Param        id path string true "Batch ID" format(uuid)
// @Param        Idempotency-Key header string false "Retry-safe request key"
// @Param        request body appsavings.VerifyBatchRequest false "Options"
// @Success      200 {object} Envelope[appsavings.BatchResponse]
// @Failure      404 {object} ErrorEnvelope
// @Failure      422 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /savings/batches/{id}/verify [post]
func (h *SavingsHandler) VerifyBatch(c *gin.Context) {
	actor, ok := h.actorID(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req appsavings.VerifyBatchRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}
	req.TreasurerID = actor
	batch, err := h.savings.VerifyBatch(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, batch)
}

// RejectBatch godoc
// @ID           rejectSavingsBatch
// @Summary      Reject a batch
// @Tags         savings
// @Accept       json
// @Produce      json
// @Param        id path string true "Batch ID" format(uuid)
// @Param        request body appsavings.RejectBatchRequest false "Reason"
// @Success      200 {object} Envelope[appsavings.BatchResponse]
// @Failure      404 {object} ErrorEnvelope
// @Failure      422 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /savings/batches/{id}/reject [post]
func (h *SavingsHandler) RejectBatch(c *gin.Context) {
	actor, ok := h.actorID(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req appsavings.RejectBatchRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}
	req.ActorID = actor
	batch, err := h.savings.RejectBatch(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, batch)
}

// TreasuryTransfer godoc
// @ID           savingsTreasuryTransfer
// @Summary      Move savings money between the cash and bank vaults
// @Tags         savings
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Retry-safe request key"
// @Param        request body appsavings.TreasuryTransferRequest true "Transfer"
// @Success      201 {object} Envelope[TreasuryTransferResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      404 {object} ErrorEnvelope
// @Failure      422 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /savings/treasury/transfer [post]
func (h *SavingsHandler) TreasuryTransfer(c *gin.Context) {
	actor, ok := h.actorID(c)
	if !ok {
		return
	}
	var req appsavings.TreasuryTransferRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.ActorID = actor
	row, err := h.savings.TransferVaultFunds(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.created(c, row)
}
