package handler

import (
	"github.com/gin-gonic/gin"
	appvault "github.com/schoolfund/backend/internal/application/vault"
)

// VaultHandler serves vault custody endpoints
type VaultHandler struct {
	responder
	custody *appvault.CustodyService
}

// NewVaultHandler creates a new VaultHandler
func NewVaultHandler(custody *appvault.CustodyService) *VaultHandler {
	return &VaultHandler{custody: custody}
}

// List godoc
// @ID           listVaults
// @Summary      List vaults
// @Tags         vaults
// @Produce      json
// @Success      200 {object} Envelope[[]appvault.VaultResponse]
// @Security     BearerAuth
// @Router       /vaults [get]
func (h *VaultHandler) List(c *gin.Context) {
	vaults, err := h.custody.ListVaults(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, vaults)
}

// Create godoc
// @ID           createVault
// @Summary      Create a vault
// @Description  New vaults start with a zero balance
// @Tags         vaults
// @Accept       json
// @Produce      json
// @Param        request body appvault.CreateVaultRequest true "Vault"
// @Success      201 {object} Envelope[appvault.VaultResponse]
// @Failure      400 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /vaults [post]
func (h *VaultHandler) Create(c *gin.Context) {
	var req appvault.CreateVaultRequest
	if !h.bindJSON(c, &req) {
		return
	}
	v, err := h.custody.CreateVault(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.created(c, v)
}

// Get godoc
// @ID           getVault
// @Summary      Get a vault
// @Tags         vaults
// @Produce      json
// @Param        id path string true "Vault ID" format(uuid)
// @Success      200 {object} Envelope[appvault.VaultResponse]
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /vaults/{id} [get]
func (h *VaultHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	v, err := h.custody.GetVault(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, v)
}

// Adjust godoc
// @ID           adjustVault
// @Summary      Correct a vault balance
// @Description  A positive delta records adjustment-in, a negative one adjustment-out. The balance never goes below zero.
// @Tags         vaults
// @Accept       json
// @Produce      json
// @Param        id path string true "Vault ID" format(uuid)
// @Param        Idempotency-Key header string false "Retry-safe request key"
// @Param        request body appvault.AdjustRequest true "Adjustment"
// @Success      201 {object} Envelope[appvault.TransactionResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      404 {object} ErrorEnvelope
// @Failure      422 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /vaults/{id}/adjust [post]
func (h *VaultHandler) Adjust(c *gin.Context) {
	actor, ok := h.actorID(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req appvault.AdjustRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.ActorID = actor
	row, err := h.custody.Adjust(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.created(c, row)
}

// Transfer godoc
// @ID           transferBetweenVaults
// @Summary      Transfer between vaults
// @Description  Debits the source and credits the destination atomically
// @Tags         vaults
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Retry-safe request key"
// @Param        request body appvault.TransferRequest true "Transfer"
// @Success      201 {object} Envelope[appvault.TransactionResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      404 {object} ErrorEnvelope
// @Failure      422 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /vaults/transfer [post]
func (h *VaultHandler) Transfer(c *gin.Context) {
	actor, ok := h.actorID(c)
	if !ok {
		return
	}
	var req appvault.TransferRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.ActorID = actor
	row, err := h.custody.Transfer(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.created(c, row)
}

// ListTransactions godoc
// @ID           listVaultTransactions
// @Summary      Vault audit log
// @Description  Every balance change, newest first
// @Tags         vaults
// @Produce      json
// @Param        vault_id query string false "Vault ID" format(uuid)
// @Param        reference_id query string false "Loan or batch ID" format(uuid)
// @Param        limit query int false "Maximum rows"
// @Success      200 {object} Envelope[[]appvault.TransactionResponse]
// @Security     BearerAuth
// @Router       /vaults/transactions [get]
func (h *VaultHandler) ListTransactions(c *gin.Context) {
	var filter appvault.TransactionListFilter
	if !h.bindQuery(c, &filter) ||
		!h.queryID(c, "vault_id", &filter.VaultID) ||
		!h.queryID(c, "reference_id", &filter.ReferenceID) {
		return
	}
	rows, err := h.custody.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, rows)
}
