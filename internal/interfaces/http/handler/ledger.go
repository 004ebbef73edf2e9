package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appledger "github.com/schoolfund/backend/internal/application/ledger"
)

// LedgerHandler serves accounts, categories, transactions and reports
type LedgerHandler struct {
	responder
	accounts     *appledger.AccountService
	transactions *appledger.TransactionService
	reports      *appledger.ReportService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(accounts *appledger.AccountService, transactions *appledger.TransactionService, reports *appledger.ReportService) *LedgerHandler {
	return &LedgerHandler{
		accounts:     accounts,
		transactions: transactions,
		reports:      reports,
	}
}

// ListAccounts godoc
// @ID           listLedgerAccounts
// @Summary      List accounts
// @Description  Lists every ledger account with its current balance
// @Tags         ledger
// @Produce      json
// @Success      200 {object} Envelope[[]appledger.AccountResponse]
// @Failure      401 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /ledger/accounts [get]
func (h *LedgerHandler) ListAccounts(c *gin.Context) {
	accounts, err := h.accounts.ListAccounts(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, accounts)
}

// CreateAccount godoc
// @ID           createLedgerAccount
// @Summary      Create an account
// @Description  Creates an account. A positive initial balance is recorded as an approved "Saldo Awal" income.
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Param        request body appledger.CreateAccountRequest true "Account"
// @Success      201 {object} Envelope[appledger.AccountResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /ledger/accounts [post]
func (h *LedgerHandler) CreateAccount(c *gin.Context) {
	actor, ok := h.actorID(c)
	if !ok {
		return
	}
	var req appledger.CreateAccountRequest
	if !h.bindJSON(c, &req) {
		return
	}
	account, err := h.accounts.CreateAccount(c.Request.Context(), req, actor)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.created(c, account)
}

// GetAccount godoc
// @ID           getLedgerAccount
// @Summary      Get an account
// @Tags         ledger
// @Produce      json
// @Param        id path string true "Account ID" format(uuid)
// @Success      200 {object} Envelope[appledger.AccountResponse]
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /ledger/accounts/{id} [get]
func (h *LedgerHandler) GetAccount(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	account, err := h.accounts.GetAccount(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, account)
}

// AccountBalance godoc
// @ID           getLedgerAccountBalance
// @Summary      Get an account balance
// @Description  Sum of approved incomes and incoming transfers minus approved expenses and outgoing transfers
// @Tags         ledger
// @Produce      json
// @Param        id path string true "Account ID" format(uuid)
// @Success      200 {object} Envelope[BalanceData]
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /ledger/accounts/{id}/balance [get]
func (h *LedgerHandler) AccountBalance(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	balance, err := h.accounts.AccountBalance(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, BalanceData{AccountID: id.String(), Balance: balance})
}

// UpdateAccount godoc
// @ID           updateLedgerAccount
// @Summary      Update an account
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Param        id path string true "Account ID" format(uuid)
// @Param        request body appledger.UpdateAccountRequest true "Changes"
// @Success      200 {object} Envelope[appledger.AccountResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /ledger/accounts/{id} [patch]
func (h *LedgerHandler) UpdateAccount(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req appledger.UpdateAccountRequest
	if !h.bindJSON(c, &req) {
		return
	}
	account, err := h.accounts.UpdateAccount(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, account)
}

// DeleteAccount godoc
// @ID           deleteLedgerAccount
// @Summary      Delete an account
// @Description  Refused for system accounts and accounts referenced by any transaction
// @Tags         ledger
// @Param        id path string true "Account ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorEnvelope
// @Failure      409 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /ledger/accounts/{id} [delete]
func (h *LedgerHandler) DeleteAccount(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	if err := h.accounts.DeleteAccount(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	h.noContent(c)
}

// CategoryQuery filters the category listing
type CategoryQuery struct {
	Type *string `form:"type" binding:"omitempty,category_type"`
}

// ListCategories godoc
// @ID           listLedgerCategories
// @Summary      List categories
// @Tags         ledger
// @Produce      json
// @Param        type query string false "INCOME or EXPENSE"
// @Success      200 {object} Envelope[[]appledger.CategoryResponse]
// @Failure      400 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /ledger/categories [get]
func (h *LedgerHandler) ListCategories(c *gin.Context) {
	var q CategoryQuery
	if !h.bindQuery(c, &q) {
		return
	}
	categories, err := h.accounts.ListCategories(c.Request.Context(), q.Type)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, categories)
}

// CreateCategory godoc
// @ID           createLedgerCategory
// @Summary      Create a category
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Param        request body appledger.CreateCategoryRequest true "Category"
// @Success      201 {object} Envelope[appledger.CategoryResponse]
// @Failure      400 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /ledger/categories [post]
func (h *LedgerHandler) CreateCategory(c *gin.Context) {
	var req appledger.CreateCategoryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	category, err := h.accounts.CreateCategory(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.created(c, category)
}

// UpdateCategory godoc
// @ID           updateLedgerCategory
// @Summary      Update a category
// @Description  System categories cannot be changed
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Param        id path string true "Category ID" format(uuid)
// @Param        request body appledger.UpdateCategoryRequest true "Changes"
// @Success      200 {object} Envelope[appledger.CategoryResponse]
// @Failure      404 {object} ErrorEnvelope
// @Failure      409 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /ledger/categories/{id} [patch]
func (h *LedgerHandler) UpdateCategory(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req appledger.UpdateCategoryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	category, err := h.accounts.UpdateCategory(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, category)
}

// DeleteCategory godoc
// @ID           deleteLedgerCategory
// @Summary      Delete a category
// @Tags         ledger
// @Param        id path string true "Category ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorEnvelope
// @Failure      409 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /ledger/categories/{id} [delete]
func (h *LedgerHandler) DeleteCategory(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	if err := h.accounts.DeleteCategory(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	h.noContent(c)
}

// ListTransactions godoc
// @ID           listLedgerTransactions
// @Summary      List transactions
// @Description  Newest first, with account, category and creator names
// @Tags         ledger
// @Produce      json
// @Param        account_id query string false "Account ID" format(uuid)
// @Param        status query string false "PENDING, APPROVED or REJECTED"
// @Param        from query string false "From date (YYYY-MM-DD)"
// @Param        to query string false "To date (YYYY-MM-DD)"
// @Param        limit query int false "Maximum rows"
// @Success      200 {object} Envelope[[]appledger.TransactionResponse]
// @Failure      400 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /ledger/transactions [get]
func (h *LedgerHandler) ListTransactions(c *gin.Context) {
	var filter appledger.TransactionListFilter
	if !h.bindQuery(c, &filter) || !h.queryID(c, "account_id", &filter.AccountID) {
		return
	}
	txs, err := h.transactions.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, txs)
}

// CreateTransaction godoc
// @ID           createLedgerTransaction
// @Summary      Record a transaction
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Retry-safe request key"
// @Param        request body appledger.CreateTransactionRequest true "Transaction"
// @Success      201 {object} Envelope[appledger.TransactionResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      404 {object} ErrorEnvelope
// @Failure      409 {object} ErrorEnvelope
// @Failure      422 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /ledger/transactions [post]
func (h *LedgerHandler) CreateTransaction(c *gin.Context) {
	actor, ok := h.actorID(c)
	if !ok {
		return
	}
	var req appledger.CreateTransactionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.CreatedBy = actor
	tx, err := h.transactions.CreateTransaction(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.created(c, tx)
}

// UpdateTransaction godoc
// @ID           updateLedgerTransaction
// @Summary      Update a transaction
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Param        request body appledger.UpdateTransactionRequest true "Changes"
// @Success      200 {object} Envelope[appledger.TransactionResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /ledger/transactions/{id} [patch]
func (h *LedgerHandler) UpdateTransaction(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req appledger.UpdateTransactionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	tx, err := h.transactions.UpdateTransaction(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, tx)
}

// DeleteTransaction godoc
// @ID           deleteLedgerTransaction
// @Summary      Delete a transaction
// @Description  Approved transactions must be voided unless deletes are allowed by configuration
// @Tags         ledger
// @Param        id path string true "Transaction ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorEnvelope
// @Failure      422 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /ledger/transactions/{id} [delete]
func (h *LedgerHandler) DeleteTransaction(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	if err := h.transactions.DeleteTransaction(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	h.noContent(c)
}

// VoidTransaction godoc
// @ID           voidLedgerTransaction
// @Summary      Void a transaction
// @Description  Marks the transaction REJECTED so it no longer counts toward balances
// @Tags         ledger
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Success      200 {object} Envelope[appledger.TransactionResponse]
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /ledger/transactions/{id}/void [post]
func (h *LedgerHandler) VoidTransaction(c *gin.Context) {
	h.transition(c, h.transactions.VoidTransaction)
}

// ApproveTransaction godoc
// @ID           approveLedgerTransaction
// @Summary      Approve a pending transaction
// @Tags         ledger
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Success      200 {object} Envelope[appledger.TransactionResponse]
// @Failure      404 {object} ErrorEnvelope
// @Failure      422 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /ledger/transactions/{id}/approve [post]
func (h *LedgerHandler) ApproveTransaction(c *gin.Context) {
	h.transition(c, h.transactions.ApproveTransaction)
}

// RejectTransaction godoc
// @ID           rejectLedgerTransaction
// @Summary      Reject a pending transaction
// @Tags         ledger
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Success      200 {object} Envelope[appledger.TransactionResponse]
// @Failure      404 {object} ErrorEnvelope
// @Failure      422 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /ledger/transactions/{id}/reject [post]
func (h *LedgerHandler) RejectTransaction(c *gin.Context) {
	h.transition(c, h.transactions.RejectTransaction)
}

func (h *LedgerHandler) transition(c *gin.Context, apply func(ctx context.Context, id uuid.UUID) (*appledger.TransactionResponse, error)) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	tx, err := apply(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, tx)
}

// Report godoc
// @ID           getLedgerReport
// @Summary      Ledger report
// @Description  Approved transactions in an inclusive date range with opening balance, running balance and totals
// @Tags         ledger
// @Produce      json
// @Param        account_id query string false "Account ID; omitted reports across all accounts" format(uuid)
// @Param        start_date query string true "Start date (YYYY-MM-DD)"
// @Param        end_date query string true "End date (YYYY-MM-DD)"
// @Success      200 {object} Envelope[appledger.ReportResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /ledger/reports [get]
func (h *LedgerHandler) Report(c *gin.Context) {
	var req appledger.ReportRequest
	if !h.bindQuery(c, &req) || !h.queryID(c, "account_id", &req.AccountID) {
		return
	}
	report, err := h.reports.GenerateReport(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, report)
}
