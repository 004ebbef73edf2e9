package handler

import (
	"github.com/gin-gonic/gin"
	apploan "github.com/schoolfund/backend/internal/application/loan"
)

// LoanHandler serves the loan lifecycle endpoints
type LoanHandler struct {
	responder
	loans *apploan.LoanService
}

// NewLoanHandler creates a new LoanHandler
func NewLoanHandler(loans *apploan.LoanService) *LoanHandler {
	return &LoanHandler{loans: loans}
}

// Create godoc
// @ID           createLoan
// @Summary      File a loan
// @Description  Loans start PENDING. Employee loans accept either an employee or a user reference.
// @Tags         loans
// @Accept       json
// @Produce      json
// @Param        request body apploan.CreateLoanRequest true "Loan"
// @Success      201 {object} Envelope[apploan.LoanResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /loans [post]
func (h *LoanHandler) Create(c *gin.Context) {
	actor, ok := h.actorID(c)
	if !ok {
		return
	}
	var req apploan.CreateLoanRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.CreatedBy = actor
	l, err := h.loans.CreateLoan(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.created(c, l)
}

// List godoc
// @ID           listLoans
// @Summary      List loans
// @Tags         loans
// @Produce      json
// @Param        search query string false "Borrower or employee name"
// @Param        status query string false "PENDING, APPROVED, REJECTED, LUNAS or MACET"
// @Param        borrower_type query string false "EMPLOYEE, SCHOOL or EXTERNAL"
// @Param        employee_id query string false "Employee ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        order_by query string false "Sort field"
// @Param        order_dir query string false "asc or desc"
// @Success      200 {object} Envelope[[]apploan.LoanResponse]
// @Failure      400 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /loans [get]
func (h *LoanHandler) List(c *gin.Context) {
	var filter apploan.LoanListFilter
	if !h.bindQuery(c, &filter) || !h.queryID(c, "employee_id", &filter.EmployeeID) {
		return
	}
	page, err := h.loans.ListLoans(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.okPage(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Get godoc
// @ID           getLoan
// @Summary      Get a loan
// @Tags         loans
// @Produce      json
// @Param        id path string true "Loan ID" format(uuid)
// @Success      200 {object} Envelope[apploan.LoanResponse]
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /loans/{id} [get]
func (h *LoanHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	l, err := h.loans.GetLoan(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, l)
}

// Approve godoc
// @ID           approveLoan
// @Summary      Approve and disburse a loan
// @Description  Debits the source cash vault by the approved amount in the same transaction as the approval
// @Tags         loans
// @Accept       json
// @Produce      json
// @Param        id path string true "Loan ID" format(uuid)
// @Param        Idempotency-Key header string false "Retry-safe request key"
// @Param        request body apploan.ApproveLoanRequest true "Approval"
// @Success      200 {object} Envelope[apploan.LoanResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      404 {object} ErrorEnvelope
// @Failure      422 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /loans/{id}/approve [post]
func (h *LoanHandler) Approve(c *gin.Context) {
	actor, ok := h.actorID(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req apploan.ApproveLoanRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.ActorID = actor
	l, err := h.loans.ApproveLoan(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, l)
}

// Reject godoc
// @ID           rejectLoan
// @Summary      Reject a loan
// @Tags         loans
// @Accept       json
// @Produce      json
// @Param        id path string true "Loan ID" format(uuid)
// @Param        request body apploan.RejectLoanRequest true "Reason"
// @Success      200 {object} Envelope[apploan.LoanResponse]
// @Failure      404 {object} ErrorEnvelope
// @Failure      422 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /loans/{id}/reject [post]
func (h *LoanHandler) Reject(c *gin.Context) {
	actor, ok := h.actorID(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req apploan.RejectLoanRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.ActorID = actor
	l, err := h.loans.RejectLoan(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, l)
}

// AddPayment godoc
// @ID           addLoanPayment
// @Summary      Record a repayment
// @Description  Credits the target cash vault and appends a PAID installment. The loan becomes LUNAS once nothing remains.
// @Tags         loans
// @Accept       json
// @Produce      json
// @Param        id path string true "Loan ID" format(uuid)
// @Param        Idempotency-Key header string false "Retry-safe request key"
// @Param        request body apploan.AddPaymentRequest true "Payment"
// @Success      201 {object} Envelope[apploan.PaymentResponse]
// @Failure      400 {object} ErrorEnvelope
// @Failure      404 {object} ErrorEnvelope
// @Failure      422 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /loans/{id}/payments [post]
func (h *LoanHandler) AddPayment(c *gin.Context) {
	actor, ok := h.actorID(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req apploan.AddPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.ActorID = actor
	payment, err := h.loans.AddPayment(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.created(c, payment)
}

// MarkDelinquent godoc
// @ID           markLoanDelinquent
// @Summary      Mark a loan as MACET
// @Tags         loans
// @Produce      json
// @Param        id path string true "Loan ID" format(uuid)
// @Success      200 {object} Envelope[apploan.LoanResponse]
// @Failure      404 {object} ErrorEnvelope
// @Failure      422 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /loans/{id}/delinquent [post]
func (h *LoanHandler) MarkDelinquent(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	actor, ok := h.actorID(c)
	if !ok {
		return
	}
	l, err := h.loans.MarkDelinquent(c.Request.Context(), id, actor)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, l)
}

// ListInstallments godoc
// @ID           listLoanInstallments
// @Summary      List repayments of a loan
// @Tags         loans
// @Produce      json
// @Param        id path string true "Loan ID" format(uuid)
// @Success      200 {object} Envelope[[]apploan.InstallmentResponse]
// @Failure      404 {object} ErrorEnvelope
// @Security     BearerAuth
// @Router       /loans/{id}/installments [get]
func (h *LoanHandler) ListInstallments(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	installments, err := h.loans.ListInstallments(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, installments)
}
