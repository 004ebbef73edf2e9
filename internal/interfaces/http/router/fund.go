package router

import (
	"github.com/gin-gonic/gin"
	"github.com/schoolfund/backend/internal/interfaces/http/handler"
	"github.com/schoolfund/backend/internal/interfaces/http/middleware"
)

// Permissions required beyond the per-group read/write grants.
const (
	PermLoanApprove   = "loan:approve"
	PermSavingsVerify = "savings:verify"
)

// FundHandlers bundles the handlers of the four fund contexts
type FundHandlers struct {
	Ledger  *handler.LedgerHandler
	Vault   *handler.VaultHandler
	Loan    *handler.LoanHandler
	Savings *handler.SavingsHandler
}

// FundGroups builds the route groups of the fund API. moneyMove wraps every
// POST that changes a balance; pass nil to disable it.
func FundGroups(h FundHandlers, moneyMove gin.HandlerFunc) []*DomainGroup {
	mm := func(next gin.HandlerFunc) []gin.HandlerFunc {
		if moneyMove == nil {
			return []gin.HandlerFunc{next}
		}
		return []gin.HandlerFunc{moneyMove, next}
	}

	ledger := NewDomainGroup("ledger", "/ledger").Use(middleware.RequireResource("ledger"))
	ledger.GET("/accounts", h.Ledger.ListAccounts)
	ledger.POST("/accounts", h.Ledger.CreateAccount)
	ledger.GET("/accounts/:id", h.Ledger.GetAccount)
	ledger.GET("/accounts/:id/balance", h.Ledger.AccountBalance)
	ledger.PATCH("/accounts/:id", h.Ledger.UpdateAccount)
	ledger.DELETE("/accounts/:id", h.Ledger.DeleteAccount)
	ledger.GET("/categories", h.Ledger.ListCategories)
	ledger.POST("/categories", h.Ledger.CreateCategory)
	ledger.PATCH("/categories/:id", h.Ledger.UpdateCategory)
	ledger.DELETE("/categories/:id", h.Ledger.DeleteCategory)
	ledger.GET("/transactions", h.Ledger.ListTransactions)
	ledger.POST("/transactions", mm(h.Ledger.CreateTransaction)...)
	ledger.PATCH("/transactions/:id", h.Ledger.UpdateTransaction)
	ledger.DELETE("/transactions/:id", h.Ledger.DeleteTransaction)
	ledger.POST("/transactions/:id/void", h.Ledger.VoidTransaction)
	ledger.POST("/transactions/:id/approve", h.Ledger.ApproveTransaction)
	ledger.POST("/transactions/:id/reject", h.Ledger.RejectTransaction)
	ledger.GET("/reports", h.Ledger.Report)

	vaults := NewDomainGroup("vaults", "/vaults").Use(middleware.RequireResource("vault"))
	vaults.GET("", h.Vault.List)
	vaults.POST("", h.Vault.Create)
	vaults.GET("/transactions", h.Vault.ListTransactions)
	vaults.POST("/transfer", mm(h.Vault.Transfer)...)
	vaults.GET("/:id", h.Vault.Get)
	vaults.POST("/:id/adjust", mm(h.Vault.Adjust)...)

	loans := NewDomainGroup("loans", "/loans").Use(middleware.RequireResource("loan"))
	loans.POST("", h.Loan.Create)
	loans.GET("", h.Loan.List)
	loans.GET("/:id", h.Loan.Get)
	loans.GET("/:id/installments", h.Loan.ListInstallments)
	loans.POST("/:id/payments", mm(h.Loan.AddPayment)...)
	loans.POST("/:id/delinquent", h.Loan.MarkDelinquent)
	approve := middleware.RequirePermission(PermLoanApprove)
	loans.POST("/:id/approve", append([]gin.HandlerFunc{approve}, mm(h.Loan.Approve)...)...)
	loans.POST("/:id/reject", approve, h.Loan.Reject)

	savings := NewDomainGroup("savings", "/savings").Use(middleware.RequireResource("savings"))
	savings.POST("/entries", h.Savings.RecordEntry)
	savings.GET("/entries", h.Savings.ListEntries)
	savings.POST("/batches", h.Savings.CreateBatch)
	savings.GET("/batches", h.Savings.ListBatches)
	savings.GET("/batches/:id", h.Savings.GetBatch)
	verify := middleware.RequirePermission(PermSavingsVerify)
	savings.POST("/batches/:id/verify", append([]gin.HandlerFunc{verify}, mm(h.Savings.VerifyBatch)...)...)
	savings.POST("/batches/:id/reject", verify, h.Savings.RejectBatch)
	savings.POST("/treasury/transfer", mm(h.Savings.TreasuryTransfer)...)

	return []*DomainGroup{ledger, vaults, loans, savings}
}

// RegisterFund mounts the fund API on r
func RegisterFund(r *Router, h FundHandlers, moneyMove gin.HandlerFunc) {
	for _, group := range FundGroups(h, moneyMove) {
		r.Register(group)
	}
}
