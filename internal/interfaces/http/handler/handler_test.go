package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	appledger "github.com/schoolfund/backend/internal/application/ledger"
	apploan "github.com/schoolfund/backend/internal/application/loan"
	appsavings "github.com/schoolfund/backend/internal/application/savings"
	appvault "github.com/schoolfund/backend/internal/application/vault"
	"github.com/schoolfund/backend/internal/domain/loan"
	"github.com/schoolfund/backend/internal/infrastructure/auth"
	"github.com/schoolfund/backend/internal/infrastructure/persistence"
	"github.com/schoolfund/backend/internal/interfaces/http/middleware"
	"github.com/schoolfund/backend/tests/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type apiFixture struct {
	db     *gorm.DB
	engine *gin.Engine
	actor  uuid.UUID
}

// newAPIFixture wires every handler over a private SQLite database. Requests
// are authenticated as a seeded treasurer unless anonymous is set.
func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	db := testutil.NewFundDB(t)
	scope := persistence.NewGormTransactionScope(db)

	accountRepo := persistence.NewGormAccountRepository(db)
	txRepo := persistence.NewGormTransactionRepository(db)
	feePolicy, err := loan.NewAdminFeePolicy("")
	require.NoError(t, err)

	ledgerHandler := NewLedgerHandler(
		appledger.NewAccountService(accountRepo, persistence.NewGormCategoryRepository(db), scope.Ledger()),
		appledger.NewTransactionService(txRepo, scope.Ledger(), appledger.DefaultPolicy()),
		appledger.NewReportService(accountRepo, txRepo),
	)
	vaultHandler := NewVaultHandler(appvault.NewCustodyService(
		persistence.NewGormVaultRepository(db),
		persistence.NewGormVaultTransactionRepository(db),
		scope.Vault(),
	))
	loanHandler := NewLoanHandler(apploan.NewLoanService(
		persistence.NewGormLoanRepository(db),
		persistence.NewGormInstallmentRepository(db),
		persistence.NewGormDirectory(db),
		scope.Loan(),
		feePolicy,
	))
	savingsHandler := NewSavingsHandler(appsavings.NewSavingsService(
		persistence.NewGormDepositEntryRepository(db),
		persistence.NewGormDepositBatchRepository(db),
		scope.Savings(),
	))

	f := &apiFixture{
		db:    db,
		actor: testutil.SeedUser(t, db, "bendahara", "Bendahara Sekolah"),
	}

	e := gin.New()
	e.Use(middleware.RequestID())
	e.Use(func(c *gin.Context) {
		if c.GetHeader("X-Anonymous") == "" {
			c.Set(middleware.JWTClaimsKey, &auth.Claims{UserID: f.actor.String(), Permissions: []string{"*"}})
			c.Set(middleware.JWTUserIDKey, f.actor.String())
		}
		c.Next()
	})

	l := e.Group("/ledger")
	l.GET("/accounts", ledgerHandler.ListAccounts)
	l.POST("/accounts", ledgerHandler.CreateAccount)
	l.GET("/accounts/:id", ledgerHandler.GetAccount)
	l.GET("/accounts/:id/balance", ledgerHandler.AccountBalance)
	l.PATCH("/accounts/:id", ledgerHandler.UpdateAccount)
	l.DELETE("/accounts/:id", ledgerHandler.DeleteAccount)
	l.GET("/categories", ledgerHandler.ListCategories)
	l.POST("/categories", ledgerHandler.CreateCategory)
	l.DELETE("/categories/:id", ledgerHandler.DeleteCategory)
	l.GET("/transactions", ledgerHandler.ListTransactions)
	l.POST("/transactions", ledgerHandler.CreateTransaction)
	l.DELETE("/transactions/:id", ledgerHandler.DeleteTransaction)
	l.POST("/transactions/:id/void", ledgerHandler.VoidTransaction)
	l.GET("/reports", ledgerHandler.Report)

	v := e.Group("/vaults")
	v.GET("", vaultHandler.List)
	v.POST("", vaultHandler.Create)
	v.GET("/transactions", vaultHandler.ListTransactions)
	v.POST("/transfer", vaultHandler.Transfer)
	v.GET("/:id", vaultHandler.Get)
	v.POST("/:id/adjust", vaultHandler.Adjust)

	lo := e.Group("/loans")
	lo.POST("", loanHandler.Create)
	lo.GET("", loanHandler.List)
	lo.GET("/:id", loanHandler.Get)
	lo.POST("/:id/approve", loanHandler.Approve)
	lo.POST("/:id/reject", loanHandler.Reject)
	lo.POST("/:id/payments", loanHandler.AddPayment)
	lo.POST("/:id/delinquent", loanHandler.MarkDelinquent)
	lo.GET("/:id/installments", loanHandler.ListInstallments)

	s := e.Group("/savings")
	s.POST("/entries", savingsHandler.RecordEntry)
	s.GET("/entries", savingsHandler.ListEntries)
	s.POST("/batches", savingsHandler.CreateBatch)
	s.GET("/batches", savingsHandler.ListBatches)
	s.GET("/batches/:id", savingsHandler.GetBatch)
	s.POST("/batches/:id/verify", savingsHandler.VerifyBatch)
	s.POST("/batches/:id/reject", savingsHandler.RejectBatch)
	s.POST("/treasury/transfer", savingsHandler.TreasuryTransfer)

	f.engine = e
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

// jsonBody is a request payload
type jsonBody = map[string]any

type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *struct {
		Total      int64 `json:"total"`
		Page       int   `json:"page"`
		PageSize   int   `json:"page_size"`
		TotalPages int   `json:"total_pages"`
	} `json:"meta"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
}

func requireErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	requireStatus(t, w, status)
	env := decode[json.RawMessage](t, w)
	require.NotNil(t, env.Error)
	require.Equal(t, code, env.Error.Code)
}

