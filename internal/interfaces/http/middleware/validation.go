package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/schoolfund/backend/internal/domain/ledger"
	"github.com/schoolfund/backend/internal/domain/loan"
	"github.com/schoolfund/backend/internal/domain/savings"
	"github.com/schoolfund/backend/internal/domain/vault"
	"github.com/schoolfund/backend/internal/interfaces/http/dto"
)

// RequestIDKey is the gin context key set by RequestID
const RequestIDKey = "request_id"

// fundEnum is a binding tag backed by a domain membership test
type fundEnum struct {
	valid  func(string) bool
	values []string
}

// fundEnums lets request structs say binding:"vault_type" instead of
// repeating the domain's value list in a oneof.
var fundEnums = map[string]fundEnum{
	"vault_type": {
		valid:  func(s string) bool { return vault.Type(s).IsValid() },
		values: []string{string(vault.TypeCash), string(vault.TypeBank)},
	},
	"treasury_kind": {
		valid: func(s string) bool {
			k, err := vault.ParseKind(s)
			return err == nil && k.Domain() == vault.DomainTreasury
		},
		values: []string{vault.KindDepositToBank.String(), vault.KindWithdrawFromBank.String()},
	},
	"borrower_type": {
		valid:  func(s string) bool { return loan.BorrowerType(s).IsValid() },
		values: []string{string(loan.BorrowerEmployee), string(loan.BorrowerSchool), string(loan.BorrowerExternal)},
	},
	"loan_type": {
		valid:  func(s string) bool { return loan.Type(s).IsValid() },
		values: []string{string(loan.TypeCashAdvance), string(loan.TypeTerm)},
	},
	"loan_status": {
		valid: func(s string) bool { return loan.Status(s).IsValid() },
		values: []string{
			string(loan.StatusPending), string(loan.StatusApproved), string(loan.StatusRejected),
			string(loan.StatusPaidOff), string(loan.StatusDelinquent),
		},
	},
	"savings_entry_type": {
		valid:  func(s string) bool { return savings.EntryType(s).IsValid() },
		values: []string{string(savings.EntryTypeDeposit), string(savings.EntryTypeWithdrawal)},
	},
	"savings_status": {
		valid:  func(s string) bool { return savings.Status(s).IsValid() },
		values: []string{string(savings.StatusPending), string(savings.StatusVerified), string(savings.StatusRejected)},
	},
	"ledger_tx_type": {
		valid: func(s string) bool { return ledger.TransactionType(s).IsValid() },
		values: []string{
			string(ledger.TransactionTypeIncome), string(ledger.TransactionTypeExpense), string(ledger.TransactionTypeTransfer),
		},
	},
	"ledger_tx_status": {
		valid: func(s string) bool { return ledger.TransactionStatus(s).IsValid() },
		values: []string{
			string(ledger.TransactionStatusPending), string(ledger.TransactionStatusApproved), string(ledger.TransactionStatusRejected),
		},
	},
	"category_type": {
		valid:  func(s string) bool { return ledger.CategoryType(s).IsValid() },
		values: []string{string(ledger.CategoryTypeIncome), string(ledger.CategoryTypeExpense)},
	},
}

// SetupValidator makes validation errors name fields by their json (or form)
// tag and registers the fund enum tags. Safe to call more than once.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			name, _, _ = strings.Cut(fld.Tag.Get("form"), ",")
		}
		return name
	})
	for tag, enum := range fundEnums {
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			f := fl.Field()
			return f.Kind() == reflect.String && enum.valid(f.String())
		})
	}
}

// FormatValidationErrors turns a binding error into a VALIDATION_FAILED
// envelope. Decoding errors carry no field details.
func FormatValidationErrors(err error, requestID string) dto.Response {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return dto.NewValidationErrorResponse("Malformed request: "+err.Error(), requestID, nil)
	}
	details := make([]dto.ValidationDetail, 0, len(verrs))
	for _, e := range verrs {
		details = append(details, dto.ValidationDetail{Field: e.Field(), Message: describeFieldError(e)})
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError writes a 400 for a binding error
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, getRequestIDFromContext(c)))
}

func getRequestIDFromContext(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(RequestIDHeader)
}

func describeFieldError(e validator.FieldError) string {
	if enum, ok := fundEnums[e.Tag()]; ok {
		return "Must be one of: " + strings.Join(enum.values, " ")
	}
	unit := ""
	if e.Kind() == reflect.String {
		unit = " characters"
	}
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return "Must be at least " + e.Param() + unit
	case "max":
		return "Must be at most " + e.Param() + unit
	case "gt":
		return "Must be greater than " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	default:
		return "Invalid value"
	}
}
