package dto

import (
	"net/http"

	"github.com/schoolfund/backend/internal/domain/shared"
)

// API error codes. Domain failures keep the code of their shared.DomainError;
// the rest originate in the HTTP layer.
const (
	ErrCodeValidation          = shared.CodeValidation
	ErrCodeConstraint          = shared.CodeConstraint
	ErrCodeInsufficientBalance = shared.CodeInsufficientBalance
	ErrCodeNotFound            = shared.CodeNotFound
	ErrCodeInvalidState        = shared.CodeInvalidState
	ErrCodeUnauthorized        = shared.CodeUnauthorized
	ErrCodeConcurrencyConflict = shared.CodeConcurrencyConflict

	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeTokenExpired        = "TOKEN_EXPIRED"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodePayloadTooLarge     = "PAYLOAD_TOO_LARGE"
	ErrCodeIdempotencyMismatch = "IDEMPOTENCY_KEY_REUSED"
	ErrCodeIdempotencyInFlight = "IDEMPOTENCY_KEY_IN_FLIGHT"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// ErrorCodeHTTPStatus maps API error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeValidation:          http.StatusBadRequest,
	ErrCodeConstraint:          http.StatusConflict,
	ErrCodeInsufficientBalance: http.StatusUnprocessableEntity,
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeUnauthorized:        http.StatusUnauthorized,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeBadRequest:          http.StatusBadRequest,
	ErrCodeForbidden:           http.StatusForbidden,
	ErrCodeTokenExpired:        http.StatusUnauthorized,
	ErrCodeRateLimited:         http.StatusTooManyRequests,
	ErrCodePayloadTooLarge:     http.StatusRequestEntityTooLarge,
	ErrCodeIdempotencyMismatch: http.StatusUnprocessableEntity,
	ErrCodeIdempotencyInFlight: http.StatusConflict,
	ErrCodeInternal:            http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status for code, 500 when unknown
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// NormalizeErrorCode returns code when the API knows it and INTERNAL_ERROR
// otherwise, so unexpected codes never leak to clients.
func NormalizeErrorCode(code string) string {
	if _, ok := ErrorCodeHTTPStatus[code]; ok {
		return code
	}
	return ErrCodeInternal
}
