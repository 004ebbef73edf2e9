package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so wrapped sentinels compare equal
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes shared by every fund context.
const (
	CodeValidation          = "VALIDATION_FAILED"
	CodeConstraint          = "CONSTRAINT_VIOLATION"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeNotFound            = "NOT_FOUND"
	CodeInvalidState        = "INVALID_STATE"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput        = NewDomainError(CodeValidation, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrInsufficientBalance = NewDomainError(CodeInsufficientBalance, "Insufficient balance available")
	ErrConstraint          = NewDomainError(CodeConstraint, "Operation blocked by a data constraint")
)

// NewValidationError reports malformed or missing input.
func NewValidationError(format string, args ...any) *DomainError {
	return NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

// NewConstraintError reports a deletion or update blocked by usage or system protection.
func NewConstraintError(format string, args ...any) *DomainError {
	return NewDomainError(CodeConstraint, fmt.Sprintf(format, args...))
}

// NewNotFoundError reports a missing resource or an unmet composite precondition.
func NewNotFoundError(format string, args ...any) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf(format, args...))
}

// NewInvalidStateError reports a state transition that is not allowed.
func NewInvalidStateError(format string, args ...any) *DomainError {
	return NewDomainError(CodeInvalidState, fmt.Sprintf(format, args...))
}

// NewInsufficientBalanceError reports a debit larger than the available balance.
func NewInsufficientBalanceError(format string, args ...any) *DomainError {
	return NewDomainError(CodeInsufficientBalance, fmt.Sprintf(format, args...))
}

// IsCode reports whether err is a DomainError carrying code.
func IsCode(err error, code string) bool {
	var de *DomainError
	if !errors.As(err, &de) {
		return false
	}
	return de.Code == code
}
