package handler

import "github.com/schoolfund/backend/internal/interfaces/http/dto"

// Envelope documents the success body of every endpoint
// @Description success is always true; meta is set on paginated lists
type Envelope[T any] struct {
	Success bool      `json:"success" example:"true"`
	Data    T         `json:"data,omitempty"`
	Meta    *dto.Meta `json:"meta,omitempty"`
}

// ErrorEnvelope documents a failed request
// @Description error.code is one of the API error codes; request_id echoes X-Request-ID
type ErrorEnvelope struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error"`
}

// BalanceData is an account balance in rupiah
type BalanceData struct {
	AccountID string `json:"account_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Balance   int64  `json:"balance" example:"1500000"`
}
