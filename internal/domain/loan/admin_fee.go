package loan

import (
	"github.com/schoolfund/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AdminFeePolicy charges a fixed rate of the approved amount
type AdminFeePolicy struct {
	Rate decimal.Decimal
}

// NewAdminFeePolicy parses a rate such as "0.01" for one percent
func NewAdminFeePolicy(rate string) (AdminFeePolicy, error) {
	if rate == "" {
		return AdminFeePolicy{Rate: decimal.Zero}, nil
	}
	r, err := decimal.NewFromString(rate)
	if err != nil {
		return AdminFeePolicy{}, shared.NewValidationError("Invalid admin fee rate %q", rate)
	}
	if r.IsNegative() || r.GreaterThan(decimal.NewFromInt(1)) {
		return AdminFeePolicy{}, shared.NewValidationError("Admin fee rate must be between 0 and 1")
	}
	return AdminFeePolicy{Rate: r}, nil
}

// Fee returns the fee for an approved amount rounded to the nearest unit
func (p AdminFeePolicy) Fee(approved int64) int64 {
	if p.Rate.IsZero() {
		return 0
	}
	return p.Rate.Mul(decimal.NewFromInt(approved)).Round(0).IntPart()
}
