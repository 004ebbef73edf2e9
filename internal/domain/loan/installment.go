package loan

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/shared"
)

// InstallmentStatus is the state of an installment. Installments are only
// recorded after the money is received, so PAID is the only state.
type InstallmentStatus string

const (
	InstallmentStatusPaid InstallmentStatus = "PAID"
)

// DefaultPaymentMethod is used when a payment does not name one
const DefaultPaymentMethod = "CASH"

// Installment is one recorded repayment of a loan
type Installment struct {
	shared.BaseEntity
	LoanID        uuid.UUID
	Sequence      int
	DueDate       time.Time
	Amount        int64
	Status        InstallmentStatus
	PaidAt        time.Time
	PaymentMethod string
	Notes         *string
	VaultID       uuid.UUID
}

func newPaidInstallment(l *Loan, sequence int, amount int64, method string, notes *string, vaultID uuid.UUID) *Installment {
	now := time.Now()
	if method == "" {
		method = DefaultPaymentMethod
	}
	due := now
	if l.DisbursedAt != nil {
		due = l.DisbursedAt.AddDate(0, sequence, 0)
	}
	return &Installment{
		BaseEntity:    shared.NewBaseEntity(),
		LoanID:        l.ID,
		Sequence:      sequence,
		DueDate:       due,
		Amount:        amount,
		Status:        InstallmentStatusPaid,
		PaidAt:        now,
		PaymentMethod: method,
		Notes:         trimmed(notes),
		VaultID:       vaultID,
	}
}

// SumPaid totals the amounts of paid installments
func SumPaid(installments []Installment) int64 {
	var total int64
	for _, in := range installments {
		if in.Status == InstallmentStatusPaid {
			total += in.Amount
		}
	}
	return total
}
