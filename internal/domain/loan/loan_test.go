package loan

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func newTermLoan(t *testing.T, amount int64, tenor int) *Loan {
	t.Helper()
	l, err := NewLoan(NewLoanInput{
		BorrowerType:    BorrowerEmployee,
		EmployeeID:      ptr(uuid.New()),
		Type:            TypeTerm,
		AmountRequested: amount,
		TenorMonths:     tenor,
		CreatedBy:       uuid.New(),
	})
	require.NoError(t, err)
	return l
}

func TestNewLoan(t *testing.T) {
	t.Run("employee term loan", func(t *testing.T) {
		l := newTermLoan(t, 1_000_000, 10)
		assert.Equal(t, StatusPending, l.Status)
		assert.Equal(t, int64(1_000_000), *l.AmountApproved)
		assert.Equal(t, 10, l.TenorMonths)
		assert.Nil(t, l.BorrowerName)
		assert.Equal(t, 1, l.Version)

		events := l.PullDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeLoanCreated, events[0].EventType())
	})

	t.Run("cash advance is a single month", func(t *testing.T) {
		l, err := NewLoan(NewLoanInput{
			BorrowerType:    BorrowerExternal,
			BorrowerName:    ptr("  Koperasi Guru "),
			Type:            TypeCashAdvance,
			AmountRequested: 250_000,
			TenorMonths:     6,
		})
		require.NoError(t, err)
		assert.Equal(t, 1, l.TenorMonths)
		assert.Equal(t, "Koperasi Guru", l.Borrower())
		assert.Nil(t, l.EmployeeID)
	})

	invalid := map[string]NewLoanInput{
		"unknown borrower type":      {BorrowerType: "ALUMNI", Type: TypeTerm, AmountRequested: 1, TenorMonths: 1},
		"unknown loan type":          {BorrowerType: BorrowerSchool, BorrowerName: ptr("OSIS"), Type: "BALLOON", AmountRequested: 1},
		"zero amount":                {BorrowerType: BorrowerSchool, BorrowerName: ptr("OSIS"), Type: TypeTerm, TenorMonths: 1},
		"employee without reference": {BorrowerType: BorrowerEmployee, Type: TypeTerm, AmountRequested: 1, TenorMonths: 1},
		"nil employee reference":     {BorrowerType: BorrowerEmployee, EmployeeID: ptr(uuid.Nil), Type: TypeTerm, AmountRequested: 1, TenorMonths: 1},
		"blank borrower name":        {BorrowerType: BorrowerExternal, BorrowerName: ptr("   "), Type: TypeCashAdvance, AmountRequested: 1},
		"term without tenor":         {BorrowerType: BorrowerSchool, BorrowerName: ptr("OSIS"), Type: TypeTerm, AmountRequested: 1},
	}
	for name, in := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := NewLoan(in)
			assert.True(t, shared.IsCode(err, shared.CodeValidation), "got %v", err)
		})
	}
}

func TestLoan_Approve(t *testing.T) {
	actor, vaultID := uuid.New(), uuid.New()

	t.Run("defaults to the requested amount", func(t *testing.T) {
		l := newTermLoan(t, 1_000_000, 10)
		l.PullDomainEvents()

		require.NoError(t, l.Approve(nil, 10_000, vaultID, actor))
		assert.Equal(t, StatusApproved, l.Status)
		assert.Equal(t, int64(1_000_000), *l.AmountApproved)
		assert.Equal(t, int64(1_010_000), l.TotalDue())
		assert.Equal(t, vaultID, *l.SourceVaultID)
		assert.NotNil(t, l.DisbursedAt)
		assert.Equal(t, 2, l.Version)

		events := l.PullDomainEvents()
		require.Len(t, events, 1)
		approved := events[0].(*LoanApprovedEvent)
		assert.Equal(t, int64(10_000), approved.AdminFee)
		assert.Equal(t, vaultID, approved.SourceVaultID)
		assert.Equal(t, actor, approved.ActorID())
	})

	t.Run("approved amount may differ", func(t *testing.T) {
		l := newTermLoan(t, 1_000_000, 10)
		require.NoError(t, l.Approve(ptr(int64(750_000)), 0, vaultID, actor))
		assert.Equal(t, int64(750_000), l.TotalDue())
	})

	t.Run("rejects bad amounts", func(t *testing.T) {
		l := newTermLoan(t, 1_000_000, 10)
		assert.True(t, shared.IsCode(l.Approve(ptr(int64(0)), 0, vaultID, actor), shared.CodeValidation))
		assert.True(t, shared.IsCode(l.Approve(nil, -1, vaultID, actor), shared.CodeValidation))
		assert.Equal(t, StatusPending, l.Status)
	})

	t.Run("only once", func(t *testing.T) {
		l := newTermLoan(t, 1_000_000, 10)
		require.NoError(t, l.Approve(nil, 0, vaultID, actor))
		assert.ErrorIs(t, l.Approve(nil, 0, vaultID, actor), shared.ErrInvalidState)
	})
}

func TestLoan_Reject(t *testing.T) {
	actor := uuid.New()
	l := newTermLoan(t, 500_000, 5)

	assert.True(t, shared.IsCode(l.Reject("   ", actor), shared.CodeValidation))
	require.NoError(t, l.Reject(" plafon terlampaui ", actor))
	assert.Equal(t, StatusRejected, l.Status)
	assert.Equal(t, "plafon terlampaui", *l.RejectionReason)
	assert.True(t, l.Status.IsTerminal())

	assert.ErrorIs(t, l.Reject("lagi", actor), shared.ErrInvalidState)
	assert.ErrorIs(t, l.Approve(nil, 0, uuid.New(), actor), shared.ErrInvalidState)
}

func TestLoan_RepaymentLifecycle(t *testing.T) {
	actor, cash := uuid.New(), uuid.New()
	l := newTermLoan(t, 1_000_000, 2)

	_, err := l.RecordPayment(0, 100, "", nil, cash)
	assert.ErrorIs(t, err, shared.ErrInvalidState, "pending loans take no payments")

	require.NoError(t, l.Approve(nil, 10_000, cash, actor))

	first, err := l.RecordPayment(0, 505_000, "", ptr(" cicilan 1 "), cash)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Sequence)
	assert.Equal(t, DefaultPaymentMethod, first.PaymentMethod)
	assert.Equal(t, "cicilan 1", *first.Notes)
	assert.Equal(t, l.DisbursedAt.AddDate(0, 1, 0), first.DueDate)
	assert.False(t, l.SettleIfRepaid(first.Amount))
	assert.Equal(t, int64(505_000), l.RemainingAmount(first.Amount))

	l.PullDomainEvents()
	require.NoError(t, l.MarkDelinquent(actor))
	assert.Equal(t, StatusDelinquent, l.Status)
	events := l.PullDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeLoanDelinquent, events[0].EventType())
	assert.Equal(t, actor, events[0].ActorID())
	assert.Equal(t, l.TotalDue(), events[0].(*LoanDelinquentEvent).TotalDue)
	assert.ErrorIs(t, l.MarkDelinquent(actor), shared.ErrInvalidState)
	assert.Empty(t, l.PullDomainEvents())

	second, err := l.RecordPayment(1, 505_000, "TRANSFER", nil, cash)
	require.NoError(t, err, "delinquent loans still accept payments")
	assert.Equal(t, 2, second.Sequence)

	paid := SumPaid([]Installment{*first, *second})
	assert.True(t, l.SettleIfRepaid(paid))
	assert.Equal(t, StatusPaidOff, l.Status)
	assert.Zero(t, l.RemainingAmount(paid))

	_, err = l.RecordPayment(2, 1, "", nil, cash)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.False(t, l.SettleIfRepaid(paid), "settling twice is a no-op")
}

func TestLoan_OverpaymentSettles(t *testing.T) {
	l := newTermLoan(t, 100_000, 1)
	require.NoError(t, l.Approve(nil, 0, uuid.New(), uuid.New()))

	in, err := l.RecordPayment(0, 150_000, "", nil, uuid.New())
	require.NoError(t, err)
	assert.True(t, l.SettleIfRepaid(in.Amount))
	assert.Equal(t, int64(-50_000), l.RemainingAmount(in.Amount))
}

func TestLoan_RecordPaymentRejectsNonPositive(t *testing.T) {
	l := newTermLoan(t, 100_000, 1)
	require.NoError(t, l.Approve(nil, 0, uuid.New(), uuid.New()))

	_, err := l.RecordPayment(0, 0, "", nil, uuid.New())
	assert.True(t, shared.IsCode(err, shared.CodeValidation))
}

func TestSumPaid(t *testing.T) {
	assert.Zero(t, SumPaid(nil))
	assert.Equal(t, int64(30), SumPaid([]Installment{
		{Amount: 10, Status: InstallmentStatusPaid},
		{Amount: 20, Status: InstallmentStatusPaid},
		{Amount: 99, Status: "VOID"},
	}))
}

func TestStatus(t *testing.T) {
	assert.True(t, StatusDelinquent.AcceptsPayments())
	assert.False(t, StatusPending.AcceptsPayments())
	assert.False(t, StatusDelinquent.IsTerminal())
	assert.False(t, Status("CLOSED").IsValid())
	assert.Equal(t, "LUNAS", StatusPaidOff.String())
}

func TestAdminFeePolicy(t *testing.T) {
	tests := []struct {
		rate     string
		approved int64
		want     int64
	}{
		{"", 1_000_000, 0},
		{"0", 1_000_000, 0},
		{"0.01", 1_000_000, 10_000},
		{"0.015", 1_000_001, 15_000},
		{"0.01", 50, 1},
		{"0.01", 49, 0},
	}
	for _, tt := range tests {
		p, err := NewAdminFeePolicy(tt.rate)
		require.NoError(t, err, tt.rate)
		assert.Equal(t, tt.want, p.Fee(tt.approved), "%s of %d", tt.rate, tt.approved)
	}

	for _, bad := range []string{"satu", "-0.01", "1.5"} {
		_, err := NewAdminFeePolicy(bad)
		assert.True(t, shared.IsCode(err, shared.CodeValidation), bad)
	}
}

func TestNewInstallmentPaidEvent(t *testing.T) {
	l := newTermLoan(t, 100_000, 1)
	require.NoError(t, l.Approve(nil, 0, uuid.New(), uuid.New()))
	in, err := l.RecordPayment(0, 40_000, "", nil, uuid.New())
	require.NoError(t, err)
	actor := uuid.New()

	evt := NewInstallmentPaidEvent(l, in, l.RemainingAmount(in.Amount), actor)
	assert.Equal(t, EventTypeInstallmentPaid, evt.EventType())
	assert.Equal(t, l.ID, evt.AggregateID())
	assert.Equal(t, int64(60_000), evt.Remaining)
	assert.Equal(t, 1, evt.Sequence)
	assert.WithinDuration(t, time.Now(), evt.OccurredAt(), time.Minute)
}
