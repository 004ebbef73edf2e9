package event

import (
	"context"

	"github.com/schoolfund/backend/internal/domain/loan"
	"github.com/schoolfund/backend/internal/domain/savings"
	"github.com/schoolfund/backend/internal/domain/shared"
	"github.com/schoolfund/backend/internal/domain/vault"
)

// FundMetricsRecorder is the part of telemetry.FundMetrics the handler drives
type FundMetricsRecorder interface {
	RecordVaultMovement(ctx context.Context, kind, domain string, amount int64)
	RecordLoanTransition(ctx context.Context, status string)
	RecordBatchFinalized(ctx context.Context, batchType, outcome string)
}

// FundMetricsHandler turns committed fund events into metric points
type FundMetricsHandler struct {
	recorder FundMetricsRecorder
}

// NewFundMetricsHandler creates the handler
func NewFundMetricsHandler(recorder FundMetricsRecorder) *FundMetricsHandler {
	return &FundMetricsHandler{recorder: recorder}
}

// EventTypes returns the events that carry a metric
func (h *FundMetricsHandler) EventTypes() []string {
	return []string{
		vault.EventTypeMovementRecorded,
		loan.EventTypeLoanCreated,
		loan.EventTypeLoanApproved,
		loan.EventTypeLoanRejected,
		loan.EventTypeInstallmentPaid,
		loan.EventTypeLoanDelinquent,
		savings.EventTypeBatchVerified,
		savings.EventTypeBatchRejected,
	}
}

// Handle records the metric for evt. Unknown events are ignored.
func (h *FundMetricsHandler) Handle(ctx context.Context, evt shared.DomainEvent) error {
	switch e := evt.(type) {
	case *vault.MovementRecordedEvent:
		h.recorder.RecordVaultMovement(ctx, e.Kind, string(e.Domain), e.Amount)
	case *loan.LoanCreatedEvent:
		h.recorder.RecordLoanTransition(ctx, string(loan.StatusPending))
	case *loan.LoanApprovedEvent:
		h.recorder.RecordLoanTransition(ctx, string(loan.StatusApproved))
	case *loan.LoanRejectedEvent:
		h.recorder.RecordLoanTransition(ctx, string(loan.StatusRejected))
	case *loan.LoanDelinquentEvent:
		h.recorder.RecordLoanTransition(ctx, string(loan.StatusDelinquent))
	case *loan.InstallmentPaidEvent:
		if e.Remaining <= 0 {
			h.recorder.RecordLoanTransition(ctx, string(loan.StatusPaidOff))
		}
	case *savings.BatchVerifiedEvent:
		h.recorder.RecordBatchFinalized(ctx, string(e.BatchType), "verified")
	case *savings.BatchRejectedEvent:
		h.recorder.RecordBatchFinalized(ctx, "", "rejected")
	}
	return nil
}

var _ shared.EventHandler = (*FundMetricsHandler)(nil)
