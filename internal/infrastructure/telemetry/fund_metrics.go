package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when a metrics set is built without a meter
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// VaultBalance is one vault's stored balance as sampled for the balance gauge
type VaultBalance struct {
	ID      string
	Type    string
	Balance int64
}

// VaultBalanceProvider reports the current vault balances. The telemetry
// layer queries it without depending on the vault domain.
type VaultBalanceProvider interface {
	VaultBalances(ctx context.Context) ([]VaultBalance, error)
}

// FundMetrics records money movements, loan transitions and savings batch
// outcomes, and samples vault balances on an interval.
type FundMetrics struct {
	logger *zap.Logger

	vaultMovementTotal  *Counter
	vaultMovementAmount *Histogram
	loanTransitionTotal *Counter
	batchFinalizedTotal *Counter
	vaultBalance        *Gauge

	balances    VaultBalanceProvider
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
}

// FundMetricsConfig holds configuration for fund metrics.
type FundMetricsConfig struct {
	Meter    metric.Meter
	Logger   *zap.Logger
	Balances VaultBalanceProvider
}

// NewFundMetrics creates the fund metric instruments
func NewFundMetrics(cfg FundMetricsConfig) (*FundMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	fm := &FundMetrics{
		logger:   logger,
		balances: cfg.Balances,
		stopChan: make(chan struct{}),
	}

	in := NewInstruments(cfg.Meter)
	fm.vaultMovementTotal = in.Counter("fund_vault_movement_total", "Vault movements committed", "{movements}")
	fm.vaultMovementAmount = in.Histogram("fund_vault_movement_amount", "Amount moved per vault movement", "{currency}", AmountBuckets)
	fm.loanTransitionTotal = in.Counter("fund_loan_transition_total", "Loan lifecycle transitions", "{loans}")
	fm.batchFinalizedTotal = in.Counter("fund_savings_batch_finalized_total", "Savings batches verified or rejected", "{batches}")
	fm.vaultBalance = in.Gauge("fund_vault_balance", "Stored vault balance", "{currency}")
	if err := in.Err(); err != nil {
		return nil, err
	}
	return fm, nil
}

// RecordVaultMovement records one committed vault audit row
func (fm *FundMetrics) RecordVaultMovement(ctx context.Context, kind, domain string, amount int64) {
	fm.vaultMovementTotal.Inc(ctx, AttrVaultKind.String(kind), AttrVaultDomain.String(domain))
	fm.vaultMovementAmount.Record(ctx, float64(amount), AttrVaultKind.String(kind))
}

// RecordLoanTransition records a loan entering status
func (fm *FundMetrics) RecordLoanTransition(ctx context.Context, status string) {
	fm.loanTransitionTotal.Inc(ctx, AttrLoanStatus.String(status))
}

// RecordBatchFinalized records a savings batch outcome ("verified" or "rejected")
func (fm *FundMetrics) RecordBatchFinalized(ctx context.Context, batchType, outcome string) {
	fm.batchFinalizedTotal.Inc(ctx, AttrBatchType.String(batchType), AttrOutcome.String(outcome))
}

// StartPeriodicCollection samples vault balances every interval until Stop
// or ctx cancellation. Non-blocking.
func (fm *FundMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	fm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go fm.runPeriodicCollection(ctx, interval)
	})
}

func (fm *FundMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fm.collectVaultBalances(ctx)
	for {
		select {
		case <-fm.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			fm.collectVaultBalances(ctx)
		}
	}
}

func (fm *FundMetrics) collectVaultBalances(ctx context.Context) {
	if fm.balances == nil {
		return
	}
	balances, err := fm.balances.VaultBalances(ctx)
	if err != nil {
		fm.logger.Warn("Failed to sample vault balances", zap.Error(err))
		return
	}
	for _, b := range balances {
		fm.vaultBalance.Record(ctx, b.Balance, AttrVaultID.String(b.ID), AttrVaultType.String(b.Type))
	}
}

// Stop stops the periodic collection.
func (fm *FundMetrics) Stop() {
	fm.stopOnce.Do(func() {
		close(fm.stopChan)
	})
}
