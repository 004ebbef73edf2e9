package savings

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/savings"
	"github.com/schoolfund/backend/internal/domain/shared"
	"github.com/schoolfund/backend/internal/domain/vault"
	"github.com/schoolfund/backend/internal/infrastructure/telemetry"

	appvault "github.com/schoolfund/backend/internal/application/vault"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// SavingsService runs the collector to treasurer hand-off of student savings
type SavingsService struct {
	entryRepo      savings.EntryRepository
	batchRepo      savings.BatchRepository
	txScope        TransactionScope
	eventPublisher shared.EventPublisher
}

// NewSavingsService creates a new SavingsService
func NewSavingsService(entryRepo savings.EntryRepository, batchRepo savings.BatchRepository, txScope TransactionScope) *SavingsService {
	return &SavingsService{
		entryRepo: entryRepo,
		batchRepo: batchRepo,
		txScope:   txScope,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *SavingsService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// RecordDepositEntry records a pending, unbatched entry
func (s *SavingsService) RecordDepositEntry(ctx context.Context, req RecordEntryRequest) (*EntryResponse, error) {
	e, err := savings.NewDepositEntry(req.StudentRef, req.CollectorID, savings.EntryType(req.Type), req.Amount, req.Notes)
	if err != nil {
		return nil, err
	}
	if err := s.entryRepo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}
	resp := ToEntryResponse(e)
	return &resp, nil
}

// CreateBatch bundles every pending unbatched entry of the collector into a
// new batch.
func (s *SavingsService) CreateBatch(ctx context.Context, req CreateBatchRequest) (*BatchResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "savings", "create_batch")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrCollectorID, req.CollectorID.String())

	var batch *savings.DepositBatch
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		entries, err := repos.EntryRepo().FindUnbatchedPending(ctx, req.CollectorID)
		if err != nil {
			return fmt.Errorf("load pending entries: %w", err)
		}
		batch, err = savings.NewDepositBatch(req.CollectorID, req.Notes, entries)
		if err != nil {
			return err
		}
		if err := repos.BatchRepo().Create(ctx, batch); err != nil {
			return fmt.Errorf("create batch: %w", err)
		}

		ids := make([]uuid.UUID, len(batch.Entries))
		for i := range batch.Entries {
			ids[i] = batch.Entries[i].ID
		}
		linked, err := repos.EntryRepo().LinkToBatch(ctx, batch.ID, ids)
		if err != nil {
			return fmt.Errorf("link entries: %w", err)
		}
		if linked != int64(len(ids)) {
			return shared.ErrConcurrencyConflict
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrBatchID, batch.ID.String(),
		telemetry.SpanAttrAmount, batch.TotalAmount,
	)

	resp := ToBatchResponse(batch)
	return &resp, nil
}

// VerifyBatch accepts a pending batch and cascades verified to its entries.
// With Settle the batch total also moves between the cash and bank vaults,
// all inside one transaction.
func (s *SavingsService) VerifyBatch(ctx context.Context, batchID uuid.UUID, req VerifyBatchRequest) (*BatchResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "savings", "verify_batch")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrBatchID, batchID.String(),
		telemetry.SpanAttrActorID, req.TreasurerID.String(),
	)

	var batch *savings.DepositBatch
	var movement *vault.Transaction
	var opErr error
	telemetry.WithProfilingLabels(ctx, telemetry.FundOperationLabels("savings", "verify_batch"), func(c context.Context) {
		opErr = s.txScope.Execute(c, func(repos TransactionalRepositories) error {
			var err error
			batch, err = s.lockWithEntries(c, repos, batchID)
			if err != nil {
				return err
			}
			if err := batch.Verify(req.TreasurerID); err != nil {
				return err
			}
			if err := s.finalize(c, repos, batch); err != nil {
				return err
			}
			if !req.Settle || batch.TotalAmount == 0 {
				return nil
			}

			kind := vault.KindDepositToBank
			if batch.Type == savings.BatchTypeWithdrawalFromTreasurer {
				kind = vault.KindWithdrawFromBank
			}
			ref := batch.ID
			movement, err = transferBetweenTreasuryVaults(c, repos, kind, batch.TotalAmount,
				fmt.Sprintf("Settlement of savings batch %s", batch.ID), req.TreasurerID, &ref)
			return err
		})
	})
	if opErr != nil {
		telemetry.RecordError(span, opErr)
		return nil, opErr
	}

	s.publishAggregate(ctx, batch)
	if movement != nil {
		s.publish(ctx, vault.NewMovementRecordedEvent(movement))
	}
	resp := ToBatchResponse(batch)
	return &resp, nil
}

// RejectBatch refuses a pending batch and cascades rejected to its entries.
// The reason is appended to the batch notes.
func (s *SavingsService) RejectBatch(ctx context.Context, batchID uuid.UUID, req RejectBatchRequest) (*BatchResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "savings", "reject_batch")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrBatchID, batchID.String())

	var batch *savings.DepositBatch
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		batch, err = s.lockWithEntries(ctx, repos, batchID)
		if err != nil {
			return err
		}
		if err := batch.Reject(req.Reason, req.ActorID); err != nil {
			return err
		}
		return s.finalize(ctx, repos, batch)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishAggregate(ctx, batch)
	resp := ToBatchResponse(batch)
	return &resp, nil
}

// TransferVaultFunds moves money between the institution's cash vault and
// bank vault.
func (s *SavingsService) TransferVaultFunds(ctx context.Context, req TreasuryTransferRequest) (*appvault.TransactionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "savings", "treasury_transfer")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrVaultKind, req.Kind,
		telemetry.SpanAttrAmount, req.Amount,
	)

	kind, err := vault.ParseKind(req.Kind)
	if err != nil {
		return nil, err
	}
	if !kind.IsTransfer() {
		return nil, shared.NewValidationError("%q is not a treasury transfer", req.Kind)
	}

	var movement *vault.Transaction
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		movement, err = transferBetweenTreasuryVaults(ctx, repos, kind, req.Amount, req.Note, req.ActorID, nil)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publish(ctx, vault.NewMovementRecordedEvent(movement))
	resp := appvault.ToTransactionResponse(movement)
	return &resp, nil
}

// GetBatch returns a batch with its entries
func (s *SavingsService) GetBatch(ctx context.Context, id uuid.UUID) (*BatchResponse, error) {
	batch, err := s.batchRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	entries, err := s.entryRepo.FindByBatch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load batch entries: %w", err)
	}
	batch.Entries = entries
	resp := ToBatchResponse(batch)
	return &resp, nil
}

// ListBatches lists batches newest first
func (s *SavingsService) ListBatches(ctx context.Context, filter BatchListFilter) ([]BatchResponse, error) {
	query := savings.BatchFilter{
		CollectorID: filter.CollectorID,
		Limit:       clampLimit(filter.Limit),
	}
	if filter.Status != "" {
		status := savings.Status(filter.Status)
		query.Status = &status
	}
	batches, err := s.batchRepo.FindAll(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	out := make([]BatchResponse, len(batches))
	for i := range batches {
		out[i] = ToBatchResponse(&batches[i])
	}
	return out, nil
}

// ListEntries lists entries newest first
func (s *SavingsService) ListEntries(ctx context.Context, filter EntryListFilter) ([]EntryResponse, error) {
	query := savings.EntryFilter{
		CollectorID: filter.CollectorID,
		BatchID:     filter.BatchID,
		Unbatched:   filter.Unbatched,
		Limit:       clampLimit(filter.Limit),
	}
	if filter.Status != "" {
		status := savings.Status(filter.Status)
		query.Status = &status
	}
	entries, err := s.entryRepo.FindAll(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return ToEntryResponses(entries), nil
}

func (s *SavingsService) lockWithEntries(ctx context.Context, repos TransactionalRepositories, id uuid.UUID) (*savings.DepositBatch, error) {
	batch, err := repos.BatchRepo().FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	entries, err := repos.EntryRepo().FindByBatch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load batch entries: %w", err)
	}
	batch.Entries = entries
	return batch, nil
}

// finalize persists a batch transition and its entry cascade
func (s *SavingsService) finalize(ctx context.Context, repos TransactionalRepositories, batch *savings.DepositBatch) error {
	if err := repos.BatchRepo().SaveWithLock(ctx, batch); err != nil {
		return err
	}
	if _, err := repos.EntryRepo().SetStatusByBatch(ctx, batch.ID, batch.Status); err != nil {
		return fmt.Errorf("cascade entry status: %w", err)
	}
	return nil
}

// transferBetweenTreasuryVaults resolves the single cash and bank vaults and
// moves amount between them in the direction kind names.
func transferBetweenTreasuryVaults(
	ctx context.Context,
	repos TransactionalRepositories,
	kind vault.Kind,
	amount int64,
	note string,
	actor uuid.UUID,
	ref *uuid.UUID,
) (*vault.Transaction, error) {
	cash, err := repos.VaultRepo().FindFirstByType(ctx, vault.TypeCash)
	if err != nil {
		return nil, incompleteVaults(err)
	}
	bank, err := repos.VaultRepo().FindFirstByType(ctx, vault.TypeBank)
	if err != nil {
		return nil, incompleteVaults(err)
	}

	t := vault.Transfer{
		SourceID:      cash.ID,
		DestinationID: bank.ID,
		Amount:        amount,
		Kind:          kind,
		Note:          note,
		ActorID:       actor,
		ReferenceID:   ref,
	}
	if kind.SourceType() == vault.TypeBank {
		t.SourceID, t.DestinationID = bank.ID, cash.ID
	}
	return appvault.CustodyFor(repos).Transfer(ctx, t)
}

func incompleteVaults(err error) error {
	if shared.IsCode(err, shared.CodeNotFound) {
		return shared.NewNotFoundError("Vault configuration incomplete")
	}
	return err
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func (s *SavingsService) publishAggregate(ctx context.Context, b *savings.DepositBatch) {
	s.publish(ctx, b.PullDomainEvents()...)
}

func (s *SavingsService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}
