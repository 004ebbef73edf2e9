package vault

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/shared"
	"github.com/schoolfund/backend/internal/domain/vault"
	"github.com/schoolfund/backend/internal/infrastructure/telemetry"
)

const (
	defaultTransactionLimit = 50
	maxTransactionLimit     = 500
)

// CustodyService manages vaults and their balance movements
type CustodyService struct {
	vaultRepo      vault.Repository
	journalRepo    vault.TransactionRepository
	txScope        TransactionScope
	eventPublisher shared.EventPublisher
}

// NewCustodyService creates a new CustodyService
func NewCustodyService(vaultRepo vault.Repository, journalRepo vault.TransactionRepository, txScope TransactionScope) *CustodyService {
	return &CustodyService{
		vaultRepo:   vaultRepo,
		journalRepo: journalRepo,
		txScope:     txScope,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *CustodyService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// ListVaults returns every vault with its stored balance
func (s *CustodyService) ListVaults(ctx context.Context) ([]VaultResponse, error) {
	vaults, err := s.vaultRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vaults: %w", err)
	}
	out := make([]VaultResponse, len(vaults))
	for i := range vaults {
		out[i] = ToVaultResponse(&vaults[i])
	}
	return out, nil
}

// GetVault returns one vault
func (s *CustodyService) GetVault(ctx context.Context, id uuid.UUID) (*VaultResponse, error) {
	v, err := s.vaultRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToVaultResponse(v)
	return &resp, nil
}

// CreateVault creates an empty vault. Money only enters it through a movement.
func (s *CustodyService) CreateVault(ctx context.Context, req CreateVaultRequest) (*VaultResponse, error) {
	v, err := vault.NewVault(req.Name, vault.Type(req.Type))
	if err != nil {
		return nil, err
	}
	if err := s.vaultRepo.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("create vault: %w", err)
	}
	resp := ToVaultResponse(v)
	return &resp, nil
}

// Adjust records a manual correction on one vault
func (s *CustodyService) Adjust(ctx context.Context, vaultID uuid.UUID, req AdjustRequest) (*TransactionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "vault", "adjust")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrVaultID, vaultID.String(),
		telemetry.SpanAttrAmount, req.Delta,
		telemetry.SpanAttrActorID, req.ActorID.String(),
	)

	kind := vault.KindAdjustmentIn
	if req.Delta < 0 {
		kind = vault.KindAdjustmentOut
	}

	var row *vault.Transaction
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		row, err = CustodyFor(repos).Mutate(ctx, vault.Mutation{
			VaultID: vaultID,
			Delta:   req.Delta,
			Kind:    kind,
			Note:    req.Note,
			ActorID: req.ActorID,
		})
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publish(ctx, vault.NewMovementRecordedEvent(row))
	resp := ToTransactionResponse(row)
	return &resp, nil
}

// Transfer moves money between two vaults as one audited movement
func (s *CustodyService) Transfer(ctx context.Context, req TransferRequest) (*TransactionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "vault", "transfer")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSourceVaultID, req.SourceVaultID.String(),
		telemetry.SpanAttrDestinationVaultID, req.DestinationVaultID.String(),
		telemetry.SpanAttrVaultKind, req.Kind,
		telemetry.SpanAttrAmount, req.Amount,
	)

	kind, err := vault.ParseKind(req.Kind)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var row *vault.Transaction
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		row, err = CustodyFor(repos).Transfer(ctx, vault.Transfer{
			SourceID:      req.SourceVaultID,
			DestinationID: req.DestinationVaultID,
			Amount:        req.Amount,
			Kind:          kind,
			Note:          req.Note,
			ActorID:       req.ActorID,
		})
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publish(ctx, vault.NewMovementRecordedEvent(row))
	resp := ToTransactionResponse(row)
	return &resp, nil
}

// ListTransactions returns the audit log newest first
func (s *CustodyService) ListTransactions(ctx context.Context, filter TransactionListFilter) ([]TransactionResponse, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultTransactionLimit
	}
	if limit > maxTransactionLimit {
		limit = maxTransactionLimit
	}
	rows, err := s.journalRepo.FindAll(ctx, vault.TransactionFilter{
		VaultID:     filter.VaultID,
		ReferenceID: filter.ReferenceID,
		Limit:       limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list vault transactions: %w", err)
	}
	out := make([]TransactionResponse, len(rows))
	for i := range rows {
		out[i] = ToTransactionResponse(&rows[i])
	}
	return out, nil
}

// VaultBalances samples stored balances for the balance gauge
func (s *CustodyService) VaultBalances(ctx context.Context) ([]telemetry.VaultBalance, error) {
	vaults, err := s.vaultRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]telemetry.VaultBalance, len(vaults))
	for i, v := range vaults {
		out[i] = telemetry.VaultBalance{ID: v.ID.String(), Type: string(v.Type), Balance: v.Balance}
	}
	return out, nil
}

func (s *CustodyService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	// errors are logged by the event bus, not propagated
	_ = s.eventPublisher.Publish(ctx, events...)
}

var _ telemetry.VaultBalanceProvider = (*CustodyService)(nil)
