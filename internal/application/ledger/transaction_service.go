package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/ledger"
	"github.com/schoolfund/backend/internal/domain/shared"
	"github.com/schoolfund/backend/internal/infrastructure/telemetry"
)

// Policy holds the configurable ledger rules
type Policy struct {
	// RequireApproval records new transactions as PENDING instead of APPROVED
	RequireApproval bool
	// AllowApprovedDelete permits hard deletes of APPROVED transactions.
	// When false they must be voided instead.
	AllowApprovedDelete bool
	DefaultListLimit    int
	MaxListLimit        int
}

// DefaultPolicy returns the ledger rules used when nothing is configured
func DefaultPolicy() Policy {
	return Policy{
		AllowApprovedDelete: true,
		DefaultListLimit:    50,
		MaxListLimit:        500,
	}
}

// TransactionService records and maintains ledger transactions
type TransactionService struct {
	txRepo  ledger.TransactionRepository
	txScope TransactionScope
	policy  Policy
}

// NewTransactionService creates a new TransactionService
func NewTransactionService(txRepo ledger.TransactionRepository, txScope TransactionScope, policy Policy) *TransactionService {
	if policy.DefaultListLimit <= 0 {
		policy.DefaultListLimit = 50
	}
	if policy.MaxListLimit <= 0 {
		policy.MaxListLimit = 500
	}
	return &TransactionService{txRepo: txRepo, txScope: txScope, policy: policy}
}

// CreateTransaction validates and records a transaction
func (s *TransactionService) CreateTransaction(ctx context.Context, req CreateTransactionRequest) (*TransactionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "create_transaction")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAccountID, req.AccountID.String(),
		telemetry.SpanAttrAmount, req.Amount,
	)

	in := ledger.TransactionInput{
		Type:          ledger.TransactionType(req.Type),
		AccountID:     req.AccountID,
		ToAccountID:   req.ToAccountID,
		CategoryID:    req.CategoryID,
		Amount:        req.Amount,
		Description:   req.Description,
		AttachmentRef: req.AttachmentRef,
		CreatedBy:     req.CreatedBy,
	}
	if req.Date != nil {
		in.Date = *req.Date
	}
	if s.policy.RequireApproval {
		in.Status = ledger.TransactionStatusPending
	}
	tx, err := ledger.NewTransaction(in)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := checkReferences(ctx, repos, tx); err != nil {
			return err
		}
		if err := repos.LedgerTransactionRepo().Save(ctx, tx); err != nil {
			return fmt.Errorf("save transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	resp := ToTransactionResponse(tx)
	return &resp, nil
}

// UpdateTransaction merges a partial update and re-applies every shape rule
// to the merged record.
func (s *TransactionService) UpdateTransaction(ctx context.Context, id uuid.UUID, req UpdateTransactionRequest) (*TransactionResponse, error) {
	patch := ledger.TransactionPatch{
		AccountID:     req.AccountID,
		ToAccountID:   req.ToAccountID,
		CategoryID:    req.CategoryID,
		Amount:        req.Amount,
		Description:   req.Description,
		AttachmentRef: req.AttachmentRef,
		Date:          req.Date,
	}
	if req.Type != nil {
		t := ledger.TransactionType(*req.Type)
		patch.Type = &t
	}

	var tx *ledger.Transaction
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		tx, err = repos.LedgerTransactionRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Apply(patch); err != nil {
			return err
		}
		if err := checkReferences(ctx, repos, tx); err != nil {
			return err
		}
		if err := repos.LedgerTransactionRepo().Save(ctx, tx); err != nil {
			return fmt.Errorf("save transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := ToTransactionResponse(tx)
	return &resp, nil
}

// DeleteTransaction hard deletes a transaction
func (s *TransactionService) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		tx, err := repos.LedgerTransactionRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if tx.Status == ledger.TransactionStatusApproved && !s.policy.AllowApprovedDelete {
			return shared.NewConstraintError("Approved transactions cannot be deleted; void the transaction instead")
		}
		return repos.LedgerTransactionRepo().Delete(ctx, id)
	})
}

// VoidTransaction soft-cancels an approved transaction
func (s *TransactionService) VoidTransaction(ctx context.Context, id uuid.UUID) (*TransactionResponse, error) {
	return s.transition(ctx, id, (*ledger.Transaction).Void)
}

// ApproveTransaction moves a pending transaction into the balance
func (s *TransactionService) ApproveTransaction(ctx context.Context, id uuid.UUID) (*TransactionResponse, error) {
	return s.transition(ctx, id, (*ledger.Transaction).Approve)
}

// RejectTransaction declines a pending transaction
func (s *TransactionService) RejectTransaction(ctx context.Context, id uuid.UUID) (*TransactionResponse, error) {
	return s.transition(ctx, id, (*ledger.Transaction).Reject)
}

func (s *TransactionService) transition(ctx context.Context, id uuid.UUID, apply func(*ledger.Transaction) error) (*TransactionResponse, error) {
	var tx *ledger.Transaction
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		tx, err = repos.LedgerTransactionRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := apply(tx); err != nil {
			return err
		}
		return repos.LedgerTransactionRepo().Save(ctx, tx)
	})
	if err != nil {
		return nil, err
	}
	resp := ToTransactionResponse(tx)
	return &resp, nil
}

// ListTransactions lists transactions touching an account on either leg, newest first
func (s *TransactionService) ListTransactions(ctx context.Context, filter TransactionListFilter) ([]TransactionResponse, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = s.policy.DefaultListLimit
	}
	if limit > s.policy.MaxListLimit {
		limit = s.policy.MaxListLimit
	}
	query := ledger.TransactionFilter{
		AccountID: filter.AccountID,
		FromDate:  filter.FromDate,
		Limit:     limit,
	}
	if filter.ToDate != nil {
		end := ledger.EndOfDay(*filter.ToDate)
		query.ToDate = &end
	}
	if filter.Status != nil {
		status := ledger.TransactionStatus(*filter.Status)
		query.Status = &status
	}

	views, err := s.txRepo.FindViews(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]TransactionResponse, len(views))
	for i := range views {
		out[i] = ToTransactionViewResponse(&views[i])
	}
	return out, nil
}

// checkReferences verifies that every row the transaction points at exists
func checkReferences(ctx context.Context, repos TransactionalRepositories, tx *ledger.Transaction) error {
	if _, err := repos.AccountRepo().FindByID(ctx, tx.AccountID); err != nil {
		return notFoundAs(err, "Source account %s not found", tx.AccountID)
	}
	if tx.ToAccountID != nil {
		if _, err := repos.AccountRepo().FindByID(ctx, *tx.ToAccountID); err != nil {
			return notFoundAs(err, "Destination account %s not found", *tx.ToAccountID)
		}
	}
	if tx.CategoryID != nil {
		if _, err := repos.CategoryRepo().FindByID(ctx, *tx.CategoryID); err != nil {
			return notFoundAs(err, "Category %s not found", *tx.CategoryID)
		}
	}
	return nil
}

func notFoundAs(err error, format string, args ...any) error {
	if shared.IsCode(err, shared.CodeNotFound) {
		return shared.NewNotFoundError(format, args...)
	}
	return err
}
