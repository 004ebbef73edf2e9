package loan

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/directory"
	"github.com/schoolfund/backend/internal/domain/loan"
	"github.com/schoolfund/backend/internal/domain/shared"
	"github.com/schoolfund/backend/internal/domain/vault"
	"github.com/schoolfund/backend/internal/infrastructure/telemetry"

	appvault "github.com/schoolfund/backend/internal/application/vault"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// LoanService drives loans from request to repayment. Every transition that
// moves money runs together with its vault movement in one transaction.
type LoanService struct {
	loanRepo        loan.Repository
	installmentRepo loan.InstallmentRepository
	dir             directory.Directory
	txScope         TransactionScope
	feePolicy       loan.AdminFeePolicy
	eventPublisher  shared.EventPublisher
}

// NewLoanService creates a new LoanService
func NewLoanService(
	loanRepo loan.Repository,
	installmentRepo loan.InstallmentRepository,
	dir directory.Directory,
	txScope TransactionScope,
	feePolicy loan.AdminFeePolicy,
) *LoanService {
	return &LoanService{
		loanRepo:        loanRepo,
		installmentRepo: installmentRepo,
		dir:             dir,
		txScope:         txScope,
		feePolicy:       feePolicy,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *LoanService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreateLoan files a PENDING loan request
func (s *LoanService) CreateLoan(ctx context.Context, req CreateLoanRequest) (*LoanResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "loan", "create")
	defer span.End()

	var l *loan.Loan
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		in := loan.NewLoanInput{
			BorrowerType:    loan.BorrowerType(req.BorrowerType),
			BorrowerName:    req.BorrowerName,
			Type:            loan.Type(req.LoanType),
			AmountRequested: req.AmountRequested,
			TenorMonths:     req.TenorMonths,
			Notes:           req.Notes,
			CreatedBy:       req.CreatedBy,
		}
		if in.BorrowerType == loan.BorrowerEmployee {
			if req.EmployeeRef == nil || *req.EmployeeRef == uuid.Nil {
				return shared.NewValidationError("Employee reference is required for an employee loan")
			}
			emp, err := directory.ResolveEmployee(ctx, repos.Directory(), *req.EmployeeRef)
			if err != nil {
				return err
			}
			in.EmployeeID = &emp.ID
		}

		var err error
		l, err = loan.NewLoan(in)
		if err != nil {
			return err
		}
		if err := repos.LoanRepo().Create(ctx, l); err != nil {
			return fmt.Errorf("create loan: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrLoanID, l.ID.String())

	s.publishAggregate(ctx, l)
	resp := ToLoanResponse(l, 0, 0)
	return &resp, nil
}

// ApproveLoan disburses a pending loan from a cash vault. The loan transition
// and the vault debit commit together or not at all.
func (s *LoanService) ApproveLoan(ctx context.Context, id uuid.UUID, req ApproveLoanRequest) (*LoanResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "loan", "approve")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrLoanID, id.String(),
		telemetry.SpanAttrSourceVaultID, req.SourceVaultID.String(),
		telemetry.SpanAttrActorID, req.ActorID.String(),
	)

	var l *loan.Loan
	var movement *vault.Transaction
	var opErr error
	telemetry.WithProfilingLabels(ctx, telemetry.FundOperationLabels("loan", "approve"), func(c context.Context) {
		opErr = s.txScope.Execute(c, func(repos TransactionalRepositories) error {
			var err error
			l, err = repos.LoanRepo().FindByIDForUpdate(c, id)
			if err != nil {
				return err
			}
			approved := l.AmountRequested
			if req.AmountApproved != nil {
				approved = *req.AmountApproved
			}
			if err := l.Approve(&approved, s.feePolicy.Fee(approved), req.SourceVaultID, req.ActorID); err != nil {
				return err
			}

			loanID := l.ID
			movement, err = appvault.CustodyFor(repos).Mutate(c, vault.Mutation{
				VaultID:     req.SourceVaultID,
				Delta:       -approved,
				Kind:        vault.KindLoanDisbursement,
				Note:        fmt.Sprintf("Loan disbursement %s", l.ID),
				ActorID:     req.ActorID,
				ReferenceID: &loanID,
			})
			if err != nil {
				return err
			}
			return repos.LoanRepo().SaveWithLock(c, l)
		})
	})
	if opErr != nil {
		telemetry.RecordError(span, opErr)
		return nil, opErr
	}

	s.publishAggregate(ctx, l)
	s.publish(ctx, vault.NewMovementRecordedEvent(movement))
	resp := ToLoanResponse(l, 0, 0)
	return &resp, nil
}

// RejectLoan declines a pending loan. REJECTED is terminal.
func (s *LoanService) RejectLoan(ctx context.Context, id uuid.UUID, req RejectLoanRequest) (*LoanResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "loan", "reject")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrLoanID, id.String())

	var l *loan.Loan
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		l, err = repos.LoanRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := l.Reject(req.Reason, req.ActorID); err != nil {
			return err
		}
		return repos.LoanRepo().SaveWithLock(ctx, l)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishAggregate(ctx, l)
	resp := ToLoanResponse(l, 0, 0)
	return &resp, nil
}

// AddPayment records the next installment and credits the target cash vault
// in one transaction. The loan is settled once nothing remains.
func (s *LoanService) AddPayment(ctx context.Context, id uuid.UUID, req AddPaymentRequest) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "loan", "add_payment")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrLoanID, id.String(),
		telemetry.SpanAttrVaultID, req.TargetVaultID.String(),
		telemetry.SpanAttrAmount, req.Amount,
	)

	var (
		l        *loan.Loan
		in       *loan.Installment
		movement *vault.Transaction
		paid     int64
		count    int64
	)
	var opErr error
	telemetry.WithProfilingLabels(ctx, telemetry.FundOperationLabels("loan", "add_payment"), func(c context.Context) {
		opErr = s.txScope.Execute(c, func(repos TransactionalRepositories) error {
			var err error
			l, err = repos.LoanRepo().FindByIDForUpdate(c, id)
			if err != nil {
				return err
			}
			count, err = repos.InstallmentRepo().CountByLoan(c, l.ID)
			if err != nil {
				return fmt.Errorf("count installments: %w", err)
			}
			in, err = l.RecordPayment(int(count), req.Amount, req.PaymentMethod, req.Notes, req.TargetVaultID)
			if err != nil {
				return err
			}

			loanID := l.ID
			movement, err = appvault.CustodyFor(repos).Mutate(c, vault.Mutation{
				VaultID:     req.TargetVaultID,
				Delta:       req.Amount,
				Kind:        vault.KindLoanRepayment,
				Note:        fmt.Sprintf("Loan repayment %s #%d", l.ID, in.Sequence),
				ActorID:     req.ActorID,
				ReferenceID: &loanID,
			})
			if err != nil {
				return err
			}
			if err := repos.InstallmentRepo().Create(c, in); err != nil {
				return fmt.Errorf("create installment: %w", err)
			}
			count++

			paid, err = repos.InstallmentRepo().SumPaidByLoan(c, l.ID)
			if err != nil {
				return fmt.Errorf("sum installments: %w", err)
			}
			if l.SettleIfRepaid(paid) {
				return repos.LoanRepo().SaveWithLock(c, l)
			}
			return nil
		})
	})
	if opErr != nil {
		telemetry.RecordError(span, opErr)
		return nil, opErr
	}

	remaining := l.RemainingAmount(paid)
	s.publish(ctx,
		loan.NewInstallmentPaidEvent(l, in, remaining, req.ActorID),
		vault.NewMovementRecordedEvent(movement),
	)
	return &PaymentResponse{
		Installment: ToInstallmentResponse(in),
		Loan:        ToLoanResponse(l, paid, int(count)),
	}, nil
}

// MarkDelinquent flags an approved loan as MACET
func (s *LoanService) MarkDelinquent(ctx context.Context, id, actor uuid.UUID) (*LoanResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "loan", "mark_delinquent")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrLoanID, id.String())

	var l *loan.Loan
	var paid, count int64
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		l, err = repos.LoanRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := l.MarkDelinquent(actor); err != nil {
			return err
		}
		if err := repos.LoanRepo().SaveWithLock(ctx, l); err != nil {
			return err
		}
		if paid, err = repos.InstallmentRepo().SumPaidByLoan(ctx, l.ID); err != nil {
			return err
		}
		count, err = repos.InstallmentRepo().CountByLoan(ctx, l.ID)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishAggregate(ctx, l)
	resp := ToLoanResponse(l, paid, int(count))
	return &resp, nil
}

// GetLoan returns one loan with its remaining amount derived at read time
func (s *LoanService) GetLoan(ctx context.Context, id uuid.UUID) (*LoanResponse, error) {
	l, err := s.loanRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	paid, err := s.installmentRepo.SumPaidByLoan(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("sum installments: %w", err)
	}
	count, err := s.installmentRepo.CountByLoan(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count installments: %w", err)
	}

	resp := ToLoanResponse(l, paid, int(count))
	if l.EmployeeID != nil {
		if emp, err := s.dir.FindEmployeeByID(ctx, *l.EmployeeID); err == nil {
			resp.EmployeeName = &emp.FullName
		}
	}
	return &resp, nil
}

// ListLoans lists loans with filtering and pagination
func (s *LoanService) ListLoans(ctx context.Context, filter LoanListFilter) (*shared.Paginated[LoanResponse], error) {
	page := shared.PageRequest{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
	}.Normalize(defaultPageSize, maxPageSize)

	domainFilter := loan.Filter{
		PageRequest: page,
		EmployeeID:  filter.EmployeeID,
	}
	if filter.Status != "" {
		status := loan.Status(filter.Status)
		domainFilter.Status = &status
	}
	if filter.BorrowerType != "" {
		bt := loan.BorrowerType(filter.BorrowerType)
		domainFilter.BorrowerType = &bt
	}

	summaries, err := s.loanRepo.FindSummaries(ctx, domainFilter)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	total, err := s.loanRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, fmt.Errorf("count loans: %w", err)
	}

	items := make([]LoanResponse, len(summaries))
	for i := range summaries {
		items[i] = ToLoanSummaryResponse(&summaries[i])
	}
	result := shared.NewPaginated(items, total, page)
	return &result, nil
}

// ListInstallments lists the repayments of a loan by sequence
func (s *LoanService) ListInstallments(ctx context.Context, loanID uuid.UUID) ([]InstallmentResponse, error) {
	if _, err := s.loanRepo.FindByID(ctx, loanID); err != nil {
		return nil, err
	}
	installments, err := s.installmentRepo.FindByLoan(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}
	out := make([]InstallmentResponse, len(installments))
	for i := range installments {
		out[i] = ToInstallmentResponse(&installments[i])
	}
	return out, nil
}

func (s *LoanService) publishAggregate(ctx context.Context, l *loan.Loan) {
	s.publish(ctx, l.PullDomainEvents()...)
}

func (s *LoanService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}
