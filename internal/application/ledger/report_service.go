package ledger

import (
	"context"
	"fmt"

	"github.com/schoolfund/backend/internal/domain/ledger"
	"github.com/schoolfund/backend/internal/domain/shared"
	"github.com/schoolfund/backend/internal/infrastructure/telemetry"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ReportService builds balance-annotated ledger reports
type ReportService struct {
	accountRepo ledger.AccountRepository
	txRepo      ledger.TransactionRepository
	printer     *message.Printer
}

// NewReportService creates a new ReportService. Amounts are formatted with
// Indonesian digit grouping.
func NewReportService(accountRepo ledger.AccountRepository, txRepo ledger.TransactionRepository) *ReportService {
	return &ReportService{
		accountRepo: accountRepo,
		txRepo:      txRepo,
		printer:     message.NewPrinter(language.Indonesian),
	}
}

// GenerateReport lists approved transactions dated within the inclusive
// range with a running balance. The balance starts from everything approved
// before the range so repeated calls over the same data agree.
func (s *ReportService) GenerateReport(ctx context.Context, req ReportRequest) (*ReportResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "generate_report")
	defer span.End()
	if req.AccountID != nil {
		telemetry.SetAttributes(span, telemetry.SpanAttrAccountID, req.AccountID.String())
	}

	start := ledger.StartOfDay(req.StartDate)
	end := ledger.EndOfDay(req.EndDate)
	if end.Before(start) {
		return nil, shared.NewValidationError("End date must not be before start date")
	}

	var report *ledger.Report
	var opErr error
	telemetry.WithProfilingLabels(ctx, telemetry.FundOperationLabels("ledger", "generate_report"), func(c context.Context) {
		if req.AccountID != nil {
			if _, err := s.accountRepo.FindByID(c, *req.AccountID); err != nil {
				opErr = err
				return
			}
		}
		opening, err := s.txRepo.SumApprovedBefore(c, req.AccountID, start)
		if err != nil {
			opErr = fmt.Errorf("opening balance: %w", err)
			return
		}
		txs, err := s.txRepo.FindApprovedInRange(c, req.AccountID, start, end)
		if err != nil {
			opErr = fmt.Errorf("report transactions: %w", err)
			return
		}
		report = ledger.BuildReport(req.AccountID, start, end, opening, txs)
	})
	if opErr != nil {
		telemetry.RecordError(span, opErr)
		return nil, opErr
	}
	telemetry.SetAttribute(span, "report.rows", len(report.Rows))
	return s.toResponse(report), nil
}

// FormatAmount renders an amount with Indonesian digit grouping, e.g. 1.000.000
func (s *ReportService) FormatAmount(amount int64) string {
	return s.printer.Sprintf("%d", amount)
}

func (s *ReportService) toResponse(r *ledger.Report) *ReportResponse {
	resp := &ReportResponse{
		AccountID:      r.AccountID,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		OpeningBalance: r.OpeningBalance,
		TotalIn:        r.TotalIn,
		TotalOut:       r.TotalOut,
		ClosingBalance: r.ClosingBalance,
		Rows:           make([]ReportRowResponse, len(r.Rows)),
	}
	for i := range r.Rows {
		row := &r.Rows[i]
		resp.Rows[i] = ReportRowResponse{
			TransactionResponse: ToTransactionViewResponse(&row.TransactionView),
			Delta:               row.Delta,
			RunningBalance:      row.RunningBalance,
			AmountDisplay:       s.FormatAmount(row.Amount),
			BalanceDisplay:      s.FormatAmount(row.RunningBalance),
		}
	}
	return resp
}
