package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// TransactionView is a transaction joined with the display names of the rows
// it references.
type TransactionView struct {
	Transaction
	AccountName   string
	ToAccountName *string
	CategoryName  *string
	CreatorName   *string
}

// ReportRow is one line of a ledger report with the running balance after it
type ReportRow struct {
	TransactionView
	Delta          int64
	RunningBalance int64
}

// Report is an ordered, balance-annotated slice of the ledger
type Report struct {
	AccountID      *uuid.UUID // nil means all accounts
	StartDate      time.Time
	EndDate        time.Time
	OpeningBalance int64
	TotalIn        int64
	TotalOut       int64
	ClosingBalance int64
	Rows           []ReportRow
}

// SortChronologically orders transactions oldest first: by date, then by
// creation time, then by id so equal timestamps still order deterministically.
func SortChronologically(txs []TransactionView) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

// BuildReport walks approved transactions in chronological order and keeps a
// running total starting from openingBalance. For a single account, income and
// incoming transfers are credits while expenses and outgoing transfers are
// debits. For all accounts, transfers net to zero.
func BuildReport(accountID *uuid.UUID, start, end time.Time, openingBalance int64, txs []TransactionView) *Report {
	ordered := make([]TransactionView, 0, len(txs))
	for _, tx := range txs {
		if tx.Status != TransactionStatusApproved {
			continue
		}
		if accountID != nil && !tx.Touches(*accountID) {
			continue
		}
		ordered = append(ordered, tx)
	}
	SortChronologically(ordered)

	report := &Report{
		AccountID:      accountID,
		StartDate:      start,
		EndDate:        end,
		OpeningBalance: openingBalance,
		Rows:           make([]ReportRow, 0, len(ordered)),
	}
	balance := openingBalance
	for _, tx := range ordered {
		var delta int64
		if accountID != nil {
			delta = tx.DeltaFor(*accountID)
		} else {
			delta = tx.NetDelta()
		}
		balance += delta
		if delta >= 0 {
			report.TotalIn += delta
		} else {
			report.TotalOut -= delta
		}
		report.Rows = append(report.Rows, ReportRow{
			TransactionView: tx,
			Delta:           delta,
			RunningBalance:  balance,
		})
	}
	report.ClosingBalance = balance
	return report
}

// ReplayBalance derives a balance from approved transactions
func ReplayBalance(accountID *uuid.UUID, txs []Transaction) int64 {
	var balance int64
	for i := range txs {
		tx := &txs[i]
		if tx.Status != TransactionStatusApproved {
			continue
		}
		if accountID == nil {
			balance += tx.NetDelta()
			continue
		}
		balance += tx.DeltaFor(*accountID)
	}
	return balance
}

// EndOfDay returns the last instant of t's calendar day so inclusive date
// ranges cover the whole end day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// StartOfDay returns midnight of t's calendar day
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
