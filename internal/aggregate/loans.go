package aggregate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/biblioteca/services/library/internal/db"
	"go.uber.org/zap"
)

// DueDateLayout renders due dates as DD/MM/YYYY
const DueDateLayout = "02/01/2006"

// LoanSource is the data the loan formatter reads
type LoanSource interface {
	LoansForAccount(ctx context.Context, account string, state db.LoanState) ([]db.LoanRow, error)
}

// LoanEntry is one loan as shown to its borrower
type LoanEntry struct {
	LoanID      uint         `json:"loanId"`
	PorcentLoan float64      `json:"porcentLoan"`
	ReturnDate  string       `json:"returnDate"`
	State       db.LoanState `json:"state"`
	LoanedAt    time.Time    `json:"loanedAt"`
	ExpiresOn   time.Time    `json:"expiresOn"`
	BookID      uint         `json:"bookId"`
	ISBN        string       `json:"isbn"`
	BookTitle   string       `json:"bookTitle"`
	Authors     string       `json:"authors"`
}

// MonthGroup is the loans that started in one calendar month
type MonthGroup struct {
	Month string      `json:"month"` // YYYY-MM
	Loans []LoanEntry `json:"loans"`
}

// LoanFormatter shapes an account's loans for display. Like the recommender
// it degrades to empty results on query failures.
type LoanFormatter struct {
	src LoanSource
	log *zap.Logger
	now func() time.Time
}

// NewLoanFormatter creates a formatter. A nil clock uses time.Now.
func NewLoanFormatter(src LoanSource, log *zap.Logger, now func() time.Time) *LoanFormatter {
	if now == nil {
		now = time.Now
	}
	return &LoanFormatter{src: src, log: log, now: now}
}

// ActiveLoans returns the account's active loans, one entry per loan
func (f *LoanFormatter) ActiveLoans(ctx context.Context, account string) Result[LoanEntry] {
	entries, err := f.load(ctx, account, db.LoanActive)
	if err != nil {
		return f.degrade("active", account, err)
	}
	return ok(entries)
}

// History returns every loan of the account grouped by the month it started,
// newest month first.
func (f *LoanFormatter) History(ctx context.Context, account string) Result[MonthGroup] {
	entries, err := f.load(ctx, account, "")
	if err != nil {
		f.log.Warn("Loan history degraded", zap.String("account", account), zap.Error(err))
		return failed[MonthGroup](err)
	}
	return ok(GroupByMonth(entries))
}

func (f *LoanFormatter) load(ctx context.Context, account string, state db.LoanState) ([]LoanEntry, error) {
	if account == "" {
		return nil, ErrMissingAccount
	}
	rows, err := f.src.LoansForAccount(ctx, account, state)
	if err != nil {
		return nil, fmt.Errorf("loans for account: %w", err)
	}

	authorRows := make([]db.AuthorRow, len(rows))
	for i, row := range rows {
		authorRows[i] = row.Author()
	}
	authors := CollectAuthorNames(authorRows)

	now := f.now()
	seen := make(map[uint]bool, len(rows))
	entries := make([]LoanEntry, 0, len(rows))
	for _, row := range rows {
		if seen[row.LoanID] {
			continue
		}
		seen[row.LoanID] = true
		entries = append(entries, LoanEntry{
			LoanID:      row.LoanID,
			PorcentLoan: LoanProgress(row.LoanedAt, row.ExpiresOn, now),
			ReturnDate:  row.ExpiresOn.Format(DueDateLayout),
			State:       row.State,
			LoanedAt:    row.LoanedAt,
			ExpiresOn:   row.ExpiresOn,
			BookID:      row.BookID,
			ISBN:        row.ISBN,
			BookTitle:   row.BookTitle,
			Authors:     authors.Joined(row.BookID),
		})
	}
	return entries, nil
}

func (f *LoanFormatter) degrade(block, account string, err error) Result[LoanEntry] {
	f.log.Warn("Loan block degraded", zap.String("block", block), zap.String("account", account), zap.Error(err))
	return failed[LoanEntry](err)
}

// LoanProgress is the share of the loan period already elapsed at now, as a
// percentage in [0, 100]. A zero-length period counts as fully elapsed once
// it has started.
func LoanProgress(loanedAt, expiresOn, now time.Time) float64 {
	period := expiresOn.Sub(loanedAt)
	elapsed := now.Sub(loanedAt)
	if elapsed <= 0 {
		return 0
	}
	if period <= 0 {
		return 100
	}
	pct := float64(elapsed) / float64(period) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// GroupByMonth buckets entries by the month their loan started, newest month
// first. Entries keep their relative order inside a month.
func GroupByMonth(entries []LoanEntry) []MonthGroup {
	index := make(map[string]int)
	groups := make([]MonthGroup, 0)
	for _, e := range entries {
		month := e.LoanedAt.Format("2006-01")
		i, exists := index[month]
		if !exists {
			i = len(groups)
			index[month] = i
			groups = append(groups, MonthGroup{Month: month})
		}
		groups[i].Loans = append(groups[i].Loans, e)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Month > groups[j].Month
	})
	return groups
}
