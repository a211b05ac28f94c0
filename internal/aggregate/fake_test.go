package aggregate

import (
	"context"
	"sync"
	"time"

	"github.com/biblioteca/services/library/internal/db"
	"go.uber.org/zap"
)

// fakeStore serves canned rows and fails the queries named in failOn
type fakeStore struct {
	categories      []db.Category
	matches         []db.SearchRow
	authors         []db.AuthorRow
	loanCounts      map[string][]db.CategoryLoanCount
	booksByCategory map[uint][]db.BookRow
	reserved        []db.BookRow
	recent          []db.BookRow
	loans           []db.LoanRow

	failOn map[string]error

	mu            sync.Mutex
	categoryCalls []uint
	since         time.Time
}

func (f *fakeStore) fail(query string) error {
	return f.failOn[query]
}

func (f *fakeStore) ListCategories(ctx context.Context) ([]db.Category, error) {
	if err := f.fail("ListCategories"); err != nil {
		return nil, err
	}
	return f.categories, nil
}

func (f *fakeStore) SearchMatches(ctx context.Context, q string) ([]db.SearchRow, error) {
	if err := f.fail("SearchMatches"); err != nil {
		return nil, err
	}
	return f.matches, nil
}

func (f *fakeStore) AuthorsForBooks(ctx context.Context, bookIDs []uint) ([]db.AuthorRow, error) {
	if err := f.fail("AuthorsForBooks"); err != nil {
		return nil, err
	}
	wanted := make(map[uint]bool)
	for _, id := range bookIDs {
		wanted[id] = true
	}
	var rows []db.AuthorRow
	for _, row := range f.authors {
		if wanted[row.BookID] {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (f *fakeStore) CategoryLoanCounts(ctx context.Context, account string) ([]db.CategoryLoanCount, error) {
	if err := f.fail("CategoryLoanCounts"); err != nil {
		return nil, err
	}
	return f.loanCounts[account], nil
}

func (f *fakeStore) BooksInCategory(ctx context.Context, categoryID uint) ([]db.BookRow, error) {
	f.mu.Lock()
	f.categoryCalls = append(f.categoryCalls, categoryID)
	f.mu.Unlock()
	if err := f.fail("BooksInCategory"); err != nil {
		return nil, err
	}
	return f.booksByCategory[categoryID], nil
}

func (f *fakeStore) ReservedBooks(ctx context.Context) ([]db.BookRow, error) {
	if err := f.fail("ReservedBooks"); err != nil {
		return nil, err
	}
	return f.reserved, nil
}

func (f *fakeStore) BooksAddedSince(ctx context.Context, since time.Time) ([]db.BookRow, error) {
	f.mu.Lock()
	f.since = since
	f.mu.Unlock()
	if err := f.fail("BooksAddedSince"); err != nil {
		return nil, err
	}
	return f.recent, nil
}

func (f *fakeStore) LoansForAccount(ctx context.Context, account string, state db.LoanState) ([]db.LoanRow, error) {
	if err := f.fail("LoansForAccount"); err != nil {
		return nil, err
	}
	var rows []db.LoanRow
	for _, row := range f.loans {
		if state == "" || row.State == state {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func str(s string) *string { return &s }

func id(v uint) *uint { return &v }

func units(n int) *int { return &n }

func book(bookID uint, title, first, last string) db.BookRow {
	row := db.BookRow{BookID: bookID, Title: title, ISBN: "ISBN-" + title}
	if first != "" {
		row.FirstName = str(first)
	}
	if last != "" {
		row.LastName = str(last)
	}
	return row
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
