package aggregate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/biblioteca/services/library/internal/db"
	"go.uber.org/zap"
)

const (
	// MaxRecommended caps the category-driven recommendation lists
	MaxRecommended = 8
	// MaxPopular caps the most-reserved list
	MaxPopular = 8
	// MaxRecent caps the recently-added list
	MaxRecent = 15
)

// ErrMissingAccount is returned when a per-user block is asked for without an account
var ErrMissingAccount = errors.New("account is required")

// RecommendationSource is the data the recommender reads
type RecommendationSource interface {
	CategoryLoanCounts(ctx context.Context, account string) ([]db.CategoryLoanCount, error)
	BooksInCategory(ctx context.Context, categoryID uint) ([]db.BookRow, error)
	ReservedBooks(ctx context.Context) ([]db.BookRow, error)
	BooksAddedSince(ctx context.Context, since time.Time) ([]db.BookRow, error)
}

// RecommendationEntry is a book suggested on the home page
type RecommendationEntry struct {
	BookID  uint   `json:"bookId"`
	Title   string `json:"title"`
	ISBN    string `json:"isbn"`
	Authors string `json:"authors"`
}

// Recommender builds the home-page book lists. Every method is best effort:
// a failing query yields an empty Result carrying the error.
type Recommender struct {
	src RecommendationSource
	log *zap.Logger
	now func() time.Time
}

// NewRecommender creates a recommender. A nil clock uses time.Now.
func NewRecommender(src RecommendationSource, log *zap.Logger, now func() time.Time) *Recommender {
	if now == nil {
		now = time.Now
	}
	return &Recommender{src: src, log: log, now: now}
}

// ByUserLoans recommends books from the categories the account borrows most
func (r *Recommender) ByUserLoans(ctx context.Context, account string) Result[RecommendationEntry] {
	if account == "" {
		return r.degrade("personal", ErrMissingAccount)
	}
	return r.byCategoryLoans(ctx, "personal", account)
}

// ByAllLoans recommends books from the categories borrowed most across all accounts
func (r *Recommender) ByAllLoans(ctx context.Context) Result[RecommendationEntry] {
	return r.byCategoryLoans(ctx, "global", "")
}

func (r *Recommender) byCategoryLoans(ctx context.Context, block, account string) Result[RecommendationEntry] {
	counts, err := r.src.CategoryLoanCounts(ctx, account)
	if err != nil {
		return r.degrade(block, fmt.Errorf("rank categories: %w", err))
	}

	list := newBookList(MaxRecommended)
	for _, c := range counts {
		if list.full() {
			break
		}
		if c.Loans <= 0 {
			continue
		}
		rows, err := r.src.BooksInCategory(ctx, c.CategoryID)
		if err != nil {
			return r.degrade(block, fmt.Errorf("books in category %d: %w", c.CategoryID, err))
		}
		list.add(rows)
	}

	return ok(list.entries)
}

// Popular lists distinct books that have been reserved, most reserved first
func (r *Recommender) Popular(ctx context.Context) Result[RecommendationEntry] {
	rows, err := r.src.ReservedBooks(ctx)
	if err != nil {
		return r.degrade("popular", fmt.Errorf("reserved books: %w", err))
	}
	list := newBookList(MaxPopular)
	list.add(rows)
	return ok(list.entries)
}

// RecentlyAdded lists books that entered the catalog within the last calendar month
func (r *Recommender) RecentlyAdded(ctx context.Context) Result[RecommendationEntry] {
	since := r.now().AddDate(0, -1, 0)
	rows, err := r.src.BooksAddedSince(ctx, since)
	if err != nil {
		return r.degrade("recent", fmt.Errorf("books added since %s: %w", since.Format(time.DateOnly), err))
	}
	list := newBookList(MaxRecent)
	list.add(rows)
	return ok(list.entries)
}

func (r *Recommender) degrade(block string, err error) Result[RecommendationEntry] {
	r.log.Warn("Recommendation block degraded", zap.String("block", block), zap.Error(err))
	return failed[RecommendationEntry](err)
}

// bookList accumulates entries up to a cap, dropping repeated book ids
type bookList struct {
	limit   int
	seen    map[uint]bool
	entries []RecommendationEntry
}

func newBookList(limit int) *bookList {
	return &bookList{limit: limit, seen: make(map[uint]bool)}
}

func (l *bookList) full() bool {
	return len(l.entries) >= l.limit
}

func (l *bookList) add(rows []db.BookRow) {
	authorRows := make([]db.AuthorRow, len(rows))
	for i, row := range rows {
		authorRows[i] = row.Author()
	}
	authors := CollectAuthorNames(authorRows)

	for _, row := range rows {
		if l.full() {
			return
		}
		if l.seen[row.BookID] {
			continue
		}
		l.seen[row.BookID] = true
		l.entries = append(l.entries, RecommendationEntry{
			BookID:  row.BookID,
			Title:   row.Title,
			ISBN:    row.ISBN,
			Authors: authors.Joined(row.BookID),
		})
	}
}
