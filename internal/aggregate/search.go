package aggregate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/biblioteca/services/library/internal/db"
	"go.uber.org/zap"
)

// ErrEmptyQuery is returned when a search is issued without text
var ErrEmptyQuery = errors.New("query was empty")

// SearchSource is the data the searcher reads
type SearchSource interface {
	ListCategories(ctx context.Context) ([]db.Category, error)
	SearchMatches(ctx context.Context, q string) ([]db.SearchRow, error)
	AuthorsForBooks(ctx context.Context, bookIDs []uint) ([]db.AuthorRow, error)
}

// SearchHit is one book found by a free-text search
type SearchHit struct {
	BookID      uint   `json:"bookId"`
	Title       string `json:"title"`
	ISBN        string `json:"isbn"`
	Authors     string `json:"authors"`
	BookEdition string `json:"bookEdition"`
	StockState  int    `json:"stockState"`
	Category    string `json:"category"`
}

// Searcher matches free text against titles, ISBNs, author names and
// category names.
type Searcher struct {
	src SearchSource
	log *zap.Logger
}

// NewSearcher creates a searcher over src
func NewSearcher(src SearchSource, log *zap.Logger) *Searcher {
	return &Searcher{src: src, log: log}
}

type searchCandidate struct {
	row        db.SearchRow
	categories []uint
}

// Search returns one hit per matched book in first-match order. Books without
// a resolvable category are left out. Store failures are returned as errors.
func (s *Searcher) Search(ctx context.Context, query string) ([]SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	rows, err := s.src.SearchMatches(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search matches: %w", err)
	}
	if len(rows) == 0 {
		return []SearchHit{}, nil
	}

	var order []uint
	candidates := make(map[uint]*searchCandidate)
	for _, row := range rows {
		c, exists := candidates[row.BookID]
		if !exists {
			c = &searchCandidate{row: row}
			candidates[row.BookID] = c
			order = append(order, row.BookID)
		}
		if row.CategoryID != nil {
			c.categories = append(c.categories, *row.CategoryID)
		}
	}

	categories, err := s.src.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	names := make(map[uint]string, len(categories))
	for _, c := range categories {
		names[c.CategoryID] = c.Name
	}
	depths := categoryDepths(categories)

	authorRows, err := s.src.AuthorsForBooks(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("authors for books: %w", err)
	}
	authors := CollectAuthorNames(authorRows)

	hits := make([]SearchHit, 0, len(order))
	for _, bookID := range order {
		c := candidates[bookID]
		categoryID, found := leastCategory(c.categories, names, depths)
		if !found {
			s.log.Debug("Search hit without category skipped", zap.Uint("book_id", bookID))
			continue
		}

		stock := 0
		if c.row.UnitsAvailable != nil && *c.row.UnitsAvailable > 0 {
			stock = 1
		}

		hits = append(hits, SearchHit{
			BookID:      bookID,
			Title:       c.row.Title,
			ISBN:        c.row.ISBN,
			Authors:     authors.Joined(bookID),
			BookEdition: EditionOrdinal(c.row.Edition),
			StockState:  stock,
			Category:    names[categoryID],
		})
	}

	return hits, nil
}

// leastCategory picks the deepest known category; equal depths go to the
// lowest id.
func leastCategory(ids []uint, names map[uint]string, depths map[uint]int) (uint, bool) {
	var best uint
	found := false
	for _, id := range ids {
		if _, known := names[id]; !known {
			continue
		}
		if !found || depths[id] > depths[best] || (depths[id] == depths[best] && id < best) {
			best = id
			found = true
		}
	}
	return best, found
}
