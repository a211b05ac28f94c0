package db

import "time"

// Join-row shapes returned by the repository. Nullable columns come from
// outer joins and may be nil.

// AuthorRow is one (book, author) pair
type AuthorRow struct {
	BookID    uint
	FirstName *string
	LastName  *string
}

// SearchRow is a book matched by a search, with one of its category ids
type SearchRow struct {
	BookID         uint
	Title          string
	ISBN           string `gorm:"column:isbn"`
	Edition        int
	UnitsAvailable *int
	CategoryID     *uint
}

// CategoryLoanCount is the number of loans recorded against a category
type CategoryLoanCount struct {
	CategoryID uint
	Loans      int64 `gorm:"column:loan_count"`
}

// BookRow is a book joined with one of its authors
type BookRow struct {
	BookID    uint
	Title     string
	ISBN      string `gorm:"column:isbn"`
	FirstName *string
	LastName  *string
}

// Author returns the author half of the row
func (r BookRow) Author() AuthorRow {
	return AuthorRow{BookID: r.BookID, FirstName: r.FirstName, LastName: r.LastName}
}

// LoanRow is a loan joined with its book and one of the book's authors
type LoanRow struct {
	LoanID    uint
	LoanedAt  time.Time
	ExpiresOn time.Time
	State     LoanState
	BookID    uint
	ISBN      string `gorm:"column:isbn"`
	BookTitle string
	FirstName *string
	LastName  *string
}

// Author returns the author half of the row
func (r LoanRow) Author() AuthorRow {
	return AuthorRow{BookID: r.BookID, FirstName: r.FirstName, LastName: r.LastName}
}

// BookDetail is a book with every author and category linked to it
type BookDetail struct {
	Book
	Authors    []Author   `json:"authors"`
	Categories []Category `json:"categories"`
}
