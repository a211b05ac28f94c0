package aggregate

import (
	"strings"

	"github.com/biblioteca/services/library/internal/db"
)

const authorSeparator = ", "

// AuthorNames holds, per book, the distinct "First Last" names in the order
// they were first seen.
type AuthorNames struct {
	names map[uint][]string
	seen  map[uint]map[string]struct{}
}

// CollectAuthorNames folds (book, author) join rows into per-book name sets.
// Rows with no name at all, as produced by an outer join without a match, are
// skipped.
func CollectAuthorNames(rows []db.AuthorRow) AuthorNames {
	a := AuthorNames{
		names: make(map[uint][]string),
		seen:  make(map[uint]map[string]struct{}),
	}
	for _, row := range rows {
		a.add(row)
	}
	return a
}

func (a AuthorNames) add(row db.AuthorRow) {
	name := formatAuthorName(row.FirstName, row.LastName)
	if name == "" {
		return
	}
	set, exists := a.seen[row.BookID]
	if !exists {
		set = make(map[string]struct{})
		a.seen[row.BookID] = set
	}
	if _, dup := set[name]; dup {
		return
	}
	set[name] = struct{}{}
	a.names[row.BookID] = append(a.names[row.BookID], name)
}

func formatAuthorName(first, last *string) string {
	var parts []string
	if first != nil && strings.TrimSpace(*first) != "" {
		parts = append(parts, strings.TrimSpace(*first))
	}
	if last != nil && strings.TrimSpace(*last) != "" {
		parts = append(parts, strings.TrimSpace(*last))
	}
	return strings.Join(parts, " ")
}

// Names returns the names for a book, or nil when it has none
func (a AuthorNames) Names(bookID uint) []string {
	return a.names[bookID]
}

// Joined renders a book's names comma separated. A book without authors
// renders as the empty string.
func (a AuthorNames) Joined(bookID uint) string {
	return strings.Join(a.names[bookID], authorSeparator)
}
