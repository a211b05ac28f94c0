package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/biblioteca/services/library/internal/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound is returned when no user has the given account
	ErrUserNotFound = errors.New("user not found")

	// ErrBookNotFound is returned when a book is not found
	ErrBookNotFound = errors.New("book not found")

	// ErrBookUnavailable is returned when a book has no units left to reserve
	ErrBookUnavailable = errors.New("book has no available units")

	// ErrReputationTooLow is returned when the user's tier may not reserve
	ErrReputationTooLow = errors.New("reputation tier not allowed to reserve")
)

// LibraryRepository runs the read queries behind search, recommendations and
// loan history, plus the few writes the service owns.
type LibraryRepository struct {
	db  *db.DB
	log *zap.Logger
}

// NewLibraryRepository creates a new library repository
func NewLibraryRepository(database *db.DB, logger *zap.Logger) *LibraryRepository {
	return &LibraryRepository{
		db:  database,
		log: logger,
	}
}

// ListCategories returns every category row ordered by id
func (r *LibraryRepository) ListCategories(ctx context.Context) ([]db.Category, error) {
	var categories []db.Category
	if err := r.db.WithContext(ctx).Order("category_id").Find(&categories).Error; err != nil {
		r.log.Error("Failed to list categories", zap.Error(err))
		return nil, err
	}
	return categories, nil
}

// likePattern lowercases q and escapes LIKE wildcards so it matches as a substring
func likePattern(q string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(strings.ToLower(q)) + "%"
}

const searchColumns = "b.book_id, b.title, b.isbn, b.edition, b.units_available, cpb.category_id"

// SearchMatches returns books whose category name, author name, title or ISBN
// contains q, case-insensitively. Category matches come first, then author
// matches, then title/ISBN matches. A book appears once per associated category.
func (r *LibraryRepository) SearchMatches(ctx context.Context, q string) ([]db.SearchRow, error) {
	pattern := likePattern(q)

	var byCategory []db.SearchRow
	err := r.db.WithContext(ctx).Table("books b").
		Select(searchColumns).
		Joins("JOIN categories_per_book cpb ON cpb.book_id = b.book_id").
		Joins("JOIN categories c ON c.category_id = cpb.category_id").
		Where(`LOWER(c.name) LIKE ? ESCAPE '\'`, pattern).
		Order("b.book_id, cpb.category_id").
		Scan(&byCategory).Error
	if err != nil {
		r.log.Error("Failed to search by category", zap.Error(err))
		return nil, fmt.Errorf("search categories: %w", err)
	}

	var byAuthor []db.SearchRow
	err = r.db.WithContext(ctx).Table("books b").
		Select(searchColumns).
		Joins("JOIN authors_per_book apb ON apb.book_id = b.book_id").
		Joins("JOIN authors a ON a.author_id = apb.author_id").
		Joins("LEFT JOIN categories_per_book cpb ON cpb.book_id = b.book_id").
		Where(`LOWER(a.first_name) LIKE ? ESCAPE '\'`, pattern).
		Or(`LOWER(a.last_name) LIKE ? ESCAPE '\'`, pattern).
		Or(`LOWER(a.first_name || ' ' || a.last_name) LIKE ? ESCAPE '\'`, pattern).
		Order("b.book_id, cpb.category_id").
		Scan(&byAuthor).Error
	if err != nil {
		r.log.Error("Failed to search by author", zap.Error(err))
		return nil, fmt.Errorf("search authors: %w", err)
	}

	var byBook []db.SearchRow
	err = r.db.WithContext(ctx).Table("books b").
		Select(searchColumns).
		Joins("LEFT JOIN categories_per_book cpb ON cpb.book_id = b.book_id").
		Where(`LOWER(b.title) LIKE ? ESCAPE '\'`, pattern).
		Or(`LOWER(b.isbn) LIKE ? ESCAPE '\'`, pattern).
		Order("b.book_id, cpb.category_id").
		Scan(&byBook).Error
	if err != nil {
		r.log.Error("Failed to search by title", zap.Error(err))
		return nil, fmt.Errorf("search books: %w", err)
	}

	rows := make([]db.SearchRow, 0, len(byCategory)+len(byAuthor)+len(byBook))
	rows = append(rows, byCategory...)
	rows = append(rows, byAuthor...)
	rows = append(rows, byBook...)
	return rows, nil
}

// AuthorsForBooks returns one row per author of each given book. Dangling
// author links produce rows with nil names.
func (r *LibraryRepository) AuthorsForBooks(ctx context.Context, bookIDs []uint) ([]db.AuthorRow, error) {
	if len(bookIDs) == 0 {
		return nil, nil
	}

	var rows []db.AuthorRow
	err := r.db.WithContext(ctx).Table("authors_per_book apb").
		Select("apb.book_id, a.first_name, a.last_name").
		Joins("LEFT JOIN authors a ON a.author_id = apb.author_id").
		Where("apb.book_id IN ?", bookIDs).
		Order("apb.book_id, apb.author_id").
		Scan(&rows).Error
	if err != nil {
		r.log.Error("Failed to load authors", zap.Error(err))
		return nil, fmt.Errorf("load authors: %w", err)
	}
	return rows, nil
}

// CategoryLoanCounts counts active and returned loans per category, most
// loaned first, ties by category id. An empty account aggregates every user.
func (r *LibraryRepository) CategoryLoanCounts(ctx context.Context, account string) ([]db.CategoryLoanCount, error) {
	query := r.db.WithContext(ctx).Table("loans l").
		Select("cpb.category_id, COUNT(*) AS loan_count").
		Joins("JOIN reserves r ON r.reserve_id = l.reserve_id").
		Joins("JOIN categories_per_book cpb ON cpb.book_id = r.book_id").
		Where("l.state IN ?", db.LoanStatesWhere(db.LoanState.CountsTowardHistory))

	if account != "" {
		query = query.
			Joins("JOIN users u ON u.user_id = r.user_id").
			Where("u.account = ?", account)
	}

	var counts []db.CategoryLoanCount
	err := query.
		Group("cpb.category_id").
		Order("loan_count DESC, cpb.category_id ASC").
		Scan(&counts).Error
	if err != nil {
		r.log.Error("Failed to count loans per category", zap.String("account", account), zap.Error(err))
		return nil, fmt.Errorf("count category loans: %w", err)
	}
	return counts, nil
}

func (r *LibraryRepository) bookRows(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table("books b").
		Select("b.book_id, b.title, b.isbn, a.first_name, a.last_name").
		Joins("LEFT JOIN authors_per_book apb ON apb.book_id = b.book_id").
		Joins("LEFT JOIN authors a ON a.author_id = apb.author_id")
}

// BooksInCategory returns the books tagged with categoryID, one row per author
func (r *LibraryRepository) BooksInCategory(ctx context.Context, categoryID uint) ([]db.BookRow, error) {
	var rows []db.BookRow
	err := r.bookRows(ctx).
		Joins("JOIN categories_per_book cpb ON cpb.book_id = b.book_id").
		Where("cpb.category_id = ?", categoryID).
		Order("b.book_id, apb.author_id").
		Scan(&rows).Error
	if err != nil {
		r.log.Error("Failed to list books in category", zap.Uint("category_id", categoryID), zap.Error(err))
		return nil, fmt.Errorf("books in category %d: %w", categoryID, err)
	}
	return rows, nil
}

// ReservedBooks returns books with at least one reserve, most reserved first
func (r *LibraryRepository) ReservedBooks(ctx context.Context) ([]db.BookRow, error) {
	counts := r.db.WithContext(ctx).Table("reserves").
		Select("book_id, COUNT(*) AS reserve_count").
		Group("book_id")

	var rows []db.BookRow
	err := r.bookRows(ctx).
		Joins("JOIN (?) rc ON rc.book_id = b.book_id", counts).
		Order("rc.reserve_count DESC, b.book_id ASC, apb.author_id ASC").
		Scan(&rows).Error
	if err != nil {
		r.log.Error("Failed to list reserved books", zap.Error(err))
		return nil, fmt.Errorf("reserved books: %w", err)
	}
	return rows, nil
}

// BooksAddedSince returns books whose entry date is at or after since
func (r *LibraryRepository) BooksAddedSince(ctx context.Context, since time.Time) ([]db.BookRow, error) {
	var rows []db.BookRow
	err := r.bookRows(ctx).
		Where("b.entry_date >= ?", since).
		Order("b.book_id, apb.author_id").
		Scan(&rows).Error
	if err != nil {
		r.log.Error("Failed to list recent books", zap.Time("since", since), zap.Error(err))
		return nil, fmt.Errorf("books added since: %w", err)
	}
	return rows, nil
}

// LoansForAccount returns the account's loans joined with book and authors.
// An empty state returns loans in every state.
func (r *LibraryRepository) LoansForAccount(ctx context.Context, account string, state db.LoanState) ([]db.LoanRow, error) {
	query := r.db.WithContext(ctx).Table("loans l").
		Select("l.loan_id, l.loaned_at, l.expires_on, l.state, b.book_id, b.isbn, b.title AS book_title, a.first_name, a.last_name").
		Joins("JOIN reserves r ON r.reserve_id = l.reserve_id").
		Joins("JOIN users u ON u.user_id = r.user_id").
		Joins("JOIN books b ON b.book_id = r.book_id").
		Joins("LEFT JOIN authors_per_book apb ON apb.book_id = b.book_id").
		Joins("LEFT JOIN authors a ON a.author_id = apb.author_id").
		Where("u.account = ?", account)

	if state != "" {
		query = query.Where("l.state = ?", state)
	}

	var rows []db.LoanRow
	if err := query.Order("l.loan_id, apb.author_id").Scan(&rows).Error; err != nil {
		r.log.Error("Failed to list loans", zap.String("account", account), zap.Error(err))
		return nil, fmt.Errorf("loans for %s: %w", account, err)
	}
	return rows, nil
}

// GetBookDetail returns a book with its authors and categories
func (r *LibraryRepository) GetBookDetail(ctx context.Context, bookID uint) (*db.BookDetail, error) {
	detail := db.BookDetail{Authors: []db.Author{}, Categories: []db.Category{}}
	err := r.db.WithContext(ctx).First(&detail.Book, bookID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		r.log.Error("Failed to get book", zap.Uint("book_id", bookID), zap.Error(err))
		return nil, err
	}

	err = r.db.WithContext(ctx).Table("authors a").
		Select("a.*").
		Joins("JOIN authors_per_book apb ON apb.author_id = a.author_id").
		Where("apb.book_id = ?", bookID).
		Order("a.author_id").
		Find(&detail.Authors).Error
	if err != nil {
		r.log.Error("Failed to load book authors", zap.Uint("book_id", bookID), zap.Error(err))
		return nil, fmt.Errorf("authors of book %d: %w", bookID, err)
	}

	err = r.db.WithContext(ctx).Table("categories c").
		Select("c.*").
		Joins("JOIN categories_per_book cpb ON cpb.category_id = c.category_id").
		Where("cpb.book_id = ?", bookID).
		Order("c.category_id").
		Find(&detail.Categories).Error
	if err != nil {
		r.log.Error("Failed to load book categories", zap.Uint("book_id", bookID), zap.Error(err))
		return nil, fmt.Errorf("categories of book %d: %w", bookID, err)
	}

	return &detail, nil
}

// BooksByCategory returns the books tagged with categoryID ordered by id
func (r *LibraryRepository) BooksByCategory(ctx context.Context, categoryID uint) ([]db.Book, error) {
	books := make([]db.Book, 0)
	err := r.db.WithContext(ctx).Table("books b").
		Select("b.*").
		Joins("JOIN categories_per_book cpb ON cpb.book_id = b.book_id").
		Where("cpb.category_id = ?", categoryID).
		Order("b.book_id").
		Find(&books).Error
	if err != nil {
		r.log.Error("Failed to list category books", zap.Uint("category_id", categoryID), zap.Error(err))
		return nil, fmt.Errorf("books of category %d: %w", categoryID, err)
	}
	return books, nil
}

// GetUserByAccount retrieves a user by account number
func (r *LibraryRepository) GetUserByAccount(ctx context.Context, account string) (*db.User, error) {
	var user db.User
	err := r.db.WithContext(ctx).Where("account = ?", account).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		r.log.Error("Failed to get user", zap.String("account", account), zap.Error(err))
		return nil, err
	}

	return &user, nil
}

// CreateReserve places a pending reserve on bookID for the account. The user
// must hold topTier and the book must have a unit left; the unit count is
// decremented in the same transaction.
func (r *LibraryRepository) CreateReserve(ctx context.Context, account string, bookID uint, topTier uint, checkout time.Time) (*db.Reserve, error) {
	var reserve *db.Reserve

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user db.User
		if err := tx.Where("account = ?", account).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if user.ReputationID != topTier {
			return ErrReputationTooLow
		}

		var count int64
		if err := tx.Model(&db.Book{}).Where("book_id = ?", bookID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrBookNotFound
		}

		// Conditional decrement keeps concurrent reserves from overbooking
		result := tx.Model(&db.Book{}).
			Where("book_id = ? AND units_available > 0", bookID).
			Update("units_available", gorm.Expr("units_available - 1"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrBookUnavailable
		}

		reserve = &db.Reserve{
			BookID:       bookID,
			UserID:       user.UserID,
			CheckoutDate: &checkout,
			Status:       db.ReservePending,
		}
		return tx.Create(reserve).Error
	})
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) && !errors.Is(err, ErrReputationTooLow) &&
			!errors.Is(err, ErrBookNotFound) && !errors.Is(err, ErrBookUnavailable) {
			r.log.Error("Failed to create reserve", zap.String("account", account), zap.Uint("book_id", bookID), zap.Error(err))
		}
		return nil, err
	}

	r.log.Info("Reserve created",
		zap.Uint("reserve_id", reserve.ReserveID),
		zap.Uint("book_id", bookID),
		zap.String("account", account),
	)
	return reserve, nil
}

// ExpireOverdueLoans marks loans whose due date passed before now as expired
// and returns how many changed.
func (r *LibraryRepository) ExpireOverdueLoans(ctx context.Context, now time.Time) (int64, error) {
	from := db.LoanStatesWhere(func(s db.LoanState) bool {
		return s.CanTransitionTo(db.LoanExpired)
	})

	result := r.db.WithContext(ctx).Model(&db.Loan{}).
		Where("state IN ? AND expires_on < ?", from, now).
		Update("state", db.LoanExpired)
	if result.Error != nil {
		r.log.Error("Failed to expire overdue loans", zap.Error(result.Error))
		return 0, fmt.Errorf("expire overdue loans: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		r.log.Info("Expired overdue loans", zap.Int64("count", result.RowsAffected))
	}
	return result.RowsAffected, nil
}

// GetStats returns catalog statistics for metrics
func (r *LibraryRepository) GetStats(ctx context.Context) (books, activeLoans int64, err error) {
	if err := r.db.WithContext(ctx).Model(&db.Book{}).Count(&books).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to count books: %w", err)
	}

	if err := r.db.WithContext(ctx).Model(&db.Loan{}).Where("state = ?", db.LoanActive).Count(&activeLoans).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to count active loans: %w", err)
	}

	return books, activeLoans, nil
}
