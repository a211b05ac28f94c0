package repo

import (
	"context"
	"testing"
	"time"

	"github.com/biblioteca/services/library/internal/db"
	"github.com/biblioteca/services/library/internal/db/dbtest"
	"github.com/biblioteca/services/library/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, time.June, 12, 9, 30, 0, 0, time.UTC)

func setupTestRepo(t *testing.T) (*LibraryRepository, *db.DB) {
	database := dbtest.Seed(t, testNow)
	log := logger.NewLogger("test", "info")
	return NewLibraryRepository(database, log), database
}

func bookIDs[T any](rows []T, id func(T) uint) []uint {
	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, id(row))
	}
	return ids
}

func searchBookID(r db.SearchRow) uint { return r.BookID }
func bookRowID(r db.BookRow) uint      { return r.BookID }

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%novela%", likePattern("NoVeLa"))
	assert.Equal(t, `%100\%%`, likePattern("100%"))
	assert.Equal(t, `%a\_b%`, likePattern("a_b"))
	assert.Equal(t, `%c:\\dir%`, likePattern(`C:\dir`))
}

func TestListCategories(t *testing.T) {
	repo, _ := setupTestRepo(t)

	categories, err := repo.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 4)
	assert.Equal(t, "Literatura", categories[0].Name)
	assert.Nil(t, categories[0].ParentCategoryID)
	require.NotNil(t, categories[1].ParentCategoryID)
	assert.Equal(t, dbtest.CategoryLiteratura, *categories[1].ParentCategoryID)
}

func TestSearchMatchesByCategory(t *testing.T) {
	repo, _ := setupTestRepo(t)

	rows, err := repo.SearchMatches(context.Background(), "NOVELA")
	require.NoError(t, err)
	assert.Equal(t, []uint{dbtest.BookCienAnos, dbtest.BookYoRobot, dbtest.BookFundacion}, bookIDs(rows, searchBookID))
	for _, row := range rows {
		require.NotNil(t, row.CategoryID)
		assert.Equal(t, dbtest.CategoryNovela, *row.CategoryID)
	}
}

func TestSearchMatchesByAuthor(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	rows, err := repo.SearchMatches(ctx, "asimov")
	require.NoError(t, err)
	assert.Equal(t, []uint{dbtest.BookYoRobot, dbtest.BookFundacion}, bookIDs(rows, searchBookID))

	// Full name spans both name columns; one row per category of the book
	rows, err = repo.SearchMatches(ctx, "gabriel garcia")
	require.NoError(t, err)
	assert.Equal(t, []uint{dbtest.BookCienAnos, dbtest.BookCienAnos}, bookIDs(rows, searchBookID))
}

func TestSearchMatchesByTitleAndISBN(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	rows, err := repo.SearchMatches(ctx, "physics")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, dbtest.BookLectures, rows[0].BookID)
	assert.Equal(t, "978-0465023820", rows[0].ISBN)
	assert.Equal(t, 3, rows[0].Edition)
	require.NotNil(t, rows[0].UnitsAvailable)
	assert.Equal(t, 5, *rows[0].UnitsAvailable)

	rows, err = repo.SearchMatches(ctx, "8497593793")
	require.NoError(t, err)
	assert.Equal(t, []uint{dbtest.BookFundacion}, bookIDs(rows, searchBookID))
}

func TestSearchMatchesOrdersCategoryBeforeAuthorBeforeTitle(t *testing.T) {
	repo, _ := setupTestRepo(t)

	// "fisica" names a category; "fundacion" would only match a title
	rows, err := repo.SearchMatches(context.Background(), "f")
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, dbtest.BookLectures, rows[0].BookID)
	assert.Equal(t, dbtest.BookFundacion, rows[len(rows)-1].BookID)
}

func TestSearchMatchesEscapesWildcards(t *testing.T) {
	repo, _ := setupTestRepo(t)

	rows, err := repo.SearchMatches(context.Background(), "%")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAuthorsForBooks(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	rows, err := repo.AuthorsForBooks(ctx, []uint{dbtest.BookYoRobot, dbtest.BookLectures})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Isaac", *rows[0].FirstName)
	assert.Equal(t, "Feynman", *rows[1].LastName)

	rows, err = repo.AuthorsForBooks(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCategoryLoanCountsForAccount(t *testing.T) {
	repo, _ := setupTestRepo(t)

	counts, err := repo.CategoryLoanCounts(context.Background(), dbtest.AccountAna)
	require.NoError(t, err)
	assert.Equal(t, []db.CategoryLoanCount{
		{CategoryID: dbtest.CategoryLiteratura, Loans: 1},
		{CategoryID: dbtest.CategoryNovela, Loans: 1},
		{CategoryID: dbtest.CategoryFisica, Loans: 1},
	}, counts)
}

func TestCategoryLoanCountsAllAccounts(t *testing.T) {
	repo, _ := setupTestRepo(t)

	// The pending loan on Yo, robot is not counted
	counts, err := repo.CategoryLoanCounts(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []db.CategoryLoanCount{
		{CategoryID: dbtest.CategoryNovela, Loans: 3},
		{CategoryID: dbtest.CategoryLiteratura, Loans: 2},
		{CategoryID: dbtest.CategoryFisica, Loans: 1},
	}, counts)
}

func TestCategoryLoanCountsUnknownAccount(t *testing.T) {
	repo, _ := setupTestRepo(t)

	counts, err := repo.CategoryLoanCounts(context.Background(), "00000000000")
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestBooksInCategory(t *testing.T) {
	repo, _ := setupTestRepo(t)

	rows, err := repo.BooksInCategory(context.Background(), dbtest.CategoryNovela)
	require.NoError(t, err)
	assert.Equal(t, []uint{dbtest.BookCienAnos, dbtest.BookYoRobot, dbtest.BookFundacion}, bookIDs(rows, bookRowID))
	assert.Equal(t, "Garcia Marquez", *rows[0].LastName)
}

func TestReservedBooks(t *testing.T) {
	repo, _ := setupTestRepo(t)

	rows, err := repo.ReservedBooks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint{dbtest.BookCienAnos, dbtest.BookYoRobot, dbtest.BookLectures, dbtest.BookFundacion}, bookIDs(rows, bookRowID))
}

func TestReservedBooksHonoursContext(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.ReservedBooks(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetBookDetail(t *testing.T) {
	repo, _ := setupTestRepo(t)

	detail, err := repo.GetBookDetail(context.Background(), dbtest.BookCienAnos)
	require.NoError(t, err)
	assert.Equal(t, "Cien anos de soledad", detail.Title)
	assert.Equal(t, "978-0307474728", detail.ISBN)
	require.Len(t, detail.Authors, 1)
	assert.Equal(t, "Garcia Marquez", *detail.Authors[0].LastName)
	require.Len(t, detail.Categories, 2)
	assert.Equal(t, "Literatura", detail.Categories[0].Name)
	assert.Equal(t, "Novela", detail.Categories[1].Name)

	_, err = repo.GetBookDetail(context.Background(), 999)
	assert.Equal(t, ErrBookNotFound, err)
}

func TestBooksByCategory(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	books, err := repo.BooksByCategory(ctx, dbtest.CategoryNovela)
	require.NoError(t, err)
	ids := make([]uint, 0, len(books))
	for _, b := range books {
		ids = append(ids, b.BookID)
	}
	assert.Equal(t, []uint{dbtest.BookCienAnos, dbtest.BookYoRobot, dbtest.BookFundacion}, ids)

	books, err = repo.BooksByCategory(ctx, dbtest.CategoryCiencia)
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestBooksAddedSince(t *testing.T) {
	repo, _ := setupTestRepo(t)

	rows, err := repo.BooksAddedSince(context.Background(), testNow.AddDate(0, -1, 0))
	require.NoError(t, err)
	assert.Equal(t, []uint{dbtest.BookLectures, dbtest.BookFundacion}, bookIDs(rows, bookRowID))
}

func TestLoansForAccount(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	rows, err := repo.LoansForAccount(ctx, dbtest.AccountAna, "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, uint(1), rows[0].LoanID)
	assert.Equal(t, db.LoanReturned, rows[0].State)
	assert.Equal(t, "Cien anos de soledad", rows[0].BookTitle)

	rows, err = repo.LoansForAccount(ctx, dbtest.AccountAna, db.LoanActive)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, uint(2), rows[0].LoanID)
	assert.Equal(t, dbtest.BookLectures, rows[0].BookID)
	assert.Equal(t, "978-0465023820", rows[0].ISBN)
	assert.True(t, rows[0].ExpiresOn.Equal(testNow.AddDate(0, 0, 5)))
}

func TestGetUserByAccount(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	user, err := repo.GetUserByAccount(ctx, dbtest.AccountCarla)
	require.NoError(t, err)
	assert.Equal(t, "Carla", user.FirstName)
	assert.False(t, user.Enabled)

	_, err = repo.GetUserByAccount(ctx, "99999999999")
	assert.Equal(t, ErrUserNotFound, err)
}

func TestCreateReserve(t *testing.T) {
	repo, database := setupTestRepo(t)
	checkout := testNow.AddDate(0, 0, 1)

	reserve, err := repo.CreateReserve(context.Background(), dbtest.AccountAna, dbtest.BookCienAnos, 1, checkout)
	require.NoError(t, err)
	assert.NotZero(t, reserve.ReserveID)
	assert.Equal(t, uint(1), reserve.UserID)
	assert.Equal(t, db.ReservePending, reserve.Status)

	var book db.Book
	require.NoError(t, database.First(&book, dbtest.BookCienAnos).Error)
	assert.Equal(t, 2, *book.UnitsAvailable)
}

func TestCreateReserveErrors(t *testing.T) {
	repo, database := setupTestRepo(t)
	checkout := testNow.AddDate(0, 0, 1)

	tests := []struct {
		name    string
		account string
		bookID  uint
		want    error
	}{
		{"unknown user", "99999999999", dbtest.BookCienAnos, ErrUserNotFound},
		{"lower tier", dbtest.AccountBruno, dbtest.BookCienAnos, ErrReputationTooLow},
		{"unknown book", dbtest.AccountAna, 999, ErrBookNotFound},
		{"no units left", dbtest.AccountAna, dbtest.BookYoRobot, ErrBookUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.CreateReserve(context.Background(), tt.account, tt.bookID, 1, checkout)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	var reserves int64
	require.NoError(t, database.Model(&db.Reserve{}).Count(&reserves).Error)
	assert.Equal(t, int64(5), reserves)
}

func TestGetStats(t *testing.T) {
	repo, _ := setupTestRepo(t)

	books, active, err := repo.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), books)
	assert.Equal(t, int64(2), active)
}

func TestExpireOverdueLoans(t *testing.T) {
	repo, database := setupTestRepo(t)

	// Ana's loan is due in five days, Bruno's in eight
	expired, err := repo.ExpireOverdueLoans(context.Background(), testNow.AddDate(0, 0, 6))
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	var anaLoan, brunoLoan, returnedLoan db.Loan
	require.NoError(t, database.First(&anaLoan, 2).Error)
	assert.Equal(t, db.LoanExpired, anaLoan.State)
	require.NoError(t, database.First(&brunoLoan, 3).Error)
	assert.Equal(t, db.LoanActive, brunoLoan.State)

	// Returned loans past their due date are left alone
	require.NoError(t, database.First(&returnedLoan, 1).Error)
	assert.Equal(t, db.LoanReturned, returnedLoan.State)

	_, active, err := repo.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), active)
}
