// Package dbtest builds seeded SQLite databases for package tests.
package dbtest

import (
	"strings"
	"testing"
	"time"

	"github.com/biblioteca/services/library/internal/db"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm/logger"
)

// Password is the plain-text password of every seeded user
const Password = "secret123"

// Seeded accounts
const (
	AccountAna   = "20201000001" // top tier, two loans
	AccountBruno = "20201000002" // lower tier, three loans
	AccountCarla = "20201000003" // disabled
	AccountDiego = "20201000004" // top tier, no loans
)

// Seeded book ids
const (
	BookCienAnos uint = iota + 1
	BookYoRobot
	BookLectures
	BookFundacion
)

// Seeded category ids. Novela is a child of Literatura and Fisica of Ciencia.
const (
	CategoryLiteratura uint = iota + 1
	CategoryNovela
	CategoryCiencia
	CategoryFisica
)

// Open returns an empty migrated in-memory database private to t
func Open(t *testing.T) *db.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	database, err := db.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), logger.Discard)
	require.NoError(t, err)

	sqlDB, err := database.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.RunMigrations(database))
	t.Cleanup(func() { database.Close() })
	return database
}

func ptr[T any](v T) *T { return &v }

// Seed opens a database and fills it with a small library. Books Lectures and
// Fundacion were added the day before now, the others years earlier.
func Seed(t *testing.T, now time.Time) *db.DB {
	t.Helper()
	database := Open(t)

	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)

	old := time.Date(2019, time.March, 4, 10, 0, 0, 0, time.UTC)
	recent := now.UTC().AddDate(0, 0, -1)

	records := []interface{}{
		&[]db.Reputation{
			{ReputationID: 1, Name: "Excelente"},
			{ReputationID: 2, Name: "Buena"},
		},
		&[]db.User{
			{UserID: 1, FirstName: "Ana", FirstSurname: "Lopez", Email: "ana@unah.hn", Account: AccountAna, UserType: 2, ReputationID: 1, Password: string(hash), Enabled: true},
			{UserID: 2, FirstName: "Bruno", FirstSurname: "Diaz", Email: "bruno@unah.hn", Account: AccountBruno, UserType: 2, ReputationID: 2, Password: string(hash), Enabled: true},
			{UserID: 3, FirstName: "Carla", FirstSurname: "Mejia", Email: "carla@unah.hn", Account: AccountCarla, UserType: 2, ReputationID: 1, Password: string(hash), Enabled: false},
			{UserID: 4, FirstName: "Diego", FirstSurname: "Reyes", Email: "diego@unah.hn", Account: AccountDiego, UserType: 2, ReputationID: 1, Password: string(hash), Enabled: true},
		},
		&[]db.Author{
			{AuthorID: 1, FirstName: ptr("Gabriel"), LastName: ptr("Garcia Marquez")},
			{AuthorID: 2, FirstName: ptr("Isaac"), LastName: ptr("Asimov")},
			{AuthorID: 3, FirstName: ptr("Richard"), LastName: ptr("Feynman")},
		},
		&[]db.Category{
			{CategoryID: CategoryLiteratura, Name: "Literatura", Icon: "book", Enabled: true},
			{CategoryID: CategoryNovela, ParentCategoryID: ptr(CategoryLiteratura), Name: "Novela", Icon: "feather", Enabled: true},
			{CategoryID: CategoryCiencia, Name: "Ciencia", Icon: "flask", Enabled: true},
			{CategoryID: CategoryFisica, ParentCategoryID: ptr(CategoryCiencia), Name: "Fisica", Icon: "atom", Enabled: true},
		},
		&[]db.Book{
			{BookID: BookCienAnos, Title: "Cien anos de soledad", Edition: 1, ISBN: "978-0307474728", TotalAmount: 4, UnitsAvailable: ptr(3), Enabled: true, EntryDate: &old},
			{BookID: BookYoRobot, Title: "Yo, robot", Edition: 2, ISBN: "978-8435021166", TotalAmount: 1, UnitsAvailable: ptr(0), Enabled: true, EntryDate: &old},
			{BookID: BookLectures, Title: "Lectures on Physics", Edition: 3, ISBN: "978-0465023820", TotalAmount: 5, UnitsAvailable: ptr(5), Enabled: true, EntryDate: &recent},
			{BookID: BookFundacion, Title: "Fundacion", Edition: 1, ISBN: "978-8497593793", TotalAmount: 2, UnitsAvailable: ptr(2), Enabled: true, EntryDate: &recent},
		},
		&[]db.AuthorsPerBook{
			{BookID: BookCienAnos, AuthorID: 1},
			{BookID: BookYoRobot, AuthorID: 2},
			{BookID: BookLectures, AuthorID: 3},
			{BookID: BookFundacion, AuthorID: 2},
		},
		&[]db.CategoriesPerBook{
			{BookID: BookCienAnos, CategoryID: CategoryLiteratura},
			{BookID: BookCienAnos, CategoryID: CategoryNovela},
			{BookID: BookYoRobot, CategoryID: CategoryNovela},
			{BookID: BookLectures, CategoryID: CategoryFisica},
			{BookID: BookFundacion, CategoryID: CategoryNovela},
		},
		&[]db.Reserve{
			{ReserveID: 1, BookID: BookCienAnos, UserID: 1, CreatedAt: old, Status: db.ReserveReturned},
			{ReserveID: 2, BookID: BookLectures, UserID: 1, CreatedAt: recent, Status: db.ReserveActive},
			{ReserveID: 3, BookID: BookCienAnos, UserID: 2, CreatedAt: recent, Status: db.ReserveActive},
			{ReserveID: 4, BookID: BookFundacion, UserID: 2, CreatedAt: old, Status: db.ReserveReturned},
			{ReserveID: 5, BookID: BookYoRobot, UserID: 2, CreatedAt: recent, Status: db.ReservePending},
		},
		&[]db.Loan{
			{LoanID: 1, ReserveID: 1, LoanedAt: old, ExpiresOn: old.AddDate(0, 0, 10), State: db.LoanReturned},
			{LoanID: 2, ReserveID: 2, LoanedAt: now.UTC().AddDate(0, 0, -5), ExpiresOn: now.UTC().AddDate(0, 0, 5), State: db.LoanActive},
			{LoanID: 3, ReserveID: 3, LoanedAt: now.UTC().AddDate(0, 0, -2), ExpiresOn: now.UTC().AddDate(0, 0, 8), State: db.LoanActive},
			{LoanID: 4, ReserveID: 4, LoanedAt: old, ExpiresOn: old.AddDate(0, 0, 7), State: db.LoanReturned},
			{LoanID: 5, ReserveID: 5, LoanedAt: now.UTC(), ExpiresOn: now.UTC().AddDate(0, 0, 7), State: db.LoanPending},
		},
	}

	for _, r := range records {
		require.NoError(t, database.Create(r).Error)
	}
	return database
}
