package db

import (
	"time"

	"gorm.io/gorm"
)

// Book represents a catalogued title
type Book struct {
	BookID         uint       `gorm:"primaryKey;autoIncrement" json:"bookId"`
	Title          string     `gorm:"type:varchar(255);not null;index:idx_books_title" json:"title"`
	Description    string     `gorm:"type:text" json:"description,omitempty"`
	Edition        int        `gorm:"not null;default:1" json:"edition"`
	Year           *int       `json:"year,omitempty"`
	Publisher      string     `gorm:"type:varchar(45)" json:"publisher,omitempty"`
	Language       string     `gorm:"type:varchar(15)" json:"language,omitempty"`
	Location       string     `gorm:"type:varchar(50)" json:"location,omitempty"`
	ISBN           string     `gorm:"column:isbn;type:varchar(16);uniqueIndex;not null" json:"isbn"`
	TotalAmount    int        `gorm:"not null;default:0" json:"totalAmount"`
	UnitsAvailable *int       `json:"unitsAvailable,omitempty"` // copies that can still be loaned
	Enabled        bool       `gorm:"not null" json:"enabled"`
	EntryDate      *time.Time `gorm:"index:idx_books_entry_date" json:"entryDate,omitempty"`
}

// TableName specifies the table name for Book model
func (Book) TableName() string {
	return "books"
}

// BeforeCreate hook to stamp the entry date
func (b *Book) BeforeCreate(tx *gorm.DB) error {
	if b.EntryDate == nil {
		now := time.Now()
		b.EntryDate = &now
	}
	return nil
}

// Author of one or more books
type Author struct {
	AuthorID  uint    `gorm:"primaryKey;autoIncrement" json:"authorId"`
	FirstName *string `gorm:"type:varchar(100)" json:"firstName"`
	LastName  *string `gorm:"type:varchar(100)" json:"lastName"`
}

func (Author) TableName() string {
	return "authors"
}

// AuthorsPerBook links books and authors
type AuthorsPerBook struct {
	BookID   uint `gorm:"primaryKey;autoIncrement:false"`
	AuthorID uint `gorm:"primaryKey;autoIncrement:false"`
}

func (AuthorsPerBook) TableName() string {
	return "authors_per_book"
}

// Category is a node of the category forest. A nil ParentCategoryID marks a root.
type Category struct {
	CategoryID       uint   `gorm:"primaryKey;autoIncrement" json:"categoryId"`
	ParentCategoryID *uint  `gorm:"index:idx_categories_parent" json:"parentCategoryId"`
	Name             string `gorm:"type:varchar(30);not null" json:"name"`
	Icon             string `gorm:"type:varchar(100)" json:"icon"`
	Enabled          bool   `gorm:"not null" json:"enabled"`
}

func (Category) TableName() string {
	return "categories"
}

// CategoriesPerBook links books and categories
type CategoriesPerBook struct {
	BookID     uint `gorm:"primaryKey;autoIncrement:false"`
	CategoryID uint `gorm:"primaryKey;autoIncrement:false;index:idx_cpb_category"`
}

func (CategoriesPerBook) TableName() string {
	return "categories_per_book"
}

// Reputation is a trust tier. Lower ids are better tiers.
type Reputation struct {
	ReputationID uint   `gorm:"primaryKey;autoIncrement" json:"reputationId"`
	Name         string `gorm:"type:varchar(25)" json:"name"`
}

func (Reputation) TableName() string {
	return "reputations"
}

// User is a library member identified externally by Account (numero de cuenta)
type User struct {
	UserID        uint   `gorm:"primaryKey;autoIncrement" json:"userId"`
	FirstName     string `gorm:"type:varchar(35);not null" json:"firstName"`
	SecondName    string `gorm:"type:varchar(35)" json:"secondName,omitempty"`
	FirstSurname  string `gorm:"type:varchar(35);not null" json:"firstSurname"`
	SecondSurname string `gorm:"type:varchar(35)" json:"secondSurname,omitempty"`
	Email         string `gorm:"type:varchar(40);uniqueIndex;not null" json:"email"`
	Account       string `gorm:"type:varchar(11);uniqueIndex;not null" json:"numeroCuenta"`
	UserType      int    `gorm:"not null;default:2" json:"userType"`
	ReputationID  uint   `gorm:"not null;default:1" json:"reputation"`
	Password      string `gorm:"type:varchar(60);not null" json:"-"`
	Enabled       bool   `gorm:"not null" json:"enabled"`
	Verified      bool   `gorm:"not null;default:false" json:"verified"`
}

func (User) TableName() string {
	return "users"
}

// Reserve is a hold placed by a user on a book
type Reserve struct {
	ReserveID    uint          `gorm:"primaryKey;autoIncrement" json:"reserveId"`
	BookID       uint          `gorm:"not null;index:idx_reserves_book" json:"bookId"`
	UserID       uint          `gorm:"not null;index:idx_reserves_user" json:"userId"`
	CreatedAt    time.Time     `json:"createdAt"`
	CheckoutDate *time.Time    `json:"checkoutDate,omitempty"`
	Status       ReserveStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Notes        string        `gorm:"type:text" json:"notes,omitempty"`
}

func (Reserve) TableName() string {
	return "reserves"
}

// Loan is the lending record created once a reserve is fulfilled
type Loan struct {
	LoanID    uint      `gorm:"primaryKey;autoIncrement" json:"loanId"`
	ReserveID uint      `gorm:"not null;uniqueIndex" json:"reserveId"`
	LoanedAt  time.Time `gorm:"not null" json:"loanedAt"`
	ExpiresOn time.Time `gorm:"not null" json:"expiresOn"`
	State     LoanState `gorm:"type:varchar(20);not null;default:'active';index:idx_loans_state" json:"state"`
	Notes     string    `gorm:"type:text" json:"notes,omitempty"`
}

func (Loan) TableName() string {
	return "loans"
}

// AllModels lists every model managed by migrations, parents first.
func AllModels() []interface{} {
	return []interface{}{
		&Reputation{},
		&User{},
		&Author{},
		&Category{},
		&Book{},
		&AuthorsPerBook{},
		&CategoriesPerBook{},
		&Reserve{},
		&Loan{},
	}
}
