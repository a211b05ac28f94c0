package db

import (
	"fmt"

	"gorm.io/gorm"
)

// RunMigrations creates or updates every table and the search indexes
func RunMigrations(db *DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	if err := createIndexes(db.DB); err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}

	if err := normalizeLoanStates(db.DB); err != nil {
		return fmt.Errorf("normalize loan states: %w", err)
	}

	return nil
}

// normalizeLoanStates rewrites legacy free-text states to their canonical
// value. Unrecognized values are left untouched.
func normalizeLoanStates(db *gorm.DB) error {
	var states []string
	if err := db.Model(&Loan{}).Distinct("state").Pluck("state", &states).Error; err != nil {
		return err
	}

	for _, s := range states {
		canonical, ok := ParseLoanState(s)
		if !ok || string(canonical) == s {
			continue
		}
		if err := db.Model(&Loan{}).Where("state = ?", s).Update("state", canonical).Error; err != nil {
			return err
		}
	}
	return nil
}

func createIndexes(db *gorm.DB) error {
	// Search lowercases both sides of LIKE, so index the lowered columns
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_books_title_lower ON books (LOWER(title))`,
		`CREATE INDEX IF NOT EXISTS idx_authors_first_name_lower ON authors (LOWER(first_name))`,
		`CREATE INDEX IF NOT EXISTS idx_authors_last_name_lower ON authors (LOWER(last_name))`,
		`CREATE INDEX IF NOT EXISTS idx_categories_name_lower ON categories (LOWER(name))`,
	}

	if db.Dialector.Name() == "postgres" {
		indexes = append(indexes,
			// Trigram support for substring search on titles
			`CREATE EXTENSION IF NOT EXISTS pg_trgm`,
			`CREATE INDEX IF NOT EXISTS idx_books_title_trgm ON books USING gin (LOWER(title) gin_trgm_ops)`,
			`CREATE INDEX IF NOT EXISTS idx_loans_active ON loans (reserve_id) WHERE state = 'active'`,
		)
	}

	for _, indexSQL := range indexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			return err
		}
	}

	return nil
}
