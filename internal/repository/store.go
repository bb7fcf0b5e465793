package repository

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// Store groups the repositories so a unit of work can run them on one transaction.
type Store struct {
	db *gorm.DB

	Settlements *SettlementRepository
	Expenses    *ExpenseRepository
	References  *ReferenceRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:          db,
		Settlements: NewSettlementRepository(db),
		Expenses:    NewExpenseRepository(db),
		References:  NewReferenceRepository(db),
	}
}

// Transaction runs fn with a Store bound to a single transaction. Returning an error
// from fn rolls everything back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{
			db:          tx,
			Settlements: NewSettlementRepository(tx),
			Expenses:    &ExpenseRepository{db: tx, mu: &sync.Mutex{}},
			References:  NewReferenceRepository(tx),
		})
	})
}
