package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that share one database handle, so a set of
// writes can run in a single transaction.
type Store interface {
	Users() UserRepository
	Budgets() BudgetRepository
	Categories() CategoryRepository
	Expenses() ExpenseRepository
	// WithTransaction executes fn within a database transaction. The Store
	// passed to fn is bound to the transaction; fn must not use the outer one.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

type store struct {
	db *gorm.DB
}

// NewStore creates a GORM-backed store.
func NewStore(db *gorm.DB) Store {
	return &store{db: db}
}

func (s *store) Users() UserRepository { return NewUserRepository(s.db) }
func (s *store) Budgets() BudgetRepository { return NewBudgetRepository(s.db) }
func (s *store) Categories() CategoryRepository { return NewCategoryRepository(s.db) }
func (s *store) Expenses() ExpenseRepository { return NewExpenseRepository(s.db) }

// WithTransaction executes a function within a database transaction.
func (s *store) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &store{db: tx})
	})
}
