package service

import (
	"context"
	"fmt"
	"strings"

	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/model"
	"expensetracker/internal/repository"
)

// CategoryService manages a user's categories.
type CategoryService interface {
	AddCategory(ctx context.Context, userID uint, name string) (*model.Category, error)
	DeleteCategory(ctx context.Context, userID, categoryID uint) error
	ListCategories(ctx context.Context, userID uint) ([]model.Category, error)
	ListExpensesByCategory(ctx context.Context, userID, categoryID uint) ([]model.Expense, error)
}

type categoryService struct {
	store repository.Store
}

// NewCategoryService creates a new category service.
func NewCategoryService(store repository.Store) CategoryService {
	return &categoryService{store: store}
}

// AddCategory creates a category with a trimmed, non-blank name.
func (s *categoryService) AddCategory(ctx context.Context, userID uint, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.ErrEmptyName
	}

	category := &model.Category{Name: name, UserID: userID}
	if err := s.store.Categories().Create(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

// DeleteCategory removes a category together with its expenses. Like a single
// expense deletion, this does not refund the budget.
func (s *categoryService) DeleteCategory(ctx context.Context, userID, categoryID uint) error {
	return s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		if _, err := tx.Expenses().DeleteByCategory(ctx, userID, categoryID); err != nil {
			return fmt.Errorf("delete category expenses: %w", err)
		}
		deleted, err := tx.Categories().Delete(ctx, userID, categoryID)
		if err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		if !deleted {
			return apperrors.ErrCategoryNotFound
		}
		return nil
	})
}

func (s *categoryService) ListCategories(ctx context.Context, userID uint) ([]model.Category, error) {
	categories, err := s.store.Categories().ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *categoryService) ListExpensesByCategory(ctx context.Context, userID, categoryID uint) ([]model.Expense, error) {
	expenses, err := s.store.Expenses().ListByCategory(ctx, userID, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}
