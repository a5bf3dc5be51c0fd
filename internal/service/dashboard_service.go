package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/model"
	"expensetracker/internal/repository"
)

// CategorySummary is a category with its aggregated spend.
type CategorySummary struct {
	model.Category
	Total decimal.Decimal `json:"total"`
	Count int64           `json:"count"`
}

// Dashboard is the read model behind the dashboard page.
type Dashboard struct {
	Categories       []CategorySummary `json:"categories"`
	Budget           decimal.Decimal   `json:"budget"`
	TotalSpent       decimal.Decimal   `json:"total_spent"`
	SelectedCategory *model.Category   `json:"selected_category,omitempty"`
	Expenses         []model.Expense   `json:"expenses"`
}

// DashboardService assembles dashboards. It never writes.
type DashboardService interface {
	Build(ctx context.Context, userID uint, categoryID *uint) (*Dashboard, error)
}

type dashboardService struct {
	store  repository.Store
	ledger LedgerService
}

// NewDashboardService creates a new dashboard service.
func NewDashboardService(store repository.Store, ledger LedgerService) DashboardService {
	return &dashboardService{store: store, ledger: ledger}
}

// Build loads everything the dashboard shows. The selected category and its
// expenses are only loaded when categoryID is set.
func (s *dashboardService) Build(ctx context.Context, userID uint, categoryID *uint) (*Dashboard, error) {
	var (
		categories []model.Category
		totals     []model.CategoryTotal
		dashboard  = &Dashboard{Expenses: []model.Expense{}}
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if categories, err = s.store.Categories().ListByUserID(gctx, userID); err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if totals, err = s.store.Expenses().TotalsByCategory(gctx, userID); err != nil {
			return fmt.Errorf("category totals: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if dashboard.Budget, err = s.ledger.RemainingBudget(gctx, userID); err != nil {
			return fmt.Errorf("remaining budget: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if dashboard.TotalSpent, err = s.store.Expenses().TotalByUserID(gctx, userID); err != nil {
			return fmt.Errorf("total spent: %w", err)
		}
		return nil
	})

	if categoryID != nil {
		g.Go(func() error {
			category, err := s.store.Categories().FindByID(gctx, userID, *categoryID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.ErrCategoryNotFound
				}
				return fmt.Errorf("find category: %w", err)
			}
			dashboard.SelectedCategory = category
			return nil
		})
		g.Go(func() error {
			expenses, err := s.store.Expenses().ListByCategory(gctx, userID, *categoryID)
			if err != nil {
				return fmt.Errorf("list expenses: %w", err)
			}
			dashboard.Expenses = expenses
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	byCategory := make(map[uint]model.CategoryTotal, len(totals))
	for _, t := range totals {
		byCategory[t.CategoryID] = t
	}
	dashboard.Categories = make([]CategorySummary, 0, len(categories))
	for _, c := range categories {
		summary := CategorySummary{Category: c, Total: decimal.Zero}
		if t, ok := byCategory[c.ID]; ok {
			summary.Total = t.Total
			summary.Count = t.Count
		}
		dashboard.Categories = append(dashboard.Categories, summary)
	}

	return dashboard, nil
}
