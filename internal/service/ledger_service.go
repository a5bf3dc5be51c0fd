package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"expensetracker/internal/cache"
	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/events"
	"expensetracker/internal/model"
	"expensetracker/internal/repository"
)

// budgetCacheTTL bounds how long a cached remaining budget can outlive a
// missed cache write.
const budgetCacheTTL = time.Minute

// LedgerService maintains each user's remaining budget.
//
// The remaining amount is the last explicitly set budget minus every expense
// recorded since. Deleting an expense does not give its amount back.
type LedgerService interface {
	SetBudget(ctx context.Context, userID uint, amount decimal.Decimal) error
	RecordExpense(ctx context.Context, userID uint, description string, amount decimal.Decimal, categoryID uint) (*model.Expense, decimal.Decimal, error)
	DeleteExpense(ctx context.Context, userID, expenseID uint) error
	RemainingBudget(ctx context.Context, userID uint) (decimal.Decimal, error)
}

type ledgerService struct {
	store     repository.Store
	cache     *cache.Client
	publisher events.Publisher
	log       logrus.FieldLogger
}

// NewLedgerService creates a new ledger service. cache may be nil.
func NewLedgerService(store repository.Store, cache *cache.Client, publisher events.Publisher, log logrus.FieldLogger) LedgerService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &ledgerService{
		store:     store,
		cache:     cache,
		publisher: publisher,
		log:       log,
	}
}

func (s *ledgerService) cacheKey(userID uint) string {
	return fmt.Sprintf("budget:%d", userID)
}

// SetBudget replaces the user's remaining budget.
func (s *ledgerService) SetBudget(ctx context.Context, userID uint, amount decimal.Decimal) error {
	if !validAmount(amount) {
		return apperrors.ErrInvalidAmount
	}

	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.Budgets().Upsert(ctx, userID, amount); err != nil {
			return fmt.Errorf("save budget: %w", err)
		}
		// The row stays locked until commit, so concurrent writers update
		// the cache in the same order they update the table.
		s.cacheRemaining(ctx, userID, amount)
		return nil
	})
	if err != nil {
		_ = s.cache.Delete(ctx, s.cacheKey(userID))
		return err
	}

	s.publish(ctx, events.New(events.TypeBudgetSet, userID, amount))
	return nil
}

// RecordExpense stores the expense and charges it against the budget in one
// transaction. Without a budget row the expense is stored and nothing is charged.
func (s *ledgerService) RecordExpense(ctx context.Context, userID uint, description string, amount decimal.Decimal, categoryID uint) (*model.Expense, decimal.Decimal, error) {
	description = strings.TrimSpace(description)
	if description == "" || !validAmount(amount) || categoryID == 0 {
		return nil, decimal.Zero, apperrors.ErrInvalidExpense
	}

	expense := &model.Expense{
		Description: description,
		Amount:      amount,
		CategoryID:  categoryID,
		UserID:      userID,
	}

	var (
		remaining = decimal.Zero
		charged   bool
	)
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		if _, err := tx.Categories().FindByID(ctx, userID, categoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: unknown category %d", apperrors.ErrInvalidExpense, categoryID)
			}
			return fmt.Errorf("find category: %w", err)
		}

		if err := tx.Expenses().Create(ctx, expense); err != nil {
			return fmt.Errorf("create expense: %w", err)
		}

		existed, err := tx.Budgets().Decrement(ctx, userID, amount)
		if err != nil {
			return fmt.Errorf("update budget: %w", err)
		}
		if !existed {
			return nil
		}

		budget, err := tx.Budgets().FindByUserID(ctx, userID)
		if err != nil {
			return fmt.Errorf("read budget: %w", err)
		}
		remaining = budget.Amount
		charged = true
		s.cacheRemaining(ctx, userID, remaining)
		return nil
	})
	if err != nil {
		_ = s.cache.Delete(ctx, s.cacheKey(userID))
		return nil, decimal.Zero, err
	}

	recorded := events.New(events.TypeExpenseRecorded, userID, amount)
	recorded.ExpenseID = expense.ID
	if charged {
		recorded.Remaining = &remaining
	}
	s.publish(ctx, recorded)

	if charged && remaining.IsNegative() && !remaining.Add(amount).IsNegative() {
		overspent := events.New(events.TypeBudgetOverspent, userID, amount)
		overspent.ExpenseID = expense.ID
		overspent.Remaining = &remaining
		s.publish(ctx, overspent)
	}

	return expense, remaining, nil
}

// DeleteExpense removes one of the user's expenses. The budget is left as is,
// and a missing expense is not an error.
func (s *ledgerService) DeleteExpense(ctx context.Context, userID, expenseID uint) error {
	deleted, err := s.store.Expenses().Delete(ctx, userID, expenseID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if deleted {
		event := events.New(events.TypeExpenseDeleted, userID, decimal.Zero)
		event.ExpenseID = expenseID
		s.publish(ctx, event)
	}
	return nil
}

// RemainingBudget returns the user's remaining budget, or zero without a budget row.
func (s *ledgerService) RemainingBudget(ctx context.Context, userID uint) (decimal.Decimal, error) {
	if data, _ := s.cache.Get(ctx, s.cacheKey(userID)); data != nil {
		if cached, err := decimal.NewFromString(string(data)); err == nil {
			return cached, nil
		}
	}

	budget, err := s.store.Budgets().FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("get budget: %w", err)
	}

	// A writer may have cached a newer value since the read above; never
	// replace it with this one.
	_, _ = s.cache.SetNX(ctx, s.cacheKey(userID), []byte(budget.Amount.String()), budgetCacheTTL)
	return budget.Amount, nil
}

func (s *ledgerService) cacheRemaining(ctx context.Context, userID uint, remaining decimal.Decimal) {
	_ = s.cache.Set(ctx, s.cacheKey(userID), []byte(remaining.String()), budgetCacheTTL)
}

// publish never fails the caller; the ledger write has already committed.
func (s *ledgerService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"type":    event.Type,
			"user_id": event.UserID,
		}).Warn("failed to publish ledger event")
	}
}
