package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"expensetracker/internal/model"
)

// BudgetRepository defines budget row persistence operations.
type BudgetRepository interface {
	// FindByUserID returns gorm.ErrRecordNotFound when the user has no budget row.
	FindByUserID(ctx context.Context, userID uint) (*model.Budget, error)
	// Upsert creates the row or replaces its amount.
	Upsert(ctx context.Context, userID uint, amount decimal.Decimal) error
	// Decrement subtracts amount in place and reports whether a row existed.
	Decrement(ctx context.Context, userID uint, amount decimal.Decimal) (bool, error)
}

type budgetRepository struct {
	db *gorm.DB
}

// NewBudgetRepository creates a new budget repository.
func NewBudgetRepository(db *gorm.DB) BudgetRepository {
	return &budgetRepository{db: db}
}

// FindByUserID finds the budget row of a user.
func (r *budgetRepository) FindByUserID(ctx context.Context, userID uint) (*model.Budget, error) {
	var budget model.Budget
	if err := r.db.WithContext(ctx).Where("userid = ?", userID).First(&budget).Error; err != nil {
		return nil, err
	}
	budget.Amount = roundMoney(budget.Amount)
	return &budget, nil
}

// Upsert inserts the budget row, overwriting the amount on conflict.
func (r *budgetRepository) Upsert(ctx context.Context, userID uint, amount decimal.Decimal) error {
	budget := &model.Budget{UserID: userID, Amount: amount}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "userid"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
	}).Create(budget).Error
}

// Decrement lowers the amount with a single UPDATE so concurrent expenses
// cannot overwrite each other.
func (r *budgetRepository) Decrement(ctx context.Context, userID uint, amount decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Budget{}).
		Where("userid = ?", userID).
		Update("amount", gorm.Expr("amount - ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// roundMoney trims binary float noise left by engines such as SQLite that keep
// decimal columns as REAL and do the arithmetic in floating point.
func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
