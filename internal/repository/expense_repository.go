package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"expensetracker/internal/model"
)

// ExpenseRepository defines expense persistence operations.
type ExpenseRepository interface {
	Create(ctx context.Context, expense *model.Expense) error
	ListByCategory(ctx context.Context, userID, categoryID uint) ([]model.Expense, error)
	Delete(ctx context.Context, userID, id uint) (bool, error)
	DeleteByCategory(ctx context.Context, userID, categoryID uint) (int64, error)
	TotalByUserID(ctx context.Context, userID uint) (decimal.Decimal, error)
	TotalsByCategory(ctx context.Context, userID uint) ([]model.CategoryTotal, error)
}

type expenseRepository struct {
	db *gorm.DB
}

// NewExpenseRepository creates a new expense repository.
func NewExpenseRepository(db *gorm.DB) ExpenseRepository {
	return &expenseRepository{db: db}
}

// Create creates a new expense record.
func (r *expenseRepository) Create(ctx context.Context, expense *model.Expense) error {
	return r.db.WithContext(ctx).Create(expense).Error
}

// ListByCategory lists the user's expenses in one category, oldest first.
func (r *expenseRepository) ListByCategory(ctx context.Context, userID, categoryID uint) ([]model.Expense, error) {
	expenses := []model.Expense{}
	if err := r.db.WithContext(ctx).
		Where("categoryid = ? AND userid = ?", categoryID, userID).
		Order("expenseid").
		Find(&expenses).Error; err != nil {
		return nil, err
	}
	return expenses, nil
}

// Delete deletes an expense owned by the user.
func (r *expenseRepository) Delete(ctx context.Context, userID, id uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("expenseid = ? AND userid = ?", id, userID).
		Delete(&model.Expense{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteByCategory deletes every expense of a category and returns how many went.
func (r *expenseRepository) DeleteByCategory(ctx context.Context, userID, categoryID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("categoryid = ? AND userid = ?", categoryID, userID).
		Delete(&model.Expense{})
	return res.RowsAffected, res.Error
}

// TotalByUserID sums all of the user's expenses.
func (r *expenseRepository) TotalByUserID(ctx context.Context, userID uint) (decimal.Decimal, error) {
	var result struct {
		Total decimal.NullDecimal
	}
	if err := r.db.WithContext(ctx).Model(&model.Expense{}).
		Select("SUM(amount) AS total").
		Where("userid = ?", userID).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	if !result.Total.Valid {
		return decimal.Zero, nil
	}
	return roundMoney(result.Total.Decimal), nil
}

// TotalsByCategory aggregates the user's expenses per category.
func (r *expenseRepository) TotalsByCategory(ctx context.Context, userID uint) ([]model.CategoryTotal, error) {
	totals := []model.CategoryTotal{}
	if err := r.db.WithContext(ctx).Model(&model.Expense{}).
		Select("categoryid, SUM(amount) AS total, COUNT(*) AS count").
		Where("userid = ?", userID).
		Group("categoryid").
		Order("categoryid").
		Scan(&totals).Error; err != nil {
		return nil, err
	}
	for i := range totals {
		totals[i].Total = roundMoney(totals[i].Total)
	}
	return totals, nil
}
