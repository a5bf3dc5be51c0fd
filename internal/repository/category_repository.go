package repository

import (
	"context"

	"gorm.io/gorm"

	"expensetracker/internal/model"
)

// CategoryRepository defines category persistence operations.
type CategoryRepository interface {
	Create(ctx context.Context, category *model.Category) error
	FindByID(ctx context.Context, userID, id uint) (*model.Category, error)
	ListByUserID(ctx context.Context, userID uint) ([]model.Category, error)
	// Delete reports whether a row owned by userID was removed.
	Delete(ctx context.Context, userID, id uint) (bool, error)
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository creates a new category repository.
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

// Create creates a new category.
func (r *categoryRepository) Create(ctx context.Context, category *model.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

// FindByID finds a category owned by the user.
func (r *categoryRepository) FindByID(ctx context.Context, userID, id uint) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).
		Where("categoryid = ? AND userid = ?", id, userID).
		First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// ListByUserID lists all categories of a user.
func (r *categoryRepository) ListByUserID(ctx context.Context, userID uint) ([]model.Category, error) {
	categories := []model.Category{}
	if err := r.db.WithContext(ctx).
		Where("userid = ?", userID).
		Order("categoryid").
		Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// Delete deletes a category owned by the user.
func (r *categoryRepository) Delete(ctx context.Context, userID, id uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("categoryid = ? AND userid = ?", id, userID).
		Delete(&model.Category{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
