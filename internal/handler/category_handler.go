package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/model"
	"expensetracker/internal/service"
)

// CategoryHandler handles category endpoints.
type CategoryHandler struct {
	categoryService service.CategoryService
}

// NewCategoryHandler creates a new category handler.
func NewCategoryHandler(categoryService service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// AddCategoryRequest represents a new category.
type AddCategoryRequest struct {
	Name string `json:"name" form:"name"`
}

// CategoryResponse represents a created category.
type CategoryResponse struct {
	Message  string          `json:"message"`
	Category *model.Category `json:"category"`
}

// AddCategory godoc
// @Summary Create a category
// @Tags categories
// @Accept json
// @Accept x-www-form-urlencoded
// @Produce json
// @Param request body AddCategoryRequest true "Category name"
// @Success 200 {object} CategoryResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /category [post]
func (h *CategoryHandler) AddCategory(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return respondError(err)
	}

	var req AddCategoryRequest
	if err := c.Bind(&req); err != nil {
		return respondError(apperrors.ErrEmptyName)
	}

	category, err := h.categoryService.AddCategory(c.Request().Context(), userID, req.Name)
	if err != nil {
		return respondError(err)
	}

	return c.JSON(http.StatusOK, CategoryResponse{
		Message:  "Category added",
		Category: category,
	})
}

// DeleteCategory godoc
// @Summary Delete a category and its expenses
// @Tags categories
// @Produce json
// @Param id path int true "Category ID"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /category/{id} [delete]
func (h *CategoryHandler) DeleteCategory(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return respondError(err)
	}

	categoryID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return respondError(apperrors.ErrCategoryNotFound)
	}

	if err := h.categoryService.DeleteCategory(c.Request().Context(), userID, uint(categoryID)); err != nil {
		return respondError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Category deleted"})
}
