package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/model"
	"expensetracker/internal/service"
)

// LedgerHandler handles budget and expense endpoints.
type LedgerHandler struct {
	ledgerService service.LedgerService
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(ledgerService service.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService}
}

// SetBudgetRequest represents a budget update. Amount accepts a JSON number,
// a numeric string or a form value.
type SetBudgetRequest struct {
	Amount json.Number `json:"amount" form:"amount" validate:"required" swaggertype:"string" example:"250.00"`
}

// BudgetResponse represents the budget after an update.
type BudgetResponse struct {
	Message   string          `json:"message"`
	Remaining decimal.Decimal `json:"remaining" swaggertype:"string" example:"250"`
}

// AddExpenseRequest represents a new expense.
type AddExpenseRequest struct {
	Description string      `json:"description" form:"description" validate:"required"`
	Amount      json.Number `json:"amount" form:"amount" validate:"required" swaggertype:"string" example:"12.50"`
	CategoryID  uint        `json:"categoryid" form:"categoryid" validate:"required"`
}

// ExpenseResponse represents a recorded expense and the resulting budget.
type ExpenseResponse struct {
	Message   string          `json:"message"`
	Expense   *model.Expense  `json:"expense"`
	Remaining decimal.Decimal `json:"remaining" swaggertype:"string" example:"237.5"`
}

// MessageResponse is a bare confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// SetBudget godoc
// @Summary Set the remaining budget
// @Description Replaces the remaining budget. Past expenses are not re-applied.
// @Tags budget
// @Accept json
// @Accept x-www-form-urlencoded
// @Produce json
// @Param request body SetBudgetRequest true "Budget amount"
// @Success 200 {object} BudgetResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /budget [post]
func (h *LedgerHandler) SetBudget(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return respondError(err)
	}

	var req SetBudgetRequest
	if err := c.Bind(&req); err != nil {
		return respondError(apperrors.ErrInvalidAmount)
	}
	if err := c.Validate(&req); err != nil {
		return respondError(apperrors.ErrInvalidAmount)
	}

	amount, err := decimal.NewFromString(req.Amount.String())
	if err != nil {
		return respondError(apperrors.ErrInvalidAmount)
	}

	if err := h.ledgerService.SetBudget(c.Request().Context(), userID, amount); err != nil {
		return respondError(err)
	}

	return c.JSON(http.StatusOK, BudgetResponse{
		Message:   "Budget updated",
		Remaining: amount,
	})
}

// AddExpense godoc
// @Summary Record an expense
// @Description Stores the expense and subtracts it from the remaining budget.
// @Tags expenses
// @Accept json
// @Accept x-www-form-urlencoded
// @Produce json
// @Param request body AddExpenseRequest true "Expense data"
// @Success 200 {object} ExpenseResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /expense [post]
func (h *LedgerHandler) AddExpense(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return respondError(err)
	}

	var req AddExpenseRequest
	if err := c.Bind(&req); err != nil {
		return respondError(apperrors.ErrInvalidExpense)
	}
	if err := c.Validate(&req); err != nil {
		return respondError(apperrors.ErrInvalidExpense)
	}

	amount, err := decimal.NewFromString(req.Amount.String())
	if err != nil {
		return respondError(apperrors.ErrInvalidExpense)
	}

	expense, remaining, err := h.ledgerService.RecordExpense(c.Request().Context(), userID, req.Description, amount, req.CategoryID)
	if err != nil {
		return respondError(err)
	}

	return c.JSON(http.StatusOK, ExpenseResponse{
		Message:   "Expense added",
		Expense:   expense,
		Remaining: remaining,
	})
}

// DeleteExpense godoc
// @Summary Delete an expense
// @Description The budget is not refunded. Deleting a missing expense succeeds.
// @Tags expenses
// @Produce json
// @Param expenseId path int true "Expense ID"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /expense/{expenseId} [delete]
func (h *LedgerHandler) DeleteExpense(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return respondError(err)
	}

	expenseID, err := strconv.ParseUint(c.Param("expenseId"), 10, 64)
	if err != nil {
		return respondError(apperrors.ErrValidation)
	}

	if err := h.ledgerService.DeleteExpense(c.Request().Context(), userID, uint(expenseID)); err != nil {
		return respondError(err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Expense deleted"})
}
