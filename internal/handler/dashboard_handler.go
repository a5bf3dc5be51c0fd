package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/service"
)

// DashboardHandler serves the dashboard page and its JSON twin.
type DashboardHandler struct {
	dashboardService service.DashboardService
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(dashboardService service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

type dashboardPage struct {
	Username  string
	Dashboard *service.Dashboard
}

// Show renders the dashboard page.
func (h *DashboardHandler) Show(c echo.Context) error {
	claims, err := sessionClaims(c)
	if err != nil {
		return c.Redirect(http.StatusSeeOther, "/login")
	}

	dashboard, err := h.build(c, claims.UserID)
	if err != nil {
		return respondError(err)
	}

	return c.Render(http.StatusOK, "dashboard.html", dashboardPage{
		Username:  claims.Username,
		Dashboard: dashboard,
	})
}

// Get godoc
// @Summary Get the dashboard
// @Description Categories with totals, remaining budget and, if categoryId is given, that category's expenses.
// @Tags dashboard
// @Produce json
// @Param categoryId query int false "Selected category"
// @Success 200 {object} service.Dashboard
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/dashboard [get]
func (h *DashboardHandler) Get(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return respondError(err)
	}

	dashboard, err := h.build(c, userID)
	if err != nil {
		return respondError(err)
	}

	return c.JSON(http.StatusOK, dashboard)
}

func (h *DashboardHandler) build(c echo.Context, userID uint) (*service.Dashboard, error) {
	var categoryID *uint
	if raw := c.QueryParam("categoryId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, apperrors.ErrValidation
		}
		selected := uint(id)
		categoryID = &selected
	}
	return h.dashboardService.Build(c.Request().Context(), userID, categoryID)
}
