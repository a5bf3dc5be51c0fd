package router

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/auth"
	"expensetracker/internal/config"
	"expensetracker/internal/db"
	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/handler"
	"expensetracker/internal/repository"
	"expensetracker/internal/service"
	"expensetracker/internal/view"
	"expensetracker/web"
)

// memoryTokenStore stands in for the Redis revocation list.
type memoryTokenStore struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func (m *memoryTokenStore) RevokeSession(_ context.Context, tokenID string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[tokenID] = true
	return nil
}

func (m *memoryTokenStore) IsSessionRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revoked[tokenID], nil
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	gormDB, err := db.Open(config.DBDriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))
	t.Cleanup(func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := &config.Config{SessionSecret: "test-secret", SessionTTL: time.Hour}
	store := repository.NewStore(gormDB)
	tokens := &memoryTokenStore{revoked: map[string]bool{}}

	authService := service.NewAuthService(store.Users(), auth.NewJWTService(cfg.SessionSecret, cfg.SessionTTL), tokens)
	ledgerService := service.NewLedgerService(store, nil, nil, log)
	categoryService := service.NewCategoryService(store)
	dashboardService := service.NewDashboardService(store, ledgerService)

	renderer, err := view.New(web.TemplatesFS, "templates")
	require.NoError(t, err)

	e := echo.New()
	Register(
		e,
		cfg,
		log,
		renderer,
		handler.NewAuthHandler(authService, handler.SessionCookies{TTL: cfg.SessionTTL}),
		handler.NewLedgerHandler(ledgerService),
		handler.NewCategoryHandler(categoryService),
		handler.NewDashboardHandler(dashboardService),
	)
	return e
}

type client struct {
	t       *testing.T
	e       *echo.Echo
	session *http.Cookie
}

func (c *client) do(method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	if c.session != nil {
		req.AddCookie(c.session)
	}
	rec := httptest.NewRecorder()
	c.e.ServeHTTP(rec, req)
	return rec
}

func (c *client) form(method, path string, values url.Values) *httptest.ResponseRecorder {
	return c.do(method, path, echo.MIMEApplicationForm, strings.NewReader(values.Encode()))
}

func (c *client) sendJSON(method, path, body string) *httptest.ResponseRecorder {
	return c.do(method, path, echo.MIMEApplicationJSON, strings.NewReader(body))
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == handler.SessionCookieName {
			return cookie
		}
	}
	return nil
}

// registered returns a client logged in as a freshly registered user.
func registered(t *testing.T, e *echo.Echo, username string) *client {
	t.Helper()
	c := &client{t: t, e: e}
	rec := c.form(http.MethodPost, "/register", url.Values{
		"username":        {username},
		"password":        {"secret"},
		"confirmPassword": {"secret"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	c.session = sessionCookie(rec)
	require.NotNil(t, c.session)
	return c
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var body apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func addCategory(t *testing.T, c *client, name string) uint {
	t.Helper()
	rec := c.form(http.MethodPost, "/category", url.Values{"name": {name}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body handler.CategoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Category.ID
}

func addExpense(t *testing.T, c *client, categoryID uint, description, amount string) handler.ExpenseResponse {
	t.Helper()
	rec := c.form(http.MethodPost, "/expense", url.Values{
		"description": {description},
		"amount":      {amount},
		"categoryid":  {fmt.Sprint(categoryID)},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body handler.ExpenseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func dashboard(t *testing.T, c *client, query string) service.Dashboard {
	t.Helper()
	rec := c.do(http.MethodGet, "/api/dashboard"+query, "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body service.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(expected).Equal(actual), "expected %s, got %s", expected, actual)
}

func TestPublicRoutes(t *testing.T) {
	e := newTestServer(t)
	c := &client{t: t, e: e}

	rec := c.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = c.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get(echo.HeaderLocation))

	rec = c.do(http.MethodGet, "/login", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<form")

	rec = c.do(http.MethodGet, "/register", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "confirmPassword")

	rec = c.do(http.MethodGet, "/static/app.js", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)
}

func TestRegister(t *testing.T) {
	e := newTestServer(t)
	c := registered(t, e, "alice")

	assert.True(t, c.session.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.session.SameSite)

	rec := c.do(http.MethodGet, "/dashboard", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hello, alice")
}

func TestRegister_Errors(t *testing.T) {
	e := newTestServer(t)
	registered(t, e, "alice")
	c := &client{t: t, e: e}

	rec := c.form(http.MethodPost, "/register", url.Values{
		"username": {"bob"}, "password": {"one"}, "confirmPassword": {"two"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "passwords do not match")
	assert.Nil(t, sessionCookie(rec))

	rec = c.form(http.MethodPost, "/register", url.Values{
		"username": {"alice"}, "password": {"x"}, "confirmPassword": {"x"},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "username already exists")

	rec = c.form(http.MethodPost, "/register", url.Values{"username": {"carol"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	e := newTestServer(t)
	registered(t, e, "alice")
	c := &client{t: t, e: e}

	rec := c.form(http.MethodPost, "/login", url.Values{"username": {"alice"}, "password": {"secret"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get(echo.HeaderLocation))
	assert.NotNil(t, sessionCookie(rec))

	wrongPassword := c.form(http.MethodPost, "/login", url.Values{"username": {"alice"}, "password": {"nope"}})
	unknownUser := c.form(http.MethodPost, "/login", url.Values{"username": {"mallory"}, "password": {"nope"}})

	for _, rec := range []*httptest.ResponseRecorder{wrongPassword, unknownUser} {
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid username or password")
		assert.Nil(t, sessionCookie(rec))
	}
}

func TestUnauthenticated(t *testing.T) {
	e := newTestServer(t)
	c := &client{t: t, e: e}

	rec := c.do(http.MethodGet, "/dashboard", "", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))

	rec = c.do(http.MethodGet, "/api/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Code)

	rec = c.form(http.MethodPost, "/budget", url.Values{"amount": {"100"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c.session = &http.Cookie{Name: handler.SessionCookieName, Value: "garbage"}
	rec = c.do(http.MethodGet, "/api/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_RevokesSession(t *testing.T) {
	e := newTestServer(t)
	c := registered(t, e, "alice")
	oldSession := c.session

	rec := c.do(http.MethodPost, "/logout", "", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
	cleared := sessionCookie(rec)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	c.session = oldSession
	rec = c.do(http.MethodGet, "/api/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Logging out without a session still lands on the login page.
	anonymous := &client{t: t, e: e}
	rec = anonymous.do(http.MethodPost, "/logout", "", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestBearerHeader(t *testing.T) {
	e := newTestServer(t)
	c := registered(t, e, "alice")

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+c.session.Value)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBudgetLedger(t *testing.T) {
	e := newTestServer(t)
	c := registered(t, e, "alice")

	rec := c.form(http.MethodPost, "/budget", url.Values{"amount": {"100"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var budget handler.BudgetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &budget))
	assertDecimal(t, "100", budget.Remaining)

	food := addCategory(t, c, "Food")

	assertDecimal(t, "70", addExpense(t, c, food, "Groceries", "30").Remaining)
	second := addExpense(t, c, food, "Dinner", "50")
	assertDecimal(t, "20", second.Remaining)
	assert.Equal(t, "Dinner", second.Expense.Description)

	// Deleting an expense does not refund the budget.
	rec = c.do(http.MethodDelete, fmt.Sprintf("/expense/%d", second.Expense.ID), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	snapshot := dashboard(t, c, fmt.Sprintf("?categoryId=%d", food))
	assertDecimal(t, "20", snapshot.Budget)
	assertDecimal(t, "30", snapshot.TotalSpent)
	require.Len(t, snapshot.Categories, 1)
	assertDecimal(t, "30", snapshot.Categories[0].Total)
	require.NotNil(t, snapshot.SelectedCategory)
	assert.Equal(t, "Food", snapshot.SelectedCategory.Name)
	require.Len(t, snapshot.Expenses, 1)
	assert.Equal(t, "Groceries", snapshot.Expenses[0].Description)

	// Setting a budget replaces the remaining amount outright.
	rec = c.sendJSON(http.MethodPost, "/budget", `{"amount": 40.5}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assertDecimal(t, "40.5", dashboard(t, c, "").Budget)

	// Overspending is allowed and goes negative.
	assertDecimal(t, "-9.5", addExpense(t, c, food, "Shoes", "50").Remaining)

	page := c.do(http.MethodGet, fmt.Sprintf("/dashboard?categoryId=%d", food), "", nil)
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "-9.50")
	assert.Contains(t, page.Body.String(), "Shoes")
}

func TestSetBudget_Invalid(t *testing.T) {
	e := newTestServer(t)
	c := registered(t, e, "alice")

	for _, amount := range []string{"0", "-5", "abc", "", "0.001", "10.999", "1e40", "1000000000000000000"} {
		rec := c.form(http.MethodPost, "/budget", url.Values{"amount": {amount}})
		assert.Equal(t, http.StatusBadRequest, rec.Code, amount)
		assert.Equal(t, "INVALID_AMOUNT", decodeError(t, rec).Code, amount)
	}

	rec := c.sendJSON(http.MethodPost, "/budget", `{"amount": 1e40}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_AMOUNT", decodeError(t, rec).Code)

	assertDecimal(t, "0", dashboard(t, c, "").Budget)
}

func TestAddExpense_Invalid(t *testing.T) {
	e := newTestServer(t)
	alice := registered(t, e, "alice")
	bob := registered(t, e, "bob")
	bobs := addCategory(t, bob, "Bob's")
	food := addCategory(t, alice, "Food")

	cases := []url.Values{
		{"description": {"x"}, "amount": {"10"}},
		{"description": {"x"}, "amount": {"0"}, "categoryid": {fmt.Sprint(food)}},
		{"description": {"x"}, "amount": {"ten"}, "categoryid": {fmt.Sprint(food)}},
		{"description": {"  "}, "amount": {"10"}, "categoryid": {fmt.Sprint(food)}},
		{"description": {"x"}, "amount": {"10"}, "categoryid": {fmt.Sprint(bobs)}},
		{"description": {"x"}, "amount": {"0.001"}, "categoryid": {fmt.Sprint(food)}},
		{"description": {"x"}, "amount": {"1e40"}, "categoryid": {fmt.Sprint(food)}},
	}
	for _, values := range cases {
		rec := alice.form(http.MethodPost, "/expense", values)
		assert.Equal(t, http.StatusBadRequest, rec.Code, values.Encode())
		assert.Equal(t, "INVALID_EXPENSE", decodeError(t, rec).Code, values.Encode())
	}

	rec := alice.sendJSON(http.MethodPost, "/expense",
		fmt.Sprintf(`{"description": "gum", "amount": "0.001", "categoryid": %d}`, food))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_EXPENSE", decodeError(t, rec).Code)

	snapshot := dashboard(t, alice, fmt.Sprintf("?categoryId=%d", food))
	assert.Empty(t, snapshot.Expenses)
	assertDecimal(t, "0", snapshot.TotalSpent)
	require.Len(t, snapshot.Categories, 1)
	assert.Zero(t, snapshot.Categories[0].Count)
}

func TestCategories(t *testing.T) {
	e := newTestServer(t)
	alice := registered(t, e, "alice")
	bob := registered(t, e, "bob")

	rec := alice.form(http.MethodPost, "/category", url.Values{"name": {"   "}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "EMPTY_NAME", decodeError(t, rec).Code)

	rec = alice.sendJSON(http.MethodPost, "/category", `{"name": "  Travel "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var created handler.CategoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Travel", created.Category.Name)

	travel := created.Category.ID
	addExpense(t, alice, travel, "Train", "25")

	// Another user's category is invisible.
	rec = bob.do(http.MethodDelete, fmt.Sprintf("/category/%d", travel), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)

	rec = bob.do(http.MethodGet, fmt.Sprintf("/api/dashboard?categoryId=%d", travel), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = alice.do(http.MethodDelete, fmt.Sprintf("/category/%d", travel), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	snapshot := dashboard(t, alice, "")
	assert.Empty(t, snapshot.Categories)
	assertDecimal(t, "0", snapshot.TotalSpent)

	rec = alice.do(http.MethodDelete, fmt.Sprintf("/category/%d", travel), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = alice.do(http.MethodGet, "/api/dashboard?categoryId=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteExpense_MissingIsOK(t *testing.T) {
	e := newTestServer(t)
	c := registered(t, e, "alice")

	rec := c.do(http.MethodDelete, "/expense/999", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(http.MethodDelete, "/expense/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
