package handler

import (
	"errors"
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/service"
)

// AuthHandler handles registration, login, logout and session checks.
type AuthHandler struct {
	authService service.AuthService
	cookies     SessionCookies
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, cookies SessionCookies) *AuthHandler {
	return &AuthHandler{authService: authService, cookies: cookies}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Username        string `json:"username" form:"username" validate:"required"`
	Password        string `json:"password" form:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// authPage is the data behind the login and register forms.
type authPage struct {
	Message  string
	Username string
}

// ShowRegister renders the registration form.
func (h *AuthHandler) ShowRegister(c echo.Context) error {
	return c.Render(http.StatusOK, "register.html", authPage{})
}

// ShowLogin renders the login form.
func (h *AuthHandler) ShowLogin(c echo.Context) error {
	return c.Render(http.StatusOK, "login.html", authPage{})
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept x-www-form-urlencoded
// @Accept json
// @Produce html
// @Param request body RegisterRequest true "Registration data"
// @Success 303 "Redirect to /dashboard with session cookie"
// @Failure 400 "Form re-rendered with message"
// @Failure 409 "Form re-rendered with message"
// @Router /register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.Render(http.StatusBadRequest, "register.html", authPage{Message: "invalid request body"})
	}

	if err := c.Validate(&req); err != nil {
		return c.Render(http.StatusBadRequest, "register.html", authPage{
			Message:  "username and password are required",
			Username: req.Username,
		})
	}

	_, token, err := h.authService.Register(c.Request().Context(), req.Username, req.Password, req.ConfirmPassword)
	if err != nil {
		if apperrors.Internal(err) {
			return respondError(err)
		}
		httpErr := apperrors.MapErrorToHTTP(err)
		return c.Render(httpErr.StatusCode, "register.html", authPage{
			Message:  httpErr.Message,
			Username: req.Username,
		})
	}

	h.cookies.set(c, token)
	return c.Redirect(http.StatusSeeOther, "/dashboard")
}

// Login godoc
// @Summary Log in
// @Tags auth
// @Accept x-www-form-urlencoded
// @Accept json
// @Produce html
// @Param request body LoginRequest true "Login credentials"
// @Success 303 "Redirect to /dashboard with session cookie"
// @Failure 401 "Form re-rendered with a generic message"
// @Router /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.Render(http.StatusBadRequest, "login.html", authPage{Message: "invalid request body"})
	}

	if err := c.Validate(&req); err != nil {
		return c.Render(http.StatusUnauthorized, "login.html", authPage{
			Message:  apperrors.ErrInvalidCredentials.Error(),
			Username: req.Username,
		})
	}

	_, token, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if apperrors.Internal(err) {
			return respondError(err)
		}
		return c.Render(http.StatusUnauthorized, "login.html", authPage{
			Message:  apperrors.ErrInvalidCredentials.Error(),
			Username: req.Username,
		})
	}

	h.cookies.set(c, token)
	return c.Redirect(http.StatusSeeOther, "/dashboard")
}

// Logout godoc
// @Summary Log out
// @Tags auth
// @Success 303 "Redirect to /login, session cookie cleared"
// @Router /logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		err := h.authService.Logout(c.Request().Context(), cookie.Value)
		if err != nil && !errors.Is(err, apperrors.ErrUnauthorized) {
			return respondError(err)
		}
	}

	h.cookies.clear(c)
	return c.Redirect(http.StatusSeeOther, "/login")
}

// RequireSession resolves the session token from the cookie or a bearer
// header. Pages redirect to /login without one; API routes answer 401.
func (h *AuthHandler) RequireSession(redirect bool) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  SessionContextKey,
		TokenLookup: "cookie:" + SessionCookieName + ",header:Authorization:Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return h.authService.Authenticate(c.Request().Context(), token)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			if redirect {
				return c.Redirect(http.StatusSeeOther, "/login")
			}
			return respondError(apperrors.ErrUnauthorized)
		},
	})
}
