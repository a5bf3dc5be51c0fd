package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"expensetracker/internal/auth"
	apperrors "expensetracker/internal/errors"
)

const (
	// SessionCookieName is the cookie carrying the session token.
	SessionCookieName = "session"
	// SessionContextKey is where the session claims are stored on echo.Context.
	SessionContextKey = "session"
)

// SessionCookies writes and clears the session cookie.
type SessionCookies struct {
	TTL    time.Duration
	Secure bool
}

func (s SessionCookies) set(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s SessionCookies) clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionClaims returns the claims the session middleware attached to c.
func sessionClaims(c echo.Context) (*auth.Claims, error) {
	claims, ok := c.Get(SessionContextKey).(*auth.Claims)
	if !ok || claims == nil {
		return nil, apperrors.ErrUnauthorized
	}
	return claims, nil
}

func currentUserID(c echo.Context) (uint, error) {
	claims, err := sessionClaims(c)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

// respondError converts a service error into an echo error. The original
// error is kept as Internal so 5xx causes are logged server-side only.
func respondError(err error) error {
	httpErr := apperrors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse()).SetInternal(err)
}
