package router

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	echoSwagger "github.com/swaggo/echo-swagger"

	"expensetracker/docs"
	"expensetracker/internal/config"
	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/handler"
	"expensetracker/web"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	log logrus.FieldLogger,
	renderer echo.Renderer,
	authHandler *handler.AuthHandler,
	ledgerHandler *handler.LedgerHandler,
	categoryHandler *handler.CategoryHandler,
	dashboardHandler *handler.DashboardHandler,
) {
	e.HTTPErrorHandler = ErrorHandler(log)
	e.Renderer = renderer
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(middleware.RequestID())
	e.Use(RequestLogger(log))
	e.Use(middleware.Recover())

	if cfg.SwaggerHost != "" {
		host := strings.TrimPrefix(cfg.SwaggerHost, "http://")
		docs.SwaggerInfo.Host = strings.TrimPrefix(host, "https://")
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.StaticFS("/static", echo.MustSubFS(web.StaticFS, "static"))

	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusSeeOther, "/dashboard")
	})

	// Public routes
	e.GET("/register", authHandler.ShowRegister)
	e.POST("/register", authHandler.Register)
	e.GET("/login", authHandler.ShowLogin)
	e.POST("/login", authHandler.Login)
	e.POST("/logout", authHandler.Logout)

	// Pages send anonymous visitors to the login form
	page := authHandler.RequireSession(true)
	e.GET("/dashboard", dashboardHandler.Show, page)

	// JSON endpoints answer 401 instead
	api := authHandler.RequireSession(false)
	e.GET("/api/dashboard", dashboardHandler.Get, api)
	e.POST("/budget", ledgerHandler.SetBudget, api)
	e.POST("/expense", ledgerHandler.AddExpense, api)
	e.DELETE("/expense/:expenseId", ledgerHandler.DeleteExpense, api)
	e.POST("/category", categoryHandler.AddCategory, api)
	e.DELETE("/category/:id", categoryHandler.DeleteCategory, api)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// RequestLogger logs one line per request through logrus.
func RequestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := log.WithFields(logrus.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"request_id": v.RequestID,
			})
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("request")
			return nil
		},
	})
}

// ErrorHandler writes every error as an ErrorResponse. Internal causes
// attached to 5xx errors are logged, never returned.
func ErrorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := apperrors.ErrorResponse{Error: "internal server error", Code: "INTERNAL_ERROR"}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			switch msg := he.Message.(type) {
			case apperrors.ErrorResponse:
				body = msg
			case string:
				body = apperrors.ErrorResponse{Error: msg, Code: codeForStatus(status)}
			default:
				body = apperrors.ErrorResponse{Error: http.StatusText(status), Code: codeForStatus(status)}
			}
		}

		if status >= http.StatusInternalServerError {
			body = apperrors.ErrorResponse{Error: "internal server error", Code: "INTERNAL_ERROR"}
			log.WithError(err).WithField("uri", c.Request().RequestURI).Error("internal error")
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			log.WithError(writeErr).Warn("failed to write error response")
		}
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	default:
		return "HTTP_ERROR"
	}
}
