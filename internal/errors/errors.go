package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrValidation is returned when required input is missing or malformed.
	ErrValidation = errors.New("invalid input")
	// ErrInvalidAmount is returned when a budget amount is not positive.
	ErrInvalidAmount = errors.New("invalid budget amount")
	// ErrInvalidExpense is returned when expense data is incomplete or refers to an unknown category.
	ErrInvalidExpense = errors.New("invalid expense data")
	// ErrEmptyName is returned when a category name is blank.
	ErrEmptyName = errors.New("category name is required")
	// ErrCategoryNotFound is returned when a category does not exist for the user.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrInvalidCredentials is returned when username or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrDuplicateUsername is returned when registering a taken username.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrPasswordMismatch is returned when the password confirmation differs.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrUnauthorized is returned when a request carries no valid session.
	ErrUnauthorized = errors.New("authentication required")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// Internal reports whether err maps to a 5xx, i.e. it is a persistence or
// programming failure whose detail must stay server-side.
func Internal(err error) bool {
	return MapErrorToHTTP(err).StatusCode >= http.StatusInternalServerError
}

// MapErrorToHTTP maps domain errors to HTTP errors. Wrapped errors are
// matched; anything unrecognised becomes a generic 500.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrValidation):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
	case errors.Is(err, ErrInvalidAmount):
		return NewHTTPError(http.StatusBadRequest, ErrInvalidAmount.Error(), "INVALID_AMOUNT")
	case errors.Is(err, ErrInvalidExpense):
		return NewHTTPError(http.StatusBadRequest, ErrInvalidExpense.Error(), "INVALID_EXPENSE")
	case errors.Is(err, ErrEmptyName):
		return NewHTTPError(http.StatusBadRequest, ErrEmptyName.Error(), "EMPTY_NAME")
	case errors.Is(err, ErrPasswordMismatch):
		return NewHTTPError(http.StatusBadRequest, ErrPasswordMismatch.Error(), "PASSWORD_MISMATCH")
	case errors.Is(err, ErrCategoryNotFound):
		return NewHTTPError(http.StatusNotFound, ErrCategoryNotFound.Error(), "NOT_FOUND")
	case errors.Is(err, ErrDuplicateUsername):
		return NewHTTPError(http.StatusConflict, ErrDuplicateUsername.Error(), "DUPLICATE_USERNAME")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrUnauthorized):
		return NewHTTPError(http.StatusUnauthorized, ErrUnauthorized.Error(), "UNAUTHORIZED")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
