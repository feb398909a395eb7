package errors

import (
	"context"
	"errors"
	"net/http"
)

var (
	// ErrValidation is returned when input is malformed or incomplete.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateEmail is returned when signing up with an email already on file.
	ErrDuplicateEmail = errors.New("user already exists")
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrProductNotFound is returned when a product is not found.
	ErrProductNotFound = errors.New("product not found")
	// ErrOrderNotFound is returned when an order is not found.
	ErrOrderNotFound = errors.New("order not found")
	// ErrForbidden is returned on role or ownership mismatch.
	ErrForbidden = errors.New("forbidden")
	// ErrProfileMissing is returned when a seller has no profile address to derive a pickup location from.
	ErrProfileMissing = errors.New("seller profile or address not found")
	// ErrBelowMinimumOrder is returned when an order undercuts the listing's minimum order quantity.
	ErrBelowMinimumOrder = errors.New("below minimum order quantity")
	// ErrInsufficientStock is returned when an order asks for more than is available.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidTransition is returned when an order is not in a state that allows the operation.
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrAlreadyConfirmed is returned when confirming a confirmed order.
	ErrAlreadyConfirmed = errors.New("order already confirmed")
	// ErrHasPendingOrders is returned when deleting a listing that pending orders still reference.
	ErrHasPendingOrders = errors.New("product has pending orders")
	// ErrStoreUnavailable is returned when a store call exceeds its deadline.
	ErrStoreUnavailable = errors.New("store temporarily unavailable")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Details    string
	Retryable  bool
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
		Error:     e.Message,
		Code:      e.Code,
		Details:   e.Details,
		Retryable: e.Retryable,
	}
}

// IsInternal reports whether the error is a server-side failure.
func (e *HTTPError) IsInternal() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// Validation wraps ErrValidation with a human readable reason.
func Validation(msg string) error {
	return &validationError{msg: msg}
}

type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Unwrap() error { return ErrValidation }

var mapping = []struct {
	target error
	status int
	code   string
}{
	{ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
	{ErrDuplicateEmail, http.StatusConflict, "DUPLICATE_EMAIL"},
	{ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{ErrProductNotFound, http.StatusNotFound, "PRODUCT_NOT_FOUND"},
	{ErrOrderNotFound, http.StatusNotFound, "ORDER_NOT_FOUND"},
	{ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{ErrProfileMissing, http.StatusBadRequest, "PROFILE_MISSING"},
	{ErrBelowMinimumOrder, http.StatusBadRequest, "BELOW_MINIMUM_ORDER"},
	{ErrInsufficientStock, http.StatusConflict, "INSUFFICIENT_STOCK"},
	{ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
	{ErrAlreadyConfirmed, http.StatusConflict, "ALREADY_CONFIRMED"},
	{ErrHasPendingOrders, http.StatusConflict, "HAS_PENDING_ORDERS"},
}

// MapErrorToHTTP maps domain errors to HTTP errors.
// Domain errors keep their wrapped message; anything else becomes a generic
// internal error carrying the cause in Details.
func MapErrorToHTTP(err error) *HTTPError {
	for _, m := range mapping {
		if errors.Is(err, m.target) {
			return NewHTTPError(m.status, err.Error(), m.code)
		}
	}

	if errors.Is(err, ErrStoreUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		httpErr := NewHTTPError(http.StatusServiceUnavailable, ErrStoreUnavailable.Error(), "STORE_TIMEOUT")
		httpErr.Details = err.Error()
		httpErr.Retryable = true
		return httpErr
	}

	httpErr := NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	if err != nil {
		httpErr.Details = err.Error()
	}
	return httpErr
}
