// Package server provides the HTTP REST API for account management.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/account-api/internal/i18n"
)

// Error type tags returned in the "type" field of error responses.
const (
	TypeEmailAlreadyExists   = "email_already_exists"
	TypeInvalidOldPassword   = "invalid_old_password"
	TypeUpdatePasswordFailed = "update_password_failed"
	TypeInvalidCredentials   = "invalid_credentials"
	TypeUnauthorized         = "unauthorized"
	TypeUserNotFound         = "user_not_found"
	TypeInvalidRequestBody   = "invalid_request_body"
	TypeValidationFailed     = "validation_failed"
	TypeRateLimitExceeded    = "rate_limit_exceeded"
	TypeNotFound             = "not_found"
	TypeMethodNotAllowed     = "method_not_allowed"
	TypeInternal             = "internal_error"
)

// ErrEmailAlreadyExists indicates the email is owned by another account
type ErrEmailAlreadyExists struct {
	Email string
}

func (e *ErrEmailAlreadyExists) Error() string {
	return fmt.Sprintf("email already registered: %s", e.Email)
}

// ErrInvalidOldPassword indicates the supplied old password does not match the stored hash
type ErrInvalidOldPassword struct{}

func (e *ErrInvalidOldPassword) Error() string {
	return "old password is incorrect"
}

// ErrUpdatePasswordFailed wraps a hashing or persistence failure while changing a password
type ErrUpdatePasswordFailed struct {
	Err error
}

func (e *ErrUpdatePasswordFailed) Error() string {
	return fmt.Sprintf("failed to update password: %v", e.Err)
}

func (e *ErrUpdatePasswordFailed) Unwrap() error {
	return e.Err
}

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid email or password"
}

// ErrUnauthorized indicates a missing or invalid bearer token
type ErrUnauthorized struct{}

func (e *ErrUnauthorized) Error() string {
	return "unauthorized"
}

// ErrUserNotFound indicates user was not found
type ErrUserNotFound struct {
	UserID int64
}

func (e *ErrUserNotFound) Error() string {
	return fmt.Sprintf("user not found: %d", e.UserID)
}

// ErrInvalidRequestBody indicates the body could not be decoded
type ErrInvalidRequestBody struct {
	Err error
}

func (e *ErrInvalidRequestBody) Error() string {
	return fmt.Sprintf("invalid request body: %v", e.Err)
}

func (e *ErrInvalidRequestBody) Unwrap() error {
	return e.Err
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field string
	Rule  string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Rule)
}

// ErrRateLimited indicates the client exceeded its request budget
type ErrRateLimited struct{}

func (e *ErrRateLimited) Error() string {
	return "rate limit exceeded"
}

// ErrRouteNotFound indicates no route matches the request path
type ErrRouteNotFound struct {
	Path string
}

func (e *ErrRouteNotFound) Error() string {
	return fmt.Sprintf("no route for %s", e.Path)
}

// ErrMethodNotAllowed indicates the path exists but not for the request method
type ErrMethodNotAllowed struct {
	Method  string
	Allowed []string
}

func (e *ErrMethodNotAllowed) Error() string {
	return fmt.Sprintf("method %s not allowed", e.Method)
}

// errorInfo is the client-facing description of an error.
type errorInfo struct {
	status int
	typ    string
	key    string
	args   []any
}

func classify(err error) errorInfo {
	var (
		emailExists  *ErrEmailAlreadyExists
		oldPassword  *ErrInvalidOldPassword
		updateFailed *ErrUpdatePasswordFailed
		credentials  *ErrInvalidCredentials
		unauthorized *ErrUnauthorized
		notFound     *ErrUserNotFound
		badBody      *ErrInvalidRequestBody
		validation   *ErrValidation
		rateLimited  *ErrRateLimited
		noRoute      *ErrRouteNotFound
		badMethod    *ErrMethodNotAllowed
	)

	switch {
	case errors.As(err, &emailExists):
		return errorInfo{http.StatusBadRequest, TypeEmailAlreadyExists, i18n.KeyEmailAlreadyExists, nil}
	case errors.As(err, &oldPassword):
		return errorInfo{http.StatusBadRequest, TypeInvalidOldPassword, i18n.KeyInvalidOldPassword, nil}
	case errors.As(err, &updateFailed):
		return errorInfo{http.StatusBadRequest, TypeUpdatePasswordFailed, i18n.KeyUpdatePasswordFailed, nil}
	case errors.As(err, &credentials):
		return errorInfo{http.StatusUnauthorized, TypeInvalidCredentials, i18n.KeyInvalidCredentials, nil}
	case errors.As(err, &unauthorized):
		return errorInfo{http.StatusUnauthorized, TypeUnauthorized, i18n.KeyUnauthorized, nil}
	case errors.As(err, &notFound):
		return errorInfo{http.StatusNotFound, TypeUserNotFound, i18n.KeyUserNotFound, nil}
	case errors.As(err, &badBody):
		return errorInfo{http.StatusBadRequest, TypeInvalidRequestBody, i18n.KeyInvalidRequestBody, nil}
	case errors.As(err, &validation):
		return errorInfo{http.StatusBadRequest, TypeValidationFailed, i18n.KeyValidationFailed, []any{validation.Field, validation.Rule}}
	case errors.As(err, &rateLimited):
		return errorInfo{http.StatusTooManyRequests, TypeRateLimitExceeded, i18n.KeyRateLimitExceeded, nil}
	case errors.As(err, &noRoute):
		return errorInfo{http.StatusNotFound, TypeNotFound, i18n.KeyNotFound, []any{noRoute.Path}}
	case errors.As(err, &badMethod):
		return errorInfo{http.StatusMethodNotAllowed, TypeMethodNotAllowed, i18n.KeyMethodNotAllowed, []any{badMethod.Method}}
	default:
		return errorInfo{http.StatusInternalServerError, TypeInternal, i18n.KeyInternal, nil}
	}
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	return classify(err).status
}

// ErrorType returns the machine-readable type tag for an error
func ErrorType(err error) string {
	return classify(err).typ
}
