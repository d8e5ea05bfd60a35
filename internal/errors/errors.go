// Package errors provides typed errors for the IPO applier.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error cases.
var (
	// ErrConfiguration indicates missing or malformed configuration. Fatal to the whole run.
	ErrConfiguration = errors.New("configuration error")

	// ErrAuthentication indicates MeroShare rejected the account login.
	ErrAuthentication = errors.New("authentication failed")

	// ErrDirectory indicates the list of open offerings could not be fetched.
	ErrDirectory = errors.New("offering directory unavailable")

	// ErrProtocolViolation indicates a submission ended outside the accepted outcomes.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrSubmissionTimeout indicates a submission produced no terminal status in time.
	ErrSubmissionTimeout = errors.New("submission timed out")

	// ErrRunInProgress indicates a run was requested while another one is active.
	ErrRunInProgress = errors.New("run already in progress")

	// ErrNotFound indicates a resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized indicates the caller is not authenticated.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation indicates a validation error.
	ErrValidation = errors.New("validation error")

	// ErrConflict indicates a resource conflict.
	ErrConflict = errors.New("resource conflict")

	// ErrInternal indicates an internal server error.
	ErrInternal = errors.New("internal error")

	// ErrRateLimit indicates too many requests.
	ErrRateLimit = errors.New("rate limit exceeded")
)

// AppError is a structured application error.
type AppError struct {
	// Type is the error type (sentinel error).
	Type error
	// Message is the user-facing error message.
	Message string
	// Details contains additional error details.
	Details map[string]any
	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error type.
func (e *AppError) Unwrap() error {
	return e.Type
}

// Is checks if this error matches the target.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Type, target) || (e.Cause != nil && errors.Is(e.Cause, target))
}

// New creates a new AppError.
func New(errType error, message string) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(errType error, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// WithDetails adds details to an AppError.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

// Configuration creates a configuration error.
func Configuration(message string) *AppError {
	return &AppError{
		Type:    ErrConfiguration,
		Message: message,
	}
}

// Configurationf creates a configuration error with formatting.
func Configurationf(format string, args ...any) *AppError {
	return Configuration(fmt.Sprintf(format, args...))
}

// ConfigurationField creates a configuration error for a specific field.
func ConfigurationField(field, message string) *AppError {
	return &AppError{
		Type:    ErrConfiguration,
		Message: fmt.Sprintf("%s: %s", field, message),
		Details: map[string]any{"field": field},
	}
}

// Authentication wraps a login failure for an account.
func Authentication(account string, cause error) *AppError {
	return &AppError{
		Type:    ErrAuthentication,
		Message: fmt.Sprintf("login failed for %s", account),
		Cause:   cause,
	}
}

// Directory wraps an offering fetch failure for an account.
func Directory(account string, cause error) *AppError {
	return &AppError{
		Type:    ErrDirectory,
		Message: fmt.Sprintf("fetching offerings for %s", account),
		Cause:   cause,
	}
}

// NotFound creates a not found error.
func NotFound(resource string) *AppError {
	return &AppError{
		Type:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NotFoundf creates a not found error with formatting.
func NotFoundf(format string, args ...any) *AppError {
	return &AppError{
		Type:    ErrNotFound,
		Message: fmt.Sprintf(format, args...),
	}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return &AppError{
		Type:    ErrUnauthorized,
		Message: message,
	}
}

// Validation creates a validation error.
func Validation(message string) *AppError {
	return &AppError{
		Type:    ErrValidation,
		Message: message,
	}
}

// Conflict creates a conflict error.
func Conflict(message string) *AppError {
	return &AppError{
		Type:    ErrConflict,
		Message: message,
	}
}

// Internal creates an internal error.
func Internal(message string, cause error) *AppError {
	return &AppError{
		Type:    ErrInternal,
		Message: message,
		Cause:   cause,
	}
}

// IsConfiguration checks if an error is a configuration error.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsProtocolViolation checks if an error is a protocol violation or a submission timeout.
func IsProtocolViolation(err error) bool {
	return errors.Is(err, ErrProtocolViolation) || errors.Is(err, ErrSubmissionTimeout)
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// HTTPStatus returns the appropriate HTTP status code for an error.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return 404
	case errors.Is(err, ErrUnauthorized):
		return 401
	case errors.Is(err, ErrValidation):
		return 400
	case errors.Is(err, ErrConflict), errors.Is(err, ErrRunInProgress):
		return 409
	case errors.Is(err, ErrRateLimit):
		return 429
	default:
		return 500
	}
}
