package errors

import (
	"errors"
	"fmt"
)

// Domain-specific error types
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input data
	ErrInvalidInput = errors.New("invalid input")

	// ErrCompanyNotFound indicates the company was not found
	ErrCompanyNotFound = errors.New("company not found")

	// ErrEmailNotFound indicates the tracked email was not found
	ErrEmailNotFound = errors.New("email not found")

	// ErrPDFNotStored indicates the email has no stored PDF
	ErrPDFNotStored = errors.New("pdf not stored")

	// ErrUnauthorized indicates unauthorized access
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates forbidden access
	ErrForbidden = errors.New("forbidden")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal server error")

	// ErrMailboxUnavailable indicates the mail server could not be reached or logged in to
	ErrMailboxUnavailable = errors.New("mailbox unavailable")

	// ErrFetchFailed indicates the latest message could not be fetched after all retries
	ErrFetchFailed = errors.New("fetch failed")

	// ErrPersistenceFailed indicates a fetched message could not be stored
	ErrPersistenceFailed = errors.New("persistence failed")
)

// Error codes for API responses
const (
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeMailboxUnavailable = "MAILBOX_UNAVAILABLE"
	CodeFetchFailed        = "FETCH_FAILED"
	CodePersistenceFailed  = "PERSISTENCE_FAILED"
)

// User-facing messages for failed checks
const (
	MessageFetchFailed        = "Failed to check latest email. Please try again later."
	MessagePersistenceFailed  = "Failed to process email data. Please try again later."
	MessageMailboxUnavailable = "Email connection error"
)

// AppError represents an application error with context
type AppError struct {
	Err     error
	Message string
	Code    string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(err error, message string, code string) *AppError {
	return &AppError{
		Err:     err,
		Message: message,
		Code:    code,
	}
}

// FetchFailed wraps a mailbox failure that survived every retry
func FetchFailed(err error) *AppError {
	return NewAppError(fmt.Errorf("%w: %w", ErrFetchFailed, err), MessageFetchFailed, CodeFetchFailed)
}

// MailboxUnavailable wraps a fetch that never reached an authenticated session
func MailboxUnavailable(err error) *AppError {
	return NewAppError(fmt.Errorf("%w: %w", ErrMailboxUnavailable, err), MessageMailboxUnavailable, CodeMailboxUnavailable)
}

// PersistenceFailed wraps a storage failure for a fetched message
func PersistenceFailed(err error) *AppError {
	return NewAppError(fmt.Errorf("%w: %w", ErrPersistenceFailed, err), MessagePersistenceFailed, CodePersistenceFailed)
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrCompanyNotFound) ||
		errors.Is(err, ErrEmailNotFound) ||
		errors.Is(err, ErrPDFNotStored)
}

// IsInvalidInput checks if the error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// GetAppError extracts AppError from an error if it exists
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// GetErrorCode returns the appropriate error code for an error
func GetErrorCode(err error) string {
	if appErr := GetAppError(err); appErr != nil && appErr.Code != "" {
		return appErr.Code
	}
	switch {
	case IsNotFound(err):
		return CodeNotFound
	case IsInvalidInput(err):
		return CodeInvalidInput
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrMailboxUnavailable):
		return CodeMailboxUnavailable
	case errors.Is(err, ErrFetchFailed):
		return CodeFetchFailed
	case errors.Is(err, ErrPersistenceFailed):
		return CodePersistenceFailed
	default:
		return CodeInternalError
	}
}
