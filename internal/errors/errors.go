package errors

import (
	"fmt"
)

// Error is the structured error type for kestrel. It carries a stable code,
// a category and severity derived from that code, and optional key-value
// details for logging.
type Error struct {
	// Code is the unique error code (e.g., "ERR_402_QUERY_EMPTY").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Storage, Retrieval, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error, if any.
	Cause error

	// Retryable indicates whether the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code, enabling errors.Is with sentinel instances.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail attaches a key-value detail. Returns the error for chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates an Error with the given code and message. Category, severity,
// and the retryable flag are derived from the code.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an Error from an existing error, reusing its message.
// Returns nil when err is nil.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *Error {
	return New(ErrCodeConfigInvalid, message, cause)
}

// StoreError creates a storage-related error.
func StoreError(message string, cause error) *Error {
	return New(ErrCodeStoreQuery, message, cause)
}

// RetrievalError creates a retrieval backend error. These are retryable.
func RetrievalError(message string, cause error) *Error {
	return New(ErrCodeRetrieverUnavailable, message, cause)
}

// ValidationError creates a query validation error.
func ValidationError(message string, cause error) *Error {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *Error {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable reports whether err is a structured error marked retryable.
func IsRetryable(err error) bool {
	if ke, ok := err.(*Error); ok {
		return ke.Retryable
	}
	return false
}

// IsFatal reports whether err has fatal severity.
func IsFatal(err error) bool {
	if ke, ok := err.(*Error); ok {
		return ke.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the code from a structured error, or "" otherwise.
func GetCode(err error) string {
	if ke, ok := err.(*Error); ok {
		return ke.Code
	}
	return ""
}

// GetCategory extracts the category from a structured error, or "" otherwise.
func GetCategory(err error) Category {
	if ke, ok := err.(*Error); ok {
		return ke.Category
	}
	return ""
}
