// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and internal errors
//   - Validation errors (100-199): Invalid parameters, missing data, type mismatches
//   - Transient I/O errors (200-299): Network failures, timeouts, rate limits
//   - Data format errors (300-399): Malformed candles, articles, and payloads
//   - Market clock errors (400-499): Calendar and session state failures
//   - Event bus errors (500-599): Closed bus and delivery failures
//   - Market data errors (600-699): Market data fetching and parsing errors
//   - News errors (700-799): News provider failures
//   - Notification errors (800-899): Notification delivery failures
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeInvalidParameter, "invalid parameter value")
//
//	// Create a formatted error
//	err := errors.Newf(errors.ErrCodeMarketDataFetchFailed, "no candles for symbol %s", symbol)
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeTransientIO, "failed to fetch quote", originalErr)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodeBusClosed) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard errors.Is function.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard errors.As function.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// IsTransient checks if an error is a transient I/O failure that callers
// should retry with bounded backoff rather than treat as fatal.
func IsTransient(err error) bool {
	code := GetCode(err)

	return code >= ErrCodeTransientIO && code < ErrCodeDataFormat
}

// IsDataFormat checks if an error indicates a malformed unit of data.
// Callers should skip the offending unit and continue.
func IsDataFormat(err error) bool {
	code := GetCode(err)

	return code >= ErrCodeDataFormat && code < ErrCodeClockUnavailable
}

// IsClockUnavailable checks if an error indicates the market calendar could
// not be resolved. Callers must fail safe and treat the market as closed.
func IsClockUnavailable(err error) bool {
	return HasCode(err, ErrCodeClockUnavailable)
}

// IsBusClosed checks if an error indicates the event bus has been closed.
// This is terminal for consumers and triggers an orderly shutdown.
func IsBusClosed(err error) bool {
	return HasCode(err, ErrCodeBusClosed)
}
