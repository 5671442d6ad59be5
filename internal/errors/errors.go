package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, carrying forward the code
// of the nearest AppError already in the chain
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	code := CodeInternalError
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		code = appErr.Code
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// GetCode returns the code of the nearest AppError in the chain, or
// "UNKNOWN" for errors outside the taxonomy
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodeConfigInvalid = "CONFIG_INVALID"
	CodeInvalidCount  = "INVALID_COUNT"
	CodeTestExecution = "TEST_EXECUTION"
	CodePersistence   = "PERSISTENCE"
	CodeNotFound      = "NOT_FOUND"
	CodeInternalError = "INTERNAL_ERROR"
	CodeTimeout       = "TIMEOUT"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func TestExecution(test string, cause error) *AppError {
	return &AppError{
		Code:    CodeTestExecution,
		Message: fmt.Sprintf("%s test failed", test),
		Cause:   cause,
	}
}

func Persistence(message string, cause error) *AppError {
	return &AppError{
		Code:    CodePersistence,
		Message: message,
		Cause:   cause,
	}
}

func Timeout(item string) *AppError {
	return New(CodeTimeout, fmt.Sprintf("%s timed out", item))
}
