// Package errors defines the stable error taxonomy for the exam bank.
// Repository and storage code classifies every failure into one of the codes
// below before it crosses a package boundary; the service layer never sees a
// raw driver error.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// Validation indicates a missing or malformed required field, caught
	// before any statement executes
	Validation ErrorCode = "VALIDATION"
	// Constraint indicates a foreign-key or uniqueness violation surfaced
	// by the store
	Constraint ErrorCode = "CONSTRAINT"
	// NotFound indicates a zero-row update, delete, or required lookup
	NotFound ErrorCode = "NOT_FOUND"
	// ConnectionClosed indicates an operation attempted outside the open state
	ConnectionClosed ErrorCode = "CONNECTION_CLOSED"
	// Schema indicates a fatal schema bootstrap failure
	Schema ErrorCode = "SCHEMA"
	// Store indicates an unexpected underlying I/O failure
	Store ErrorCode = "STORE"
)

// BankError represents a classified exam bank error with code, message, and
// optional underlying cause.
type BankError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	cause   error     // Underlying error (not exported to JSON)
}

// New creates a new BankError
func New(code ErrorCode, message string, cause error) *BankError {
	return &BankError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Newf creates a new BankError with a formatted message and no cause
func Newf(code ErrorCode, format string, args ...interface{}) *BankError {
	return &BankError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface
func (e *BankError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *BankError) Unwrap() error {
	return e.cause
}

// CodeOf extracts the error code from err. Unclassified errors report Store,
// so callers can always rely on getting a code from the taxonomy.
func CodeOf(err error) ErrorCode {
	var be *BankError
	if stderrors.As(err, &be) {
		return be.Code
	}
	return Store
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	var be *BankError
	return stderrors.As(err, &be) && be.Code == code
}

// Classify wraps an unclassified error as a Store error. Errors that already
// carry a code pass through unchanged.
func Classify(err error, message string) error {
	if err == nil {
		return nil
	}
	var be *BankError
	if stderrors.As(err, &be) {
		return err
	}
	return New(Store, message, err)
}
