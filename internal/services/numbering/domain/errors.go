package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCategory indicates a category outside job/request/certificate.
	ErrUnknownCategory = errors.New("unknown document category")
	// ErrInvalidYear indicates a year that cannot be rendered in four digits.
	ErrInvalidYear = errors.New("year out of range")
	// ErrMalformedIdentifier matches every *MalformedIdentifierError.
	ErrMalformedIdentifier = errors.New("malformed identifier")
	// ErrTransactionConflict matches every *TransactionConflictError.
	ErrTransactionConflict = errors.New("counter transaction conflict")
	// ErrSequenceExhausted indicates the counter already holds the widest serial.
	ErrSequenceExhausted = errors.New("counter sequence exhausted")
	// ErrTransactorNotConfigured indicates the allocator has no backing store.
	ErrTransactorNotConfigured = errors.New("counter transactor is not configured")
)

// MalformedIdentifierError reports a formatted identifier that does not parse
// into (prefix, year, serial) or does not match the expected category and year.
type MalformedIdentifierError struct {
	Value  string
	Reason string
}

func (e *MalformedIdentifierError) Error() string {
	return fmt.Sprintf("malformed identifier %q: %s", e.Value, e.Reason)
}

// Is matches ErrMalformedIdentifier.
func (e *MalformedIdentifierError) Is(target error) bool {
	return target == ErrMalformedIdentifier
}

// TransactionConflictError reports that the store could not commit a counter
// transaction within its retry budget.
type TransactionConflictError struct {
	Attempts int
	Cause    error
}

func (e *TransactionConflictError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("counter transaction conflict after %d attempts", e.Attempts)
	}
	return fmt.Sprintf("counter transaction conflict after %d attempts: %v", e.Attempts, e.Cause)
}

// Unwrap returns the last store error.
func (e *TransactionConflictError) Unwrap() error {
	return e.Cause
}

// Is matches ErrTransactionConflict.
func (e *TransactionConflictError) Is(target error) bool {
	return target == ErrTransactionConflict
}

func malformed(value string, format string, args ...any) error {
	return &MalformedIdentifierError{Value: value, Reason: fmt.Sprintf(format, args...)}
}
