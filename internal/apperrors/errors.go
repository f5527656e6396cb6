package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrConflict indicates the request conflicts with the current state of a resource.
var ErrConflict = errors.New("resource state conflict")

// Fiscal sequence errors. These are business conditions that need a person to act
// (usually requesting a new range from DGII); they are never auto-resolved.
var (
	ErrNoActiveSeries = errors.New("no active fiscal series for document type")
	ErrRangeExhausted = errors.New("fiscal series range exhausted")
	ErrSeriesExpired  = errors.New("fiscal series expired")
)

// Ledger errors.
var (
	ErrUnbalancedEntry = errors.New("journal entry debits and credits do not balance")
	ErrInvalidAccount  = errors.New("account is missing, inactive or does not allow posting")
	ErrEntryNotFound   = errors.New("journal entry not found")
	ErrAlreadyReversed = errors.New("journal entry already reversed")
)

// ErrTransactionConflict indicates a concurrent modification was detected while
// committing. The whole operation may be retried from scratch.
var ErrTransactionConflict = errors.New("transaction conflict, retry the operation")

// AppError carries an HTTP-ish status code alongside a wrapped cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError creates a new AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a transient contention failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransactionConflict)
}
