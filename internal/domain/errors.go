package domain

import (
	"errors"
	"fmt"
)

var (
	ErrJobNotFound      = errors.New("job not found")
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrStatusConflict reports that a conditional status write missed
	// because the row's status moved after the caller read it.
	ErrStatusConflict = errors.New("job status changed concurrently")
)

// ValidationError rejects a malformed submission. Detail is returned to
// the caller verbatim.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string { return e.Detail }

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Detail: fmt.Sprintf(format, args...)}
}

// InvalidTransitionError rejects a status change the transition table
// does not allow.
type InvalidTransitionError struct {
	Detail string
}

func (e *InvalidTransitionError) Error() string { return e.Detail }
