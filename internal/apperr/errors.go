// Package apperr defines the error kinds shared by every domain package.
//
// Domain packages declare their own sentinels by wrapping one of these kinds,
// so callers can classify any returned error with errors.Is.
package apperr

import "errors"

var (
	ErrNotFound                = errors.New("not found")
	ErrForbidden               = errors.New("forbidden")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrValidation              = errors.New("validation failed")
	// ErrConflict is returned when optimistic retries are exhausted.
	ErrConflict = errors.New("conflict")
)

var kinds = []error{
	ErrNotFound,
	ErrForbidden,
	ErrInsufficientStock,
	ErrInvalidStatusTransition,
	ErrValidation,
	ErrConflict,
}

// Kind returns the error kind err belongs to, or nil for unclassified errors.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Validation wraps a message as an ErrValidation.
func Validation(msg string) error {
	return &validationError{msg: msg}
}

type validationError struct {
	msg string
}

func (e *validationError) Error() string { return ErrValidation.Error() + ": " + e.msg }
func (e *validationError) Unwrap() error { return ErrValidation }
