package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidReference  = errors.New("invalid reference")
	ErrPersistence       = errors.New("persistence failure")
	ErrIllegalTransition = errors.New("illegal transition")
	ErrConcurrentUpdate  = errors.New("concurrent update")
	ErrNotFound          = errors.New("not found")
)

// FieldError ties an error kind to the request field that caused it.
type FieldError struct {
	Kind   error
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%v: %s", e.Kind, e.Field)
	}
	return fmt.Sprintf("%v: %s: %s", e.Kind, e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return e.Kind }

// Invalid reports a malformed or out-of-range field.
func Invalid(field, reason string) error {
	return &FieldError{Kind: ErrInvalidInput, Field: field, Reason: reason}
}

// Reference reports a catalog key that did not resolve.
func Reference(field, key string) error {
	return &FieldError{Kind: ErrInvalidReference, Field: field, Reason: fmt.Sprintf("%q does not resolve", key)}
}

// Persistence wraps a store failure so both ErrPersistence and the cause match errors.Is.
func Persistence(op string, cause error) error {
	if cause == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, cause)
}

// Transition reports a state change attempted from the wrong state.
func Transition(from, to string) error {
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}

// IsDomain reports whether err already carries one of the taxonomy kinds.
func IsDomain(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidReference) ||
		errors.Is(err, ErrPersistence) ||
		errors.Is(err, ErrIllegalTransition) ||
		errors.Is(err, ErrConcurrentUpdate) ||
		errors.Is(err, ErrNotFound)
}
