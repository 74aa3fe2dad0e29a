package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("invalid data")
	ErrUnknownState      = errors.New("unknown order status")
	ErrIllegalTransition = errors.New("illegal transition of order status")
	ErrEmptyCatalog      = errors.New("no pizza is available")
	ErrTotalMismatch     = errors.New("order total does not match its items")
)

// ValidationError names the fields of a request that are missing or malformed.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: missing or malformed %s", ErrValidation, strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// TransitionError is returned when the lifecycle table rejects a status change.
type TransitionError struct {
	Current   OrderStatus
	Requested OrderStatus
	Allowed   []OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %q -> %q", ErrIllegalTransition, e.Current, e.Requested)
}

func (e *TransitionError) Unwrap() error {
	return ErrIllegalTransition
}
