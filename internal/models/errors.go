package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors. Match with errors.Is.
var (
	ErrValidation           = errors.New("validation error")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrDivisionByZero       = errors.New("division by zero: unit price must be positive")
	ErrInvalidOperationType = errors.New("invalid operation type")
	ErrOverAllocation       = errors.New("allocated liters exceed operation liters")

	// Destination errors are validation errors too.
	ErrMissingDestination = fmt.Errorf("%w: consumo requires at least one destination", ErrValidation)
	ErrInvalidDestination = fmt.Errorf("%w: invalid destination", ErrValidation)
)

// FieldError reports a missing or malformed input field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error {
	return ErrValidation
}

// Invalid is shorthand for a *FieldError.
func Invalid(field, format string, args ...any) error {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NotFound is shorthand for a *NotFoundError.
func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConflictError is returned when a unique or referential constraint rejects a write.
type ConflictError struct {
	Entity string
	Field  string
	Reason string
}

func (e *ConflictError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("%s with the same %s already exists", e.Entity, e.Field)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// OverAllocationError carries the liters requested against the operation total.
type OverAllocationError struct {
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *OverAllocationError) Error() string {
	return fmt.Sprintf("allocated %s liters but operation only has %s",
		e.Requested.String(), e.Available.String())
}

func (e *OverAllocationError) Unwrap() error {
	return ErrOverAllocation
}

// IsClientError reports whether err was caused by the request rather than the system.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidOperationType) ||
		errors.Is(err, ErrDivisionByZero) ||
		errors.Is(err, ErrOverAllocation)
}
