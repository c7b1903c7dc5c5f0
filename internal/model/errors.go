package model

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. The concrete error types below match them.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidOperation    = errors.New("invalid operation")
	ErrConstraintViolation = errors.New("constraint violation")
)

// NotFoundError reports a missing target or operation.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s does not exist", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InvalidOperationError reports a request that cannot be applied as asked,
// e.g. splitting a one-time target.
type InvalidOperationError struct {
	Op     string
	Reason string
}

func (e *InvalidOperationError) Error() string {
	return fmt.Sprintf("cannot %s: %s", e.Op, e.Reason)
}

func (e *InvalidOperationError) Is(target error) bool { return target == ErrInvalidOperation }

// ConstraintViolationError reports a write rejected by a data invariant,
// e.g. a second link for an already linked operation.
type ConstraintViolationError struct {
	Constraint string
	Detail     string
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Constraint, e.Detail)
}

func (e *ConstraintViolationError) Is(target error) bool { return target == ErrConstraintViolation }

// TargetNotFound builds the NotFoundError for a target key.
func TargetNotFound(key TargetKey) error {
	return &NotFoundError{Entity: key.Kind.Label(), ID: fmt.Sprint(key.ID)}
}

// OperationNotFound builds the NotFoundError for an operation id.
func OperationNotFound(id int64) error {
	return &NotFoundError{Entity: "operation", ID: fmt.Sprint(id)}
}

// Invalid is shorthand for an InvalidOperationError.
func Invalid(op, format string, args ...any) error {
	return &InvalidOperationError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// OperationAlreadyLinked reports the one-link-per-operation invariant.
func OperationAlreadyLinked(opID int64, existing TargetKey) error {
	return &ConstraintViolationError{
		Constraint: "operation already linked",
		Detail: fmt.Sprintf("operation %d is linked to %s %d; unlink it first or use relink",
			opID, existing.Kind.Label(), existing.ID),
	}
}
