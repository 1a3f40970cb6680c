package escrow

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by the typed errors below via errors.Is
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrExecution  = errors.New("release execution failed")
)

// NotFoundError reports an unknown account, participant, condition, milestone, fund or release
type NotFoundError struct {
	Entity string
	Id     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Id)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError reports a broken invariant or a malformed input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ExecutionError reports a failed payment for an approved release
type ExecutionError struct {
	ReleaseId string
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("release %s execution failed: %v", e.ReleaseId, e.Err)
}

func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecution
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func notFound(entity, id string) error {
	return &NotFoundError{Entity: entity, Id: id}
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
