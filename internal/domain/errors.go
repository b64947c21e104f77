// Package domain defines the query model, summary-table specifications,
// and errors shared by the optimizer, router, and storage layers.
package domain

import "fmt"

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate resource).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// MalformedQueryError indicates a query that violates the model's shape
// rules, e.g. a non-aggregated select column absent from group_by. It is
// scoped to the single query being analyzed; batch analysis records the
// query as unanalyzable and continues.
type MalformedQueryError struct {
	Message string
}

func (e *MalformedQueryError) Error() string { return e.Message }

// UnsupportedPredicateError indicates a where-clause operator outside the
// supported set. Like MalformedQueryError it is scoped to one query.
type UnsupportedPredicateError struct {
	Operator string
}

func (e *UnsupportedPredicateError) Error() string {
	return fmt.Sprintf("unsupported predicate operator %q", e.Operator)
}

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrMalformedQuery creates a MalformedQueryError with a formatted message.
func ErrMalformedQuery(format string, args ...interface{}) *MalformedQueryError {
	return &MalformedQueryError{Message: fmt.Sprintf(format, args...)}
}
