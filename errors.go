package arbor

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors. Typed errors below match them through errors.Is.
var (
	// ErrNotFound is returned when a requested model does not exist.
	ErrNotFound = errors.New("arbor: model not found")

	// ErrConfiguration is matched by every ConfigError: unknown relations,
	// duplicate relation registration, builder misuse and unknown dialects.
	ErrConfiguration = errors.New("arbor: configuration error")

	// ErrUnsupported is matched by every UnsupportedError.
	ErrUnsupported = errors.New("arbor: unsupported operation")

	// ErrMalformedQuery is matched by every MalformedQueryError.
	ErrMalformedQuery = errors.New("arbor: malformed query")

	// ErrConversion is matched by every ConversionError.
	ErrConversion = errors.New("arbor: conversion error")
)

// NotFoundError represents an error when a model is not found.
type NotFoundError struct {
	label string
	id    any // Optional: the ID that was searched for
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("arbor: %s not found (id=%v)", e.label, e.id)
	}
	return fmt.Sprintf("arbor: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the model label.
func (e *NotFoundError) Label() string {
	return e.label
}

// ID returns the ID that was searched for, if available.
func (e *NotFoundError) ID() any {
	return e.id
}

// NewNotFoundError returns a new NotFoundError for the given model.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// NewNotFoundErrorWithID returns a new NotFoundError with the ID that was searched for.
func NewNotFoundErrorWithID(label string, id any) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// ConfigError is a fatal configuration or usage error. It is raised at the
// call that violates the contract, not deferred to execution.
type ConfigError struct {
	Model    string // Model name, if known
	Relation string // Relation name, if the error concerns one
	Msg      string
}

// Error returns the error string.
func (e *ConfigError) Error() string {
	switch {
	case e.Model != "" && e.Relation != "":
		return fmt.Sprintf("arbor: %s: %s (relation %q)", e.Model, e.Msg, e.Relation)
	case e.Model != "":
		return fmt.Sprintf("arbor: %s: %s", e.Model, e.Msg)
	default:
		return fmt.Sprintf("arbor: %s", e.Msg)
	}
}

// Is reports whether the target error matches ErrConfiguration.
func (e *ConfigError) Is(err error) bool {
	return err == ErrConfiguration
}

// NewConfigError returns a new ConfigError.
func NewConfigError(model, msg string) *ConfigError {
	return &ConfigError{Model: model, Msg: msg}
}

// NewUnknownRelationError returns the ConfigError raised when a model has
// no relation with the given name.
func NewUnknownRelationError(model, relation string) *ConfigError {
	return &ConfigError{Model: model, Relation: relation, Msg: "has no relation"}
}

// NewDuplicateRelationError returns the ConfigError raised when a relation
// name is registered twice on the same model.
func NewDuplicateRelationError(model, relation string) *ConfigError {
	return &ConfigError{Model: model, Relation: relation, Msg: "already has a relation"}
}

// IsConfigError returns true if the error is a ConfigError.
func IsConfigError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigError
	return errors.As(err, &e)
}

// UnsupportedError reports an operation the active dialect cannot render.
type UnsupportedError struct {
	Dialect string
	Op      string
}

// Error returns the error string.
func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("arbor: %s not supported in %s", e.Op, e.Dialect)
}

// Is reports whether the target error matches ErrUnsupported.
func (e *UnsupportedError) Is(err error) bool {
	return err == ErrUnsupported || err == ErrConfiguration
}

// NewUnsupportedError returns a new UnsupportedError.
func NewUnsupportedError(dialect, op string) *UnsupportedError {
	return &UnsupportedError{Dialect: dialect, Op: op}
}

// MalformedQueryError reports query input that would render invalid SQL.
type MalformedQueryError struct {
	Msg string
}

// Error returns the error string.
func (e *MalformedQueryError) Error() string {
	return "arbor: malformed query: " + e.Msg
}

// Is reports whether the target error matches ErrMalformedQuery.
func (e *MalformedQueryError) Is(err error) bool {
	return err == ErrMalformedQuery
}

// NewMalformedQueryError returns a new MalformedQueryError.
func NewMalformedQueryError(format string, args ...any) *MalformedQueryError {
	return &MalformedQueryError{Msg: fmt.Sprintf(format, args...)}
}

// ConversionError reports a result set that cannot be demultiplexed into
// models, e.g. two joined tables producing the same column alias.
type ConversionError struct {
	Alias string
	Msg   string
}

// Error returns the error string.
func (e *ConversionError) Error() string {
	return fmt.Sprintf("arbor: column alias %q: %s", e.Alias, e.Msg)
}

// Is reports whether the target error matches ErrConversion.
func (e *ConversionError) Is(err error) bool {
	return err == ErrConversion
}

// NewConversionError returns a new ConversionError.
func NewConversionError(alias, msg string) *ConversionError {
	return &ConversionError{Alias: alias, Msg: msg}
}

// ConstraintError represents a database constraint violation error.
type ConstraintError struct {
	msg  string
	wrap error
}

// Error returns the error string.
func (e ConstraintError) Error() string {
	return fmt.Sprintf("arbor: constraint failed: %s", e.msg)
}

// Unwrap returns the underlying error.
func (e ConstraintError) Unwrap() error {
	return e.wrap
}

// NewConstraintError returns a new ConstraintError with the given message.
func NewConstraintError(msg string, wrap error) error {
	return ConstraintError{msg: msg, wrap: wrap}
}

// IsConstraintError returns true if the error is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e ConstraintError
	return errors.As(err, &e)
}

// RollbackError wraps an error that occurred during a transaction rollback.
type RollbackError struct {
	Err error // Original error that triggered rollback
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("arbor: rollback failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RollbackError) Unwrap() error {
	return e.Err
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "arbor: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("arbor: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}

// MutationError wraps a per-instance lifecycle error with context.
type MutationError struct {
	Model string // Model type being mutated
	Op    string // Operation (e.g., "insert", "update", "delete")
	Err   error  // Underlying error
}

// Error returns the error string.
func (e *MutationError) Error() string {
	return fmt.Sprintf("arbor: %s %s: %v", e.Op, e.Model, e.Err)
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error {
	return e.Err
}

// NewMutationError returns a new MutationError.
func NewMutationError(model, op string, err error) *MutationError {
	return &MutationError{Model: model, Op: op, Err: err}
}

// IsMutationError returns true if the error is a MutationError.
func IsMutationError(err error) bool {
	if err == nil {
		return false
	}
	var e *MutationError
	return errors.As(err, &e)
}
