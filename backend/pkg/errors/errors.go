package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeValidation represents malformed-observation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeGraph represents graph store / persistence errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeEmbedding represents embedding service errors
	ErrorTypeEmbedding ErrorType = "embedding"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// Base exposes the underlying BaseError; promoted through embedding so that
// typed errors answer IsErrorType without reflection.
func (e *BaseError) Base() *BaseError {
	return e
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Validation Errors

// ErrMalformedObservation is returned when an observed entity or relationship
// is missing required fields. It is rejected before any graph mutation.
type ErrMalformedObservation struct {
	*BaseError
	Kind   string // "entity" or "relationship"
	Reason string
}

func NewMalformedObservation(kind, reason string) *ErrMalformedObservation {
	return &ErrMalformedObservation{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("malformed %s observation: %s", kind, reason), nil),
		Kind:      kind,
		Reason:    reason,
	}
}

// Graph Errors

// ErrGraphConnectionFailed is returned when the graph store connection fails
type ErrGraphConnectionFailed struct {
	*BaseError
	URI string
}

func NewGraphConnectionFailed(uri string, err error) *ErrGraphConnectionFailed {
	return &ErrGraphConnectionFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("failed to connect to graph store: %s", uri), err),
		URI:       uri,
	}
}

// ErrGraphOperationFailed is returned when a store read or write fails.
// The failed operation left no partial mutation and may be retried whole.
type ErrGraphOperationFailed struct {
	*BaseError
	Operation string
}

func NewGraphOperationFailed(operation string, err error) *ErrGraphOperationFailed {
	return &ErrGraphOperationFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("graph operation failed: %s", operation), err),
		Operation: operation,
	}
}

// ErrNodeNotFound is returned when a query names an entity with no exact or
// alias match in the graph
type ErrNodeNotFound struct {
	*BaseError
	Name string
}

func NewNodeNotFound(name string) *ErrNodeNotFound {
	return &ErrNodeNotFound{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("entity not found: %s", name), nil),
		Name:      name,
	}
}

// Embedding Errors

// ErrEmbeddingFailed is returned when the embedding service cannot produce a
// vector. Callers treat this as degraded, not fatal.
type ErrEmbeddingFailed struct {
	*BaseError
	Model string
}

func NewEmbeddingFailed(model string, err error) *ErrEmbeddingFailed {
	return &ErrEmbeddingFailed{
		BaseError: NewBaseError(ErrorTypeEmbedding, fmt.Sprintf("embedding request failed: %s", model), err),
		Model:     model,
	}
}

// Config Errors

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		if baseErr, ok := err.(interface{ Base() *BaseError }); ok {
			return baseErr.Base().Type == errType
		}
		wrapped, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = wrapped.Unwrap()
	}
	return false
}

// IsRetryable checks if an error is retryable. Validation failures never are;
// store and embedding failures usually reflect transient conditions.
func IsRetryable(err error) bool {
	if IsErrorType(err, ErrorTypeValidation) {
		return false
	}
	if IsErrorType(err, ErrorTypeConfig) {
		return false
	}
	if IsErrorType(err, ErrorTypeGraph) {
		return true
	}
	if IsErrorType(err, ErrorTypeEmbedding) {
		return true
	}
	return false
}
