package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors for quick checks
var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("operation timeout")

	// ErrNotConnected is returned when an operation needs a connected session.
	ErrNotConnected = errors.New("not connected to a directory")
)

// Error is the base interface for all custom errors in the system.
type Error interface {
	error
	// Code returns the error code
	Code() string
	// Message returns the human-readable error message
	Message() string
	// Unwrap returns the underlying cause
	Unwrap() error
}

// BaseError provides a foundation for all typed errors.
type BaseError struct {
	code    string
	message string
	cause   error
}

// Error implements the error interface.
func (e *BaseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the error code.
func (e *BaseError) Code() string {
	return e.code
}

// Message returns the error message.
func (e *BaseError) Message() string {
	return e.message
}

// Unwrap returns the underlying cause.
func (e *BaseError) Unwrap() error {
	return e.cause
}

// ValidationError represents an input validation error.
type ValidationError struct {
	*BaseError
	Field string
	Value interface{}
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		BaseError: &BaseError{
			code:    CodeValidation,
			message: message,
		},
		Field: field,
		Value: value,
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.message)
	}
	return fmt.Sprintf("validation error: %s", e.message)
}

// NotFoundError represents a resource not found error.
type NotFoundError struct {
	*BaseError
	Resource string
	ID       string
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{
		BaseError: &BaseError{
			code:    CodeNotFound,
			message: fmt.Sprintf("%s not found", resource),
		},
		Resource: resource,
		ID:       id,
	}
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s '%s' not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// ConnectionError represents a transport failure or a non-success HTTP status
// from a directory host.
type ConnectionError struct {
	*BaseError
	Address    string
	StatusCode int
}

// NewConnectionError creates a new connection error. statusCode is zero when
// no HTTP response was received.
func NewConnectionError(address string, statusCode int, cause error) *ConnectionError {
	message := fmt.Sprintf("failed to reach directory %s", address)
	if statusCode != 0 {
		message = fmt.Sprintf("directory %s answered with HTTP %d", address, statusCode)
	}
	return &ConnectionError{
		BaseError: &BaseError{
			code:    CodeConnection,
			message: message,
			cause:   cause,
		},
		Address:    address,
		StatusCode: statusCode,
	}
}

// ProtocolError represents a well-formed response carrying the wrong semantic
// content, such as a server that is not a directory.
type ProtocolError struct {
	*BaseError
	// HDSType is the directory's own error type (hds.error), if it sent one.
	HDSType string
}

// NewProtocolError creates a new protocol error.
func NewProtocolError(message string, cause error) *ProtocolError {
	if message == "" {
		message = "unexpected directory response"
	}
	return &ProtocolError{
		BaseError: &BaseError{
			code:    CodeProtocol,
			message: message,
			cause:   cause,
		},
	}
}

// WithHDSType records the directory-reported error type.
func (e *ProtocolError) WithHDSType(t string) *ProtocolError {
	e.HDSType = t
	return e
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	msg := e.BaseError.Error()
	if e.HDSType != "" {
		return fmt.Sprintf("%s (%s)", msg, e.HDSType)
	}
	return msg
}

// PartialDataError marks one failed fetch inside a larger aggregate. It is
// non-fatal: the aggregate is still produced without that component.
type PartialDataError struct {
	*BaseError
	Component string
}

// NewPartialDataError creates a new partial data error for a component.
func NewPartialDataError(component string, cause error) *PartialDataError {
	return &PartialDataError{
		BaseError: &BaseError{
			code:    CodePartialData,
			message: fmt.Sprintf("partial data: %s unavailable", component),
			cause:   cause,
		},
		Component: component,
	}
}

// InternalError represents an internal error.
type InternalError struct {
	*BaseError
}

// NewInternalError creates a new internal error.
func NewInternalError(message string, cause error) *InternalError {
	if message == "" {
		message = "internal error"
	}
	return &InternalError{
		BaseError: &BaseError{
			code:    CodeInternal,
			message: message,
			cause:   cause,
		},
	}
}

// TimeoutError represents a timeout error.
type TimeoutError struct {
	*BaseError
	Operation string
	Duration  string
}

// NewTimeoutError creates a new timeout error.
func NewTimeoutError(operation, duration string) *TimeoutError {
	message := "operation timeout"
	if operation != "" {
		message = fmt.Sprintf("%s timeout", operation)
	}
	return &TimeoutError{
		BaseError: &BaseError{
			code:    CodeTimeout,
			message: message,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// Wrap wraps an error with additional context.
// If the error is already one of our custom types, it preserves the code
// and adds the cause chain. Otherwise, it creates an InternalError.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	if e, ok := err.(Error); ok {
		return &BaseError{
			code:    e.Code(),
			message: message,
			cause:   err,
		}
	}

	return &InternalError{
		BaseError: &BaseError{
			code:    CodeInternal,
			message: message,
			cause:   err,
		},
	}
}

// New creates a new error with a message.
func New(message string) error {
	return &BaseError{
		code:    CodeInternal,
		message: message,
	}
}
