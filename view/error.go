package view

import (
	"errors"
	"fmt"
)

// ErrNoResponse is returned when a Service returns neither a Response nor an
// error.
var ErrNoResponse = errors.New("service returned no response")

// Error represents an HTTP error. Services and layers return it to select the
// status code, code and details of the error response rendered by an
// Exception layer.
type Error struct {
	StatusCode int            `json:"-"`
	Code       any            `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details"`
}

// Error returns the error message string.
func (e Error) Error() string {
	return e.Message
}

// NewError creates a new Error with the specified status code and message.
func NewError(statusCode int, message string) *Error {
	return &Error{
		StatusCode: statusCode,
		Message:    message,
	}
}

// WithCode sets an application-specific error code, rendered instead of the
// status code.
func (e *Error) WithCode(code any) *Error {
	e.Code = code
	return e
}

// WithDetails sets additional error details.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// PanicError is a panic recovered by an Exception layer.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value if it's an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
