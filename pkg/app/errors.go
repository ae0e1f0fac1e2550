// ABOUTME: Client-facing error classes for service calls
// ABOUTME: Each error carries an HTTP-style code so transports can map it

package app

import "fmt"

// Error is a client-facing service error
type Error struct {
	Code    int    // HTTP-style status code
	Name    string // Error class name
	Message string
	Err     error // Underlying cause, may be nil
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// BadRequest wraps err as a 400 error
func BadRequest(err error) *Error {
	return &Error{Code: 400, Name: "BadRequest", Message: err.Error(), Err: err}
}

// NotFound builds a 404 error
func NotFound(format string, args ...any) *Error {
	return &Error{Code: 404, Name: "NotFound", Message: fmt.Sprintf(format, args...)}
}

// MethodNotAllowed builds a 405 error
func MethodNotAllowed(format string, args ...any) *Error {
	return &Error{Code: 405, Name: "MethodNotAllowed", Message: fmt.Sprintf(format, args...)}
}

// UsageError reports a hook registered on a phase or method it does not support.
// It is raised before the hook has any side effect.
type UsageError struct {
	Hook    string
	Message string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("the '%s' hook %s", e.Hook, e.Message)
}
