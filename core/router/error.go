package router

import (
	"errors"
	"fmt"
)

var (
	// Mux errors
	ErrNoContextFactory = errors.New("no context factory provided")
	ErrInvalidMethod    = errors.New("invalid http method")
	ErrNilSubrouter     = errors.New("nil subrouter function")
	ErrInvalidPattern   = errors.New("invalid route path pattern")

	// Tree registration errors. All of them are raised as panics: a route
	// table that cannot be built unambiguously is a programming error, not
	// a runtime condition.
	ErrWildcardPosition = errors.New("wildcard segment must be last")
	ErrDuplicateParam   = errors.New("duplicate parameter name in pattern")
	ErrParamConflict    = errors.New("conflicting parameter names at same position")
	ErrDuplicateRoute   = errors.New("route already registered")
)

// PanicError allows external error handlers to detect and handle panics.
// When a panic is recovered by the router, it's wrapped in an error that
// implements this interface, providing access to the original panic value
// and the stack trace captured at the panic point.
type PanicError interface {
	error
	// Value returns the original panic value.
	Value() any
	// Stack returns the stack trace captured at the panic point.
	Stack() []byte
}

// panicError is the private implementation of PanicError interface.
type panicError struct {
	value any
	stack []byte
}

// Error implements the error interface.
func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// Value returns the original panic value.
func (e *panicError) Value() any {
	return e.value
}

// Stack returns the stack trace.
func (e *panicError) Stack() []byte {
	return e.stack
}

// Unwrap allows errors.Is/As to work with wrapped panics.
func (e *panicError) Unwrap() error {
	if err, ok := e.value.(error); ok {
		return err
	}
	return nil
}
