package extractor

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for extraction failures. Wrap them in Error to attach a
// status, code, and field name for the error envelope.
var (
	// ErrMissingContentType indicates the request lacks a Content-Type
	// header when one is required for parsing.
	ErrMissingContentType = errors.New("missing content type")

	// ErrUnsupportedMediaType indicates the Content-Type header names a
	// media type the extractor does not handle.
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrMalformedBody indicates the request body could not be parsed.
	ErrMalformedBody = errors.New("malformed request body")

	// ErrBodyConsumed indicates a second body-consuming extractor ran after
	// the body was already consumed. This is a programming error in the
	// handler's extractor declaration, not a client error.
	ErrBodyConsumed = errors.New("request body already consumed")

	// ErrRequestTooLarge indicates the request body exceeded the configured
	// total size ceiling.
	ErrRequestTooLarge = errors.New("request body too large")

	// ErrFieldTooLarge indicates a single form field exceeded the
	// configured per-field size ceiling.
	ErrFieldTooLarge = errors.New("form field too large")

	// ErrTooManyFields indicates the form contained more fields than the
	// configured ceiling.
	ErrTooManyFields = errors.New("too many form fields")

	// ErrMissingValue indicates a value marked required was absent.
	ErrMissingValue = errors.New("missing required value")

	// ErrInvalidTarget indicates the extraction target is not a non-nil
	// pointer to a struct.
	ErrInvalidTarget = errors.New("extraction target must be a non-nil struct pointer")
)

// Error is an extraction failure with enough context for the error
// converter to build the envelope: the HTTP status, a machine-readable
// code, and the input field that failed.
type Error struct {
	Status int
	Code   string
	Field  string
	Err    error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("extract %s: %v", e.Field, e.Err)
	}
	return e.Err.Error()
}

// Unwrap allows errors.Is to match the wrapped sentinel.
func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode reports the HTTP status for this failure, defaulting to 400.
func (e *Error) StatusCode() int {
	if e.Status == 0 {
		return http.StatusBadRequest
	}
	return e.Status
}

// ErrorCode reports the machine-readable code for the error envelope.
func (e *Error) ErrorCode() string {
	return e.Code
}

func newError(status int, code, field string, err error) *Error {
	return &Error{Status: status, Code: code, Field: field, Err: err}
}
