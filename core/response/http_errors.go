package response

import (
	"net/http"
	"time"
)

// HTTPError is the canonical error envelope. Every failure that reaches the
// wire is serialized into this shape so clients can branch on ErrorType and
// Code without string-matching messages.
type HTTPError struct {
	Status    int            `json:"status"`                // HTTP status code
	ErrorType string         `json:"error_type"`            // Machine-readable error kind
	Code      string         `json:"error_code,omitempty"`  // Optional finer-grained machine code
	Message   string         `json:"message"`               // Human-readable message
	Details   map[string]any `json:"details,omitempty"`     // Optional structured metadata
	Timestamp time.Time      `json:"timestamp,omitzero"`    // Stamped at conversion time
}

// NewHTTPError creates an error with the given status and message.
// The error type tag is inferred from the status catalog; unknown statuses
// are labeled "error".
func NewHTTPError(status int, message string) HTTPError {
	errorType := "error"
	if base, ok := httpErrorsByStatus[status]; ok {
		errorType = base.ErrorType
	}
	return HTTPError{
		Status:    status,
		ErrorType: errorType,
		Message:   message,
	}
}

// Error implements the error interface.
func (e HTTPError) Error() string {
	return e.Message
}

// StatusCode returns the HTTP status code for the error.
func (e HTTPError) StatusCode() int {
	return e.Status
}

// ErrorCode returns the machine-readable error code, if any.
func (e HTTPError) ErrorCode() string {
	return e.Code
}

// WithMessage returns a copy of the error with a custom message.
func (e HTTPError) WithMessage(message string) HTTPError {
	e.Message = message
	return e
}

// WithCode returns a copy of the error with a machine-readable code.
func (e HTTPError) WithCode(code string) HTTPError {
	e.Code = code
	return e
}

// WithDetails returns a copy of the error with additional details.
func (e HTTPError) WithDetails(details map[string]any) HTTPError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	e.Details = merged
	return e
}

// WithError returns a copy of the error with an error cause recorded in details.
func (e HTTPError) WithError(err error) HTTPError {
	if err == nil {
		return e
	}
	return e.WithDetails(map[string]any{"cause": err.Error()})
}

// Built-in error kinds. Client-input and authorization errors carry precise
// status and type tags; server-side kinds deliberately keep generic messages.
var (
	// 4xx client errors
	ErrBadRequest = HTTPError{
		Status:    http.StatusBadRequest,
		ErrorType: "bad_request",
		Message:   http.StatusText(http.StatusBadRequest),
	}

	// ErrValidation shares the 400 status with ErrBadRequest but is
	// distinguishable by its type tag; use it when input was syntactically
	// fine but semantically invalid.
	ErrValidation = HTTPError{
		Status:    http.StatusBadRequest,
		ErrorType: "validation",
		Message:   "Validation failed",
	}

	ErrUnauthorized = HTTPError{
		Status:    http.StatusUnauthorized,
		ErrorType: "unauthorized",
		Message:   http.StatusText(http.StatusUnauthorized),
	}

	ErrForbidden = HTTPError{
		Status:    http.StatusForbidden,
		ErrorType: "forbidden",
		Message:   http.StatusText(http.StatusForbidden),
	}

	ErrNotFound = HTTPError{
		Status:    http.StatusNotFound,
		ErrorType: "not_found",
		Message:   http.StatusText(http.StatusNotFound),
	}

	ErrMethodNotAllowed = HTTPError{
		Status:    http.StatusMethodNotAllowed,
		ErrorType: "method_not_allowed",
		Message:   http.StatusText(http.StatusMethodNotAllowed),
	}

	ErrRequestTimeout = HTTPError{
		Status:    http.StatusRequestTimeout,
		ErrorType: "request_timeout",
		Message:   http.StatusText(http.StatusRequestTimeout),
	}

	ErrConflict = HTTPError{
		Status:    http.StatusConflict,
		ErrorType: "conflict",
		Message:   http.StatusText(http.StatusConflict),
	}

	ErrRequestEntityTooLarge = HTTPError{
		Status:    http.StatusRequestEntityTooLarge,
		ErrorType: "request_entity_too_large",
		Message:   http.StatusText(http.StatusRequestEntityTooLarge),
	}

	ErrUnsupportedMediaType = HTTPError{
		Status:    http.StatusUnsupportedMediaType,
		ErrorType: "unsupported_media_type",
		Message:   http.StatusText(http.StatusUnsupportedMediaType),
	}

	ErrUnprocessableEntity = HTTPError{
		Status:    http.StatusUnprocessableEntity,
		ErrorType: "unprocessable_entity",
		Message:   http.StatusText(http.StatusUnprocessableEntity),
	}

	ErrUpgradeRequired = HTTPError{
		Status:    http.StatusUpgradeRequired,
		ErrorType: "upgrade_required",
		Message:   http.StatusText(http.StatusUpgradeRequired),
	}

	ErrTooManyRequests = HTTPError{
		Status:    http.StatusTooManyRequests,
		ErrorType: "too_many_requests",
		Message:   http.StatusText(http.StatusTooManyRequests),
	}

	// 5xx server errors
	ErrInternalServerError = HTTPError{
		Status:    http.StatusInternalServerError,
		ErrorType: "internal",
		Message:   http.StatusText(http.StatusInternalServerError),
	}

	ErrNotImplemented = HTTPError{
		Status:    http.StatusNotImplemented,
		ErrorType: "not_implemented",
		Message:   http.StatusText(http.StatusNotImplemented),
	}

	ErrBadGateway = HTTPError{
		Status:    http.StatusBadGateway,
		ErrorType: "bad_gateway",
		Message:   http.StatusText(http.StatusBadGateway),
	}

	// ErrUpstream, ErrDatabase, and ErrExternalService mark failures of
	// dependencies this process called; they share the 502 status and are
	// distinguishable by type tag.
	ErrUpstream = HTTPError{
		Status:    http.StatusBadGateway,
		ErrorType: "upstream",
		Message:   "Upstream service failed",
	}

	ErrDatabase = HTTPError{
		Status:    http.StatusBadGateway,
		ErrorType: "database",
		Message:   "Database operation failed",
	}

	ErrExternalService = HTTPError{
		Status:    http.StatusBadGateway,
		ErrorType: "external_service",
		Message:   "External service call failed",
	}

	// ErrIO marks transport or filesystem level failures inside the process.
	ErrIO = HTTPError{
		Status:    http.StatusInternalServerError,
		ErrorType: "io_error",
		Message:   "I/O operation failed",
	}

	ErrServiceUnavailable = HTTPError{
		Status:    http.StatusServiceUnavailable,
		ErrorType: "service_unavailable",
		Message:   http.StatusText(http.StatusServiceUnavailable),
	}

	// ErrTimeout is the conversion target for cancelled or deadline-expired
	// requests; producing it is how an aborted request still yields exactly
	// one well-formed response.
	ErrTimeout = HTTPError{
		Status:    http.StatusGatewayTimeout,
		ErrorType: "timeout",
		Message:   "Request timed out",
	}
)

// httpErrorsByStatus maps status codes to their default envelope.
var httpErrorsByStatus = map[int]HTTPError{
	http.StatusBadRequest:            ErrBadRequest,
	http.StatusUnauthorized:          ErrUnauthorized,
	http.StatusForbidden:             ErrForbidden,
	http.StatusNotFound:              ErrNotFound,
	http.StatusMethodNotAllowed:      ErrMethodNotAllowed,
	http.StatusRequestTimeout:        ErrRequestTimeout,
	http.StatusConflict:              ErrConflict,
	http.StatusRequestEntityTooLarge: ErrRequestEntityTooLarge,
	http.StatusUnsupportedMediaType:  ErrUnsupportedMediaType,
	http.StatusUnprocessableEntity:   ErrUnprocessableEntity,
	http.StatusUpgradeRequired:       ErrUpgradeRequired,
	http.StatusTooManyRequests:       ErrTooManyRequests,
	http.StatusInternalServerError:   ErrInternalServerError,
	http.StatusNotImplemented:        ErrNotImplemented,
	http.StatusBadGateway:            ErrBadGateway,
	http.StatusServiceUnavailable:    ErrServiceUnavailable,
	http.StatusGatewayTimeout:        ErrTimeout,
}
