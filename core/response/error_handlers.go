package response

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/quiverhttp/quiver/core/handler"
	"github.com/quiverhttp/quiver/core/logger"
)

// statusCode is an interface that errors can implement
// to provide a custom HTTP status code.
type statusCode interface {
	StatusCode() int
}

// errorCode is an interface that errors can implement to provide a
// machine-readable code for the envelope.
type errorCode interface {
	ErrorCode() string
}

// Responder lets application error types opt out of the canonical envelope
// and produce their own response shape. The converter checks for it before
// any other conversion step.
type Responder interface {
	ToResponse() handler.Response
}

// ToHTTPError converts any error into an HTTPError envelope. The conversion
// is total: it never fails, and the resulting status is always a valid HTTP
// code. Unrecognized errors become 500 internal.
func ToHTTPError(err error) HTTPError {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Status < 100 || httpErr.Status > 599 {
			httpErr.Status = http.StatusInternalServerError
		}
		if httpErr.ErrorType == "" {
			httpErr.ErrorType = ErrInternalServerError.ErrorType
		}
		return httpErr
	}

	// Cancelled requests still produce one well-formed outcome.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout.WithError(err)
	}

	status := http.StatusInternalServerError
	if sc, ok := err.(statusCode); ok {
		status = sc.StatusCode()
	}
	if status < 100 || status > 599 {
		status = http.StatusInternalServerError
	}

	baseErr, ok := httpErrorsByStatus[status]
	if !ok {
		baseErr = NewHTTPError(status, http.StatusText(status))
	}

	if ec, ok := err.(errorCode); ok {
		if code := ec.ErrorCode(); code != "" {
			baseErr = baseErr.WithCode(code)
		}
	}

	if err != nil {
		// Client-input errors keep their precise message; server errors are
		// scrubbed by the error handler before hitting the wire.
		if status < http.StatusInternalServerError {
			baseErr = baseErr.WithMessage(err.Error())
		} else {
			baseErr = baseErr.WithError(err)
		}
	}

	return baseErr
}

// ErrorHandler is a plain-text error handler, mainly useful in tests and
// minimal setups. Most applications want JSONErrorHandler.
func ErrorHandler[C handler.Context](ctx C, err error) {
	if rp, ok := err.(Responder); ok {
		Render(ctx, rp.ToResponse())
		return
	}

	httpErr := ToHTTPError(err)
	Render(ctx, StringWithStatus(httpErr.Message, httpErr.Status))
}

// JSONErrorHandler converts any error into the canonical JSON envelope using
// slog.Default for internal error reporting.
func JSONErrorHandler[C handler.Context](ctx C, err error) {
	NewJSONErrorHandler[C](nil)(ctx, err)
}

// NewJSONErrorHandler returns an error handler that renders the canonical
// JSON envelope. Internal (5xx) failures are reported to the caller as a
// generic envelope carrying only a correlation ID, while the full error is
// logged with that same ID so operators can join the two.
func NewJSONErrorHandler[C handler.Context](log *slog.Logger) handler.ErrorHandler[C] {
	return func(ctx C, err error) {
		if log == nil {
			log = slog.Default()
		}

		if rp, ok := err.(Responder); ok {
			Render(ctx, rp.ToResponse())
			return
		}

		httpErr := ToHTTPError(err)
		httpErr.Timestamp = time.Now().UTC()

		if httpErr.Status >= http.StatusInternalServerError {
			correlationID := uuid.New().String()

			req := ctx.Request()
			log.LogAttrs(ctx, slog.LevelError, "request failed",
				logger.Component("http"),
				logger.CorrelationID(correlationID),
				logger.Method(req.Method),
				logger.Path(req.URL.Path),
				logger.StatusCode(httpErr.Status),
				logger.Error(err),
			)

			// Scrub internals: status-class envelope plus correlation ID only.
			scrubbed, ok := httpErrorsByStatus[httpErr.Status]
			if !ok {
				scrubbed = ErrInternalServerError
			}
			scrubbed.Code = httpErr.Code
			scrubbed.ErrorType = httpErr.ErrorType
			scrubbed.Timestamp = httpErr.Timestamp
			httpErr = scrubbed.WithDetails(map[string]any{"correlation_id": correlationID})
		}

		Render(ctx, JSONWithStatus(httpErr, httpErr.Status))
	}
}
