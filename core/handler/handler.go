package handler

import "net/http"

// Response is a function that renders exactly one HTTP response.
// It sets headers, status code, and writes the response body.
// A returned error is routed through the framework's error handler,
// which converts it into a well-formed error response.
type Response func(w http.ResponseWriter, r *http.Request) error

// HandlerFunc is a type-safe HTTP request handler with custom context support.
type HandlerFunc[C Context] func(ctx C) Response

// ErrorHandler converts errors raised during request processing into responses.
type ErrorHandler[C Context] func(ctx C, err error)

// Middleware wraps a handler to add cross-cutting behavior. A middleware may
// run logic before calling next, skip next entirely and return its own
// Response (short-circuit), or decorate the Response returned by next to
// mutate the outgoing response.
type Middleware[C Context] func(next HandlerFunc[C]) HandlerFunc[C]
