package handler

import (
	"context"
	"net/http"
)

// Context defines the contract for request contexts in the framework.
// It carries the request, the response writer, the path parameters captured
// by the router, and a per-request value store used to pass data from
// middleware to handlers. Values set with SetValue are scoped to one request
// and require no cross-request synchronization; looking up a key that was
// never set is a caller error, not a framework error.
type Context interface {
	context.Context
	Request() *http.Request
	ResponseWriter() http.ResponseWriter
	Param(key string) string
	SetValue(key, val any)
}
