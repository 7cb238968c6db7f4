package router

import (
	"context"
	"net/http"
	"time"
)

// Context is the default request context implementation. It satisfies
// handler.Context and delegates context.Context behavior to the request's
// own context, so deadlines and cancellation propagate from the server.
//
// A Context is created per request and never shared across requests, so the
// value store needs no locking.
type Context struct {
	w      http.ResponseWriter
	r      *http.Request
	params Params
	values map[any]any
}

// newContext creates a default context for the given request.
func newContext(w http.ResponseWriter, r *http.Request, params Params) *Context {
	return &Context{w: w, r: r, params: params}
}

// NewContext creates a default context for the given request. Custom context
// types typically embed *Context and build it in their context factory.
func NewContext(w http.ResponseWriter, r *http.Request, params Params) *Context {
	return newContext(w, r, params)
}

// Request returns the underlying HTTP request.
func (c *Context) Request() *http.Request {
	return c.r
}

// ResponseWriter returns the response writer for this request.
func (c *Context) ResponseWriter() http.ResponseWriter {
	return c.w
}

// setResponseWriter replaces the context's writer. The router uses it while
// rendering an error envelope so the write goes through the same decorated
// writer the failed response was using. Custom context types pick it up by
// embedding *Context.
func (c *Context) setResponseWriter(w http.ResponseWriter) {
	c.w = w
}

// Param returns the path parameter captured under the given name,
// or "" if the route has no such parameter.
func (c *Context) Param(key string) string {
	return c.params.Get(key)
}

// SetValue stores a request-scoped value, visible to later middleware and
// the handler through Value.
func (c *Context) SetValue(key, val any) {
	if c.values == nil {
		c.values = make(map[any]any)
	}
	c.values[key] = val
}

// Deadline implements context.Context.
func (c *Context) Deadline() (time.Time, bool) {
	return c.r.Context().Deadline()
}

// Done implements context.Context.
func (c *Context) Done() <-chan struct{} {
	return c.r.Context().Done()
}

// Err implements context.Context.
func (c *Context) Err() error {
	return c.r.Context().Err()
}

// Value returns a value stored with SetValue, falling back to the request
// context for keys the handler chain never set.
func (c *Context) Value(key any) any {
	if v, ok := c.values[key]; ok {
		return v
	}
	return c.r.Context().Value(key)
}

type paramsContextKey struct{}

// withParams attaches captured path parameters to the request context so
// they are reachable from code that only sees the *http.Request.
func withParams(r *http.Request, params Params) *http.Request {
	if len(params.Keys) == 0 {
		return r
	}
	return r.WithContext(context.WithValue(r.Context(), paramsContextKey{}, params))
}

// ParamsFromRequest returns the path parameters captured for this request.
func ParamsFromRequest(r *http.Request) Params {
	p, _ := r.Context().Value(paramsContextKey{}).(Params)
	return p
}

// URLParam returns a single path parameter from the request, or "" if the
// matched route has no such parameter.
func URLParam(r *http.Request, key string) string {
	p := ParamsFromRequest(r)
	return p.Get(key)
}
