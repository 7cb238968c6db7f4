// Package handler defines the core contracts shared by the router,
// middleware, and response packages: the Context interface, the Response
// rendering function, typed handler functions, and the middleware wrapper
// shape.
//
// Middleware is deliberately modeled as a wrapper around a continuation
// rather than separate before/after hooks: only the wrapper form lets one
// middleware observe both the request it sent downstream and the response
// that came back from that exact invocation, and lets it skip downstream
// execution entirely.
package handler
