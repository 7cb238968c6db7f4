// Package router provides a generic HTTP router with typed contexts,
// segment-based pattern matching, and a total error handling pipeline.
//
// Patterns are matched segment by segment. A segment is either exact text,
// a parameter {name} capturing exactly one segment, or a wildcard {*name}
// capturing the rest of the path. Exact text always wins over a parameter,
// and a parameter wins over a wildcard; the router backtracks across
// candidates, so an unrelated literal route can never shadow a dynamic one.
// Matching is method-aware: when a path matches a route shape registered
// only for other methods, the router responds 405 with an Allow header
// listing them, and 404 only when no shape matches at all.
//
// Patterns that would make matching ambiguous are rejected at registration
// time with a panic: conflicting capture names at the same position, a
// wildcard before the final segment, or a second handler for the same
// method and pattern. A route table that builds without panicking matches
// deterministically.
//
// Handlers are functions from a typed context to a Response:
//
//	r := router.New[*router.Context]()
//	r.Get("/users/{id}", func(ctx *router.Context) handler.Response {
//		return response.JSON(map[string]string{"id": ctx.Param("id")})
//	})
//	http.ListenAndServe(":8080", r)
//
// Middleware wraps handlers and composes in registration order; the first
// middleware registered is the outermost layer. Errors returned by handlers
// or extractors, recovered panics, and nil responses all flow through the
// router's error handler, which defaults to the canonical JSON envelope.
package router
