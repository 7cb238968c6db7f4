package router

import "github.com/quiverhttp/quiver/core/handler"

// chain wraps the endpoint with the given middlewares. Wrapping happens in
// reverse so the first middleware in the slice becomes the outermost layer:
// its before-phase runs first and its after-phase runs last.
func chain[C handler.Context](middlewares []handler.Middleware[C], endpoint handler.HandlerFunc[C]) handler.HandlerFunc[C] {
	if len(middlewares) == 0 {
		return endpoint
	}

	h := endpoint
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
