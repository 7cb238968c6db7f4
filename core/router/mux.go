package router

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/quiverhttp/quiver/core/extractor"
	"github.com/quiverhttp/quiver/core/handler"
	"github.com/quiverhttp/quiver/core/response"
	"github.com/quiverhttp/quiver/core/state"
)

// methodMap validates method names passed to Method at registration time.
var methodMap = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodConnect: true,
	http.MethodOptions: true,
	http.MethodTrace:   true,
}

// mux is the private implementation of the Router interface.
type mux[C handler.Context] struct {
	tree         *node[C]
	prefix       string
	middlewares  []handler.Middleware[C]
	errorHandler handler.ErrorHandler[C]
	newContext   func(http.ResponseWriter, *http.Request, Params) C
	logger       *slog.Logger
	container    *state.Container
	parent       *mux[C] // for inline sub-routers
	inline       bool
	routed       bool
}

// newMux creates a new router instance.
func newMux[C handler.Context](opts ...Option[C]) *mux[C] {
	m := &mux[C]{
		tree:         &node[C]{},
		errorHandler: response.JSONErrorHandler[C],
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)), // No-op logger by default
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.newContext == nil {
		m.newContext = func(w http.ResponseWriter, r *http.Request, params Params) C {
			// Only the default *Context type works without a factory;
			// custom context types must provide one.
			var zero C
			if _, ok := any(zero).(*Context); ok {
				return any(newContext(w, r, params)).(C)
			}
			panic(ErrNoContextFactory)
		}
	}

	return m
}

// ServeHTTP implements the http.Handler interface. It matches the request
// against the routing tree, builds the typed context, runs the middleware
// chain and handler, and routes every failure through the error handler.
// Whatever happens inside, the client receives exactly one response.
func (m *mux[C]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ww := newResponseWriter(w)

	// Use RawPath if available to preserve URL encoding: splitting must see
	// encoded slashes as segment content, not separators.
	path := r.URL.Path
	if r.URL.RawPath != "" {
		path = r.URL.RawPath
	}
	if path == "" {
		path = "/"
	}

	segs, err := splitPath(path)
	if err != nil {
		ctx := m.newContext(ww, r, Params{})
		m.errorHandler(ctx, response.ErrBadRequest.WithMessage("malformed path encoding"))
		return
	}

	var params Params
	allowed := make(map[string]struct{})
	ep := m.tree.findRoute(r.Method, segs, &params, allowed)

	// Attach per-request plumbing before the context is built so handlers,
	// extractors, and middleware all observe the same request.
	r = withParams(r, params)
	if m.container != nil {
		r = r.WithContext(state.NewContext(r.Context(), m.container))
	}
	r = extractor.TrackBody(r)

	ctx := m.newContext(ww, r, params)

	// Recover from panics to prevent server crashes.
	defer func() {
		if p := recover(); p != nil {
			panicErr := &panicError{
				value: p,
				stack: debug.Stack(),
			}

			if ww.Written() {
				// Can't send an error response anymore, just log the panic.
				m.logger.Error("panic after response written",
					"value", panicErr.value,
					"stack", string(panicErr.stack),
					"path", r.URL.Path,
					"method", r.Method,
					"status", ww.Status(),
				)
			} else {
				m.errorHandler(ctx, panicErr)
			}
		}
	}()

	if ep == nil {
		if len(allowed) > 0 {
			// A route with this shape exists under other methods.
			methods := make([]string, 0, len(allowed))
			for method := range allowed {
				methods = append(methods, method)
			}
			sort.Strings(methods)
			ww.Header().Set("Allow", strings.Join(methods, ", "))
			m.errorHandler(ctx, response.ErrMethodNotAllowed)
		} else {
			m.errorHandler(ctx, response.ErrNotFound)
		}
		return
	}

	fn := ep.handler
	if len(m.middlewares) > 0 {
		fn = chain(m.middlewares, fn)
	}

	resp := fn(ctx)
	if resp == nil {
		m.errorHandler(ctx, response.ErrInternalServerError.WithMessage("handler returned nil response"))
		return
	}

	if err := resp(ww, r); err != nil {
		if ww.Written() {
			// The response already started; converting the error now would
			// corrupt the stream. Log and let the connection close.
			m.logger.Error("response failed after write started",
				"error", err,
				"path", r.URL.Path,
				"method", r.Method,
				"status", ww.Status(),
			)
			return
		}
		m.errorHandler(ctx, err)
	}
}

// Get registers a handler for GET requests.
func (m *mux[C]) Get(pattern string, handler handler.HandlerFunc[C]) {
	m.handle(http.MethodGet, pattern, handler)
}

// Post registers a handler for POST requests.
func (m *mux[C]) Post(pattern string, handler handler.HandlerFunc[C]) {
	m.handle(http.MethodPost, pattern, handler)
}

// Put registers a handler for PUT requests.
func (m *mux[C]) Put(pattern string, handler handler.HandlerFunc[C]) {
	m.handle(http.MethodPut, pattern, handler)
}

// Delete registers a handler for DELETE requests.
func (m *mux[C]) Delete(pattern string, handler handler.HandlerFunc[C]) {
	m.handle(http.MethodDelete, pattern, handler)
}

// Patch registers a handler for PATCH requests.
func (m *mux[C]) Patch(pattern string, handler handler.HandlerFunc[C]) {
	m.handle(http.MethodPatch, pattern, handler)
}

// Head registers a handler for HEAD requests.
func (m *mux[C]) Head(pattern string, handler handler.HandlerFunc[C]) {
	m.handle(http.MethodHead, pattern, handler)
}

// Options registers a handler for OPTIONS requests.
func (m *mux[C]) Options(pattern string, handler handler.HandlerFunc[C]) {
	m.handle(http.MethodOptions, pattern, handler)
}

// Connect registers a handler for CONNECT requests.
func (m *mux[C]) Connect(pattern string, handler handler.HandlerFunc[C]) {
	m.handle(http.MethodConnect, pattern, handler)
}

// Trace registers a handler for TRACE requests.
func (m *mux[C]) Trace(pattern string, handler handler.HandlerFunc[C]) {
	m.handle(http.MethodTrace, pattern, handler)
}

// Handle registers a handler for all HTTP methods.
func (m *mux[C]) Handle(pattern string, handler handler.HandlerFunc[C]) {
	m.handle(methodAny, pattern, handler)
}

// Method registers a handler for one or more specific HTTP methods.
func (m *mux[C]) Method(pattern string, handler handler.HandlerFunc[C], methods ...string) {
	if len(methods) == 0 {
		panic(fmt.Errorf("%w: no methods provided", ErrInvalidMethod))
	}

	seen := make(map[string]bool)
	for _, method := range methods {
		method = strings.ToUpper(method)
		if !methodMap[method] {
			panic(fmt.Errorf("%w: %s", ErrInvalidMethod, method))
		}
		if seen[method] {
			continue
		}
		seen[method] = true
		m.handle(method, pattern, handler)
	}
}

// Use appends middleware to the router. Middleware must be registered
// before routes so the chain is identical for every route on this router.
func (m *mux[C]) Use(middlewares ...handler.Middleware[C]) {
	if m.routed {
		panic("router: all middlewares must be defined before routes on a mux")
	}
	m.middlewares = append(m.middlewares, middlewares...)
}

// With creates a new inline router with additional middleware.
func (m *mux[C]) With(middlewares ...handler.Middleware[C]) Router[C] {
	// Only the additional middlewares are stored; parent ones are collected
	// and chained at registration time.
	return &mux[C]{
		inline:       true,
		parent:       m,
		tree:         m.tree,
		prefix:       m.prefix,
		middlewares:  middlewares,
		errorHandler: m.errorHandler,
		newContext:   m.newContext,
		logger:       m.logger,
		container:    m.container,
	}
}

// Group creates a new inline router for grouping routes.
func (m *mux[C]) Group(fn func(r Router[C])) Router[C] {
	im := m.With()
	if fn != nil {
		fn(im)
	}
	return im
}

// Route creates a sub-router whose routes all live under the given pattern
// prefix. The sub-router registers into the same tree, so matching,
// precedence, and conflict detection span the whole route table.
func (m *mux[C]) Route(pattern string, fn func(r Router[C])) Router[C] {
	if fn == nil {
		panic(fmt.Errorf("%w on '%s'", ErrNilSubrouter, pattern))
	}
	if len(pattern) == 0 || pattern[0] != '/' {
		panic(fmt.Errorf("%w: '%s'", ErrInvalidPattern, pattern))
	}
	if strings.Contains(pattern, "{*") {
		panic(fmt.Errorf("%w: wildcard not allowed in route prefix '%s'", ErrInvalidPattern, pattern))
	}

	sub := &mux[C]{
		inline:       true,
		parent:       m,
		tree:         m.tree,
		prefix:       joinPattern(m.prefix, pattern),
		errorHandler: m.errorHandler,
		newContext:   m.newContext,
		logger:       m.logger,
		container:    m.container,
	}
	fn(sub)
	return sub
}

// Routes returns all registered routes.
func (m *mux[C]) Routes() []Route {
	return m.tree.routes()
}

// writerSwapper is satisfied by *Context, and by custom context types
// through method promotion of the embedded *Context.
type writerSwapper interface {
	ResponseWriter() http.ResponseWriter
	setResponseWriter(http.ResponseWriter)
}

// renderGuard wraps the endpoint handler so failures are converted into
// error envelopes at the innermost boundary of the chain. The response a
// middleware sees is then always the envelope itself, written through
// whatever writer the middleware decorated the response with, so
// compression, logging, and metrics observe the real status and body
// instead of the handler's failed attempt.
func (m *mux[C]) renderGuard(fn handler.HandlerFunc[C]) handler.HandlerFunc[C] {
	return func(ctx C) handler.Response {
		resp := fn(ctx)
		return func(w http.ResponseWriter, r *http.Request) error {
			var err error
			if resp == nil {
				err = response.ErrInternalServerError.WithMessage("handler returned nil response")
			} else if err = resp(w, r); err == nil {
				return nil
			}

			// The base writer tracks whether headers went out. Once they
			// did, converting would corrupt the stream; propagate the error
			// so the outer layer logs it.
			if ww, ok := ctx.ResponseWriter().(*responseWriter); ok && ww.Written() {
				return err
			}

			sw, ok := any(ctx).(writerSwapper)
			if !ok {
				return err
			}
			prev := sw.ResponseWriter()
			sw.setResponseWriter(w)
			m.errorHandler(ctx, err)
			sw.setResponseWriter(prev)
			return nil
		}
	}
}

// handle registers a handler in the routing tree, chaining in the
// middleware accumulated along the inline parent chain.
func (m *mux[C]) handle(method, pattern string, fn handler.HandlerFunc[C]) {
	m.routed = true

	fn = m.renderGuard(fn)
	h := fn
	if m.inline {
		var all []handler.Middleware[C]
		for curr := m; curr != nil && curr.inline; curr = curr.parent {
			// Prepend parent middlewares to maintain registration order.
			if len(curr.middlewares) > 0 {
				all = append(append([]handler.Middleware[C]{}, curr.middlewares...), all...)
			}
		}
		h = chain(all, fn)
	}

	m.tree.insertRoute(method, joinPattern(m.prefix, pattern), h)
}

// joinPattern combines a sub-router prefix with a route pattern. A pattern
// of "/" maps to the prefix itself, so r.Route("/admin").Get("/") serves
// /admin rather than /admin/.
func joinPattern(prefix, pattern string) string {
	if prefix == "" {
		return pattern
	}
	if pattern == "/" {
		return prefix
	}
	return prefix + pattern
}
