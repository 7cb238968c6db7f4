package router_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiverhttp/quiver/core/handler"
	"github.com/quiverhttp/quiver/core/response"
	"github.com/quiverhttp/quiver/core/router"
	"github.com/quiverhttp/quiver/core/state"
)

// envelope mirrors the JSON error shape for assertions.
type envelope struct {
	Status    int            `json:"status"`
	ErrorType string         `json:"error_type"`
	Code      string         `json:"error_code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func textHandler(body string) handler.HandlerFunc[*router.Context] {
	return func(ctx *router.Context) handler.Response {
		return response.String(body)
	}
}

func doRequest(r http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestRouterImplementsHTTPHandler(t *testing.T) {
	t.Parallel()

	r := router.New[*router.Context]()
	var _ http.Handler = r
	assert.NotNil(t, r)
}

func TestRouterHTTPMethods(t *testing.T) {
	t.Parallel()

	r := router.New[*router.Context]()
	r.Get("/resource", textHandler("get"))
	r.Post("/resource", textHandler("post"))
	r.Put("/resource", textHandler("put"))
	r.Patch("/resource", textHandler("patch"))
	r.Delete("/resource", textHandler("delete"))
	r.Options("/resource", textHandler("options"))

	for _, method := range []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"} {
		rec := doRequest(r, method, "/resource")
		assert.Equal(t, http.StatusOK, rec.Code, method)
	}
}

func TestHandleMatchesEveryMethod(t *testing.T) {
	t.Parallel()

	r := router.New[*router.Context]()
	r.Handle("/any", textHandler("any"))

	for _, method := range []string{"GET", "POST", "DELETE", "PATCH"} {
		rec := doRequest(r, method, "/any")
		assert.Equal(t, http.StatusOK, rec.Code, method)
		assert.Equal(t, "any", rec.Body.String())
	}
}

func TestMethodRegistration(t *testing.T) {
	t.Parallel()

	t.Run("registers multiple methods", func(t *testing.T) {
		t.Parallel()

		r := router.New[*router.Context]()
		r.Method("/multi", textHandler("multi"), "get", "POST")

		assert.Equal(t, http.StatusOK, doRequest(r, "GET", "/multi").Code)
		assert.Equal(t, http.StatusOK, doRequest(r, "POST", "/multi").Code)
		assert.Equal(t, http.StatusMethodNotAllowed, doRequest(r, "DELETE", "/multi").Code)
	})

	t.Run("panics on unknown method", func(t *testing.T) {
		t.Parallel()

		r := router.New[*router.Context]()
		assert.Panics(t, func() {
			r.Method("/bad", textHandler("x"), "FETCH")
		})
	})

	t.Run("panics with no methods", func(t *testing.T) {
		t.Parallel()

		r := router.New[*router.Context]()
		assert.Panics(t, func() {
			r.Method("/bad", textHandler("x"))
		})
	})
}

func TestPathParams(t *testing.T) {
	t.Parallel()

	r := router.New[*router.Context]()
	r.Get("/users/{id}/posts/{postID}", func(ctx *router.Context) handler.Response {
		return response.String(ctx.Param("id") + ":" + ctx.Param("postID"))
	})

	rec := doRequest(r, "GET", "/users/42/posts/7")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42:7", rec.Body.String())
}

func TestParamsReachableFromRequest(t *testing.T) {
	t.Parallel()

	r := router.New[*router.Context]()
	r.Get("/items/{id}", func(ctx *router.Context) handler.Response {
		return response.String(router.URLParam(ctx.Request(), "id"))
	})

	rec := doRequest(r, "GET", "/items/abc")
	assert.Equal(t, "abc", rec.Body.String())
}

func TestMatchingPrecedence(t *testing.T) {
	t.Parallel()

	t.Run("literal beats param", func(t *testing.T) {
		t.Parallel()

		r := router.New[*router.Context]()
		r.Get("/users/{id}", textHandler("param"))
		r.Get("/users/me", textHandler("literal"))

		assert.Equal(t, "literal", doRequest(r, "GET", "/users/me").Body.String())
		assert.Equal(t, "param", doRequest(r, "GET", "/users/42").Body.String())
	})

	t.Run("param beats wildcard", func(t *testing.T) {
		t.Parallel()

		r := router.New[*router.Context]()
		r.Get("/files/{*path}", textHandler("wildcard"))
		r.Get("/files/{name}", textHandler("param"))

		assert.Equal(t, "param", doRequest(r, "GET", "/files/report").Body.String())
		assert.Equal(t, "wildcard", doRequest(r, "GET", "/files/a/b").Body.String())
	})

	t.Run("backtracks into param when static subtree dead-ends", func(t *testing.T) {
		t.Parallel()

		r := router.New[*router.Context]()
		r.Get("/static/file", textHandler("static"))
		r.Get("/{section}/other", func(ctx *router.Context) handler.Response {
			return response.String("param:" + ctx.Param("section"))
		})

		assert.Equal(t, "static", doRequest(r, "GET", "/static/file").Body.String())
		// The static child "static" matches the first segment but has no
		// "other" below it, so matching falls back to the param child.
		assert.Equal(t, "param:static", doRequest(r, "GET", "/static/other").Body.String())
	})

	t.Run("abandoned branch leaves no captures behind", func(t *testing.T) {
		t.Parallel()

		r := router.New[*router.Context]()
		r.Get("/{a}/{b}/end", textHandler("deep"))
		r.Get("/{*rest}", func(ctx *router.Context) handler.Response {
			return response.String("rest=" + ctx.Param("rest") + " a=" + ctx.Param("a"))
		})

		rec := doRequest(r, "GET", "/x/y/z")
		assert.Equal(t, "rest=x/y/z a=", rec.Body.String())
	})
}

func TestWildcardCapture(t *testing.T) {
	t.Parallel()

	r := router.New[*router.Context]()
	r.Get("/files/{*path}", func(ctx *router.Context) handler.Response {
		return response.String("[" + ctx.Param("path") + "]")
	})

	assert.Equal(t, "[a/b/c.txt]", doRequest(r, "GET", "/files/a/b/c.txt").Body.String())
	assert.Equal(t, "[]", doRequest(r, "GET", "/files/").Body.String())
	// At least one (possibly empty) segment must remain for the wildcard.
	assert.Equal(t, http.StatusNotFound, doRequest(r, "GET", "/files").Code)
}

func TestTrailingSlashRoutesAreDistinct(t *testing.T) {
	t.Parallel()

	r := router.New[*router.Context]()
	r.Get("/users", textHandler("bare"))
	r.Get("/users/", textHandler("slashed"))

	assert.Equal(t, "bare", doRequest(r, "GET", "/users").Body.String())
	assert.Equal(t, "slashed", doRequest(r, "GET", "/users/").Body.String())
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	r := router.New[*router.Context]()
	r.Get("/exists", textHandler("yes"))

	rec := doRequest(r, "GET", "/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusNotFound, env.Status)
	assert.Equal(t, "not_found", env.ErrorType)
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()

	t.Run("sets sorted allow header", func(t *testing.T) {
		t.Parallel()

		r := router.New[*router.Context]()
		r.Post("/resource", textHandler("post"))
		r.Get("/resource", textHandler("get"))
		r.Delete("/resource", textHandler("delete"))

		rec := doRequest(r, "PUT", "/resource")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.Equal(t, "DELETE, GET, POST", rec.Header().Get("Allow"))

		env := decodeEnvelope(t, rec)
		assert.Equal(t, "method_not_allowed", env.ErrorType)
	})

	t.Run("method mismatch falls through to dynamic route", func(t *testing.T) {
		t.Parallel()

		r := router.New[*router.Context]()
		r.Post("/x/specific", textHandler("post-literal"))
		r.Get("/x/{id}", func(ctx *router.Context) handler.Response {
			return response.String("get-" + ctx.Param("id"))
		})

		// The literal terminal only knows POST; a GET keeps searching and
		// lands on the param route.
		assert.Equal(t, "get-specific", doRequest(r, "GET", "/x/specific").Body.String())
		assert.Equal(t, "post-literal", doRequest(r, "POST", "/x/specific").Body.String())
	})
}

func TestPercentDecoding(t *testing.T) {
	t.Parallel()

	t.Run("decodes parameter values", func(t *testing.T) {
		t.Parallel()

		r := router.New[*router.Context]()
		r.Get("/users/{name}", func(ctx *router.Context) handler.Response {
			return response.String(ctx.Param("name"))
		})

		rec := doRequest(r, "GET", "/users/john%20doe")
		assert.Equal(t, "john doe", rec.Body.String())
	})

	t.Run("encoded slash stays inside its segment", func(t *testing.T) {
		t.Parallel()

		r := router.New[*router.Context]()
		r.Get("/files/{name}", func(ctx *router.Context) handler.Response {
			return response.String(ctx.Param("name"))
		})

		req := httptest.NewRequest("GET", "/files/placeholder", nil)
		req.URL.Path = "/files/a/b"
		req.URL.RawPath = "/files/a%2Fb"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "a/b", rec.Body.String())
	})

	t.Run("malformed encoding is a client error", func(t *testing.T) {
		t.Parallel()

		r := router.New[*router.Context]()
		r.Get("/users/{name}", textHandler("x"))

		req := httptest.NewRequest("GET", "/users/placeholder", nil)
		req.URL.Path = "/users/%zz"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.Equal(t, "bad_request", env.ErrorType)
	})
}

func TestRegistrationPanics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		register func(r router.Router[*router.Context])
	}{
		{"pattern without leading slash", func(r router.Router[*router.Context]) {
			r.Get("users", textHandler("x"))
		}},
		{"wildcard before final segment", func(r router.Router[*router.Context]) {
			r.Get("/files/{*path}/meta", textHandler("x"))
		}},
		{"conflicting param names at same position", func(r router.Router[*router.Context]) {
			r.Get("/users/{id}", textHandler("x"))
			r.Get("/users/{userID}/posts", textHandler("y"))
		}},
		{"duplicate method and pattern", func(r router.Router[*router.Context]) {
			r.Get("/dup", textHandler("x"))
			r.Get("/dup", textHandler("y"))
		}},
		{"duplicate param name in one route", func(r router.Router[*router.Context]) {
			r.Get("/a/{id}/b/{id}", textHandler("x"))
		}},
		{"empty param name", func(r router.Router[*router.Context]) {
			r.Get("/users/{}", textHandler("x"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := router.New[*router.Context]()
			assert.Panics(t, func() { tt.register(r) })
		})
	}
}

func TestSameShapeDifferentMethodsIsAllowed(t *testing.T) {
	t.Parallel()

	r := router.New[*router.Context]()
	require.NotPanics(t, func() {
		r.Get("/users/{id}", textHandler("get"))
		r.Put("/users/{id}", textHandler("put"))
	})

	assert.Equal(t, "get", doRequest(r, "GET", "/users/1").Body.String())
	assert.Equal(t, "put", doRequest(r, "PUT", "/users/1").Body.String())
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("runs in registration order", func(t *testing.T) {
		t.Parallel()

		var order []string
		mw := func(name string) handler.Middleware[*router.Context] {
			return func(next handler.HandlerFunc[*router.Context]) handler.HandlerFunc[*router.Context] {
				return func(ctx *router.Context) handler.Response {
					order = append(order, name)
					return next(ctx)
				}
			}
		}

		r := router.New[*router.Context]()
		r.Use(mw("first"), mw("second"))
		r.Use(mw("third"))
		r.Get("/", func(ctx *router.Context) handler.Response {
			order = append(order, "handler")
			return response.String("ok")
		})

		doRequest(r, "GET", "/")
		assert.Equal(t, []string{"first", "second", "third", "handler"}, order)
	})

	t.Run("short-circuit still passes through outer decoration", func(t *testing.T) {
		t.Parallel()

		outer := func(next handler.HandlerFunc[*router.Context]) handler.HandlerFunc[*router.Context] {
			return func(ctx *router.Context) handler.Response {
				resp := next(ctx)
				return func(w http.ResponseWriter, r *http.Request) error {
					w.Header().Set("X-Outer", "seen")
					return resp(w, r)
				}
			}
		}
		blocker := func(next handler.HandlerFunc[*router.Context]) handler.HandlerFunc[*router.Context] {
			return func(ctx *router.Context) handler.Response {
				return response.Error(response.ErrForbidden)
			}
		}

		handlerRan := false
		r := router.New[*router.Context]()
		r.Use(outer, blocker)
		r.Get("/", func(ctx *router.Context) handler.Response {
			handlerRan = true
			return response.String("ok")
		})

		rec := doRequest(r, "GET", "/")
		assert.False(t, handlerRan)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "seen", rec.Header().Get("X-Outer"))
	})

	t.Run("use after route registration panics", func(t *testing.T) {
		t.Parallel()

		r := router.New[*router.Context]()
		r.Get("/", textHandler("ok"))

		noop := func(next handler.HandlerFunc[*router.Context]) handler.HandlerFunc[*router.Context] {
			return next
		}
		assert.Panics(t, func() { r.Use(noop) })
	})
}

func TestGroupAndWith(t *testing.T) {
	t.Parallel()

	mw := func(header string) handler.Middleware[*router.Context] {
		return func(next handler.HandlerFunc[*router.Context]) handler.HandlerFunc[*router.Context] {
			return func(ctx *router.Context) handler.Response {
				resp := next(ctx)
				return func(w http.ResponseWriter, r *http.Request) error {
					w.Header().Set(header, "yes")
					return resp(w, r)
				}
			}
		}
	}

	r := router.New[*router.Context]()
	r.Get("/plain", textHandler("plain"))
	r.Group(func(g router.Router[*router.Context]) {
		g.Use(mw("X-Grouped"))
		g.Get("/grouped", textHandler("grouped"))
	})
	r.With(mw("X-Inline")).Get("/inline", textHandler("inline"))

	assert.Empty(t, doRequest(r, "GET", "/plain").Header().Get("X-Grouped"))
	assert.Equal(t, "yes", doRequest(r, "GET", "/grouped").Header().Get("X-Grouped"))
	assert.Equal(t, "yes", doRequest(r, "GET", "/inline").Header().Get("X-Inline"))
	assert.Empty(t, doRequest(r, "GET", "/grouped").Header().Get("X-Inline"))
}

func TestRouteSubrouter(t *testing.T) {
	t.Parallel()

	t.Run("prefixes registered routes", func(t *testing.T) {
		t.Parallel()

		r := router.New[*router.Context]()
		r.Route("/api", func(api router.Router[*router.Context]) {
			api.Get("/", textHandler("api-root"))
			api.Get("/users", textHandler("api-users"))
			api.Route("/v2", func(v2 router.Router[*router.Context]) {
				v2.Get("/users/{id}", func(ctx *router.Context) handler.Response {
					return response.String("v2-" + ctx.Param("id"))
				})
			})
		})

		assert.Equal(t, "api-root", doRequest(r, "GET", "/api").Body.String())
		assert.Equal(t, "api-users", doRequest(r, "GET", "/api/users").Body.String())
		assert.Equal(t, "v2-9", doRequest(r, "GET", "/api/v2/users/9").Body.String())
	})

	t.Run("conflicts are detected across sub-routers", func(t *testing.T) {
		t.Parallel()

		r := router.New[*router.Context]()
		r.Get("/api/users", textHandler("direct"))
		assert.Panics(t, func() {
			r.Route("/api", func(api router.Router[*router.Context]) {
				api.Get("/users", textHandler("sub"))
			})
		})
	})

	t.Run("panics on nil function", func(t *testing.T) {
		t.Parallel()

		r := router.New[*router.Context]()
		assert.Panics(t, func() { r.Route("/api", nil) })
	})

	t.Run("panics on wildcard in prefix", func(t *testing.T) {
		t.Parallel()

		r := router.New[*router.Context]()
		assert.Panics(t, func() {
			r.Route("/files/{*path}", func(router.Router[*router.Context]) {})
		})
	})

	t.Run("sub-router middleware scoped to its routes", func(t *testing.T) {
		t.Parallel()

		mw := func(next handler.HandlerFunc[*router.Context]) handler.HandlerFunc[*router.Context] {
			return func(ctx *router.Context) handler.Response {
				resp := next(ctx)
				return func(w http.ResponseWriter, r *http.Request) error {
					w.Header().Set("X-Admin", "yes")
					return resp(w, r)
				}
			}
		}

		r := router.New[*router.Context]()
		r.Get("/public", textHandler("public"))
		r.Route("/admin", func(admin router.Router[*router.Context]) {
			admin.Use(mw)
			admin.Get("/panel", textHandler("panel"))
		})

		assert.Equal(t, "yes", doRequest(r, "GET", "/admin/panel").Header().Get("X-Admin"))
		assert.Empty(t, doRequest(r, "GET", "/public").Header().Get("X-Admin"))
	})
}

func TestPanicRecovery(t *testing.T) {
	t.Parallel()

	t.Run("panic becomes scrubbed internal error", func(t *testing.T) {
		t.Parallel()

		r := router.New[*router.Context]()
		r.Get("/boom", func(ctx *router.Context) handler.Response {
			panic("kaboom")
		})

		rec := doRequest(r, "GET", "/boom")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		env := decodeEnvelope(t, rec)
		assert.Equal(t, "internal", env.ErrorType)
		assert.NotContains(t, rec.Body.String(), "kaboom")
		assert.Contains(t, env.Details, "correlation_id")
	})

	t.Run("custom handler observes panic value and stack", func(t *testing.T) {
		t.Parallel()

		var captured error
		r := router.New(router.WithErrorHandler(func(ctx *router.Context, err error) {
			captured = err
			response.Render(ctx, response.Status(http.StatusInternalServerError))
		}))
		r.Get("/boom", func(ctx *router.Context) handler.Response {
			panic("kaboom")
		})

		doRequest(r, "GET", "/boom")
		require.Error(t, captured)

		var pe router.PanicError
		require.ErrorAs(t, captured, &pe)
		assert.Equal(t, "kaboom", pe.Value())
		assert.NotEmpty(t, pe.Stack())
	})

	t.Run("panic in middleware is recovered", func(t *testing.T) {
		t.Parallel()

		r := router.New[*router.Context]()
		r.Use(func(next handler.HandlerFunc[*router.Context]) handler.HandlerFunc[*router.Context] {
			return func(ctx *router.Context) handler.Response {
				panic("middleware exploded")
			}
		})
		r.Get("/", textHandler("ok"))

		rec := doRequest(r, "GET", "/")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestNilResponseIsInternalError(t *testing.T) {
	t.Parallel()

	r := router.New[*router.Context]()
	r.Get("/nil", func(ctx *router.Context) handler.Response {
		return nil
	})

	rec := doRequest(r, "GET", "/nil")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "internal", env.ErrorType)
}

func TestResponseErrorRoutedThroughErrorHandler(t *testing.T) {
	t.Parallel()

	r := router.New[*router.Context]()
	r.Get("/conflict", func(ctx *router.Context) handler.Response {
		return response.Error(response.ErrConflict.WithMessage("already exists"))
	})

	rec := doRequest(r, "GET", "/conflict")
	assert.Equal(t, http.StatusConflict, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.Equal(t, "conflict", env.ErrorType)
	assert.Equal(t, "already exists", env.Message)
}

type customContext struct {
	*router.Context
	tenant string
}

func TestCustomContext(t *testing.T) {
	t.Parallel()

	t.Run("requires a factory", func(t *testing.T) {
		t.Parallel()

		r := router.New[*customContext]()
		r.Get("/", func(ctx *customContext) handler.Response {
			return response.String("ok")
		})

		assert.Panics(t, func() {
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
		})
	})

	t.Run("factory builds the typed context", func(t *testing.T) {
		t.Parallel()

		r := router.New(router.WithContextFactory(
			func(w http.ResponseWriter, req *http.Request, params router.Params) *customContext {
				return &customContext{
					Context: router.NewContext(w, req, params),
					tenant:  req.Header.Get("X-Tenant"),
				}
			}))
		r.Get("/tenant", func(ctx *customContext) handler.Response {
			return response.String(ctx.tenant)
		})

		req := httptest.NewRequest("GET", "/tenant", nil)
		req.Header.Set("X-Tenant", "acme")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, "acme", rec.Body.String())
	})
}

func TestWithState(t *testing.T) {
	t.Parallel()

	type userStore struct{ name string }

	container := state.NewContainer()
	state.Register(container, &userStore{name: "primary"})

	r := router.New(router.WithState[*router.Context](container))
	r.Get("/", func(ctx *router.Context) handler.Response {
		store, err := state.Value[*userStore](ctx.Request())
		if err != nil {
			return response.Error(err)
		}
		return response.String(store.name)
	})

	rec := doRequest(r, "GET", "/")
	assert.Equal(t, "primary", rec.Body.String())
}

func TestRoutesListing(t *testing.T) {
	t.Parallel()

	r := router.New[*router.Context]()
	r.Get("/users", textHandler("x"))
	r.Post("/users", textHandler("x"))
	r.Get("/users/{id}", textHandler("x"))

	routes := r.Routes()
	require.Len(t, routes, 3)
	assert.Equal(t, router.Route{Method: "GET", Pattern: "/users"}, routes[0])
	assert.Equal(t, router.Route{Method: "POST", Pattern: "/users"}, routes[1])
	assert.Equal(t, router.Route{Method: "GET", Pattern: "/users/{id}"}, routes[2])
}

func TestContextValues(t *testing.T) {
	t.Parallel()

	type ctxKey struct{}

	r := router.New[*router.Context]()
	r.Use(func(next handler.HandlerFunc[*router.Context]) handler.HandlerFunc[*router.Context] {
		return func(ctx *router.Context) handler.Response {
			ctx.SetValue(ctxKey{}, "stored")
			return next(ctx)
		}
	})
	r.Get("/", func(ctx *router.Context) handler.Response {
		v, _ := ctx.Value(ctxKey{}).(string)
		return response.String(v)
	})

	assert.Equal(t, "stored", doRequest(r, "GET", "/").Body.String())
}
