package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quiverhttp/quiver/core/handler"
	"github.com/quiverhttp/quiver/core/response"
	"github.com/quiverhttp/quiver/core/router"
	"github.com/quiverhttp/quiver/middleware"
)

func corsRouter(t *testing.T, cfg middleware.CORSConfig) router.Router[*router.Context] {
	t.Helper()
	r := router.New[*router.Context]()
	r.Use(middleware.CORSWithConfig[*router.Context](cfg))
	r.Get("/data", func(ctx *router.Context) handler.Response {
		return response.String("ok")
	})
	r.Post("/data", func(ctx *router.Context) handler.Response {
		return response.String("created")
	})
	return r
}

func TestCORS(t *testing.T) {
	t.Parallel()

	t.Run("preflight from allowed origin", func(t *testing.T) {
		t.Parallel()

		r := corsRouter(t, middleware.CORSConfig{
			AllowOrigins: []string{"https://app.example.com"},
			MaxAge:       600,
		})

		req := httptest.NewRequest("OPTIONS", "/data", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", "POST")
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
		assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Headers"))
		assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
		assert.Contains(t, rec.Header().Values("Vary"), "Origin")
	})

	t.Run("preflight from disallowed origin is refused", func(t *testing.T) {
		t.Parallel()

		r := corsRouter(t, middleware.CORSConfig{
			AllowOrigins: []string{"https://app.example.com"},
		})

		req := httptest.NewRequest("OPTIONS", "/data", nil)
		req.Header.Set("Origin", "https://evil.example.net")
		req.Header.Set("Access-Control-Request-Method", "POST")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("actual request gets origin and expose headers", func(t *testing.T) {
		t.Parallel()

		r := corsRouter(t, middleware.CORSConfig{
			AllowOrigins:  []string{"https://app.example.com"},
			ExposeHeaders: []string{"X-Request-ID"},
		})

		req := httptest.NewRequest("GET", "/data", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "X-Request-ID", rec.Header().Get("Access-Control-Expose-Headers"))
	})

	t.Run("disallowed origin passes through undecorated", func(t *testing.T) {
		t.Parallel()

		r := corsRouter(t, middleware.CORSConfig{
			AllowOrigins: []string{"https://app.example.com"},
		})

		req := httptest.NewRequest("GET", "/data", nil)
		req.Header.Set("Origin", "https://evil.example.net")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("credentials are never sent with wildcard origin", func(t *testing.T) {
		t.Parallel()

		r := corsRouter(t, middleware.CORSConfig{
			AllowCredentials: true,
		})

		req := httptest.NewRequest("GET", "/data", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("wildcard origin func echoes the caller", func(t *testing.T) {
		t.Parallel()

		r := corsRouter(t, middleware.CORSConfig{
			AllowOriginFunc:  middleware.AllowOriginWildcard(),
			AllowCredentials: true,
		})

		req := httptest.NewRequest("GET", "/data", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("subdomain matcher", func(t *testing.T) {
		t.Parallel()

		match := middleware.AllowOriginSubdomain("example.com")

		origin, ok := match("https://api.example.com")
		assert.True(t, ok)
		assert.Equal(t, "https://api.example.com", origin)

		_, ok = match("https://example.com:8443")
		assert.True(t, ok)

		_, ok = match("https://notexample.com")
		assert.False(t, ok)

		_, ok = match("")
		assert.False(t, ok)
	})
}
