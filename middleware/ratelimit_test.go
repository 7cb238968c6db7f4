package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiverhttp/quiver/core/handler"
	"github.com/quiverhttp/quiver/core/response"
	"github.com/quiverhttp/quiver/core/router"
	"github.com/quiverhttp/quiver/middleware"
	"github.com/quiverhttp/quiver/pkg/ratelimiter"
)

func newTestLimiter(t *testing.T, capacity int) *ratelimiter.RateLimiter {
	t.Helper()
	rl, err := ratelimiter.New(ratelimiter.NewMemoryStore(), ratelimiter.Config{
		Capacity:       capacity,
		RefillRate:     1,
		RefillInterval: time.Hour,
	})
	require.NoError(t, err)
	return rl
}

func rateLimitedRouter(t *testing.T, cfg middleware.RateLimitConfig) router.Router[*router.Context] {
	t.Helper()
	r := router.New[*router.Context]()
	r.Use(middleware.RateLimit[*router.Context](cfg))
	r.Get("/", func(ctx *router.Context) handler.Response {
		return response.String("ok")
	})
	return r
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	t.Run("allows within budget and rejects beyond", func(t *testing.T) {
		t.Parallel()

		r := rateLimitedRouter(t, middleware.RateLimitConfig{Limiter: newTestLimiter(t, 2)})

		for range 2 {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		}

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Contains(t, rec.Body.String(), "retry_after")
	})

	t.Run("sets rate limit headers when enabled", func(t *testing.T) {
		t.Parallel()

		r := rateLimitedRouter(t, middleware.RateLimitConfig{
			Limiter:    newTestLimiter(t, 2),
			SetHeaders: true,
		})

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))

		// Exhaust and check Retry-After on the denial.
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	})

	t.Run("separate keys get separate budgets", func(t *testing.T) {
		t.Parallel()

		r := rateLimitedRouter(t, middleware.RateLimitConfig{
			Limiter: newTestLimiter(t, 1),
			KeyExtractor: func(ctx handler.Context) string {
				return ctx.Request().Header.Get("X-API-Key")
			},
		})

		send := func(key string) int {
			req := httptest.NewRequest("GET", "/", nil)
			req.Header.Set("X-API-Key", key)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			return rec.Code
		}

		assert.Equal(t, http.StatusOK, send("alpha"))
		assert.Equal(t, http.StatusTooManyRequests, send("alpha"))
		assert.Equal(t, http.StatusOK, send("beta"))
	})

	t.Run("panics without a limiter", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() {
			middleware.RateLimit[*router.Context](middleware.RateLimitConfig{})
		})
	})
}
