// Package middleware provides HTTP middleware components for common
// cross-cutting concerns: request identification, client IP resolution,
// structured request logging, rate limiting, body size limits, CORS,
// security headers, gzip compression, and Prometheus metrics.
//
// All middleware follows the same wrapper pattern around
// handler.HandlerFunc and is registered with Router.Use before routes are
// defined. Middleware registered on a router runs for every matched route,
// in registration order, with the first registered middleware outermost.
//
// # Conventions
//
// Each middleware comes in two forms:
//   - A default constructor for the common case: middleware.RequestID[*MyContext]()
//   - A WithConfig constructor for customization, taking a Config struct
//     with an optional Skip function to bypass the middleware per request
//
// Middleware that extracts data stores it in the request context and
// exposes a typed getter:
//
//	r.Use(middleware.RequestID[*router.Context]())
//	r.Use(middleware.ClientIP[*router.Context]())
//
//	r.Get("/whoami", func(ctx *router.Context) handler.Response {
//		id, _ := middleware.GetRequestID(ctx)
//		ip, _ := middleware.GetClientIP(ctx)
//		return response.JSON(map[string]string{"request_id": id, "ip": ip})
//	})
//
// # Ordering
//
// A typical stack, outermost first:
//
//	r.Use(middleware.RequestID[*router.Context]())
//	r.Use(middleware.ClientIP[*router.Context]())
//	r.Use(middleware.Logging[*router.Context]())
//	r.Use(middleware.Metrics[*router.Context]())
//	r.Use(middleware.SecurityHeaders[*router.Context]())
//	r.Use(middleware.CORS[*router.Context]())
//	r.Use(middleware.BodyLimit[*router.Context]())
//	r.Use(middleware.RateLimit[*router.Context](middleware.RateLimitConfig{
//		Limiter:    limiter,
//		SetHeaders: true,
//	}))
//
// RequestID and ClientIP run early so that logging, rate limiting, and
// error envelopes downstream can use their context values.
package middleware
