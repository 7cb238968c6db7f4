package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/quiverhttp/quiver/core/handler"
)

// clientIPContextKey is used as a key for storing the client IP in request context.
type clientIPContextKey struct{}

// ClientIPConfig configures the client IP resolution middleware.
type ClientIPConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(ctx handler.Context) bool
	// TrustProxyHeaders enables X-Forwarded-For and X-Real-IP resolution.
	// Only enable behind a proxy you control; the headers are trivially
	// spoofable from the open internet.
	TrustProxyHeaders bool
}

// ClientIP creates a middleware that resolves the client's IP address from
// the connection's remote address only.
func ClientIP[C handler.Context]() handler.Middleware[C] {
	return ClientIPWithConfig[C](ClientIPConfig{})
}

// ClientIPWithConfig creates a client IP middleware with custom
// configuration. The resolved IP is stored in the request context for rate
// limiting and logging.
func ClientIPWithConfig[C handler.Context](cfg ClientIPConfig) handler.Middleware[C] {
	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			ctx.SetValue(clientIPContextKey{}, resolveClientIP(ctx.Request(), cfg.TrustProxyHeaders))
			return next(ctx)
		}
	}
}

// GetClientIP retrieves the resolved client IP from the request context.
func GetClientIP(ctx handler.Context) (string, bool) {
	ip, ok := ctx.Value(clientIPContextKey{}).(string)
	return ip, ok && ip != ""
}

// resolveClientIP picks the client address, preferring proxy headers when
// trusted. The first address in X-Forwarded-For is the originating client.
func resolveClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip.String()
			}
		}
		if xrip := strings.TrimSpace(r.Header.Get("X-Real-IP")); xrip != "" {
			if ip := net.ParseIP(xrip); ip != nil {
				return ip.String()
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
