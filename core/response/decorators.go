package response

import (
	"fmt"
	"net/http"
	"time"

	"github.com/quiverhttp/quiver/core/handler"
)

// WithHeaders wraps a response with custom HTTP headers.
// Headers are set before the wrapped response is rendered.
func WithHeaders(response handler.Response, headers map[string]string) handler.Response {
	if response == nil {
		return nil
	}
	if len(headers) == 0 {
		return response
	}
	return func(w http.ResponseWriter, r *http.Request) error {
		for k, v := range headers {
			w.Header().Set(k, v)
		}
		return response(w, r)
	}
}

// WithCookie wraps a response with a Set-Cookie directive.
// The cookie header is written before the wrapped response is rendered.
func WithCookie(response handler.Response, cookie *http.Cookie) handler.Response {
	if response == nil || cookie == nil {
		return response
	}
	return func(w http.ResponseWriter, r *http.Request) error {
		http.SetCookie(w, cookie)
		return response(w, r)
	}
}

// WithCookies wraps a response with multiple Set-Cookie directives,
// written in the given order.
func WithCookies(response handler.Response, cookies ...*http.Cookie) handler.Response {
	if response == nil || len(cookies) == 0 {
		return response
	}
	return func(w http.ResponseWriter, r *http.Request) error {
		for _, c := range cookies {
			if c != nil {
				http.SetCookie(w, c)
			}
		}
		return response(w, r)
	}
}

// WithCache wraps a response with cache control headers.
// A positive maxAge enables browser and proxy caching; anything else
// disables caching entirely.
func WithCache(response handler.Response, maxAge time.Duration) handler.Response {
	if response == nil {
		return nil
	}
	return func(w http.ResponseWriter, r *http.Request) error {
		if maxAge > 0 {
			w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(maxAge.Seconds())))
			w.Header().Set("Expires", time.Now().Add(maxAge).Format(http.TimeFormat))
		} else {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
			w.Header().Set("Pragma", "no-cache")
			w.Header().Set("Expires", "0")
		}
		return response(w, r)
	}
}
