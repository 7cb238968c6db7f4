package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/quiverhttp/quiver/core/handler"
)

// CompressConfig configures the gzip compression middleware.
type CompressConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(ctx handler.Context) bool

	// Level is the gzip compression level (default: gzip.DefaultCompression)
	Level int

	// ContentTypes restricts compression to the listed media types.
	// If empty, common text-based types are compressed.
	ContentTypes []string
}

var defaultCompressTypes = []string{
	"text/html",
	"text/plain",
	"text/css",
	"text/javascript",
	"application/javascript",
	"application/json",
	"application/xml",
	"image/svg+xml",
}

// Compress creates a gzip compression middleware with default configuration.
// Responses are compressed when the client sends Accept-Encoding: gzip and
// the response Content-Type is a compressible text-based type.
func Compress[C handler.Context]() handler.Middleware[C] {
	return CompressWithConfig[C](CompressConfig{})
}

// CompressWithConfig creates a gzip compression middleware with custom
// configuration. Already-encoded responses and protocol upgrades are passed
// through untouched.
func CompressWithConfig[C handler.Context](cfg CompressConfig) handler.Middleware[C] {
	if cfg.Level == 0 {
		cfg.Level = gzip.DefaultCompression
	}
	if len(cfg.ContentTypes) == 0 {
		cfg.ContentTypes = defaultCompressTypes
	}

	types := make(map[string]bool, len(cfg.ContentTypes))
	for _, ct := range cfg.ContentTypes {
		types[ct] = true
	}

	pool := &sync.Pool{
		New: func() any {
			gw, _ := gzip.NewWriterLevel(io.Discard, cfg.Level)
			return gw
		},
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			req := ctx.Request()
			acceptsGzip := strings.Contains(req.Header.Get("Accept-Encoding"), "gzip")
			isUpgrade := req.Header.Get("Upgrade") != ""

			response := next(ctx)

			if !acceptsGzip || isUpgrade {
				return response
			}

			return func(w http.ResponseWriter, r *http.Request) error {
				cw := &compressWriter{ResponseWriter: w, pool: pool, types: types}
				defer cw.close()
				return response(cw, r)
			}
		}
	}
}

// compressWriter decides on first write whether the response is worth
// compressing, based on its Content-Type, and streams through a pooled
// gzip writer when it is.
type compressWriter struct {
	http.ResponseWriter
	pool    *sync.Pool
	types   map[string]bool
	gw      *gzip.Writer
	decided bool
}

func (w *compressWriter) decide() {
	if w.decided {
		return
	}
	w.decided = true

	h := w.Header()
	if h.Get("Content-Encoding") != "" {
		return
	}

	contentType, _, _ := strings.Cut(h.Get("Content-Type"), ";")
	if !w.types[strings.TrimSpace(contentType)] {
		return
	}

	h.Set("Content-Encoding", "gzip")
	h.Add("Vary", "Accept-Encoding")
	// Length of the compressed stream is unknown up front.
	h.Del("Content-Length")

	gw := w.pool.Get().(*gzip.Writer)
	gw.Reset(w.ResponseWriter)
	w.gw = gw
}

func (w *compressWriter) WriteHeader(status int) {
	w.decide()
	w.ResponseWriter.WriteHeader(status)
}

func (w *compressWriter) Write(b []byte) (int, error) {
	w.decide()
	if w.gw != nil {
		return w.gw.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

func (w *compressWriter) Flush() {
	if w.gw != nil {
		_ = w.gw.Flush()
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *compressWriter) close() {
	if w.gw == nil {
		return
	}
	_ = w.gw.Close()
	w.pool.Put(w.gw)
	w.gw = nil
}
