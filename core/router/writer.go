package router

import (
	"net/http"
)

// responseWriter is a minimal wrapper around http.ResponseWriter that
// tracks whether a response has been written and how many body bytes went
// out. The written flag is what lets the dispatcher guarantee a client
// receives exactly one response even when a handler fails midway.
type responseWriter struct {
	http.ResponseWriter
	status  int
	bytes   int64
	written bool
}

// newResponseWriter creates a new response writer wrapper.
func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
	}
}

func (w *responseWriter) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
		w.ResponseWriter.WriteHeader(status)
	}
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

// Written returns true if WriteHeader has been called.
func (w *responseWriter) Written() bool {
	return w.written
}

// Status returns the HTTP status code, or 0 if none was written yet.
func (w *responseWriter) Status() int {
	return w.status
}

// BytesWritten returns the number of body bytes written so far.
func (w *responseWriter) BytesWritten() int64 {
	return w.bytes
}

// Flush implements http.Flusher if the underlying ResponseWriter supports it.
func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// ResponseStatus reports the status code written for this request and
// whether any response went out yet. It returns false when w is not the
// router's own writer.
func ResponseStatus(w http.ResponseWriter) (int, bool) {
	ww, ok := w.(*responseWriter)
	if !ok {
		return 0, false
	}
	return ww.Status(), ww.Written()
}

// BytesWritten reports the number of body bytes written for this request.
// It returns false when w is not the router's own writer.
func BytesWritten(w http.ResponseWriter) (int64, bool) {
	ww, ok := w.(*responseWriter)
	if !ok {
		return 0, false
	}
	return ww.BytesWritten(), true
}
