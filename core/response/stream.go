package response

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/quiverhttp/quiver/core/handler"
)

// Stream creates a streaming response that gives direct access to the
// response writer. The writer function should write data in chunks; the
// response is flushed after it completes. Writes may block on slow clients,
// which is a legitimate suspension point for the request.
func Stream(writer func(w io.Writer) error) handler.Response {
	return func(w http.ResponseWriter, r *http.Request) error {
		flusher, ok := w.(http.Flusher)
		if !ok {
			return ErrInternalServerError.WithMessage("streaming unsupported by connection")
		}

		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)

		if err := writer(w); err != nil {
			// Headers are already on the wire; the error is surfaced to the
			// framework for logging only.
			return err
		}

		flusher.Flush()
		return nil
	}
}

// StreamJSON creates a newline-delimited JSON streaming response from a
// channel of items. Streaming stops when the channel closes or the request
// context is cancelled.
func StreamJSON(items <-chan any, onError func(context.Context, error)) handler.Response {
	return func(w http.ResponseWriter, r *http.Request) error {
		flusher, ok := w.(http.Flusher)
		if !ok {
			return ErrInternalServerError.WithMessage("streaming unsupported by connection")
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)

		enc := json.NewEncoder(w)
		for {
			select {
			case <-r.Context().Done():
				return nil
			case item, open := <-items:
				if !open {
					return nil
				}
				if err := enc.Encode(item); err != nil {
					if onError != nil {
						onError(r.Context(), fmt.Errorf("stream encode: %w", err))
					}
					return nil
				}
				flusher.Flush()
			}
		}
	}
}
