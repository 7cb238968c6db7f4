package response

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/quiverhttp/quiver/core/handler"
)

// SSEEvent is a single server-sent event. Zero-value fields are omitted from
// the wire format. Multi-line Data is split into one data: line per line, as
// the protocol requires.
type SSEEvent struct {
	ID    string
	Event string
	Data  string
	Retry int // reconnection delay in milliseconds
}

// SSE creates a server-sent events response from a channel of events.
// Each event is flushed as soon as it is written; streaming stops when the
// channel closes or the client disconnects.
func SSE(events <-chan SSEEvent) handler.Response {
	return func(w http.ResponseWriter, r *http.Request) error {
		flusher, ok := w.(http.Flusher)
		if !ok {
			return ErrInternalServerError.WithMessage("streaming unsupported by connection")
		}

		h := w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return nil
			case event, open := <-events:
				if !open {
					return nil
				}
				if _, err := w.Write(formatSSEEvent(event)); err != nil {
					// Client went away mid-stream; nothing left to deliver.
					return nil
				}
				flusher.Flush()
			}
		}
	}
}

func formatSSEEvent(event SSEEvent) []byte {
	var b strings.Builder
	if event.ID != "" {
		fmt.Fprintf(&b, "id: %s\n", event.ID)
	}
	if event.Event != "" {
		fmt.Fprintf(&b, "event: %s\n", event.Event)
	}
	if event.Retry > 0 {
		fmt.Fprintf(&b, "retry: %d\n", event.Retry)
	}
	for _, line := range strings.Split(event.Data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")
	return []byte(b.String())
}
