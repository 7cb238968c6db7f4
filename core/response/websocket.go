package response

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quiverhttp/quiver/core/handler"
)

// WebSocketConfig controls the upgrade parameters for WebSocket responses.
type WebSocketConfig struct {
	// ReadBufferSize and WriteBufferSize configure the connection buffers.
	// Zero values fall back to the gorilla defaults.
	ReadBufferSize  int
	WriteBufferSize int

	// HandshakeTimeout bounds the duration of the upgrade handshake.
	HandshakeTimeout time.Duration

	// CheckOrigin validates the request origin. When nil, same-origin
	// requests are accepted, matching the gorilla default.
	CheckOrigin func(r *http.Request) bool

	// Subprotocols lists the supported subprotocols in preference order.
	Subprotocols []string
}

// WebSocket creates a response that upgrades the connection and hands it to
// fn. Requests that are not WebSocket upgrade requests are rejected with
// upgrade_required before any handshake is attempted. Once the upgrade
// succeeds the HTTP response is owned by the connection; fn is responsible
// for closing it.
func WebSocket(fn func(conn *websocket.Conn, r *http.Request) error) handler.Response {
	return WebSocketWithConfig(fn, WebSocketConfig{})
}

// WebSocketWithConfig is WebSocket with explicit upgrade parameters.
func WebSocketWithConfig(fn func(conn *websocket.Conn, r *http.Request) error, cfg WebSocketConfig) handler.Response {
	upgrader := websocket.Upgrader{
		ReadBufferSize:   cfg.ReadBufferSize,
		WriteBufferSize:  cfg.WriteBufferSize,
		HandshakeTimeout: cfg.HandshakeTimeout,
		CheckOrigin:      cfg.CheckOrigin,
		Subprotocols:     cfg.Subprotocols,
	}
	return func(w http.ResponseWriter, r *http.Request) error {
		if !websocket.IsWebSocketUpgrade(r) {
			return ErrUpgradeRequired.WithMessage("websocket upgrade required")
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the failure response.
			return nil
		}
		defer conn.Close()

		return fn(conn, r)
	}
}
