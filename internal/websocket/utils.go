package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds a single frame write so a stalled client cannot
	// block the phase ticker goroutine behind it.
	writeWait = 10 * time.Second
	// idleWait is how long a connected exam screen may stay silent. The
	// client pings well inside this during breaks.
	idleWait = 5 * time.Minute
)

// WriteTyped sends a strongly-typed event payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func WriteError(conn *websocket.Conn, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}

// ReadJSON reads and decodes the next client action, renewing the idle
// deadline.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetReadDeadline(time.Now().Add(idleWait))
	return conn.ReadJSON(v)
}
