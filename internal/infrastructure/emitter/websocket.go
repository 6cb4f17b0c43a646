package emitter

import (
	"encoding/json"

	"github.com/gorilla/websocket"
)

// WebSocketSink delivers events as JSON text messages of the shape
// {"event": <name>, "data": <payload>}, mirroring the SSE frames on
// a socket transport.
type WebSocketSink struct {
	conn *websocket.Conn
}

var _ Sink = (*WebSocketSink)(nil)

// NewWebSocketSink wraps an upgraded connection.
func NewWebSocketSink(conn *websocket.Conn) *WebSocketSink {
	return &WebSocketSink{conn: conn}
}

// WriteEvent sends one event message.
func (s *WebSocketSink) WriteEvent(event string, data []byte) error {
	return s.conn.WriteJSON(map[string]any{
		"event": event,
		"data":  json.RawMessage(data),
	})
}
