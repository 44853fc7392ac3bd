package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// ReadWait is how long a connection may stay silent. Clients ping
	// well inside it.
	ReadWait = 5 * time.Minute
)

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteEvent sends event with data.
func WriteEvent(conn *websocket.Conn, event Event, data interface{}) error {
	return WriteTyped(conn, ResponsePayload{Event: event, Data: data})
}

// WriteError sends an error event. data, when not nil, carries a result
// the client still needs, such as a timeout report.
func WriteError(conn *websocket.Conn, code, message string, data interface{}) error {
	return WriteTyped(conn, ResponsePayload{
		Event: EventError,
		Data:  data,
		Error: &ErrorBody{Code: code, Message: message},
	})
}

// ReadJSON reads and decodes a message into the provided structure.
// It sets a read deadline.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetReadDeadline(time.Now().Add(ReadWait))
	return conn.ReadJSON(v)
}
