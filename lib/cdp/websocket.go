package cdp

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket is the default websocket client, a thin wrapper around
// gorilla/websocket that only speaks text messages.
type WebSocket struct {
	// WriteBufferSize for the dialer, screenshots can be large
	WriteBufferSize int

	// HandshakeTimeout bounds the dial. The ctx passed to Connect is the
	// connection's lifetime, not a dial deadline, so a hung endpoint needs
	// its own bound.
	HandshakeTimeout time.Duration

	conn *websocket.Conn
}

// Connect interface
func (ws *WebSocket) Connect(ctx context.Context, url string, header http.Header) error {
	if ws.WriteBufferSize == 0 {
		ws.WriteBufferSize = 1 * 1024 * 1024
	}
	if ws.HandshakeTimeout == 0 {
		ws.HandshakeTimeout = 30 * time.Second
	}

	dialer := *websocket.DefaultDialer
	dialer.WriteBufferSize = ws.WriteBufferSize
	dialer.HandshakeTimeout = ws.HandshakeTimeout

	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	ws.conn = conn
	return nil
}

// Send a message
func (ws *WebSocket) Send(data []byte) error {
	return ws.conn.WriteMessage(websocket.TextMessage, data)
}

// Read a message
func (ws *WebSocket) Read() (data []byte, err error) {
	msgType := -1
	for msgType != websocket.TextMessage && err == nil {
		msgType, data, err = ws.conn.ReadMessage()
	}
	return
}
