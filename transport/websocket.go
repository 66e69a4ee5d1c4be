package transport

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/bryangrimes/node-cubelets/logging"
)

// WebSocket is a transport to a bridge that carries the byte stream in
// binary WebSocket messages.
type WebSocket struct {
	*stream
}

// NewWebSocket returns a disconnected transport for url ("ws://host/path").
func NewWebSocket(url string, log logging.Logger) *WebSocket {
	dial := func(ctx context.Context) (conn, error) {
		c, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			return nil, err
		}
		return &wsConn{c: c}, nil
	}
	return &WebSocket{stream: newStream("websocket", dial, log)}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) read() ([]byte, error) {
	for {
		kind, data, err := w.c.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind == websocket.BinaryMessage || kind == websocket.TextMessage {
			return data, nil
		}
	}
}

func (w *wsConn) write(p []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteMessage(websocket.BinaryMessage, p)
}

func (w *wsConn) Close() error { return w.c.Close() }
