package stream

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocketDialer subscribes to a WebSocket endpoint. Each text or binary
// frame is one payload.
type WebSocketDialer struct {
	Dialer *websocket.Dialer
	Header http.Header
}

// NewWebSocketDialer returns a dialer using websocket.DefaultDialer.
func NewWebSocketDialer(header http.Header) *WebSocketDialer {
	return &WebSocketDialer{Dialer: websocket.DefaultDialer, Header: header}
}

func (d *WebSocketDialer) Dial(ctx context.Context, target string) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, target, d.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("stream: websocket connect: %w", err)
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
	once sync.Once
}

func (c *wsConn) Read(ctx context.Context) ([]byte, error) {
	for {
		kind, msg, err := c.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("stream: websocket read: %w", err)
		}
		switch kind {
		case websocket.TextMessage, websocket.BinaryMessage:
			return msg, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

func (c *wsConn) Close() error {
	var err error
	c.once.Do(func() { err = c.conn.Close() })
	return err
}
