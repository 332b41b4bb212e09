package live

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is a single open message connection.
// ReadMessage is called from one goroutine; writes are serialized by the Channel.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteJSON(v any) error
	Close() error
}

// Dialer opens a Conn. Dial must return within a bounded time.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// DefaultHandshakeTimeout bounds how long a websocket open may take.
const DefaultHandshakeTimeout = 10 * time.Second

// WebSocketDialer dials a websocket endpoint.
type WebSocketDialer struct {
	URL              string
	Header           http.Header
	HandshakeTimeout time.Duration
}

// NewWebSocketDialer returns a dialer for url with the default handshake timeout.
func NewWebSocketDialer(url string) *WebSocketDialer {
	return &WebSocketDialer{URL: url, HandshakeTimeout: DefaultHandshakeTimeout}
}

func (d *WebSocketDialer) Dial(ctx context.Context) (Conn, error) {
	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = DefaultHandshakeTimeout
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}

	conn, resp, err := dialer.DialContext(ctx, d.URL, d.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", d.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", d.URL, err)
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) WriteJSON(v any) error {
	return c.conn.WriteJSON(v)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
