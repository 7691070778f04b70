// Package transport defines the message-framing abstraction over a live socket
// connection between hostbridge and its backend.
// This file adapts a gorilla/websocket connection to the Conn interface and
// dials the backend hub.
package transport

// file: internal/transport/websocket.go

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
)

// wsConn adapts *websocket.Conn to the Conn interface. gorilla permits one
// concurrent reader and one concurrent writer; the write lock enforces the
// writer side.
type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// NewWebSocketConn wraps an established websocket connection.
func NewWebSocketConn(conn *websocket.Conn) Conn {
	return &wsConn{conn: conn}
}

// ReadMessage implements Conn.
func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return data, nil
}

// WriteMessage implements Conn.
func (c *wsConn) WriteMessage(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close implements Conn.
func (c *wsConn) Close() error {
	return c.conn.Close()
}

// BackendURL builds the websocket URL for the backend hub from a configured
// base URL and the caller-supplied client identifier appended to the path.
func BackendURL(baseURL, clientID string) (string, error) {
	if baseURL == "" {
		return "", errors.New("backend base URL is empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", errors.Wrapf(err, "invalid backend base URL: %s", baseURL)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", errors.Newf("unsupported backend URL scheme: %s", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/" + url.PathEscape(clientID)
	return u.String(), nil
}

// Dial connects to the backend hub and returns a Conn over the resulting
// socket. The context bounds the handshake.
func Dial(ctx context.Context, baseURL, clientID string) (Conn, error) {
	target, err := BackendURL(baseURL, clientID)
	if err != nil {
		return nil, err
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial backend: %s", target)
	}
	return NewWebSocketConn(conn), nil
}
