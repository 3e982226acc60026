package stream

import (
	"context"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vibecheck/vibegraph/config"
	"github.com/vibecheck/vibegraph/errors"
)

// wsConn adapts *websocket.Conn to the Conn interface
type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) WriteJSON(v interface{}) error { return c.conn.WriteJSON(v) }
func (c *wsConn) Close() error                  { return c.conn.Close() }

// WebsocketDialer dials the backend's per-analysis push channel
type WebsocketDialer struct {
	baseURL string
	dialer  *websocket.Dialer
}

// NewWebsocketDialer creates a dialer for the configured websocket base
// URL, e.g. "ws://localhost:8000/ws".
func NewWebsocketDialer(cfg config.ServerConfig, transport config.TransportConfig) *WebsocketDialer {
	handshake := time.Duration(transport.HandshakeTimeoutSec) * time.Second
	if handshake <= 0 {
		handshake = 10 * time.Second
	}
	return &WebsocketDialer{
		baseURL: strings.TrimRight(cfg.WSBaseURL, "/"),
		dialer:  &websocket.Dialer{HandshakeTimeout: handshake},
	}
}

// Dial implements Dialer
func (d *WebsocketDialer) Dial(ctx context.Context, analysisID string) (Conn, error) {
	url := d.baseURL + "/analysis/" + analysisID
	conn, _, err := d.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", url)
	}
	return &wsConn{conn: conn}, nil
}
