package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/fasthttp/websocket"
)

// Conn is the subset of a websocket connection the channel drives.
// *websocket.Conn from fasthttp/websocket satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	SetReadLimit(limit int64)
	Close() error
}

// Dialer opens one connection. Dial must give up when ctx is done.
type Dialer interface {
	Dial(ctx context.Context, endpoint string) (Conn, error)
}

// WSDialer dials real websocket endpoints.
type WSDialer struct {
	dialer *websocket.Dialer
	header http.Header
}

func NewDialer(handshakeTimeout time.Duration) *WSDialer {
	return &WSDialer{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		header: http.Header{},
	}
}

// WithHeader adds a header sent with every handshake.
func (d *WSDialer) WithHeader(key, value string) *WSDialer {
	d.header.Set(key, value)
	return d
}

func (d *WSDialer) Dial(ctx context.Context, endpoint string) (Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, endpoint, d.header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}
