package internal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// Conn is the production WebSocket transport, wrapping coder/websocket with
// per-call timeouts.
type Conn struct {
	handshakeTimeout time.Duration
	readTimeout      time.Duration
	writeTimeout     time.Duration

	mu sync.Mutex
	ws *websocket.Conn
}

func NewConn(handshakeTimeout, readTimeout, writeTimeout time.Duration) *Conn {
	return &Conn{
		handshakeTimeout: handshakeTimeout,
		readTimeout:      readTimeout,
		writeTimeout:     writeTimeout,
	}
}

func (c *Conn) Dial(ctx context.Context, url string) error {
	if c.handshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.handshakeTimeout)
		defer cancel()
	}
	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.ws = ws
	c.mu.Unlock()
	return nil
}

func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	ws := c.conn()
	if ws == nil {
		return nil, errors.New("connection is not open")
	}
	if c.readTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.readTimeout)
		defer cancel()
	}
	_, data, err := ws.Read(ctx)
	return data, err
}

func (c *Conn) Write(ctx context.Context, p []byte) error {
	ws := c.conn()
	if ws == nil {
		return errors.New("connection is not open")
	}
	if c.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.writeTimeout)
		defer cancel()
	}
	return ws.Write(ctx, websocket.MessageText, p)
}

func (c *Conn) Close(reason string) error {
	c.mu.Lock()
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()
	if ws == nil {
		return nil
	}
	return ws.Close(websocket.StatusNormalClosure, reason)
}

func (c *Conn) conn() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws
}
