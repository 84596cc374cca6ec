package parley

import (
	"context"

	"github.com/parleychat/parley-sdk-go/parley/internal"
)

// Transport is a single-use bidirectional socket. The client creates one
// transport per connection attempt and never reuses it after Close. The
// abstraction exists so the connection logic can be exercised against a fake
// without a network socket.
type Transport interface {
	// Dial opens the socket. Called at most once per Transport.
	Dial(ctx context.Context, url string) error

	// Read blocks until the next frame arrives or the socket fails.
	Read(ctx context.Context) ([]byte, error)

	// Write sends one frame.
	Write(ctx context.Context, p []byte) error

	// Close tears the socket down. Safe to call more than once.
	Close(reason string) error
}

// TransportFactory builds the transport for one connection attempt.
type TransportFactory func(cfg Config) Transport

func defaultTransportFactory(cfg Config) Transport {
	return internal.NewConn(cfg.HandshakeTimeout, cfg.ReadTimeout, cfg.WriteTimeout)
}
