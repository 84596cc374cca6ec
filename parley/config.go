package parley

import "time"

// Config controls how the SDK connects.
type Config struct {
	// URL is the WebSocket endpoint of the chat relay, e.g. "wss://host/ws".
	URL string

	// SessionID identifies the chat session. Sent as the session_id query
	// parameter; immutable for the lifetime of a Client.
	SessionID string

	// User is an optional display name announced in the hello frame.
	User string

	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration

	// HeartbeatInterval is the period between client pings. Set to 0 to
	// disable heartbeats.
	HeartbeatInterval time.Duration

	// AutoReconnect enables automatic reconnection after an unexpected
	// transport loss.
	AutoReconnect bool

	// ReconnectBaseDelay is the backoff before the first retry; each
	// subsequent retry doubles it up to MaxReconnectDelay.
	ReconnectBaseDelay time.Duration
	MaxReconnectDelay  time.Duration

	// MaxReconnectTries bounds consecutive automatic reconnection attempts.
	// Once spent the client enters StateFailed and stays there until an
	// explicit Connect.
	MaxReconnectTries int

	// ReconnectJitter is the maximum fraction of the backoff delay added as
	// random jitter.
	ReconnectJitter float64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout:   10 * time.Second,
		ReadTimeout:        75 * time.Second,
		WriteTimeout:       10 * time.Second,
		HeartbeatInterval:  30 * time.Second,
		AutoReconnect:      true,
		ReconnectBaseDelay: time.Second,
		MaxReconnectDelay:  30 * time.Second,
		MaxReconnectTries:  5,
		ReconnectJitter:    0.2,
	}
}

func (c Config) validate() error {
	if c.URL == "" {
		return NewError(ErrorInvalidConfig, "empty URL")
	}
	if c.SessionID == "" {
		return NewError(ErrorInvalidConfig, "empty session id")
	}
	return nil
}
