package parley

import "github.com/goccy/go-json"

const (
	ProtocolVersion = 1

	// client -> server frame types
	frameHello = "hello"
	frameJoin  = "join"
	frameLeave = "leave"
	frameMsg   = "msg"

	// control frame types, both directions
	framePing = "ping"
	framePong = "pong"

	// server -> client frame types
	frameEvent = "event"
	frameError = "error"

	eventMessage    = "message"
	eventUserJoined = "user_joined"
	eventUserLeft   = "user_left"
	eventHistory    = "history"
)

// Envelope is the wire frame exchanged in both directions. Every frame
// carries a type discriminator; outbound frames additionally get a unique id
// and an RFC 3339 timestamp for traceability.
type Envelope struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Event     string          `json:"event,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     *Error          `json:"error,omitempty"`
}

// HelloPayload initiates the session.
type HelloPayload struct {
	Protocol int    `json:"protocol,omitempty"`
	User     string `json:"user,omitempty"`
}

// JoinPayload subscribes to a conversation.
type JoinPayload struct {
	Conversation string `json:"conversation"`
}

// MsgPayload sends a message to a conversation.
type MsgPayload struct {
	Conversation string `json:"conversation"`
	Text         string `json:"text"`
}

// Error describes a protocol error.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Code + ": " + e.Msg
}

// UnmarshalData decodes RawMessage into target.
func UnmarshalData(data json.RawMessage, v any) error {
	return json.Unmarshal(data, v)
}
