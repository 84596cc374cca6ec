package parley

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// codec serializes outbound envelopes and parses inbound frames.
// now and newID are overridable in tests.
type codec struct {
	now   func() time.Time
	newID func() string
}

func newCodec() codec {
	return codec{
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Encode builds an envelope of the given type around payload, stamping it
// with a fresh id and timestamp, and returns the wire bytes.
func (c codec) Encode(frameType string, payload any) ([]byte, error) {
	env := Envelope{
		Type:      frameType,
		ID:        c.newID(),
		Timestamp: c.now().UTC().Format(time.RFC3339Nano),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, WrapError(ErrorSerialization, "marshal payload", err)
		}
		env.Data = data
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, WrapError(ErrorSerialization, "marshal envelope", err)
	}
	return raw, nil
}

// Decode parses an inbound frame. A frame that is not valid JSON or lacks
// the type discriminator is rejected; the caller logs and drops it.
func (c codec) Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, WrapError(ErrorSerialization, "unmarshal envelope", err)
	}
	if env.Type == "" {
		return Envelope{}, NewError(ErrorInvalidMessage, "frame missing type discriminator")
	}
	return env, nil
}
