package parley

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecEncodeStampsFrames(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	c := codec{
		now:   func() time.Time { return now },
		newID: func() string { return "frame-1" },
	}

	raw, err := c.Encode(frameMsg, MsgPayload{Conversation: "general", Text: "hi"})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, frameMsg, env.Type)
	assert.Equal(t, "frame-1", env.ID)
	assert.Equal(t, "2026-03-14T09:26:53Z", env.Timestamp)

	var payload MsgPayload
	require.NoError(t, UnmarshalData(env.Data, &payload))
	assert.Equal(t, "general", payload.Conversation)
	assert.Equal(t, "hi", payload.Text)
}

func TestCodecEncodeNilPayload(t *testing.T) {
	c := newCodec()
	raw, err := c.Encode(framePing, nil)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, framePing, env.Type)
	assert.Empty(t, env.Data)
	assert.NotEmpty(t, env.ID)
}

func TestCodecDecode(t *testing.T) {
	c := newCodec()

	env, err := c.Decode([]byte(`{"type":"event","event":"message","data":{"text":"hi"}}`))
	require.NoError(t, err)
	assert.Equal(t, frameEvent, env.Type)
	assert.Equal(t, eventMessage, env.Event)
}

func TestCodecDecodeMalformed(t *testing.T) {
	c := newCodec()

	_, err := c.Decode([]byte("not json at all"))
	require.Error(t, err)
	assert.ErrorIs(t, err, &ParleyError{Code: ErrorSerialization})

	_, err = c.Decode([]byte(`{"data":{"text":"hi"}}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, &ParleyError{Code: ErrorInvalidMessage})
}
