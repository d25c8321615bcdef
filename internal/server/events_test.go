package server

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	ev, err := NewEvent(EventUserStatus, UserStatusPayload{UserId: "u1", Status: "online"})

	require.NoError(t, err)
	assert.Equal(t, EventUserStatus, ev.Type)
	assert.False(t, ev.Timestamp.IsZero())

	var p UserStatusPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &p))
	assert.Equal(t, UserStatusPayload{UserId: "u1", Status: "online"}, p)
}

func TestNewEventUnmarshalablePayload(t *testing.T) {
	_, err := NewEvent(EventUserStatus, func() {})
	assert.Error(t, err)
}

func TestEventRoundTrip(t *testing.T) {
	ev, err := NewEvent(EventSendMessage, SendMessagePayload{ConversationId: "conv-1", Content: "hello"})
	require.NoError(t, err)

	raw, err := serializeEvent(ev)
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, ev.Type, decoded.Type)

	var p SendMessagePayload
	require.NoError(t, json.Unmarshal(decoded.Payload, &p))
	assert.Equal(t, "conv-1", p.ConversationId)
	assert.Equal(t, "hello", p.Content)
}

func TestErrInvalidEvent(t *testing.T) {
	ev := ErrInvalidEvent()
	assert.Equal(t, EventMessageError, ev.Type)

	var p ErrorPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &p))
	assert.Equal(t, http.StatusBadRequest, p.Code)
	assert.Equal(t, "invalid event format", p.Message)
}

func TestEngineErrorMapping(t *testing.T) {
	tcases := []struct {
		name string
		err  error
		code int
	}{
		{name: "validation", err: ErrValidation, code: http.StatusBadRequest},
		{name: "message not found", err: ErrMessageNotFound, code: http.StatusNotFound},
		{name: "conversation not found", err: ErrConversationNotFound, code: http.StatusNotFound},
		{name: "not sender", err: ErrNotSender, code: http.StatusForbidden},
		{name: "not participant", err: ErrNotParticipant, code: http.StatusForbidden},
		{name: "storage failure", err: assert.AnError, code: http.StatusInternalServerError},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			ev := engineError(tc.err)
			assert.Equal(t, EventMessageError, ev.Type)

			var p ErrorPayload
			require.NoError(t, json.Unmarshal(ev.Payload, &p))
			assert.Equal(t, tc.code, p.Code)
		})
	}
}

func TestNow(t *testing.T) {
	now := Now()
	assert.Equal(t, time.UTC, now.Location())
	assert.Equal(t, now, now.Round(time.Millisecond))
}
