package ws

import (
	"encoding/json"
	"testing"
	"time"

	"dm-core/domain"
	"dm-core/domain/event"

	"github.com/stretchr/testify/require"
)

func decodeFrame(t *testing.T, frame []byte) (string, map[string]any) {
	t.Helper()
	var envelope Envelope
	require.NoError(t, json.Unmarshal(frame, &envelope))
	var payload map[string]any
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	return envelope.Type, payload
}

func TestEncodeEvent_MessagePosted(t *testing.T) {
	req := require.New(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	frame, err := EncodeEvent(event.MessagePosted{
		Conversation: "alice_bob",
		Message: domain.Message{
			ID:           "00000001-a",
			Conversation: "alice_bob",
			SenderID:     "alice",
			Text:         "hello",
			CreatedAt:    at,
			Status:       domain.StatusSent,
		},
	})
	req.NoError(err)

	eventType, payload := decodeFrame(t, frame)
	req.Equal("new-message", eventType)
	req.Equal("alice_bob", payload["conversationId"])

	message := payload["message"].(map[string]any)
	req.Equal("alice", message["sender"])
	req.Equal("hello", message["text"])
	req.Equal("sent", message["status"])
}

func TestEncodeEvent_StatusUpdated(t *testing.T) {
	req := require.New(t)

	frame, err := EncodeEvent(event.StatusUpdated{
		Conversation: "alice_bob",
		MessageID:    "00000001-a",
		Status:       domain.StatusSeen,
		Sender:       "alice",
	})
	req.NoError(err)

	eventType, payload := decodeFrame(t, frame)
	req.Equal("message-status-updated", eventType)
	req.Equal("00000001-a", payload["messageId"])
	req.Equal("seen", payload["status"])
}

func TestEncodeEvent_PresenceChanged(t *testing.T) {
	req := require.New(t)

	frame, err := EncodeEvent(event.PresenceChanged{
		Online: []domain.UserID{"alice", "bob"},
	})
	req.NoError(err)

	eventType, payload := decodeFrame(t, frame)
	req.Equal("users-online", eventType)
	req.Equal([]any{"alice", "bob"}, payload["online"])
}

func TestEncodeEvent_BacklogSynced(t *testing.T) {
	req := require.New(t)

	frame, err := EncodeEvent(event.BacklogSynced{
		Conversations: map[domain.ConversationID][]domain.Message{
			"alice_bob": {{ID: "00000001-a", Conversation: "alice_bob",
				SenderID: "alice", Text: "pending", Status: domain.StatusSent}},
		},
	})
	req.NoError(err)

	eventType, payload := decodeFrame(t, frame)
	req.Equal("conversations", eventType)
	conversations := payload["conversations"].(map[string]any)
	req.Len(conversations["alice_bob"], 1)
}

func TestEncodeError(t *testing.T) {
	req := require.New(t)

	eventType, payload := decodeFrame(t, EncodeError("conversation \"x\" unknown"))

	req.Equal("error", eventType)
	req.Equal("conversation \"x\" unknown", payload["error"])
}
