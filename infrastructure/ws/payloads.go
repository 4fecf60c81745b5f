package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"dm-core/domain"
	"dm-core/domain/event"

	"github.com/samber/lo"
)

// Inbound event names. Outbound names live in the event package since they
// double as event identities.
const (
	TypeAnnounce = "user-connected"
	TypeJoin     = "join-conversation"
	TypeSend     = "send-message"
	TypeSeen     = "message-seen"
	TypeTyping   = "typing"
	TypeError    = "error"
)

// Envelope is the wire frame in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AnnouncePayload carries either a signed identity token or, when the
// server runs in trusted mode, a raw identity.
type AnnouncePayload struct {
	Identity string `json:"identity,omitempty" validate:"required_without=Token"`
	Token    string `json:"token,omitempty"`
}

type JoinPayload struct {
	ConversationID string `json:"conversationId" validate:"required"`
}

type SendPayload struct {
	ConversationID  string     `json:"conversationId" validate:"required"`
	Text            string     `json:"text" validate:"required"`
	ClientTimestamp *time.Time `json:"clientTimestamp,omitempty"`
}

type SeenPayload struct {
	ConversationID string `json:"conversationId" validate:"required"`
	MessageID      string `json:"messageId" validate:"required"`
}

type TypingPayload struct {
	ConversationID string `json:"conversationId" validate:"required"`
	IsTyping       bool   `json:"isTyping"`
}

// MessageResponse is the outbound JSON shape of one message.
type MessageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Sender         string    `json:"sender"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"timestamp"`
	Status         string    `json:"status"`
}

func toMessageResponse(msg domain.Message) MessageResponse {
	return MessageResponse{
		ID:             string(msg.ID),
		ConversationID: string(msg.Conversation),
		Sender:         string(msg.SenderID),
		Text:           msg.Text,
		Timestamp:      msg.CreatedAt,
		Status:         msg.Status.String(),
	}
}

func toMessageResponses(messages []domain.Message) []MessageResponse {
	return lo.Map(messages, func(item domain.Message, _ int) MessageResponse {
		return toMessageResponse(item)
	})
}

// EncodeEvent turns a domain event into its outbound frame.
func EncodeEvent(e event.DomainEvent) ([]byte, error) {
	var payload any

	switch evt := e.(type) {
	case event.MessagePosted:
		payload = struct {
			ConversationID string          `json:"conversationId"`
			Message        MessageResponse `json:"message"`
		}{string(evt.Conversation), toMessageResponse(evt.Message)}
	case event.StatusUpdated:
		payload = struct {
			ConversationID string `json:"conversationId"`
			MessageID      string `json:"messageId"`
			Status         string `json:"status"`
		}{string(evt.Conversation), string(evt.MessageID), evt.Status.String()}
	case event.TypingSignaled:
		payload = struct {
			ConversationID string `json:"conversationId"`
			From           string `json:"from"`
			IsTyping       bool   `json:"isTyping"`
		}{string(evt.Conversation), string(evt.From), evt.IsTyping}
	case event.PresenceChanged:
		payload = struct {
			Online []domain.UserID `json:"online"`
		}{evt.Online}
	case event.HistorySynced:
		payload = struct {
			ConversationID string            `json:"conversationId"`
			Messages       []MessageResponse `json:"messages"`
		}{string(evt.Conversation), toMessageResponses(evt.Messages)}
	case event.BacklogSynced:
		conversations := make(map[string][]MessageResponse, len(evt.Conversations))
		for id, messages := range evt.Conversations {
			conversations[string(id)] = toMessageResponses(messages)
		}
		payload = struct {
			Conversations map[string][]MessageResponse `json:"conversations"`
		}{conversations}
	default:
		return nil, fmt.Errorf("no wire encoding for event %q", e.EventName())
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: e.EventName(), Payload: raw})
}

// EncodeError builds the rejection frame sent back to the initiating
// connection. The connection itself stays open.
func EncodeError(reason string) []byte {
	raw, _ := json.Marshal(struct {
		Error string `json:"error"`
	}{reason})
	frame, _ := json.Marshal(Envelope{Type: TypeError, Payload: raw})
	return frame
}
