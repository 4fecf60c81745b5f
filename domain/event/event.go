// Package event defines the outbound domain events pushed to live
// connections and to the permanent sinks (persistence, metrics).
package event

import (
	"dm-core/domain"
)

// Wire names of the outbound events. They double as the websocket
// envelope types.
const (
	NameNewMessage    = "new-message"
	NameStatusUpdated = "message-status-updated"
	NameTyping        = "user-typing"
	NameUsersOnline   = "users-online"
	NameHistory       = "message-history"
	NameConversations = "conversations"
)

type DomainEvent interface {
	EventName() string
}

// MessagePosted announces a freshly appended message to every connection
// joined to its conversation.
type MessagePosted struct {
	Conversation domain.ConversationID
	Message      domain.Message
}

func (MessagePosted) EventName() string { return NameNewMessage }

// StatusUpdated reports one actual delivery-status transition. Sender is the
// author of the message, i.e. the party interested in the receipt.
type StatusUpdated struct {
	Conversation domain.ConversationID
	MessageID    domain.MessageID
	Status       domain.DeliveryStatus
	Sender       domain.UserID
}

func (StatusUpdated) EventName() string { return NameStatusUpdated }

// TypingSignaled is transient: it is relayed to the peer and never stored.
// Expiry of the indicator is the UI collaborator's contract.
type TypingSignaled struct {
	Conversation domain.ConversationID
	From         domain.UserID
	IsTyping     bool
}

func (TypingSignaled) EventName() string { return NameTyping }

// PresenceChanged carries the full current online set. Sent to everyone on
// each presence transition and to a new connection as its initial snapshot.
type PresenceChanged struct {
	Online []domain.UserID
}

func (PresenceChanged) EventName() string { return NameUsersOnline }

// HistorySynced pushes the full ordered log of one conversation to a single
// connection, after an explicit join.
type HistorySynced struct {
	Conversation domain.ConversationID
	Messages     []domain.Message
}

func (HistorySynced) EventName() string { return NameHistory }

// BacklogSynced is the announce-time snapshot: every conversation involving
// the identity, with its log. Offline recipients catch up on sent messages
// through this, never through timer-driven retries.
type BacklogSynced struct {
	Conversations map[domain.ConversationID][]domain.Message
}

func (BacklogSynced) EventName() string { return NameConversations }
