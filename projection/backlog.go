// Package projection builds read-side views from the authoritative
// conversation logs. It never mutates state or emits events of its own.
package projection

import (
	"dm-core/domain"
	"dm-core/domain/event"
)

// ConversationSource is the slice of the directory the projection needs.
type ConversationSource interface {
	InvolvedIn(identity domain.UserID) []*domain.Conversation
}

// Backlog assembles the announce-time snapshot for one identity: every
// conversation it participates in, with the full ordered log. Delivery
// status in the snapshot is whatever the log holds: an offline recipient
// finds messages still at sent, exactly as the lifecycle left them.
func Backlog(source ConversationSource, identity domain.UserID) event.BacklogSynced {
	conversations := make(map[domain.ConversationID][]domain.Message)
	for _, conv := range source.InvolvedIn(identity) {
		conversations[conv.ID()] = conv.History()
	}
	return event.BacklogSynced{Conversations: conversations}
}
