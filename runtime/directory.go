package runtime

import (
	"fmt"
	"sync"

	"dm-core/domain"
	"dm-core/errors"
)

// Directory owns the mapping from conversation id to its Conversation.
// The map has its own lock; each Conversation carries its own mutex, so two
// conversations never contend with each other.
type Directory struct {
	mu            sync.RWMutex
	conversations map[domain.ConversationID]*domain.Conversation
}

func NewDirectory() *Directory {
	return &Directory{conversations: make(map[domain.ConversationID]*domain.Conversation)}
}

// GetOrCreate returns the conversation for id, creating it lazily with the
// given participant pair. An existing conversation whose stored participants
// differ from the requested pair is a consistency violation and fails
// explicitly instead of silently overwriting.
func (d *Directory) GetOrCreate(id domain.ConversationID, a, b domain.UserID) (*domain.Conversation, error) {
	d.mu.RLock()
	conv, ok := d.conversations[id]
	d.mu.RUnlock()
	if ok {
		return checkParticipants(conv, a, b)
	}

	created, err := domain.NewConversation(id, a, b)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if conv, ok := d.conversations[id]; ok {
		// Lost the creation race; validate against the winner.
		return checkParticipants(conv, a, b)
	}
	d.conversations[id] = created
	return created, nil
}

func checkParticipants(conv *domain.Conversation, a, b domain.UserID) (*domain.Conversation, error) {
	if !conv.HasParticipant(a) || !conv.HasParticipant(b) || a == b {
		return nil, fmt.Errorf("conversation %q participants %v, requested %q/%q: %w",
			conv.ID(), conv.Participants(), a, b, errors.ErrParticipantMismatch)
	}
	return conv, nil
}

// Get returns an existing conversation.
func (d *Directory) Get(id domain.ConversationID) (*domain.Conversation, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	conv, ok := d.conversations[id]
	if !ok {
		return nil, fmt.Errorf("conversation %q: %w", id, errors.ErrUnknownConversation)
	}
	return conv, nil
}

// History returns the full ordered log of a conversation. Pure read.
func (d *Directory) History(id domain.ConversationID) ([]domain.Message, error) {
	conv, err := d.Get(id)
	if err != nil {
		return nil, err
	}
	return conv.History(), nil
}

// InvolvedIn lists every conversation one identity participates in.
func (d *Directory) InvolvedIn(identity domain.UserID) []*domain.Conversation {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*domain.Conversation
	for _, conv := range d.conversations {
		if conv.HasParticipant(identity) {
			out = append(out, conv)
		}
	}
	return out
}

// Warm restores conversations from a persistence snapshot at boot. Malformed
// entries are skipped and reported; a partial warm start is acceptable since
// the store is best-effort by contract.
func (d *Directory) Warm(snapshot map[domain.ConversationID][]domain.Message) (skipped int) {
	for id, messages := range snapshot {
		for _, msg := range messages {
			peer, err := domain.PeerFromConversationID(id, msg.SenderID)
			if err != nil {
				skipped++
				continue
			}
			conv, err := d.GetOrCreate(id, msg.SenderID, peer)
			if err != nil {
				skipped++
				continue
			}
			conv.Restore(msg)
		}
	}
	return skipped
}
