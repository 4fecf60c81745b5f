package domain

import (
	"fmt"
	"sync"
	"time"

	"dm-core/errors"

	"github.com/google/uuid"
)

// Separator joins the two sorted participant identities into a
// conversation id. Both peers derive the same id without a lookup.
const Separator = "_"

type ConversationID string

// ResolveConversationID derives the canonical conversation id for an
// unordered pair of identities: sort lexicographically, join with the
// separator. ResolveConversationID(a, b) == ResolveConversationID(b, a).
func ResolveConversationID(a, b UserID) (ConversationID, error) {
	if a == b {
		return "", fmt.Errorf("conversation between %q and itself: %w", a, errors.ErrSamePeer)
	}
	if a > b {
		a, b = b, a
	}
	return ConversationID(string(a) + Separator + string(b)), nil
}

// PeerFromConversationID recovers the other participant of id, knowing that
// member is one of the two. The candidate decompositions are validated by
// re-deriving the id, so an identity that happens to contain the separator
// can never be mistaken for a member (no substring matching).
func PeerFromConversationID(id ConversationID, member UserID) (UserID, error) {
	s := string(id)
	m := string(member)
	var peers []UserID
	if rest, ok := cutPrefix(s, m+Separator); ok {
		if candidate := UserID(rest); validPeer(id, member, candidate) {
			peers = append(peers, candidate)
		}
	}
	if head, ok := cutSuffix(s, Separator+m); ok {
		if candidate := UserID(head); validPeer(id, member, candidate) && (len(peers) == 0 || peers[0] != candidate) {
			peers = append(peers, candidate)
		}
	}
	if len(peers) != 1 {
		return "", fmt.Errorf("cannot resolve peer of %q in %q: %w", member, id, errors.ErrUnknownConversation)
	}
	return peers[0], nil
}

func validPeer(id ConversationID, member, candidate UserID) bool {
	if candidate == "" || candidate == member {
		return false
	}
	derived, err := ResolveConversationID(member, candidate)
	return err == nil && derived == id
}

func cutPrefix(s, prefix string) (string, bool) {
	if len(s) > len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):], true
	}
	return "", false
}

func cutSuffix(s, suffix string) (string, bool) {
	if len(s) > len(suffix) && s[len(s)-len(suffix):] == suffix {
		return s[:len(s)-len(suffix)], true
	}
	return "", false
}

// Conversation is the ordered message channel between exactly two
// participants. The internal mutex makes append, participant checks and
// status transitions a single critical section, so two concurrent sends on
// the same conversation can never interleave id assignment or log order.
type Conversation struct {
	mu           sync.Mutex
	id           ConversationID
	participants [2]UserID
	nextSeq      uint64
	log          []Message
}

func NewConversation(id ConversationID, a, b UserID) (*Conversation, error) {
	derived, err := ResolveConversationID(a, b)
	if err != nil {
		return nil, err
	}
	if derived != id {
		return nil, fmt.Errorf("id %q does not match participants %q/%q: %w",
			id, a, b, errors.ErrParticipantMismatch)
	}
	if a > b {
		a, b = b, a
	}
	return &Conversation{id: id, participants: [2]UserID{a, b}, nextSeq: 1}, nil
}

func (c *Conversation) ID() ConversationID { return c.id }

// Participants returns the pair in sorted order.
func (c *Conversation) Participants() [2]UserID { return c.participants }

func (c *Conversation) HasParticipant(u UserID) bool {
	return u == c.participants[0] || u == c.participants[1]
}

// PeerOf returns the other participant.
func (c *Conversation) PeerOf(u UserID) (UserID, bool) {
	switch u {
	case c.participants[0]:
		return c.participants[1], true
	case c.participants[1]:
		return c.participants[0], true
	default:
		return "", false
	}
}

// Append validates the sender, assigns the message identity and appends to
// the log in state sent. The id combines a per-conversation monotonic
// sequence with a UUID: two sends racing at the same millisecond still get a
// stable observable order, and the sequence alone never collides across
// process restarts thanks to the UUID part.
//
// When publish is non-nil it is invoked with the appended message while the
// log lock is still held, so the order in which concurrent appends reach any
// observer matches the log order exactly. publish must not block and must
// not call back into the conversation.
func (c *Conversation) Append(sender UserID, text string, at time.Time, publish func(Message)) (Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.HasParticipant(sender) {
		return Message{}, fmt.Errorf("sender %q in conversation %q: %w",
			sender, c.id, errors.ErrNotAParticipant)
	}

	msg := Message{
		ID:           MessageID(fmt.Sprintf("%08d-%s", c.nextSeq, uuid.NewString())),
		Conversation: c.id,
		SenderID:     sender,
		Text:         text,
		CreatedAt:    at,
		Status:       StatusSent,
	}
	c.nextSeq++
	c.log = append(c.log, msg)
	if publish != nil {
		publish(msg)
	}
	return msg, nil
}

// Advance moves a message status forward. A transition to a lower or equal
// status is accepted as a no-op so idempotent retries never regress state.
// The changed flag reports whether an actual transition happened, which
// callers use to emit at most one notification per transition.
func (c *Conversation) Advance(id MessageID, to DeliveryStatus) (Message, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.log {
		if c.log[i].ID != id {
			continue
		}
		if c.log[i].Status >= to {
			return c.log[i], false, nil
		}
		c.log[i].Status = to
		return c.log[i], true, nil
	}
	return Message{}, false, fmt.Errorf("message %q in conversation %q: %w",
		id, c.id, errors.ErrUnknownMessage)
}

// MarkSeen advances a message to seen on behalf of reader. The reader must
// be a participant and cannot be the sender of the message.
func (c *Conversation) MarkSeen(id MessageID, reader UserID) (Message, bool, error) {
	if !c.HasParticipant(reader) {
		return Message{}, false, fmt.Errorf("reader %q in conversation %q: %w",
			reader, c.id, errors.ErrNotAParticipant)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.log {
		if c.log[i].ID != id {
			continue
		}
		if c.log[i].SenderID == reader {
			return Message{}, false, fmt.Errorf("sender %q cannot mark its own message seen: %w",
				reader, errors.ErrNotAParticipant)
		}
		if c.log[i].Status >= StatusSeen {
			return c.log[i], false, nil
		}
		c.log[i].Status = StatusSeen
		return c.log[i], true, nil
	}
	return Message{}, false, fmt.Errorf("message %q in conversation %q: %w",
		id, c.id, errors.ErrUnknownMessage)
}

// History returns a copy of the full ordered log. Pure read.
func (c *Conversation) History() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.log))
	copy(out, c.log)
	return out
}

// Restore re-appends a previously persisted message without assigning a new
// identity. Used only while warming up from the persistence collaborator.
func (c *Conversation) Restore(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = append(c.log, msg)
	c.nextSeq++
}
