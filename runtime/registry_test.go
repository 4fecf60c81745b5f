package runtime

import (
	"context"
	"sync"
	"testing"

	"dm-core/domain"
	"dm-core/domain/event"
	"dm-core/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// recordingSink captures every event it consumes, optionally failing to
// simulate a dead connection.
type recordingSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
	fail   bool
}

func (s *recordingSink) Consume(_ context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.ErrQueueFull
	}
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) Events() []event.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.DomainEvent, len(s.events))
	copy(out, s.events)
	return out
}

func TestRegistry_Announce_And_Resolve(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.NewString()
	sink := &recordingSink{}

	// Given no binding exists
	_, err := registry.Resolve(connID)
	req.ErrorIs(err, errors.ErrUnknownConnection)

	// When the connection announces an identity
	rebound, evicted := registry.Announce(connID, "alice", sink)

	// Then the binding resolves both ways
	req.False(evicted)
	req.Empty(rebound)
	identity, err := registry.Resolve(connID)
	req.NoError(err)
	req.Equal(domain.UserID("alice"), identity)

	target, ok := registry.TargetFor("alice")
	req.True(ok)
	req.Equal(connID, target.ConnID)
}

func TestRegistry_Announce_ReplacesPreviousConnection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	oldConn := uuid.NewString()
	newConn := uuid.NewString()

	registry.Announce(oldConn, "alice", &recordingSink{})

	// When the same identity announces on a new connection
	_, evicted := registry.Announce(newConn, "alice", &recordingSink{})

	// Then the previous binding is gone and the new one is current
	req.True(evicted)
	_, err := registry.Resolve(oldConn)
	req.ErrorIs(err, errors.ErrUnknownConnection)

	target, ok := registry.TargetFor("alice")
	req.True(ok)
	req.Equal(newConn, target.ConnID)
}

func TestRegistry_Announce_RebindsConnectionToNewIdentity(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.NewString()

	// Given the connection is bound to alice
	registry.Announce(connID, "alice", &recordingSink{})

	// When the same connection announces as mallory
	rebound, evicted := registry.Announce(connID, "mallory", &recordingSink{})

	// Then alice is reported retired and no longer targets this connection
	req.Equal(domain.UserID("alice"), rebound)
	req.False(evicted)
	_, ok := registry.TargetFor("alice")
	req.False(ok)

	// And the connection resolves only to mallory
	identity, err := registry.Resolve(connID)
	req.NoError(err)
	req.Equal(domain.UserID("mallory"), identity)
	target, ok := registry.TargetFor("mallory")
	req.True(ok)
	req.Equal(connID, target.ConnID)
}

func TestRegistry_Disconnect_StaleConnection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	oldConn := uuid.NewString()
	newConn := uuid.NewString()

	// Given alice reconnected before the old transport noticed
	registry.Announce(oldConn, "alice", &recordingSink{})
	registry.Announce(newConn, "alice", &recordingSink{})

	// When the stale disconnect finally arrives
	_, removed := registry.Disconnect(oldConn)

	// Then the current binding survives
	req.False(removed)
	target, ok := registry.TargetFor("alice")
	req.True(ok)
	req.Equal(newConn, target.ConnID)

	// And the real disconnect removes it
	identity, removed := registry.Disconnect(newConn)
	req.True(removed)
	req.Equal(domain.UserID("alice"), identity)
	_, ok = registry.TargetFor("alice")
	req.False(ok)
}

func TestRegistry_TargetsForConversation_RequiresJoin(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connAlice := uuid.NewString()
	connBob := uuid.NewString()
	convID := domain.ConversationID("alice_bob")
	participants := [2]domain.UserID{"alice", "bob"}

	registry.Announce(connAlice, "alice", &recordingSink{})
	registry.Announce(connBob, "bob", &recordingSink{})

	// Given only alice joined the conversation
	req.NoError(registry.Join(connAlice, convID))

	// Then only her connection is a fanout target
	targets := registry.TargetsForConversation(convID, participants)
	req.Len(targets, 1)
	req.Equal(connAlice, targets[0].ConnID)

	// When bob joins too, both are reached
	req.NoError(registry.Join(connBob, convID))
	req.Len(registry.TargetsForConversation(convID, participants), 2)
}

func TestRegistry_Join_UnknownConnection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	err := registry.Join(uuid.NewString(), "alice_bob")

	req.ErrorIs(err, errors.ErrUnknownConnection)
}

func TestRegistry_AllTargets(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	registry.Announce(uuid.NewString(), "alice", &recordingSink{})
	registry.Announce(uuid.NewString(), "bob", &recordingSink{})

	req.Len(registry.AllTargets(), 2)
}
