// Package runtime wires the shared state of the messaging core: connection
// registry, presence, conversation directory, dispatch and the lifecycle
// engine. It orchestrates the system without containing domain rules.
package runtime

import (
	"fmt"
	"sync"

	"dm-core/contract"
	"dm-core/domain"
	"dm-core/errors"
)

// binding is one live connection bound to an identity, together with the
// conversations this connection explicitly joined.
type binding struct {
	connID string
	sink   contract.EventSink
	joined map[domain.ConversationID]struct{}
}

// Registry maps a user identity to its currently active connection.
// At most one connection per identity: a new announce replaces the previous
// binding without notifying the evicted connection.
type Registry struct {
	mu         sync.RWMutex
	byIdentity map[domain.UserID]*binding
	byConn     map[string]domain.UserID
}

var _ contract.IRegistry = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{
		byIdentity: make(map[domain.UserID]*binding),
		byConn:     make(map[string]domain.UserID),
	}
}

// Announce binds identity to the given connection, replacing any prior
// binding for that identity. Reports whether a previous connection was
// evicted; the evicted connection stops receiving direct events
// immediately. A connection is bound to exactly one identity at a time: if
// connID was already announced under a different identity, that identity is
// unbound and returned so the caller can retire its presence.
func (r *Registry) Announce(connID string, identity domain.UserID, sink contract.EventSink) (rebound domain.UserID, evicted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if previous, ok := r.byConn[connID]; ok && previous != identity {
		if b := r.byIdentity[previous]; b != nil && b.connID == connID {
			delete(r.byIdentity, previous)
		}
		rebound = previous
	}

	prev, evicted := r.byIdentity[identity]
	if evicted {
		delete(r.byConn, prev.connID)
	}
	r.byIdentity[identity] = &binding{
		connID: connID,
		sink:   sink,
		joined: make(map[domain.ConversationID]struct{}),
	}
	r.byConn[connID] = identity
	return rebound, evicted
}

// Resolve authorizes an inbound event by recovering the identity bound to
// the connection it arrived on.
func (r *Registry) Resolve(connID string) (domain.UserID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.byConn[connID]
	if !ok {
		return "", fmt.Errorf("connection %q: %w", connID, errors.ErrUnknownConnection)
	}
	return identity, nil
}

// Disconnect removes the binding only if connID is still the current
// connection for its identity, which guards against a stale disconnect
// racing a reconnect. Reports the identity and whether a binding was
// actually removed.
func (r *Registry) Disconnect(connID string) (domain.UserID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.byConn[connID]
	if !ok {
		return "", false
	}
	delete(r.byConn, connID)

	current, ok := r.byIdentity[identity]
	if !ok || current.connID != connID {
		return identity, false
	}
	delete(r.byIdentity, identity)
	return identity, true
}

// Join subscribes the connection to a conversation's fanout group.
func (r *Registry) Join(connID string, conversation domain.ConversationID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.byConn[connID]
	if !ok {
		return fmt.Errorf("connection %q: %w", connID, errors.ErrUnknownConnection)
	}
	b := r.byIdentity[identity]
	if b == nil || b.connID != connID {
		return fmt.Errorf("connection %q: %w", connID, errors.ErrUnknownConnection)
	}
	b.joined[conversation] = struct{}{}
	return nil
}

// TargetFor returns the live connection of an identity, if any.
func (r *Registry) TargetFor(identity domain.UserID) (contract.Target, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.byIdentity[identity]
	if !ok {
		return contract.Target{}, false
	}
	return contract.Target{ConnID: b.connID, Sink: b.sink}, true
}

// TargetsForConversation returns the connections of the participants that
// are online and joined to the conversation. Membership comes from the
// explicit participant pair, never from inspecting the conversation id.
func (r *Registry) TargetsForConversation(conversation domain.ConversationID, participants [2]domain.UserID) []contract.Target {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var targets []contract.Target
	for _, p := range participants {
		b, ok := r.byIdentity[p]
		if !ok {
			continue
		}
		if _, joined := b.joined[conversation]; !joined {
			continue
		}
		targets = append(targets, contract.Target{ConnID: b.connID, Sink: b.sink})
	}
	return targets
}

// AllTargets snapshots every live connection, used for presence broadcasts.
func (r *Registry) AllTargets() []contract.Target {
	r.mu.RLock()
	defer r.mu.RUnlock()

	targets := make([]contract.Target, 0, len(r.byIdentity))
	for _, b := range r.byIdentity {
		targets = append(targets, contract.Target{ConnID: b.connID, Sink: b.sink})
	}
	return targets
}
