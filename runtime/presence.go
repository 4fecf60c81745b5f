package runtime

import (
	"sort"
	"sync"

	"dm-core/contract"
	"dm-core/domain"
)

// Presence maintains the process-wide set of online identities. Every
// transition broadcasts the full set; there is no delta protocol.
type Presence struct {
	mu     sync.RWMutex
	online map[domain.UserID]struct{}
}

var _ contract.IPresence = (*Presence)(nil)

func NewPresence() *Presence {
	return &Presence{online: make(map[domain.UserID]struct{})}
}

// MarkOnline adds the identity to the online set. Idempotent; reports
// whether the set actually changed.
func (p *Presence) MarkOnline(identity domain.UserID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.online[identity]; ok {
		return false
	}
	p.online[identity] = struct{}{}
	return true
}

// MarkOffline removes the identity. Idempotent; reports whether the set
// actually changed.
func (p *Presence) MarkOffline(identity domain.UserID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.online[identity]; !ok {
		return false
	}
	delete(p.online, identity)
	return true
}

func (p *Presence) IsOnline(identity domain.UserID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.online[identity]
	return ok
}

// Snapshot returns the current online set, sorted for stable payloads.
func (p *Presence) Snapshot() []domain.UserID {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]domain.UserID, 0, len(p.online))
	for id := range p.online {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
