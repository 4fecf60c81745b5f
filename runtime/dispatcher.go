package runtime

import (
	"context"
	"log/slog"

	"dm-core/contract"
	"dm-core/domain"
	"dm-core/domain/event"
)

// Dispatcher delivers events to live connections. A failed enqueue means the
// connection is dead or hopelessly backed up: the dispatcher evicts it
// through the onFailure hook and nobody else ever sees the failure. The
// operation that triggered the dispatch still succeeds, and the log remains
// the durable backlog for the evicted party.
type Dispatcher struct {
	log       *slog.Logger
	registry  contract.IRegistry
	onFailure func(connID string)
}

func NewDispatcher(log *slog.Logger, registry contract.IRegistry) *Dispatcher {
	return &Dispatcher{log: log, registry: registry}
}

// OnFailure installs the eviction hook, wired by the orchestrator after
// construction to break the circular dependency.
func (d *Dispatcher) OnFailure(fn func(connID string)) {
	d.onFailure = fn
}

// BroadcastToConversation sends to every connection whose identity is a
// participant and which joined the conversation. Offline participants are
// silently skipped.
func (d *Dispatcher) BroadcastToConversation(ctx context.Context, conv *domain.Conversation, e event.DomainEvent) {
	for _, t := range d.registry.TargetsForConversation(conv.ID(), conv.Participants()) {
		d.deliver(ctx, t, e)
	}
}

// SendToUser resolves the identity's current connection; no-op if offline.
func (d *Dispatcher) SendToUser(ctx context.Context, identity domain.UserID, e event.DomainEvent) {
	t, ok := d.registry.TargetFor(identity)
	if !ok {
		return
	}
	d.deliver(ctx, t, e)
}

// SendToTarget pushes directly to one known connection, used for the
// announce-time snapshot and history pushes.
func (d *Dispatcher) SendToTarget(ctx context.Context, t contract.Target, e event.DomainEvent) {
	d.deliver(ctx, t, e)
}

// BroadcastGlobal reaches every live connection. Used only for presence
// snapshots.
func (d *Dispatcher) BroadcastGlobal(ctx context.Context, e event.DomainEvent) {
	for _, t := range d.registry.AllTargets() {
		d.deliver(ctx, t, e)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, t contract.Target, e event.DomainEvent) {
	if err := t.Sink.Consume(ctx, e); err != nil {
		d.log.Warn("Dropping connection after failed dispatch",
			"conn_id", t.ConnID, "event", e.EventName(), "error", err)
		if d.onFailure != nil {
			d.onFailure(t.ConnID)
		}
	}
}
