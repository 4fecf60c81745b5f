package runtime

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dm-core/contract"
	"dm-core/domain"
	"dm-core/domain/event"
	"dm-core/moderation"
	"dm-core/projection"
	"dm-core/runtime/workers"
)

//go:embed censored/*
var censoredFolder embed.FS

// Orchestrator composes the core components and exposes one operation per
// inbound event type, each guarded by identity resolution at entry. Live
// delivery happens synchronously through the Dispatcher to preserve
// per-observer ordering; permanent sinks (persistence, metrics) are fed
// asynchronously through the domainEvents channel so they can never block
// real-time delivery.
type Orchestrator struct {
	log             *slog.Logger
	registry        contract.IRegistry
	presence        contract.IPresence
	directory       *Directory
	dispatcher      *Dispatcher
	engine          *Engine
	supervisor      contract.ISupervisor
	permanentSinks  []contract.EventSink
	domainEvents    chan event.DomainEvent
	sinkTimeout     time.Duration
	telemetryEvery  time.Duration
	charReplacement rune
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	registry contract.IRegistry, presence contract.IPresence, directory *Directory,
	bufferSize int, sinkTimeout, telemetryEvery time.Duration, charReplacement rune) *Orchestrator {

	o := &Orchestrator{
		log:             log,
		registry:        registry,
		presence:        presence,
		directory:       directory,
		supervisor:      supervisor,
		domainEvents:    make(chan event.DomainEvent, bufferSize),
		sinkTimeout:     sinkTimeout,
		telemetryEvery:  telemetryEvery,
		charReplacement: charReplacement,
	}
	o.dispatcher = NewDispatcher(log, registry)
	o.engine = NewEngine(log, directory, presence, o.dispatcher, o.emit)

	// A dead connection discovered mid-dispatch is handled exactly like a
	// transport-level disconnect.
	o.dispatcher.OnFailure(func(connID string) {
		o.Disconnect(context.Background(), connID)
	})
	return o
}

// Add registers permanent sinks consuming every domain event.
func (o *Orchestrator) Add(sinks ...contract.EventSink) {
	o.permanentSinks = append(o.permanentSinks, sinks...)
}

// Announce binds the connection to its identity, marks it online and pushes
// the initial snapshot: conversation backlog first, then the presence set.
// A previous connection for the same identity is evicted silently. A
// connection re-announcing under a different identity retires the old one:
// its binding is removed and its presence goes offline unless another
// connection still carries it.
func (o *Orchestrator) Announce(ctx context.Context, connID string,
	identity domain.UserID, sink contract.EventSink) {

	rebound, evicted := o.registry.Announce(connID, identity, sink)
	if evicted {
		o.log.Info("Replaced previous connection for identity", "identity", identity)
	}
	target := contract.Target{ConnID: connID, Sink: sink}

	o.dispatcher.SendToTarget(ctx, target, projection.Backlog(o.directory, identity))

	changed := o.presence.MarkOnline(identity)
	if rebound != "" {
		o.log.Info("Connection rebound to a new identity",
			"conn_id", connID, "previous", rebound, "identity", identity)
		if _, stillBound := o.registry.TargetFor(rebound); !stillBound && o.presence.MarkOffline(rebound) {
			changed = true
		}
	}

	snapshot := event.PresenceChanged{Online: o.presence.Snapshot()}
	if changed {
		o.dispatcher.BroadcastGlobal(ctx, snapshot)
		return
	}
	// Reconnect without a presence transition: only the new connection
	// needs the current snapshot.
	o.dispatcher.SendToTarget(ctx, target, snapshot)
}

// Join subscribes the connection to a conversation's fanout group, creating
// the conversation lazily, and pushes the message history to that
// connection only.
func (o *Orchestrator) Join(ctx context.Context, connID string, convID domain.ConversationID) error {
	identity, err := o.registry.Resolve(connID)
	if err != nil {
		return err
	}
	conv, err := o.engine.conversationFor(convID, identity)
	if err != nil {
		return err
	}
	if err := o.registry.Join(connID, convID); err != nil {
		return err
	}

	target, ok := o.registry.TargetFor(identity)
	if ok && target.ConnID == connID {
		o.dispatcher.SendToTarget(ctx, target, event.HistorySynced{
			Conversation: convID,
			Messages:     conv.History(),
		})
	}
	return nil
}

// Send resolves the acting identity and delegates to the lifecycle engine.
func (o *Orchestrator) Send(ctx context.Context, connID string,
	convID domain.ConversationID, text string, clientTS *time.Time) (domain.Message, error) {

	identity, err := o.registry.Resolve(connID)
	if err != nil {
		return domain.Message{}, err
	}
	return o.engine.Send(ctx, convID, identity, text, clientTS)
}

// MarkSeen resolves the acting identity and delegates to the lifecycle engine.
func (o *Orchestrator) MarkSeen(ctx context.Context, connID string,
	convID domain.ConversationID, msgID domain.MessageID) error {

	identity, err := o.registry.Resolve(connID)
	if err != nil {
		return err
	}
	return o.engine.MarkSeen(ctx, convID, msgID, identity)
}

// NotifyTyping resolves the acting identity and relays to the peer.
func (o *Orchestrator) NotifyTyping(ctx context.Context, connID string,
	convID domain.ConversationID, isTyping bool) error {

	identity, err := o.registry.Resolve(connID)
	if err != nil {
		return err
	}
	return o.engine.NotifyTyping(ctx, convID, identity, isTyping)
}

// Disconnect is safe to call at any time, including from a dispatch failure.
// The binding is removed only if the connection is still current, then the
// presence transition is broadcast.
func (o *Orchestrator) Disconnect(ctx context.Context, connID string) {
	identity, removed := o.registry.Disconnect(connID)
	if !removed {
		return
	}
	if o.presence.MarkOffline(identity) {
		o.dispatcher.BroadcastGlobal(ctx, event.PresenceChanged{Online: o.presence.Snapshot()})
	}
}

// History returns the ordered log of a conversation. Pure read.
func (o *Orchestrator) History(convID domain.ConversationID) ([]domain.Message, error) {
	return o.directory.History(convID)
}

// Warm restores the directory from the persistence snapshot. Loss here is
// acceptable by contract; it must never prevent startup.
func (o *Orchestrator) Warm(store contract.MessageStore) {
	snapshot, err := store.LoadAll()
	if err != nil {
		o.log.Warn("Persistence snapshot unavailable, starting empty", "error", err)
		return
	}
	if skipped := o.directory.Warm(snapshot); skipped > 0 {
		o.log.Warn(fmt.Sprintf("%d persisted messages skipped during warm start", skipped))
	}
}

// Start prepares moderation and the background workers, then launches the
// supervisor. Preparation (file loading, automaton build) happens before
// anything is registered.
func (o *Orchestrator) Start(ctx context.Context) error {
	censor, err := o.prepareModeration("censored", o.charReplacement)
	if err != nil {
		return err
	}
	o.engine.SetCensor(censor)

	fanout := workers.NewEventFanout(o.log, o.permanentSinks, o.domainEvents, o.sinkTimeout)
	telemetry := workers.NewTelemetry(o.log, o.telemetryEvery)
	o.supervisor.Add(fanout, telemetry)

	o.log.Info("Starting orchestrator and all supervised workers")
	go o.supervisor.Run(ctx)
	return nil
}

// prepareModeration loads the embedded censored words and builds the
// Aho-Corasick automaton.
func (o *Orchestrator) prepareModeration(path string, charReplacement rune) (contract.Censor, error) {
	loader := NewCensoredLoader(censoredFolder)
	data, err := loader.LoadAll(path)
	if err != nil {
		return nil, err
	}
	o.log.Info(fmt.Sprintf("%d censored files loaded [%s]",
		len(data.Languages), strings.Join(data.Languages, ",")))
	o.log.Info(fmt.Sprintf("%d unique censored words loaded", len(data.Words)))

	moderator, err := moderation.NewModerator(data.Words, charReplacement)
	if err != nil {
		return nil, err
	}
	return &moderator, nil
}

// Stop cancels supervision; workers drain and exit.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}

// emit hands an event to the permanent-sink pipeline without ever blocking
// the caller. The log is authoritative; a dropped event only means the
// best-effort sinks missed it.
func (o *Orchestrator) emit(e event.DomainEvent) {
	select {
	case o.domainEvents <- e:
	default:
		o.log.Warn("Domain event channel full, dropping event", "event", e.EventName())
	}
}
