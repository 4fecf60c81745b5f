package runtime

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"dm-core/domain"
	"dm-core/domain/event"
	"dm-core/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// engineFixture wires an Engine over real collaborators, with recording
// sinks standing in for live connections.
type engineFixture struct {
	registry *Registry
	presence *Presence
	engine   *Engine
	mu       sync.Mutex
	emitted  []event.DomainEvent
}

func newEngineFixture() *engineFixture {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &engineFixture{
		registry: NewRegistry(),
		presence: NewPresence(),
	}
	dispatcher := NewDispatcher(log, f.registry)
	f.engine = NewEngine(log, NewDirectory(), f.presence, dispatcher,
		func(e event.DomainEvent) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.emitted = append(f.emitted, e)
		})
	return f
}

func (f *engineFixture) emittedEvents() []event.DomainEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]event.DomainEvent, len(f.emitted))
	copy(out, f.emitted)
	return out
}

// connect announces an identity on a fresh connection, marks it online and
// joins it to the conversation.
func (f *engineFixture) connect(t *testing.T, identity domain.UserID,
	convID domain.ConversationID) *recordingSink {
	t.Helper()
	sink := &recordingSink{}
	connID := uuid.NewString()
	f.registry.Announce(connID, identity, sink)
	f.presence.MarkOnline(identity)
	require.NoError(t, f.registry.Join(connID, convID))
	return sink
}

func TestEngine_Send_BothOnline(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture()
	convID := domain.ConversationID("alice_bob")
	alice := f.connect(t, "alice", convID)
	bob := f.connect(t, "bob", convID)

	// When alice sends while bob is online
	msg, err := f.engine.Send(context.Background(), convID, "alice", "hello", nil)
	req.NoError(err)

	// Then the log reached delivered in the same synchronous step
	history, err := f.engine.directory.History(convID)
	req.NoError(err)
	req.Len(history, 1)
	req.Equal(domain.StatusDelivered, history[0].Status)

	// And bob observed exactly the append
	bobEvents := bob.Events()
	req.Len(bobEvents, 1)
	posted, ok := bobEvents[0].(event.MessagePosted)
	req.True(ok)
	req.Equal("hello", posted.Message.Text)

	// And alice observed the append strictly before the receipt
	aliceEvents := alice.Events()
	req.Len(aliceEvents, 2)
	_, ok = aliceEvents[0].(event.MessagePosted)
	req.True(ok)
	status, ok := aliceEvents[1].(event.StatusUpdated)
	req.True(ok)
	req.Equal(domain.StatusDelivered, status.Status)
	req.Equal(msg.ID, status.MessageID)

	// And the permanent sinks were offered both events
	req.Len(f.emittedEvents(), 2)
}

func TestEngine_Send_ConcurrentSendsReachObserversInLogOrder(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture()
	convID := domain.ConversationID("alice_bob")
	alice := f.connect(t, "alice", convID)
	bob := f.connect(t, "bob", convID)
	const perSender = 100

	// When both participants send concurrently on the same conversation
	var wg sync.WaitGroup
	for _, sender := range []domain.UserID{"alice", "bob"} {
		wg.Add(1)
		go func(sender domain.UserID) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				_, err := f.engine.Send(context.Background(), convID, sender, "hello", nil)
				require.NoError(t, err)
			}
		}(sender)
	}
	wg.Wait()

	// Then the log holds every send exactly once
	history, err := f.engine.directory.History(convID)
	req.NoError(err)
	req.Len(history, 2*perSender)

	// And each observer saw the appends in exactly the log order
	for name, sink := range map[string]*recordingSink{"alice": alice, "bob": bob} {
		posted := postedIDs(sink.Events())
		req.Len(posted, len(history))
		for i, msg := range history {
			req.Equalf(msg.ID, posted[i],
				"observer %s diverged from the log order at position %d", name, i)
		}
	}

	// And the permanent-sink stream never carries a receipt before the
	// append it refers to
	postedAt := make(map[domain.MessageID]int)
	for i, e := range f.emittedEvents() {
		switch ev := e.(type) {
		case event.MessagePosted:
			postedAt[ev.Message.ID] = i
		case event.StatusUpdated:
			at, ok := postedAt[ev.MessageID]
			req.Truef(ok, "receipt for %s emitted without a preceding append", ev.MessageID)
			req.Less(at, i)
		}
	}
}

// postedIDs filters the append notifications out of an observer's stream.
func postedIDs(events []event.DomainEvent) []domain.MessageID {
	var out []domain.MessageID
	for _, e := range events {
		if posted, ok := e.(event.MessagePosted); ok {
			out = append(out, posted.Message.ID)
		}
	}
	return out
}

func TestEngine_Send_PeerOffline(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture()
	convID := domain.ConversationID("alice_bob")
	alice := f.connect(t, "alice", convID)

	// When alice sends while bob has never connected
	msg, err := f.engine.Send(context.Background(), convID, "alice", "hello", nil)
	req.NoError(err)
	req.Equal(domain.StatusSent, msg.Status)

	// Then no receipt is produced, only the append
	req.Len(alice.Events(), 1)
	history, err := f.engine.directory.History(convID)
	req.NoError(err)
	req.Equal(domain.StatusSent, history[0].Status)
}

func TestEngine_Send_CreatesConversationLazily(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture()
	convID := domain.ConversationID("alice_bob")
	f.connect(t, "alice", convID)

	// Given the directory has never seen the conversation
	_, err := f.engine.directory.Get(convID)
	req.ErrorIs(err, errors.ErrUnknownConversation)

	// When the first send arrives
	_, err = f.engine.Send(context.Background(), convID, "alice", "hello", nil)
	req.NoError(err)

	// Then it exists with the pair recovered from the id
	conv, err := f.engine.directory.Get(convID)
	req.NoError(err)
	req.Equal([2]domain.UserID{"alice", "bob"}, conv.Participants())
}

func TestEngine_Send_RejectsNonParticipant(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture()
	convID := domain.ConversationID("alice_bob")
	f.connect(t, "alice", convID)
	_, err := f.engine.Send(context.Background(), convID, "alice", "hello", nil)
	req.NoError(err)

	// carol is online but not a member of alice_bob
	_, err = f.engine.Send(context.Background(), convID, "carol", "hi", nil)

	req.ErrorIs(err, errors.ErrNotAParticipant)
}

func TestEngine_Send_AppliesCensor(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture()
	convID := domain.ConversationID("alice_bob")
	f.connect(t, "alice", convID)
	f.engine.SetCensor(upperCensor{})

	msg, err := f.engine.Send(context.Background(), convID, "alice", "hello", nil)

	req.NoError(err)
	req.Equal("HELLO", msg.Text)
}

func TestEngine_Send_HonorsClientTimestamp(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture()
	convID := domain.ConversationID("alice_bob")
	f.connect(t, "alice", convID)
	at := time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)

	msg, err := f.engine.Send(context.Background(), convID, "alice", "hello", &at)

	req.NoError(err)
	req.Equal(at, msg.CreatedAt)
}

func TestEngine_MarkSeen_NotifiesSenderOnce(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture()
	convID := domain.ConversationID("alice_bob")
	alice := f.connect(t, "alice", convID)
	f.connect(t, "bob", convID)
	msg, err := f.engine.Send(context.Background(), convID, "alice", "hello", nil)
	req.NoError(err)
	before := len(alice.Events())

	// When bob marks the message seen twice
	req.NoError(f.engine.MarkSeen(context.Background(), convID, msg.ID, "bob"))
	req.NoError(f.engine.MarkSeen(context.Background(), convID, msg.ID, "bob"))

	// Then alice received exactly one seen receipt
	aliceEvents := alice.Events()
	req.Len(aliceEvents, before+1)
	status, ok := aliceEvents[len(aliceEvents)-1].(event.StatusUpdated)
	req.True(ok)
	req.Equal(domain.StatusSeen, status.Status)
}

func TestEngine_MarkSeen_UnknownConversation(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture()

	err := f.engine.MarkSeen(context.Background(), "alice_bob", "missing", "bob")

	req.ErrorIs(err, errors.ErrUnknownConversation)
}

func TestEngine_NotifyTyping_ReachesPeerOnly(t *testing.T) {
	req := require.New(t)
	f := newEngineFixture()
	convID := domain.ConversationID("alice_bob")
	alice := f.connect(t, "alice", convID)
	bob := f.connect(t, "bob", convID)

	req.NoError(f.engine.NotifyTyping(context.Background(), convID, "alice", true))

	req.Empty(alice.Events())
	bobEvents := bob.Events()
	req.Len(bobEvents, 1)
	typing, ok := bobEvents[0].(event.TypingSignaled)
	req.True(ok)
	req.Equal(domain.UserID("alice"), typing.From)
	req.True(typing.IsTyping)
}

// upperCensor is a visible stand-in for the moderation filter.
type upperCensor struct{}

func (upperCensor) Censor(text string) string { return strings.ToUpper(text) }
