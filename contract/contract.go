//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"dm-core/domain"
	"dm-core/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// initialization or lifecycle events, avoiding the need for manual naming in
// the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives outbound domain events. A live websocket connection is
// a sink; so are the permanent sinks fed by the fanout worker (disk,
// metrics). Consume must not block: a sink that cannot accept the event
// returns an error and the dispatcher treats it as a dead connection.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// Target couples a sink with the connection it belongs to, so a failed
// dispatch can evict exactly that connection.
type Target struct {
	ConnID string
	Sink   EventSink
}

// IRegistry owns the identity -> connection binding and per-conversation
// fanout membership.
type IRegistry interface {
	Announce(connID string, identity domain.UserID, sink EventSink) (rebound domain.UserID, evicted bool)
	Resolve(connID string) (domain.UserID, error)
	Disconnect(connID string) (domain.UserID, bool)
	Join(connID string, conversation domain.ConversationID) error
	TargetFor(identity domain.UserID) (Target, bool)
	TargetsForConversation(conversation domain.ConversationID, participants [2]domain.UserID) []Target
	AllTargets() []Target
}

// IPresence tracks the process-wide online set.
type IPresence interface {
	MarkOnline(identity domain.UserID) bool
	MarkOffline(identity domain.UserID) bool
	Snapshot() []domain.UserID
	IsOnline(identity domain.UserID) bool
}

// Censor rewrites a message body before it is appended to the immutable log.
type Censor interface {
	Censor(text string) string
}

// MessageStore is the best-effort persistence collaborator. Its failures are
// logged, never surfaced to message delivery.
type MessageStore interface {
	Append(conversation domain.ConversationID, msg domain.Message) error
	UpdateStatus(conversation domain.ConversationID, msgID domain.MessageID, status domain.DeliveryStatus) error
	LoadAll() (map[domain.ConversationID][]domain.Message, error)
}
