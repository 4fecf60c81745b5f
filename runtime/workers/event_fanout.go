package workers

import (
	"context"
	"log/slog"
	"time"

	"dm-core/contract"
	"dm-core/domain/event"
)

// EventFanout drains the domain-event channel and feeds the permanent sinks
// (persistence, metrics). Best-effort: a slow or failing sink is
// bounded by the per-sink timeout and can never back up into message
// delivery, which happens on the synchronous path before events reach this
// worker.
type EventFanout struct {
	log          *slog.Logger
	sinks        []contract.EventSink
	domainEvents <-chan event.DomainEvent
	sinkTimeout  time.Duration
}

var _ contract.Worker = (*EventFanout)(nil)

func NewEventFanout(log *slog.Logger, sinks []contract.EventSink,
	domainEvents <-chan event.DomainEvent, sinkTimeout time.Duration) *EventFanout {
	return &EventFanout{
		log:          log,
		sinks:        sinks,
		domainEvents: domainEvents,
		sinkTimeout:  sinkTimeout,
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping event fanout")
			return nil
		case evt, ok := <-w.domainEvents:
			if !ok {
				return nil
			}
			w.Fanout(ctx, evt)
		}
	}
}

// Fanout offers one event to every sink, each under its own timeout.
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	for _, sink := range w.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := sink.Consume(sinkCtx, evt); err != nil {
			w.log.Warn("Sink failed to consume event",
				"event", evt.EventName(), "error", err)
		}
		cancel()
	}
}
