// Package sink contains the permanent event consumers fed by the fanout
// worker: disk persistence and metrics.
package sink

import (
	"context"
	"fmt"
	"log/slog"

	"dm-core/domain/event"
	"dm-core/repositories"
)

// DiskSink forwards message events to the persistence collaborator. It runs
// on the async pipeline, outside every critical section: a storage failure
// is logged by the fanout worker and never reaches message delivery.
type DiskSink struct {
	repository repositories.IMessageRepository
	log        *slog.Logger
}

func NewDiskSink(repository repositories.IMessageRepository, log *slog.Logger) DiskSink {
	return DiskSink{repository: repository, log: log}
}

func (d DiskSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.MessagePosted:
		return d.repository.Append(evt.Conversation, evt.Message)
	case event.StatusUpdated:
		return d.repository.UpdateStatus(evt.Conversation, evt.MessageID, evt.Status)
	default:
		d.log.Debug(fmt.Sprintf("Event not persisted : %s", e.EventName()))
		return nil
	}
}
