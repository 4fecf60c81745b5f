package sink

import (
	"context"

	"dm-core/domain/event"
	"dm-core/internal/metrics"
)

// MetricsSink counts message and status activity on the async pipeline.
type MetricsSink struct{}

func NewMetricsSink() MetricsSink { return MetricsSink{} }

func (MetricsSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.MessagePosted:
		metrics.MessagesSent.Inc()
	case event.StatusUpdated:
		metrics.StatusTransitions.WithLabelValues(evt.Status.String()).Inc()
	}
	return nil
}
