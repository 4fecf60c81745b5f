package workers

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"dm-core/contract"
	"dm-core/domain"
	"dm-core/domain/event"
	"dm-core/mocks"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestEventFanout_OffersEveryEventToEverySink(t *testing.T) {
	req := require.New(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	diskSink := mocks.NewMockEventSink(ctrl)
	metricsSink := mocks.NewMockEventSink(ctrl)

	domainEvents := make(chan event.DomainEvent, 4)
	fanout := NewEventFanout(log,
		[]contract.EventSink{diskSink, metricsSink},
		domainEvents, time.Second)

	done := make(chan struct{})
	consumed := 0
	// Given both sinks accept the two events
	for _, sink := range []*mocks.MockEventSink{diskSink, metricsSink} {
		sink.EXPECT().Consume(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, e event.DomainEvent) error {
				consumed++
				if consumed == 4 {
					close(done)
				}
				return nil
			}).Times(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = fanout.Run(ctx)
	}()

	// When two events flow through the channel
	domainEvents <- event.MessagePosted{Conversation: "alice_bob"}
	domainEvents <- event.StatusUpdated{
		Conversation: "alice_bob",
		Status:       domain.StatusDelivered,
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("every sink should have consumed both events")
	}
}

func TestEventFanout_SinkFailureDoesNotStopTheOthers(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	failing := mocks.NewMockEventSink(ctrl)
	healthy := mocks.NewMockEventSink(ctrl)

	// Given the first sink always fails
	failing.EXPECT().Consume(gomock.Any(), gomock.Any()).
		Return(context.DeadlineExceeded).Times(1)
	healthy.EXPECT().Consume(gomock.Any(), gomock.Any()).
		Return(nil).Times(1)

	fanout := NewEventFanout(log,
		[]contract.EventSink{failing, healthy},
		nil, time.Second)

	// When one event is fanned out directly, the controller verifies the
	// healthy sink was still offered it.
	fanout.Fanout(context.Background(), event.MessagePosted{Conversation: "alice_bob"})
}
