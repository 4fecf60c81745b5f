package sink_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"dm-core/domain"
	"dm-core/domain/event"
	"dm-core/mocks"
	"dm-core/sink"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestDiskSink_Consume(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIMessageRepository(ctrl)
	// Silencing logs for clean test output
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := sink.NewDiskSink(mockRepo, logger)
	ctx := context.Background()

	convID := domain.ConversationID("alice_bob")
	msg := domain.Message{
		ID:           "00000001-a",
		Conversation: convID,
		SenderID:     "alice",
		Text:         "hello",
		CreatedAt:    time.Now().UTC(),
		Status:       domain.StatusSent,
	}

	t.Run("MessagePosted is appended", func(t *testing.T) {
		mockRepo.EXPECT().Append(convID, msg).Return(nil).Times(1)

		err := s.Consume(ctx, event.MessagePosted{Conversation: convID, Message: msg})
		req.NoError(err)
	})

	t.Run("StatusUpdated rewrites the stored status", func(t *testing.T) {
		mockRepo.EXPECT().
			UpdateStatus(convID, msg.ID, domain.StatusSeen).
			Return(nil).Times(1)

		err := s.Consume(ctx, event.StatusUpdated{
			Conversation: convID,
			MessageID:    msg.ID,
			Status:       domain.StatusSeen,
			Sender:       "alice",
		})
		req.NoError(err)
	})

	t.Run("Transient events are ignored", func(t *testing.T) {
		// No expectation on the repository: typing never reaches disk.
		err := s.Consume(ctx, event.TypingSignaled{
			Conversation: convID,
			From:         "alice",
			IsTyping:     true,
		})
		req.NoError(err)
	})
}
