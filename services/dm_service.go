//go:generate go run go.uber.org/mock/mockgen -source=dm_service.go -destination=../mocks/mock_dm_service.go -package=mocks
package services

import (
	"context"
	"time"

	"dm-core/contract"
	"dm-core/domain"
	"dm-core/runtime"
)

// IDMService is the inbound surface of the core, one operation per event
// type. The transport layer depends on this interface, not on the runtime.
type IDMService interface {
	Announce(ctx context.Context, connID string, identity domain.UserID, sink contract.EventSink)
	Join(ctx context.Context, connID string, conversation domain.ConversationID) error
	Send(ctx context.Context, connID string, conversation domain.ConversationID,
		text string, clientTS *time.Time) (domain.Message, error)
	MarkSeen(ctx context.Context, connID string, conversation domain.ConversationID,
		msgID domain.MessageID) error
	NotifyTyping(ctx context.Context, connID string, conversation domain.ConversationID,
		isTyping bool) error
	Disconnect(ctx context.Context, connID string)
	History(conversation domain.ConversationID) ([]domain.Message, error)
}

type DMService struct {
	orchestrator *runtime.Orchestrator
}

var _ IDMService = (*DMService)(nil)

func NewDMService(o *runtime.Orchestrator) *DMService {
	return &DMService{orchestrator: o}
}

func (s *DMService) Announce(ctx context.Context, connID string, identity domain.UserID, sink contract.EventSink) {
	s.orchestrator.Announce(ctx, connID, identity, sink)
}

func (s *DMService) Join(ctx context.Context, connID string, conversation domain.ConversationID) error {
	return s.orchestrator.Join(ctx, connID, conversation)
}

func (s *DMService) Send(ctx context.Context, connID string, conversation domain.ConversationID,
	text string, clientTS *time.Time) (domain.Message, error) {
	return s.orchestrator.Send(ctx, connID, conversation, text, clientTS)
}

func (s *DMService) MarkSeen(ctx context.Context, connID string,
	conversation domain.ConversationID, msgID domain.MessageID) error {
	return s.orchestrator.MarkSeen(ctx, connID, conversation, msgID)
}

func (s *DMService) NotifyTyping(ctx context.Context, connID string,
	conversation domain.ConversationID, isTyping bool) error {
	return s.orchestrator.NotifyTyping(ctx, connID, conversation, isTyping)
}

func (s *DMService) Disconnect(ctx context.Context, connID string) {
	s.orchestrator.Disconnect(ctx, connID)
}

func (s *DMService) History(conversation domain.ConversationID) ([]domain.Message, error) {
	return s.orchestrator.History(conversation)
}
