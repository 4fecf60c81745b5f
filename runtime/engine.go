package runtime

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"dm-core/contract"
	"dm-core/domain"
	"dm-core/domain/event"
	"dm-core/errors"
)

// Engine drives the message lifecycle: creation with identity and ordering,
// the sent -> delivered -> seen state machine, and the typing relay.
type Engine struct {
	log        *slog.Logger
	directory  *Directory
	presence   contract.IPresence
	dispatcher *Dispatcher
	censor     contract.Censor
	emit       func(event.DomainEvent)
}

func NewEngine(log *slog.Logger, directory *Directory, presence contract.IPresence,
	dispatcher *Dispatcher, emit func(event.DomainEvent)) *Engine {
	return &Engine{
		log:        log,
		directory:  directory,
		presence:   presence,
		dispatcher: dispatcher,
		emit:       emit,
	}
}

// SetCensor installs the moderation filter. Until it is set, message bodies
// pass through unchanged.
func (e *Engine) SetCensor(c contract.Censor) { e.censor = c }

// Send appends a message to the conversation log in state sent, broadcasts
// it to every connection joined to the conversation, then evaluates
// delivery: the peer being online promotes the message to delivered and the
// sender is notified in the same synchronous step. The append, the live
// broadcast enqueue and the permanent-sink emit all happen inside the
// conversation's critical section, so concurrent sends reach every observer
// in log order. The status notification is dispatched strictly after the
// append notification, so no observer can see a receipt for a message it
// has not been offered yet. Offline peers keep the message at sent until
// their next sync; there is no retry timer.
func (e *Engine) Send(ctx context.Context, convID domain.ConversationID,
	sender domain.UserID, text string, clientTS *time.Time) (domain.Message, error) {

	conv, err := e.conversationFor(convID, sender)
	if err != nil {
		return domain.Message{}, err
	}

	at := time.Now().UTC()
	if clientTS != nil {
		at = clientTS.UTC()
	}
	if e.censor != nil {
		text = e.censor.Censor(text)
	}

	// Consume is non-blocking by contract, so enqueueing under the log lock
	// cannot stall other conversations.
	msg, err := conv.Append(sender, text, at, func(appended domain.Message) {
		posted := event.MessagePosted{Conversation: convID, Message: appended}
		e.dispatcher.BroadcastToConversation(ctx, conv, posted)
		e.emit(posted)
	})
	if err != nil {
		return domain.Message{}, err
	}

	peer, _ := conv.PeerOf(sender)
	if e.presence.IsOnline(peer) {
		if _, changed, err := conv.Advance(msg.ID, domain.StatusDelivered); err == nil && changed {
			delivered := event.StatusUpdated{
				Conversation: convID,
				MessageID:    msg.ID,
				Status:       domain.StatusDelivered,
				Sender:       sender,
			}
			e.dispatcher.SendToUser(ctx, sender, delivered)
			e.emit(delivered)
		}
	}
	return msg, nil
}

// MarkSeen advances a message to seen on behalf of reader. Idempotent:
// repeated calls after reaching seen are accepted and cause zero emissions.
// The original sender is notified only when currently online; otherwise the
// transition is observed on its next sync.
func (e *Engine) MarkSeen(ctx context.Context, convID domain.ConversationID,
	msgID domain.MessageID, reader domain.UserID) error {

	conv, err := e.directory.Get(convID)
	if err != nil {
		return err
	}
	msg, changed, err := conv.MarkSeen(msgID, reader)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	seen := event.StatusUpdated{
		Conversation: convID,
		MessageID:    msgID,
		Status:       domain.StatusSeen,
		Sender:       msg.SenderID,
	}
	e.dispatcher.SendToUser(ctx, msg.SenderID, seen)
	e.emit(seen)
	return nil
}

// NotifyTyping relays the signal to the other participant only. No state is
// retained: the recipient applies its own expiry timeout.
func (e *Engine) NotifyTyping(ctx context.Context, convID domain.ConversationID,
	from domain.UserID, isTyping bool) error {

	peer, err := e.peerOf(convID, from)
	if err != nil {
		return err
	}
	e.dispatcher.SendToUser(ctx, peer, event.TypingSignaled{
		Conversation: convID,
		From:         from,
		IsTyping:     isTyping,
	})
	return nil
}

// conversationFor returns the conversation, creating it lazily on first
// send. The participant pair of a new conversation is recovered from the
// canonical id and the authenticated sender, then validated by re-derivation.
func (e *Engine) conversationFor(convID domain.ConversationID, sender domain.UserID) (*domain.Conversation, error) {
	conv, err := e.directory.Get(convID)
	if err == nil {
		if !conv.HasParticipant(sender) {
			return nil, fmt.Errorf("sender %q in conversation %q: %w",
				sender, convID, errors.ErrNotAParticipant)
		}
		return conv, nil
	}
	if !stderrors.Is(err, errors.ErrUnknownConversation) {
		return nil, err
	}

	peer, err := domain.PeerFromConversationID(convID, sender)
	if err != nil {
		return nil, err
	}
	return e.directory.GetOrCreate(convID, sender, peer)
}

func (e *Engine) peerOf(convID domain.ConversationID, member domain.UserID) (domain.UserID, error) {
	if conv, err := e.directory.Get(convID); err == nil {
		peer, ok := conv.PeerOf(member)
		if !ok {
			return "", fmt.Errorf("sender %q in conversation %q: %w",
				member, convID, errors.ErrNotAParticipant)
		}
		return peer, nil
	}
	return domain.PeerFromConversationID(convID, member)
}
