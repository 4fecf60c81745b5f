//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"dm-core/domain"

	"github.com/dgraph-io/badger/v4"
)

type IMessageRepository interface {
	Append(conversation domain.ConversationID, msg domain.Message) error
	UpdateStatus(conversation domain.ConversationID, msgID domain.MessageID, status domain.DeliveryStatus) error
	LoadAll() (map[domain.ConversationID][]domain.Message, error)
}

// MessageRepository persists messages in BadgerDB. It is the best-effort
// durability collaborator: callers feed it asynchronously and treat its
// failures as log noise, never as delivery failures.
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

// diskMessage is the stored representation. The conversation id is kept in
// the value so LoadAll never has to parse keys, which avoids any ambiguity
// when identities contain the key separator.
type diskMessage struct {
	ID           string `json:"id"`
	Conversation string `json:"conversation"`
	Sender       string `json:"sender"`
	Text         string `json:"text"`
	CreatedAt    int64  `json:"created_at"`
	Status       string `json:"status"`
}

// key is "msg:{conversation}:{message_id}". The message id starts with a
// zero-padded per-conversation sequence, so keys of one conversation sort in
// append order.
func messageKey(conversation domain.ConversationID, id domain.MessageID) []byte {
	return []byte(fmt.Sprintf("msg:%s:%s", conversation, id))
}

// Append stores one freshly created message.
func (m MessageRepository) Append(conversation domain.ConversationID, msg domain.Message) error {
	bytes, err := json.Marshal(fromDomain(msg))
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(conversation, msg.ID), bytes)
	})
}

// UpdateStatus rewrites the stored record with the advanced status. Only the
// status field ever changes after Append.
func (m MessageRepository) UpdateStatus(conversation domain.ConversationID,
	msgID domain.MessageID, status domain.DeliveryStatus) error {

	key := messageKey(conversation, msgID)
	return m.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		var stored diskMessage
		if err := item.Value(func(value []byte) error {
			return json.Unmarshal(value, &stored)
		}); err != nil {
			return err
		}

		current, err := domain.ParseDeliveryStatus(stored.Status)
		if err == nil && current >= status {
			// Monotonicity also holds on disk.
			return nil
		}
		stored.Status = status.String()

		bytes, err := json.Marshal(stored)
		if err != nil {
			return err
		}
		return txn.Set(key, bytes)
	})
}

// LoadAll returns the full snapshot grouped by conversation, each log sorted
// by message id (sequence order). Malformed records are skipped and counted.
func (m MessageRepository) LoadAll() (map[domain.ConversationID][]domain.Message, error) {
	snapshot := make(map[domain.ConversationID][]domain.Message)
	skipped := 0

	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("msg:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var stored diskMessage
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &stored)
			})
			if err != nil {
				skipped++
				continue
			}
			msg, err := toDomain(stored)
			if err != nil {
				skipped++
				continue
			}
			snapshot[msg.Conversation] = append(snapshot[msg.Conversation], msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		m.log.Warn(fmt.Sprintf("%d unreadable records skipped while loading snapshot", skipped))
	}

	for _, messages := range snapshot {
		sort.Slice(messages, func(i, j int) bool { return messages[i].ID < messages[j].ID })
	}
	return snapshot, nil
}

func fromDomain(msg domain.Message) diskMessage {
	return diskMessage{
		ID:           string(msg.ID),
		Conversation: string(msg.Conversation),
		Sender:       string(msg.SenderID),
		Text:         msg.Text,
		CreatedAt:    msg.CreatedAt.UnixNano(),
		Status:       msg.Status.String(),
	}
}

func toDomain(stored diskMessage) (domain.Message, error) {
	status, err := domain.ParseDeliveryStatus(stored.Status)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:           domain.MessageID(stored.ID),
		Conversation: domain.ConversationID(stored.Conversation),
		SenderID:     domain.UserID(stored.Sender),
		Text:         stored.Text,
		CreatedAt:    time.Unix(0, stored.CreatedAt).UTC(),
		Status:       status,
	}, nil
}
