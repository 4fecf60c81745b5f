package runtime

import (
	"testing"
	"time"

	"dm-core/domain"
	"dm-core/errors"

	"github.com/stretchr/testify/require"
)

func TestDirectory_GetOrCreate(t *testing.T) {
	req := require.New(t)
	directory := NewDirectory()

	// When the conversation is created lazily
	conv, err := directory.GetOrCreate("alice_bob", "alice", "bob")
	req.NoError(err)
	req.Equal(domain.ConversationID("alice_bob"), conv.ID())

	// Then a second request returns the same instance
	again, err := directory.GetOrCreate("alice_bob", "bob", "alice")
	req.NoError(err)
	req.Same(conv, again)
}

func TestDirectory_GetOrCreate_ParticipantMismatch(t *testing.T) {
	req := require.New(t)
	directory := NewDirectory()

	_, err := directory.GetOrCreate("alice_bob", "alice", "bob")
	req.NoError(err)

	// An existing id can never be rebound to a different pair
	_, err = directory.GetOrCreate("alice_bob", "alice", "carol")
	req.ErrorIs(err, errors.ErrParticipantMismatch)
}

func TestDirectory_Get_Unknown(t *testing.T) {
	req := require.New(t)
	directory := NewDirectory()

	_, err := directory.Get("alice_bob")

	req.ErrorIs(err, errors.ErrUnknownConversation)
}

func TestDirectory_InvolvedIn(t *testing.T) {
	req := require.New(t)
	directory := NewDirectory()

	_, err := directory.GetOrCreate("alice_bob", "alice", "bob")
	req.NoError(err)
	_, err = directory.GetOrCreate("alice_carol", "alice", "carol")
	req.NoError(err)
	_, err = directory.GetOrCreate("bob_carol", "bob", "carol")
	req.NoError(err)

	req.Len(directory.InvolvedIn("alice"), 2)
	req.Len(directory.InvolvedIn("dave"), 0)
}

func TestDirectory_Warm(t *testing.T) {
	req := require.New(t)
	directory := NewDirectory()
	now := time.Now().UTC()

	snapshot := map[domain.ConversationID][]domain.Message{
		"alice_bob": {
			{ID: "00000001-a", Conversation: "alice_bob", SenderID: "alice",
				Text: "hello", CreatedAt: now, Status: domain.StatusSeen},
			{ID: "00000002-b", Conversation: "alice_bob", SenderID: "bob",
				Text: "hi", CreatedAt: now, Status: domain.StatusSent},
		},
		// The sender cannot be a member of this id, so the entry is skipped.
		"carol_dave": {
			{ID: "00000001-c", Conversation: "carol_dave", SenderID: "mallory",
				Text: "?", CreatedAt: now, Status: domain.StatusSent},
		},
	}

	skipped := directory.Warm(snapshot)

	req.Equal(1, skipped)
	history, err := directory.History("alice_bob")
	req.NoError(err)
	req.Len(history, 2)
	req.Equal(domain.StatusSeen, history[0].Status)

	_, err = directory.Get("carol_dave")
	req.ErrorIs(err, errors.ErrUnknownConversation)
}
