package projection_test

import (
	"testing"
	"time"

	"dm-core/domain"
	"dm-core/projection"

	"github.com/stretchr/testify/require"
)

type directoryStub struct {
	conversations []*domain.Conversation
}

func (d directoryStub) InvolvedIn(identity domain.UserID) []*domain.Conversation {
	var out []*domain.Conversation
	for _, conv := range d.conversations {
		if conv.HasParticipant(identity) {
			out = append(out, conv)
		}
	}
	return out
}

func TestBacklog_CollectsOnlyOwnConversations(t *testing.T) {
	req := require.New(t)

	aliceBob := mustConversation(t, "alice", "bob")
	_, err := aliceBob.Append("alice", "hello", time.Now(), nil)
	req.NoError(err)
	_, err = aliceBob.Append("bob", "hi", time.Now(), nil)
	req.NoError(err)

	bobCarol := mustConversation(t, "bob", "carol")
	_, err = bobCarol.Append("carol", "psst", time.Now(), nil)
	req.NoError(err)

	source := directoryStub{conversations: []*domain.Conversation{aliceBob, bobCarol}}

	// When the snapshot for alice is assembled
	backlog := projection.Backlog(source, "alice")

	// Then it holds her conversation only, in log order
	req.Len(backlog.Conversations, 1)
	messages := backlog.Conversations[aliceBob.ID()]
	req.Len(messages, 2)
	req.Equal("hello", messages[0].Text)
	req.Equal("hi", messages[1].Text)
}

func TestBacklog_EmptyForUnknownIdentity(t *testing.T) {
	req := require.New(t)
	source := directoryStub{}

	backlog := projection.Backlog(source, "nobody")

	req.Empty(backlog.Conversations)
}

func mustConversation(t *testing.T, a, b domain.UserID) *domain.Conversation {
	t.Helper()
	id, err := domain.ResolveConversationID(a, b)
	require.NoError(t, err)
	conv, err := domain.NewConversation(id, a, b)
	require.NoError(t, err)
	return conv
}
