package repositories

import (
	"campus-chat/errors"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func Test_Create_And_Get_Conversation(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewConversationRepository(openDB(t), testLogger(), time.Minute)

	conversation, participants := newConversation("alice", "bob")
	req.NoError(repository.CreateConversation(ctx, conversation, participants))

	fetched, err := repository.GetConversation(ctx, conversation.ID)
	req.NoError(err)
	req.Equal(conversation.ID, fetched.ID)
	req.True(fetched.HasMember("alice"))
	req.True(fetched.HasMember("bob"))
	req.False(fetched.HasMember("clara"))

	stored, err := repository.GetParticipants(ctx, []string{conversation.ID})
	req.NoError(err)
	req.ElementsMatch(participants, stored)
}

func Test_Create_Conversation_Rejects_Existing_Pair(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewConversationRepository(openDB(t), testLogger(), time.Minute)

	first, firstParticipants := newConversation("alice", "bob")
	req.NoError(repository.CreateConversation(ctx, first, firstParticipants))

	// Same pair, the other way round
	second, secondParticipants := newConversation("bob", "alice")
	err := repository.CreateConversation(ctx, second, secondParticipants)

	req.ErrorIs(err, errors.ErrConversationExists)
	_, err = repository.GetConversation(ctx, second.ID)
	req.ErrorIs(err, errors.ErrNotFound)
}

func Test_Get_Unknown_Conversation(t *testing.T) {
	req := require.New(t)
	repository := NewConversationRepository(openDB(t), testLogger(), time.Minute)

	_, err := repository.GetConversation(context.Background(), uuid.NewString())

	req.ErrorIs(err, errors.ErrNotFound)
}

func Test_Get_Conversations_Skips_Missing_Ids(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewConversationRepository(openDB(t), testLogger(), time.Minute)

	conversation, participants := newConversation("alice", "bob")
	req.NoError(repository.CreateConversation(ctx, conversation, participants))

	conversations, err := repository.GetConversations(ctx, []string{"ghost", conversation.ID})

	req.NoError(err)
	req.Len(conversations, 1)
	req.Equal(conversation.ID, conversations[0].ID)
}

func Test_Conversation_Ids_For_User(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewConversationRepository(openDB(t), testLogger(), time.Minute)

	ab, abParticipants := newConversation("alice", "bob")
	ac, acParticipants := newConversation("alice", "clara")
	bc, bcParticipants := newConversation("bob", "clara")
	req.NoError(repository.CreateConversation(ctx, ab, abParticipants))
	req.NoError(repository.CreateConversation(ctx, ac, acParticipants))
	req.NoError(repository.CreateConversation(ctx, bc, bcParticipants))

	t.Run("all conversations of a user", func(t *testing.T) {
		ids, err := repository.ConversationIDsFor(ctx, "alice", nil)
		require.NoError(t, err)
		require.ElementsMatch(t, []string{ab.ID, ac.ID}, ids)
	})

	t.Run("restricted to a set", func(t *testing.T) {
		ids, err := repository.ConversationIDsFor(ctx, "bob", []string{ab.ID, ac.ID})
		require.NoError(t, err)
		require.Equal(t, []string{ab.ID}, ids)
	})

	t.Run("empty set", func(t *testing.T) {
		ids, err := repository.ConversationIDsFor(ctx, "bob", []string{})
		require.NoError(t, err)
		require.Empty(t, ids)
	})

	t.Run("user without conversation", func(t *testing.T) {
		ids, err := repository.ConversationIDsFor(ctx, "dave", nil)
		require.NoError(t, err)
		require.Empty(t, ids)
	})
}

func Test_Touch_Conversation(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewConversationRepository(openDB(t), testLogger(), time.Minute)

	conversation, participants := newConversation("alice", "bob")
	req.NoError(repository.CreateConversation(ctx, conversation, participants))

	at := conversation.UpdatedAt.Add(time.Hour)
	req.NoError(repository.TouchConversation(ctx, conversation.ID, at))

	fetched, err := repository.GetConversation(ctx, conversation.ID)
	req.NoError(err)
	req.True(at.Equal(fetched.UpdatedAt))
	req.True(conversation.CreatedAt.Equal(fetched.CreatedAt))

	req.ErrorIs(repository.TouchConversation(ctx, "ghost", at), errors.ErrNotFound)
}
