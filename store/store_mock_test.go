package store

import (
	"campus-chat/domain"
	"campus-chat/errors"
	"campus-chat/mocks"
	"campus-chat/repositories"
	"campus-chat/storage"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestAvatars(t *testing.T) *storage.Avatars {
	t.Helper()
	avatars, err := storage.NewAvatars(storage.Config{Endpoint: "http://localhost:9000", Bucket: "avatars"})
	require.NoError(t, err)
	return avatars
}

type repositoryMocks struct {
	conversations *mocks.MockIConversationRepository
	messages      *mocks.MockIMessageRepository
	users         *mocks.MockIUserRepository
}

func newMockedStores(t *testing.T) (*ConversationStore, *MessageStore, repositoryMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := repositoryMocks{
		conversations: mocks.NewMockIConversationRepository(ctrl),
		messages:      mocks.NewMockIMessageRepository(ctrl),
		users:         mocks.NewMockIUserRepository(ctrl),
	}
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	avatars := newTestAvatars(t)
	return NewConversationStore(log, m.conversations, m.messages, m.users, avatars),
		NewMessageStore(log, m.messages, m.conversations, m.users, avatars), m
}

func Test_List_Conversations_Fails_When_Users_Cannot_Be_Resolved(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	conversations, _, m := newMockedStores(t)
	boom := fmt.Errorf("directory unavailable")

	// Given one conversation whose participants cannot be resolved
	m.conversations.EXPECT().ConversationIDsFor(gomock.Any(), "u1", gomock.Nil()).Return([]string{"c1"}, nil)
	m.conversations.EXPECT().GetConversations(gomock.Any(), []string{"c1"}).
		Return([]repositories.DiskConversation{{ID: "c1", PairKey: "u1:u2"}}, nil)
	m.conversations.EXPECT().GetParticipants(gomock.Any(), []string{"c1"}).Return([]repositories.DiskParticipant{
		{ID: "p1", ConversationID: "c1", UserID: "u1"},
		{ID: "p2", ConversationID: "c1", UserID: "u2"},
	}, nil)
	m.messages.EXPECT().GetLatestMessages(gomock.Any(), []string{"c1"}).Return(map[string]repositories.DiskMessage{}, nil)
	m.users.EXPECT().GetUsers(gomock.Any(), []string{"u1", "u2"}).Return(nil, boom)

	// When
	list, err := conversations.ListConversationsFor(ctx, domain.Identity{ID: "u1"})

	// Then
	req.ErrorIs(err, boom)
	req.Nil(list)
}

func Test_Find_Existing_Conversation_Restricts_Second_Query(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	conversations, _, m := newMockedStores(t)

	// Given u1 has two conversations, none of them with u2
	gomock.InOrder(
		m.conversations.EXPECT().ConversationIDsFor(gomock.Any(), "u1", gomock.Nil()).Return([]string{"c1", "c2"}, nil),
		m.conversations.EXPECT().ConversationIDsFor(gomock.Any(), "u2", []string{"c1", "c2"}).Return([]string{}, nil),
	)

	// When
	_, found, err := conversations.FindExistingConversation(ctx, "u1", "u2")

	// Then
	req.NoError(err)
	req.False(found)
}

func Test_Find_Existing_Conversation_Skips_Second_Query_Without_Conversations(t *testing.T) {
	req := require.New(t)
	conversations, _, m := newMockedStores(t)

	m.conversations.EXPECT().ConversationIDsFor(gomock.Any(), "u1", gomock.Nil()).Return(nil, nil)

	_, found, err := conversations.FindExistingConversation(context.Background(), "u1", "u2")

	req.NoError(err)
	req.False(found)
}

func Test_Create_Conversation_Propagates_Existing_Pair(t *testing.T) {
	req := require.New(t)
	conversations, _, m := newMockedStores(t)

	// Given the pair key is already taken
	m.conversations.EXPECT().CreateConversation(gomock.Any(), gomock.Any(), gomock.Len(2)).
		DoAndReturn(func(_ context.Context, row repositories.DiskConversation, _ []repositories.DiskParticipant) error {
			req.Equal("u1:u2", row.PairKey)
			return errors.ErrConversationExists
		})

	// When
	_, err := conversations.CreateConversation(context.Background(), []domain.UserID{"u2", "u1"})

	// Then
	req.ErrorIs(err, errors.ErrConversationExists)
}

func Test_Append_Message_Survives_A_Failed_Bump(t *testing.T) {
	req := require.New(t)
	_, messages, m := newMockedStores(t)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	// Given the message is stored but updated_at cannot be bumped
	m.messages.EXPECT().StoreMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, row repositories.DiskMessage) (repositories.DiskMessage, error) {
			row.ID = "m1"
			row.CreatedAt = at
			return row, nil
		})
	m.conversations.EXPECT().TouchConversation(gomock.Any(), "c1", at).Return(fmt.Errorf("locked"))

	// When
	message, err := messages.AppendMessage(context.Background(), "c1", "u1", "hello")

	// Then
	req.NoError(err)
	req.Equal(domain.MessageID("m1"), message.ID)
	req.Equal("hello", message.Content)
}

func Test_Append_Message_Does_Not_Bump_On_Failed_Write(t *testing.T) {
	req := require.New(t)
	_, messages, m := newMockedStores(t)

	m.messages.EXPECT().StoreMessage(gomock.Any(), gomock.Any()).Return(repositories.DiskMessage{}, fmt.Errorf("disk full"))

	_, err := messages.AppendMessage(context.Background(), "c1", "u1", "hello")

	req.ErrorIs(err, errors.ErrSendFailed)
	req.ErrorContains(err, "disk full")
}
