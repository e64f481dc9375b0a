package services

import (
	"campus-chat/domain"
	"campus-chat/errors"
	"campus-chat/mocks"
	"campus-chat/realtime"
	"campus-chat/repositories"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestConversationView_Open_Requires_Identity(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	service := mocks.NewMockIChatService(ctrl)
	identity := mocks.NewMockIdentityResolver(ctrl)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Given nobody is signed in, the service is never reached
	identity.EXPECT().CurrentUser(gomock.Any()).Return(domain.Identity{}, false)

	view := NewConversationView(log, service, identity, "c1", time.Second, nil)
	defer view.Close()

	// When
	err := view.Open(context.Background())

	// Then
	req.ErrorIs(err, errors.ErrUnauthenticated)
	req.Empty(view.Messages())
}

func TestConversationView_Send_Failure_Restores_Timeline(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	service := mocks.NewMockIChatService(ctrl)
	identity := mocks.NewMockIdentityResolver(ctrl)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctx := context.Background()

	incoming := domain.Message{ID: "m1", ConversationID: "c1", SenderID: "u2", Content: "hi", CreatedAt: time.Now().UTC()}
	var (
		mu        sync.Mutex
		snapshots [][]domain.Message
	)
	onChange := func(messages []domain.Message) {
		mu.Lock()
		defer mu.Unlock()
		snapshots = append(snapshots, messages)
	}

	// Given an open view on a conversation holding one message of the other party
	identity.EXPECT().CurrentUser(gomock.Any()).Return(domain.Identity{ID: "u1"}, true)
	service.EXPECT().SubscribeToMessages(domain.ConversationID("c1"), gomock.Any()).Return(nil)
	service.EXPECT().GetMessages(gomock.Any(), domain.ConversationID("c1")).Return([]domain.Message{incoming})
	service.EXPECT().MarkMessagesAsRead(gomock.Any(), domain.ConversationID("c1")).Times(1)
	service.EXPECT().Send(gomock.Any(), domain.ConversationID("c1"), "hello").
		Return(domain.Message{}, fmt.Errorf("%w: backend down", errors.ErrSendFailed))

	view := NewConversationView(log, service, identity, "c1", time.Second, onChange)
	req.NoError(view.Open(ctx))

	// When
	_, err := view.Send(ctx, "  hello ")
	view.Close()

	// Then the pending entry showed up and was rolled back
	req.ErrorIs(err, errors.ErrSendFailed)
	req.Equal([]domain.Message{incoming}, view.Messages())
	mu.Lock()
	defer mu.Unlock()
	req.Len(snapshots, 3)
	req.Len(snapshots[1], 2)
	req.True(snapshots[1][1].IsOptimistic())
	req.Equal("hello", snapshots[1][1].Content)
	req.Equal([]domain.Message{incoming}, snapshots[2])
}

func TestConversationView_Open_Loads_Once_The_Channel_Is_Live(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	service := mocks.NewMockIChatService(ctrl)
	identity := mocks.NewMockIdentityResolver(ctrl)
	source := mocks.NewMockChangeSource(ctrl)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	feed := realtime.NewFeed(log, source, realtime.NewRegistry(), nil)
	at := time.Now().UTC()

	history := domain.Message{ID: "m1", ConversationID: "c1", SenderID: "u2", Content: "is it still for sale?", CreatedAt: at}
	meanwhile := repositories.DiskMessage{ID: "m2", ConversationID: "c1", SenderID: "u2", Content: "hello?", CreatedAt: at.Add(time.Second)}
	handshake := make(chan struct{})
	var live, loadedLive atomic.Bool

	// Given a channel whose handshake completes later, delivering a message
	// inserted while it was in progress
	identity.EXPECT().CurrentUser(gomock.Any()).Return(domain.Identity{ID: "u1"}, true)
	source.EXPECT().Listen(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ realtime.Channel, onChange func(repositories.Change), onStatus func(realtime.Status)) error {
			<-handshake
			live.Store(true)
			onStatus(realtime.StatusSubscribed)
			onChange(repositories.MessageChange(repositories.OperationInsert, meanwhile))
			<-ctx.Done()
			return nil
		})
	service.EXPECT().SubscribeToMessages(domain.ConversationID("c1"), gomock.Any()).
		DoAndReturn(func(id domain.ConversationID, onMessage func(domain.Message)) *realtime.Subscription {
			return feed.SubscribeMessages(id, onMessage)
		})
	service.EXPECT().GetMessages(gomock.Any(), domain.ConversationID("c1")).
		DoAndReturn(func(context.Context, domain.ConversationID) []domain.Message {
			loadedLive.Store(live.Load())
			return []domain.Message{history}
		})
	service.EXPECT().MarkMessagesAsRead(gomock.Any(), domain.ConversationID("c1")).AnyTimes()

	view := NewConversationView(log, service, identity, "c1", time.Second, nil)
	defer view.Close()

	// When the screen opens while the handshake is still running
	opened := make(chan error, 1)
	go func() { opened <- view.Open(context.Background()) }()
	select {
	case <-opened:
		req.Fail("Open returned before the channel was live")
	case <-time.After(50 * time.Millisecond):
	}
	close(handshake)

	// Then the history was read on a live channel and nothing is missed
	req.NoError(<-opened)
	req.True(loadedLive.Load())
	req.Eventually(func() bool {
		return len(view.Messages()) == 2
	}, time.Second, 10*time.Millisecond)
	req.Equal([]domain.MessageID{"m1", "m2"}, []domain.MessageID{view.Messages()[0].ID, view.Messages()[1].ID})
}

func TestConversationView_Send_Rejects_Blank_Content(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	service := mocks.NewMockIChatService(ctrl)
	identity := mocks.NewMockIdentityResolver(ctrl)

	view := NewConversationView(logs.GetLoggerFromLevel(slog.LevelDebug), service, identity, "c1", time.Second, nil)
	defer view.Close()

	_, err := view.Send(context.Background(), "   ")

	req.ErrorIs(err, errors.ErrEmptyContent)
}

func TestInboxView_Open_Propagates_Subscription_Failure(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	service := mocks.NewMockIChatService(ctrl)

	// Given the conversations feed cannot be opened
	service.EXPECT().SubscribeToConversations(gomock.Any(), gomock.Any()).Return(nil, errors.ErrUnauthenticated)
	service.EXPECT().GetConversations(gomock.Any()).Times(0)

	view := NewInboxView(logs.GetLoggerFromLevel(slog.LevelDebug), service, nil)
	defer view.Close()

	// When
	err := view.Open(context.Background())

	// Then
	req.ErrorIs(err, errors.ErrUnauthenticated)
	req.Empty(view.Conversations())
}

func TestInboxView_Start_Brings_Conversation_Into_List(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	service := mocks.NewMockIChatService(ctrl)
	now := time.Now().UTC()

	older := domain.Conversation{ID: "c1", UpdatedAt: now.Add(-time.Hour)}
	started := domain.Conversation{ID: "c2", UpdatedAt: now}
	var notified []domain.Conversation

	// Given an inbox holding one conversation
	service.EXPECT().SubscribeToConversations(gomock.Any(), gomock.Any()).Return(nil, nil)
	service.EXPECT().GetConversations(gomock.Any()).Return([]domain.Conversation{older})
	service.EXPECT().CreateConversation(gomock.Any(), domain.UserID("u2")).Return(started, nil)

	view := NewInboxView(logs.GetLoggerFromLevel(slog.LevelDebug), service, func(conversations []domain.Conversation) {
		notified = conversations
	})
	defer view.Close()
	req.NoError(view.Open(context.Background()))

	// When
	conversation, err := view.Start(context.Background(), "u2")

	// Then the new conversation comes first
	req.NoError(err)
	req.Equal(started.ID, conversation.ID)
	req.Equal([]domain.ConversationID{"c2", "c1"}, conversationIDs(view.Conversations()))
	req.Equal([]domain.ConversationID{"c2", "c1"}, conversationIDs(notified))
}

func conversationIDs(conversations []domain.Conversation) []domain.ConversationID {
	ids := make([]domain.ConversationID, 0, len(conversations))
	for _, c := range conversations {
		ids = append(ids, c.ID)
	}
	return ids
}
