//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"campus-chat/domain"
	"campus-chat/domain/event"
	"campus-chat/realtime"
	"context"
	"reflect"
)

// IdentityResolver answers who is signed in. false means unauthenticated, never an error.
type IdentityResolver interface {
	CurrentUser(ctx context.Context) (domain.Identity, bool)
}

type IConversationStore interface {
	ListConversationsFor(ctx context.Context, identity domain.Identity) ([]domain.Conversation, error)
	GetConversation(ctx context.Context, id domain.ConversationID) (domain.Conversation, error)
	CreateConversation(ctx context.Context, participantIDs []domain.UserID) (domain.Conversation, error)
	FindExistingConversation(ctx context.Context, a, b domain.UserID) (domain.Conversation, bool, error)
}

type IMessageStore interface {
	ListMessages(ctx context.Context, conversationID domain.ConversationID) ([]domain.Message, error)
	AppendMessage(ctx context.Context, conversationID domain.ConversationID, senderID domain.UserID, content string) (domain.Message, error)
	MarkRead(ctx context.Context, conversationID domain.ConversationID, readerID domain.UserID) (int, error)
}

type IUserDirectory interface {
	SearchUsers(ctx context.Context, query string, excludeID domain.UserID, limit int) ([]domain.UserInfo, error)
}

// IFeed opens live subscriptions on the backend change feed.
type IFeed interface {
	SubscribeMessages(conversationID domain.ConversationID, onMessage func(domain.Message)) *realtime.Subscription
	SubscribeConversations(userID domain.UserID, onEvent func(event.ConversationChanged)) *realtime.Subscription
}

// IChatService is the surface consumed by screens.
// Read operations degrade to empty results, they never fail.
type IChatService interface {
	GetConversations(ctx context.Context) []domain.Conversation
	GetMessages(ctx context.Context, conversationID domain.ConversationID) []domain.Message
	SendMessage(ctx context.Context, conversationID domain.ConversationID, content string) (domain.Message, bool)
	Send(ctx context.Context, conversationID domain.ConversationID, content string) (domain.Message, error)
	CreateConversation(ctx context.Context, otherUserID domain.UserID) (domain.Conversation, error)
	MarkMessagesAsRead(ctx context.Context, conversationID domain.ConversationID)
	SubscribeToMessages(conversationID domain.ConversationID, onMessage func(domain.Message)) *realtime.Subscription
	SubscribeToConversations(ctx context.Context, onEvent func(event.ConversationChanged)) (*realtime.Subscription, error)
	SearchUsers(ctx context.Context, query string) ([]domain.UserInfo, error)
}

// ContentFilter rewrites outgoing content before it is stored and reports
// the words it masked.
type ContentFilter interface {
	Censor(content string) (string, []string)
}

// Worker is a long-running background task run under a supervisor.
// Run returns nil once its job is over, an error or a panic gets it restarted.
type Worker interface {
	Run(ctx context.Context) error
}

// WorkerName is the type name of w, used in supervision logs.
func WorkerName(w Worker) string {
	if w == nil {
		return "nil"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
