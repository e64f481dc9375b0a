package services

import (
	"campus-chat/auth"
	"campus-chat/contract"
	"campus-chat/domain"
	"campus-chat/domain/event"
	"campus-chat/errors"
	"campus-chat/observability"
	"campus-chat/realtime"
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
)

type ChatConfig struct {
	MaxContentLength int
	SearchLimit      int
	// Filter, when set, masks forbidden words before a message is stored.
	Filter contract.ContentFilter
}

func DefaultChatConfig() ChatConfig {
	return ChatConfig{
		MaxContentLength: domain.MaxContentLength,
		SearchLimit:      10,
	}
}

// ChatService orchestrates identity, stores and the realtime feed for screens.
type ChatService struct {
	log           *slog.Logger
	identity      contract.IdentityResolver
	conversations contract.IConversationStore
	messages      contract.IMessageStore
	users         contract.IUserDirectory
	feed          contract.IFeed
	metrics       *observability.Metrics
	config        ChatConfig
}

func NewChatService(log *slog.Logger, identity contract.IdentityResolver,
	conversations contract.IConversationStore, messages contract.IMessageStore,
	users contract.IUserDirectory, feed contract.IFeed,
	metrics *observability.Metrics, config ChatConfig) *ChatService {
	return &ChatService{
		log:           log,
		identity:      identity,
		conversations: conversations,
		messages:      messages,
		users:         users,
		feed:          feed,
		metrics:       metrics,
		config:        config,
	}
}

// GetConversations returns the inbox of the signed-in user.
// Unauthenticated or failing reads return an empty list.
func (s *ChatService) GetConversations(ctx context.Context) []domain.Conversation {
	identity, ok := s.identity.CurrentUser(ctx)
	if !ok {
		return []domain.Conversation{}
	}
	conversations, err := s.conversations.ListConversationsFor(ctx, identity)
	if err != nil {
		s.log.Error(fmt.Sprintf("Unable to list conversations of %s: %v", identity.ID, err))
		return []domain.Conversation{}
	}
	return conversations
}

func (s *ChatService) GetMessages(ctx context.Context, conversationID domain.ConversationID) []domain.Message {
	if _, ok := s.identity.CurrentUser(ctx); !ok {
		return []domain.Message{}
	}
	messages, err := s.messages.ListMessages(ctx, conversationID)
	if err != nil {
		s.log.Error(fmt.Sprintf("Unable to list messages of conversation %s: %v", conversationID, err))
		return []domain.Message{}
	}
	return messages
}

// SendMessage returns false on any failure, the reason is logged.
// Callers use it to confirm or roll back their optimistic entry.
func (s *ChatService) SendMessage(ctx context.Context, conversationID domain.ConversationID, content string) (domain.Message, bool) {
	message, err := s.Send(ctx, conversationID, content)
	if err != nil {
		s.log.Warn(fmt.Sprintf("Message not sent to conversation %s: %v", conversationID, err))
		return domain.Message{}, false
	}
	return message, true
}

// Send is SendMessage with the failure reason.
func (s *ChatService) Send(ctx context.Context, conversationID domain.ConversationID, content string) (domain.Message, error) {
	identity, ok := s.identity.CurrentUser(ctx)
	if !ok {
		s.metrics.SendFailed()
		return domain.Message{}, errors.ErrUnauthenticated
	}
	content, err := auth.ValidateMessage(conversationID, content, s.config.MaxContentLength)
	if err != nil {
		s.metrics.SendFailed()
		return domain.Message{}, err
	}
	if s.config.Filter != nil {
		if censored, words := s.config.Filter.Censor(content); len(words) > 0 {
			s.log.Info(fmt.Sprintf("Message to conversation %s censored, %d word(s) masked", conversationID, len(words)))
			content = censored
		}
	}
	message, err := s.messages.AppendMessage(ctx, conversationID, identity.ID, content)
	if err != nil {
		s.metrics.SendFailed()
		return domain.Message{}, err
	}
	s.metrics.MessageSent()
	return message, nil
}

// CreateConversation returns the conversation between the caller and
// otherUserID, creating it only when the pair has none.
func (s *ChatService) CreateConversation(ctx context.Context, otherUserID domain.UserID) (domain.Conversation, error) {
	identity, ok := s.identity.CurrentUser(ctx)
	if !ok {
		return domain.Conversation{}, errors.ErrUnauthenticated
	}
	if otherUserID == "" || otherUserID == identity.ID {
		return domain.Conversation{}, fmt.Errorf("%w: cannot start a conversation with %q", errors.ErrInvalidParticipants, otherUserID)
	}
	existing, found, err := s.conversations.FindExistingConversation(ctx, identity.ID, otherUserID)
	if err != nil {
		return domain.Conversation{}, err
	}
	if found {
		return existing, nil
	}
	created, err := s.conversations.CreateConversation(ctx, []domain.UserID{identity.ID, otherUserID})
	if errors.Is(err, errors.ErrConversationExists) {
		// Lost the race against a concurrent create of the same pair.
		existing, found, err = s.conversations.FindExistingConversation(ctx, identity.ID, otherUserID)
		if err != nil {
			return domain.Conversation{}, err
		}
		if !found {
			return domain.Conversation{}, fmt.Errorf("%w: conversation with %s", errors.ErrNotFound, otherUserID)
		}
		return existing, nil
	}
	if err != nil {
		return domain.Conversation{}, err
	}
	s.log.Info(fmt.Sprintf("Conversation %s started by %s", created.ID, identity.ID))
	return created, nil
}

// MarkMessagesAsRead never reports anything to the caller.
func (s *ChatService) MarkMessagesAsRead(ctx context.Context, conversationID domain.ConversationID) {
	identity, ok := s.identity.CurrentUser(ctx)
	if !ok {
		return
	}
	if _, err := s.messages.MarkRead(ctx, conversationID, identity.ID); err != nil {
		s.log.Warn(fmt.Sprintf("Unable to mark conversation %s as read: %v", conversationID, err))
	}
}

// SubscribeToMessages delivers messages inserted in the conversation.
// A panicking callback is recovered and the channel stays open.
func (s *ChatService) SubscribeToMessages(conversationID domain.ConversationID, onMessage func(domain.Message)) *realtime.Subscription {
	topic := domain.MessagesTopic(conversationID)
	return s.feed.SubscribeMessages(conversationID, guard(s, topic, onMessage))
}

// SubscribeToConversations keeps an inbox fresh: creations and updated_at bumps
// of the conversations of the signed-in user.
func (s *ChatService) SubscribeToConversations(ctx context.Context, onEvent func(event.ConversationChanged)) (*realtime.Subscription, error) {
	identity, ok := s.identity.CurrentUser(ctx)
	if !ok {
		return nil, errors.ErrUnauthenticated
	}
	topic := domain.ConversationsTopic(identity.ID)
	return s.feed.SubscribeConversations(identity.ID, guard(s, topic, onEvent)), nil
}

// SearchUsers matches names and email, the caller never shows up in the result.
// An empty query is an empty result, not an error.
func (s *ChatService) SearchUsers(ctx context.Context, query string) ([]domain.UserInfo, error) {
	identity, ok := s.identity.CurrentUser(ctx)
	if !ok {
		return nil, errors.ErrUnauthenticated
	}
	query, err := auth.ValidateSearch(query)
	if errors.Is(err, errors.ErrEmptyQuery) {
		return []domain.UserInfo{}, nil
	}
	if err != nil {
		return nil, err
	}
	users, err := s.users.SearchUsers(ctx, query, identity.ID, s.config.SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	users = lo.Filter(users, func(u domain.UserInfo, _ int) bool { return u.ID != identity.ID })
	if len(users) > s.config.SearchLimit {
		users = users[:s.config.SearchLimit]
	}
	return users, nil
}

func guard[T any](s *ChatService, topic domain.Topic, callback func(T)) func(T) {
	return func(value T) {
		defer func() {
			if r := recover(); r != nil {
				s.metrics.CallbackPanicked()
				s.log.Error(fmt.Sprintf("Recovered from panic in %s callback: %v", topic, r))
			}
		}()
		callback(value)
	}
}
