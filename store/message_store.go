package store

import (
	"campus-chat/domain"
	"campus-chat/errors"
	"campus-chat/repositories"
	"campus-chat/storage"
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
)

// MessageStore is the append-only message log of conversations.
type MessageStore struct {
	log           *slog.Logger
	messages      repositories.IMessageRepository
	conversations repositories.IConversationRepository
	users         repositories.IUserRepository
	avatars       storage.AvatarResolver
}

func NewMessageStore(log *slog.Logger, messages repositories.IMessageRepository,
	conversations repositories.IConversationRepository, users repositories.IUserRepository,
	avatars storage.AvatarResolver) *MessageStore {
	return &MessageStore{
		log:           log,
		messages:      messages,
		conversations: conversations,
		users:         users,
		avatars:       avatars,
	}
}

// ListMessages returns the conversation oldest first, each message carrying
// its sender display info. Senders are resolved in one lookup.
func (s *MessageStore) ListMessages(ctx context.Context, conversationID domain.ConversationID) ([]domain.Message, error) {
	rows, err := s.messages.GetMessages(ctx, string(conversationID))
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	senderIDs := lo.Map(rows, func(m repositories.DiskMessage, _ int) string { return m.SenderID })
	infos, err := lookupUsers(ctx, s.users, s.avatars, senderIDs)
	if err != nil {
		return nil, err
	}
	messages := lo.Map(rows, func(row repositories.DiskMessage, _ int) domain.Message {
		m := row.ToDomain()
		m.Sender = userInfoPtr(infos, m.SenderID)
		return m
	})
	domain.SortMessages(messages)
	return messages, nil
}

// AppendMessage persists a message and bumps the conversation updated_at.
// A failed write is ErrSendFailed. A failed bump is only logged, the
// message itself is already stored.
func (s *MessageStore) AppendMessage(ctx context.Context, conversationID domain.ConversationID, senderID domain.UserID, content string) (domain.Message, error) {
	row, err := s.messages.StoreMessage(ctx, repositories.DiskMessage{
		ConversationID: string(conversationID),
		SenderID:       string(senderID),
		Content:        content,
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %w", errors.ErrSendFailed, err)
	}
	if err = s.conversations.TouchConversation(ctx, string(conversationID), row.CreatedAt); err != nil {
		s.log.Warn(fmt.Sprintf("Could not bump updated_at of conversation %s: %v", conversationID, err))
	}
	return row.ToDomain(), nil
}

// MarkRead flips read on the messages of the other party. Nothing to read is not an error.
func (s *MessageStore) MarkRead(ctx context.Context, conversationID domain.ConversationID, readerID domain.UserID) (int, error) {
	return s.messages.MarkRead(ctx, string(conversationID), string(readerID))
}
