package store

import (
	"campus-chat/domain"
	"campus-chat/errors"
	"campus-chat/repositories"
	"campus-chat/storage"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ConversationStore is the query layer over conversations and participants.
// It does not enforce the one-conversation-per-pair rule, the chat service does.
type ConversationStore struct {
	log           *slog.Logger
	conversations repositories.IConversationRepository
	messages      repositories.IMessageRepository
	users         repositories.IUserRepository
	avatars       storage.AvatarResolver
}

func NewConversationStore(log *slog.Logger, conversations repositories.IConversationRepository,
	messages repositories.IMessageRepository, users repositories.IUserRepository,
	avatars storage.AvatarResolver) *ConversationStore {
	return &ConversationStore{
		log:           log,
		conversations: conversations,
		messages:      messages,
		users:         users,
		avatars:       avatars,
	}
}

// ListConversationsFor returns the inbox of identity, most recently updated first,
// with participants and last message resolved. No conversation is an empty slice.
func (s *ConversationStore) ListConversationsFor(ctx context.Context, identity domain.Identity) ([]domain.Conversation, error) {
	ids, err := s.conversations.ConversationIDsFor(ctx, string(identity.ID), nil)
	if err != nil {
		return nil, fmt.Errorf("list conversation ids: %w", err)
	}
	if len(ids) == 0 {
		return []domain.Conversation{}, nil
	}
	rows, err := s.conversations.GetConversations(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get conversations: %w", err)
	}
	conversations, err := s.enrich(ctx, rows)
	if err != nil {
		return nil, err
	}
	domain.SortConversations(conversations)
	return conversations, nil
}

// GetConversation fails with ErrNotFound when id does not resolve.
func (s *ConversationStore) GetConversation(ctx context.Context, id domain.ConversationID) (domain.Conversation, error) {
	row, err := s.conversations.GetConversation(ctx, string(id))
	if err != nil {
		return domain.Conversation{}, err
	}
	conversations, err := s.enrich(ctx, []repositories.DiskConversation{row})
	if err != nil {
		return domain.Conversation{}, err
	}
	return conversations[0], nil
}

// CreateConversation inserts one conversation row and one participant row
// per identity. Exactly two distinct identities are required.
func (s *ConversationStore) CreateConversation(ctx context.Context, participantIDs []domain.UserID) (domain.Conversation, error) {
	ids := lo.Uniq(lo.Compact(participantIDs))
	if len(ids) != 2 || len(participantIDs) != 2 {
		return domain.Conversation{}, errors.ErrInvalidParticipants
	}
	now := time.Now().UTC()
	row := repositories.DiskConversation{
		ID:        uuid.NewString(),
		PairKey:   domain.PairKey(ids[0], ids[1]),
		CreatedAt: now,
		UpdatedAt: now,
	}
	participants := lo.Map(ids, func(id domain.UserID, _ int) repositories.DiskParticipant {
		return repositories.DiskParticipant{
			ID:             uuid.NewString(),
			ConversationID: row.ID,
			UserID:         string(id),
		}
	})
	if err := s.conversations.CreateConversation(ctx, row, participants); err != nil {
		return domain.Conversation{}, err
	}
	s.log.Debug(fmt.Sprintf("Conversation %s created between %s and %s", row.ID, ids[0], ids[1]))
	return s.GetConversation(ctx, domain.ConversationID(row.ID))
}

// FindExistingConversation looks the pair up with two queries: the
// conversations of a, then the conversations of b restricted to that set.
// Any match is the conversation of the pair.
func (s *ConversationStore) FindExistingConversation(ctx context.Context, a, b domain.UserID) (domain.Conversation, bool, error) {
	idsA, err := s.conversations.ConversationIDsFor(ctx, string(a), nil)
	if err != nil {
		return domain.Conversation{}, false, fmt.Errorf("conversations of %s: %w", a, err)
	}
	if len(idsA) == 0 {
		return domain.Conversation{}, false, nil
	}
	shared, err := s.conversations.ConversationIDsFor(ctx, string(b), idsA)
	if err != nil {
		return domain.Conversation{}, false, fmt.Errorf("conversations of %s: %w", b, err)
	}
	if len(shared) == 0 {
		return domain.Conversation{}, false, nil
	}
	conversation, err := s.GetConversation(ctx, domain.ConversationID(shared[0]))
	if err != nil {
		return domain.Conversation{}, false, err
	}
	return conversation, true, nil
}

func (s *ConversationStore) enrich(ctx context.Context, rows []repositories.DiskConversation) ([]domain.Conversation, error) {
	ids := lo.Map(rows, func(row repositories.DiskConversation, _ int) string { return row.ID })
	participants, err := s.conversations.GetParticipants(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get participants: %w", err)
	}
	userIDs := lo.Map(participants, func(p repositories.DiskParticipant, _ int) string { return p.UserID })
	latest, err := s.messages.GetLatestMessages(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get last messages: %w", err)
	}
	for _, m := range latest {
		userIDs = append(userIDs, m.SenderID)
	}
	infos, err := lookupUsers(ctx, s.users, s.avatars, userIDs)
	if err != nil {
		return nil, err
	}

	byConversation := lo.GroupBy(participants, func(p repositories.DiskParticipant) string { return p.ConversationID })
	return lo.Map(rows, func(row repositories.DiskConversation, _ int) domain.Conversation {
		conversation := domain.Conversation{
			ID:        domain.ConversationID(row.ID),
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
			Participants: lo.Map(byConversation[row.ID], func(p repositories.DiskParticipant, _ int) domain.ConversationParticipant {
				return domain.ConversationParticipant{
					ID:             p.ID,
					ConversationID: domain.ConversationID(p.ConversationID),
					UserID:         domain.UserID(p.UserID),
					User:           userInfoPtr(infos, domain.UserID(p.UserID)),
				}
			}),
		}
		if m, ok := latest[row.ID]; ok {
			last := m.ToDomain()
			last.Sender = userInfoPtr(infos, last.SenderID)
			conversation.LastMessage = &last
		}
		return conversation
	}), nil
}

func userInfoPtr(infos map[domain.UserID]domain.UserInfo, id domain.UserID) *domain.UserInfo {
	info, ok := infos[id]
	if !ok {
		return nil
	}
	return &info
}
