package postgres

import (
	"campus-chat/errors"
	"campus-chat/repositories"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConversationRepository struct {
	db        *gorm.DB
	publisher repositories.ChangePublisher
	log       *slog.Logger
}

func NewConversationRepository(db *gorm.DB, publisher repositories.ChangePublisher, log *slog.Logger) ConversationRepository {
	return ConversationRepository{db: db, publisher: publisher, log: log}
}

// CreateConversation inserts the conversation and its participants in one
// transaction. The unique pair_key index rejects a second conversation for
// the same pair with ErrConversationExists.
func (r ConversationRepository) CreateConversation(ctx context.Context, conversation repositories.DiskConversation, participants []repositories.DiskParticipant) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := fromDiskConversation(conversation)
		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errors.ErrConversationExists
			}
			return err
		}
		if len(participants) == 0 {
			return nil
		}
		rows := lo.Map(participants, func(p repositories.DiskParticipant, _ int) ConversationParticipant {
			return fromDiskParticipant(p)
		})
		return tx.Omit(clause.Associations).Create(&rows).Error
	})
	if err != nil {
		return err
	}
	changes := []repositories.Change{repositories.ConversationChange(repositories.OperationInsert, conversation)}
	for _, p := range participants {
		changes = append(changes, repositories.ParticipantChange(repositories.OperationInsert, p))
	}
	publish(ctx, r.log, r.publisher, changes...)
	return nil
}

func (r ConversationRepository) GetConversation(ctx context.Context, id string) (repositories.DiskConversation, error) {
	var row Conversation
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repositories.DiskConversation{}, fmt.Errorf("conversation %s: %w", id, errors.ErrNotFound)
	}
	if err != nil {
		return repositories.DiskConversation{}, err
	}
	return row.toDisk(), nil
}

func (r ConversationRepository) GetConversations(ctx context.Context, ids []string) ([]repositories.DiskConversation, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []Conversation
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return lo.Map(rows, func(c Conversation, _ int) repositories.DiskConversation { return c.toDisk() }), nil
}

func (r ConversationRepository) TouchConversation(ctx context.Context, id string, at time.Time) error {
	var rows []Conversation
	result := r.db.WithContext(ctx).Model(&rows).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Update("updated_at", gorm.Expr("GREATEST(updated_at, ?)", at.UTC()))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 || len(rows) == 0 {
		return fmt.Errorf("conversation %s: %w", id, errors.ErrNotFound)
	}
	publish(ctx, r.log, r.publisher, repositories.ConversationChange(repositories.OperationUpdate, rows[0].toDisk()))
	return nil
}

// ConversationIDsFor lists the conversations userID takes part in,
// restricted to among when it is not nil.
func (r ConversationRepository) ConversationIDsFor(ctx context.Context, userID string, among []string) ([]string, error) {
	if among != nil && len(among) == 0 {
		return nil, nil
	}
	query := r.db.WithContext(ctx).Model(&ConversationParticipant{}).Where("user_id = ?", userID)
	if among != nil {
		query = query.Where("conversation_id IN ?", among)
	}
	var ids []string
	err := query.Pluck("conversation_id", &ids).Error
	return ids, err
}

func (r ConversationRepository) GetParticipants(ctx context.Context, conversationIDs []string) ([]repositories.DiskParticipant, error) {
	if len(conversationIDs) == 0 {
		return nil, nil
	}
	var rows []ConversationParticipant
	if err := r.db.WithContext(ctx).Where("conversation_id IN ?", conversationIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	return lo.Map(rows, func(p ConversationParticipant, _ int) repositories.DiskParticipant { return p.toDisk() }), nil
}
