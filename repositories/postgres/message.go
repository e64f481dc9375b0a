package postgres

import (
	"campus-chat/errors"
	"campus-chat/repositories"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepository struct {
	db        *gorm.DB
	publisher repositories.ChangePublisher
	log       *slog.Logger
}

func NewMessageRepository(db *gorm.DB, publisher repositories.ChangePublisher, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, publisher: publisher, log: log}
}

func (r MessageRepository) StoreMessage(ctx context.Context, message repositories.DiskMessage) (repositories.DiskMessage, error) {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	message.CreatedAt = message.CreatedAt.UTC()
	row := fromDiskMessage(message)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Conversation{}).Where("id = ?", message.ConversationID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("conversation %s: %w", message.ConversationID, errors.ErrNotFound)
		}
		return tx.Omit(clause.Associations).Create(&row).Error
	})
	if err != nil {
		return repositories.DiskMessage{}, err
	}
	stored := row.toDisk()
	publish(ctx, r.log, r.publisher, repositories.MessageChange(repositories.OperationInsert, stored))
	return stored, nil
}

func (r MessageRepository) GetMessages(ctx context.Context, conversationID string) ([]repositories.DiskMessage, error) {
	var rows []Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(m Message, _ int) repositories.DiskMessage { return m.toDisk() }), nil
}

// GetLatestMessages reads the last message of each conversation in one query.
func (r MessageRepository) GetLatestMessages(ctx context.Context, conversationIDs []string) (map[string]repositories.DiskMessage, error) {
	latest := make(map[string]repositories.DiskMessage, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return latest, nil
	}
	var rows []Message
	err := r.db.WithContext(ctx).
		Raw(`SELECT DISTINCT ON (conversation_id) * FROM messages
			WHERE conversation_id IN ?
			ORDER BY conversation_id, created_at DESC, seq DESC`, conversationIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		latest[row.ConversationID] = row.toDisk()
	}
	return latest, nil
}

func (r MessageRepository) MarkRead(ctx context.Context, conversationID, readerID string) (int, error) {
	var rows []Message
	result := r.db.WithContext(ctx).Model(&rows).
		Clauses(clause.Returning{}).
		Where("conversation_id = ? AND sender_id <> ? AND read = ?", conversationID, readerID, false).
		Update("read", true)
	if result.Error != nil {
		return 0, result.Error
	}
	changes := lo.Map(rows, func(m Message, _ int) repositories.Change {
		return repositories.MessageChange(repositories.OperationUpdate, m.toDisk())
	})
	publish(ctx, r.log, r.publisher, changes...)
	return int(result.RowsAffected), nil
}
