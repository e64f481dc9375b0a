//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"campus-chat/errors"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// markReadBatch bounds one read receipt transaction, far below ErrTxnTooBig.
const markReadBatch = 256

type IMessageRepository interface {
	StoreMessage(ctx context.Context, message DiskMessage) (DiskMessage, error)
	GetMessages(ctx context.Context, conversationID string) ([]DiskMessage, error)
	GetLatestMessages(ctx context.Context, conversationIDs []string) (map[string]DiskMessage, error)
	MarkRead(ctx context.Context, conversationID, readerID string) (int, error)
}

// MessageRepository is the append-only message log in BadgerDB.
type MessageRepository struct {
	db      *badger.DB
	log     *slog.Logger
	seq     *badger.Sequence
	feedTTL time.Duration
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, feedTTL time.Duration) (*MessageRepository, error) {
	seq, err := db.GetSequence([]byte("seq:messages"), 100)
	if err != nil {
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	return &MessageRepository{db: db, log: log, seq: seq, feedTTL: feedTTL}, nil
}

// Close releases the leased sequence range.
func (m *MessageRepository) Close() error {
	return m.seq.Release()
}

func messagePrefix(conversationID string) []byte {
	return []byte(fmt.Sprintf("msg:%s:", conversationID))
}

// messageKey is formatted as "msg:{conversation}:{timestamp_padded}:{seq_padded}".
// The 19-digit zero padding keeps lexicographical order chronological and
// the sequence keeps insertion order when two messages share a nanosecond.
func messageKey(message DiskMessage) []byte {
	return []byte(fmt.Sprintf("%s%019d:%020d", messagePrefix(message.ConversationID), message.CreatedAt.UnixNano(), message.Seq))
}

// StoreMessage appends a message to an existing conversation. The id and
// created_at are assigned here when the caller leaves them empty, the way a
// backend insert would.
func (m *MessageRepository) StoreMessage(_ context.Context, message DiskMessage) (DiskMessage, error) {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	message.CreatedAt = message.CreatedAt.UTC()
	seq, err := m.seq.Next()
	if err != nil {
		return DiskMessage{}, err
	}
	message.Seq = seq
	bytes, err := json.Marshal(message)
	if err != nil {
		return DiskMessage{}, err
	}
	err = update(m.db, func(txn *badger.Txn) error {
		// The conversation plays the role of a foreign key.
		if _, err := getConversation(txn, message.ConversationID); err != nil {
			return err
		}
		if err := txn.Set(messageKey(message), bytes); err != nil {
			return err
		}
		return recordChange(txn, MessageChange(OperationInsert, message), m.feedTTL)
	})
	if err != nil {
		return DiskMessage{}, err
	}
	return message, nil
}

// GetMessages returns the whole conversation, oldest first.
func (m *MessageRepository) GetMessages(_ context.Context, conversationID string) ([]DiskMessage, error) {
	var messages []DiskMessage
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(conversationID)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			message, err := decodeMessage(it.Item())
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	return messages, err
}

// GetLatestMessages seeks to the end of each conversation and reads one message back.
// Conversations without messages are absent from the result.
func (m *MessageRepository) GetLatestMessages(_ context.Context, conversationIDs []string) (map[string]DiskMessage, error) {
	latest := make(map[string]DiskMessage, len(conversationIDs))
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()
		for _, id := range conversationIDs {
			prefix := messagePrefix(id)
			it.Seek(append(append([]byte{}, prefix...), 0xFF))
			if !it.ValidForPrefix(prefix) {
				continue
			}
			message, err := decodeMessage(it.Item())
			if err != nil {
				return err
			}
			latest[id] = message
		}
		return nil
	})
	return latest, err
}

// MarkRead flips read on every unread message of the conversation not sent by readerID.
// It returns how many messages changed, zero when there was nothing to read.
// A long backlog is committed in batches of markReadBatch messages.
func (m *MessageRepository) MarkRead(_ context.Context, conversationID, readerID string) (int, error) {
	keys, err := m.unreadKeys(conversationID, readerID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, batch := range lo.Chunk(keys, markReadBatch) {
		flipped, err := m.markBatchRead(batch)
		count += flipped
		if err != nil {
			return count, err
		}
	}
	if count > 0 {
		m.log.Debug(fmt.Sprintf("%d messages marked as read in conversation %s", count, conversationID))
	}
	return count, nil
}

func (m *MessageRepository) unreadKeys(conversationID, readerID string) ([][]byte, error) {
	var keys [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(conversationID)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			message, err := decodeMessage(it.Item())
			if err != nil {
				return err
			}
			if !message.Read && message.SenderID != readerID {
				keys = append(keys, it.Item().KeyCopy(nil))
			}
		}
		return nil
	})
	return keys, err
}

// markBatchRead re-reads each message in the transaction, a concurrent reader
// may have flipped it already.
func (m *MessageRepository) markBatchRead(keys [][]byte) (int, error) {
	flipped := 0
	err := update(m.db, func(txn *badger.Txn) error {
		flipped = 0
		for _, key := range keys {
			item, err := txn.Get(key)
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			message, err := decodeMessage(item)
			if err != nil {
				return err
			}
			if message.Read {
				continue
			}
			message.Read = true
			bytes, err := json.Marshal(message)
			if err != nil {
				return err
			}
			if err = txn.Set(key, bytes); err != nil {
				return err
			}
			if err = recordChange(txn, MessageChange(OperationUpdate, message), m.feedTTL); err != nil {
				return err
			}
			flipped++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return flipped, nil
}

func decodeMessage(item *badger.Item) (DiskMessage, error) {
	var message DiskMessage
	err := item.Value(func(value []byte) error {
		return json.Unmarshal(value, &message)
	})
	return message, err
}
