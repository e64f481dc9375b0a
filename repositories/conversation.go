//go:generate go run go.uber.org/mock/mockgen -source=conversation.go -destination=../mocks/mock_conversation_repository.go -package=mocks
package repositories

import (
	"campus-chat/errors"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type IConversationRepository interface {
	CreateConversation(ctx context.Context, conversation DiskConversation, participants []DiskParticipant) error
	GetConversation(ctx context.Context, id string) (DiskConversation, error)
	GetConversations(ctx context.Context, ids []string) ([]DiskConversation, error)
	TouchConversation(ctx context.Context, id string, at time.Time) error
	ConversationIDsFor(ctx context.Context, userID string, among []string) ([]string, error)
	GetParticipants(ctx context.Context, conversationIDs []string) ([]DiskParticipant, error)
}

// ConversationRepository stores conversations and participants in BadgerDB.
//
//	conv:{id}                  -> DiskConversation
//	pair:{pair_key}            -> conversation id (uniqueness of the pair)
//	part:{conversation}:{user} -> DiskParticipant
//	member:{user}:{conversation} (membership index, no value)
type ConversationRepository struct {
	db      *badger.DB
	log     *slog.Logger
	feedTTL time.Duration
}

func NewConversationRepository(db *badger.DB, log *slog.Logger, feedTTL time.Duration) ConversationRepository {
	return ConversationRepository{db: db, log: log, feedTTL: feedTTL}
}

func conversationKey(id string) []byte { return []byte("conv:" + id) }

func pairKey(key string) []byte { return []byte("pair:" + key) }

func participantKey(conversationID, userID string) []byte {
	return []byte(fmt.Sprintf("part:%s:%s", conversationID, userID))
}

func memberKey(userID, conversationID string) []byte {
	return []byte(fmt.Sprintf("member:%s:%s", userID, conversationID))
}

// CreateConversation writes the conversation, its pair index and one row per
// participant atomically. A pair that already has a conversation is rejected
// with ErrConversationExists.
func (r ConversationRepository) CreateConversation(_ context.Context, conversation DiskConversation, participants []DiskParticipant) error {
	convBytes, err := json.Marshal(conversation)
	if err != nil {
		return err
	}
	return update(r.db, func(txn *badger.Txn) error {
		if conversation.PairKey != "" {
			_, err := txn.Get(pairKey(conversation.PairKey))
			switch {
			case err == nil:
				return errors.ErrConversationExists
			case !errors.Is(err, badger.ErrKeyNotFound):
				return err
			}
			if err = txn.Set(pairKey(conversation.PairKey), []byte(conversation.ID)); err != nil {
				return err
			}
		}
		if err := txn.Set(conversationKey(conversation.ID), convBytes); err != nil {
			return err
		}
		if err := recordChange(txn, ConversationChange(OperationInsert, conversation), r.feedTTL); err != nil {
			return err
		}
		for _, p := range participants {
			partBytes, err := json.Marshal(p)
			if err != nil {
				return err
			}
			if err = txn.Set(participantKey(p.ConversationID, p.UserID), partBytes); err != nil {
				return err
			}
			if err = txn.Set(memberKey(p.UserID, p.ConversationID), nil); err != nil {
				return err
			}
			if err = recordChange(txn, ParticipantChange(OperationInsert, p), r.feedTTL); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r ConversationRepository) GetConversation(_ context.Context, id string) (DiskConversation, error) {
	var conversation DiskConversation
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		conversation, err = getConversation(txn, id)
		return err
	})
	return conversation, err
}

// GetConversations returns the conversations that exist among ids, missing ids are skipped.
func (r ConversationRepository) GetConversations(_ context.Context, ids []string) ([]DiskConversation, error) {
	var conversations []DiskConversation
	err := r.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			conversation, err := getConversation(txn, id)
			if errors.Is(err, errors.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			conversations = append(conversations, conversation)
		}
		return nil
	})
	return conversations, err
}

// TouchConversation bumps updated_at, used for inbox ordering.
// updated_at never moves back when concurrent sends commit out of order.
func (r ConversationRepository) TouchConversation(_ context.Context, id string, at time.Time) error {
	return update(r.db, func(txn *badger.Txn) error {
		conversation, err := getConversation(txn, id)
		if err != nil {
			return err
		}
		if !at.After(conversation.UpdatedAt) {
			return nil
		}
		conversation.UpdatedAt = at.UTC()
		bytes, err := json.Marshal(conversation)
		if err != nil {
			return err
		}
		if err = txn.Set(conversationKey(id), bytes); err != nil {
			return err
		}
		return recordChange(txn, ConversationChange(OperationUpdate, conversation), r.feedTTL)
	})
}

// ConversationIDsFor lists the conversations userID takes part in.
// When among is not nil the lookup is restricted to those ids.
func (r ConversationRepository) ConversationIDsFor(_ context.Context, userID string, among []string) ([]string, error) {
	if among != nil && len(among) == 0 {
		return nil, nil
	}
	var ids []string
	err := r.db.View(func(txn *badger.Txn) error {
		if among != nil {
			for _, id := range among {
				_, err := txn.Get(memberKey(userID, id))
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			return nil
		}
		prefix := []byte(fmt.Sprintf("member:%s:", userID))
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			ids = append(ids, strings.TrimPrefix(key, string(prefix)))
		}
		return nil
	})
	return ids, err
}

func (r ConversationRepository) GetParticipants(_ context.Context, conversationIDs []string) ([]DiskParticipant, error) {
	var participants []DiskParticipant
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for _, id := range conversationIDs {
			prefix := []byte(fmt.Sprintf("part:%s:", id))
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				err := it.Item().Value(func(value []byte) error {
					var p DiskParticipant
					if err := json.Unmarshal(value, &p); err != nil {
						return err
					}
					participants = append(participants, p)
					return nil
				})
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
	return participants, err
}

func getConversation(txn *badger.Txn, id string) (DiskConversation, error) {
	var conversation DiskConversation
	item, err := txn.Get(conversationKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return conversation, fmt.Errorf("conversation %s: %w", id, errors.ErrNotFound)
	}
	if err != nil {
		return conversation, err
	}
	err = item.Value(func(value []byte) error {
		return json.Unmarshal(value, &conversation)
	})
	return conversation, err
}
