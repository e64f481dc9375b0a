//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"campus-chat/errors"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

type IUserRepository interface {
	SaveUser(ctx context.Context, user User) error
	GetUsers(ctx context.Context, ids []string) ([]User, error)
	SearchUsers(ctx context.Context, query, excludeID string, limit int) ([]User, error)
}

// UserRepository keeps the identity directory in BadgerDB and indexes the
// searchable fields in Bluge.
type UserRepository struct {
	db    *badger.DB
	index *bluge.Writer
	log   *slog.Logger
}

func NewUserRepository(db *badger.DB, index *bluge.Writer, log *slog.Logger) UserRepository {
	return UserRepository{db: db, index: index, log: log}
}

const (
	fieldUserID    = "user_id"
	fieldFirstName = "first_name"
	fieldLastName  = "last_name"
	fieldFullName  = "full_name"
	fieldEmail     = "email"
)

func userKey(id string) []byte { return []byte("user:" + id) }

// SaveUser upserts the user row then its search document.
func (u UserRepository) SaveUser(_ context.Context, user User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	err = update(u.db, func(txn *badger.Txn) error {
		return txn.Set(userKey(user.ID), data)
	})
	if err != nil {
		return err
	}
	doc := bluge.NewDocument(user.ID).
		AddField(bluge.NewKeywordField(fieldUserID, user.ID).StoreValue().Sortable()).
		AddField(bluge.NewKeywordField(fieldFirstName, strings.ToLower(user.FirstName)).Sortable()).
		AddField(bluge.NewKeywordField(fieldLastName, strings.ToLower(user.LastName)).Sortable()).
		AddField(bluge.NewKeywordField(fieldFullName, strings.ToLower(user.FirstName+" "+user.LastName))).
		AddField(bluge.NewKeywordField(fieldEmail, strings.ToLower(user.Email)))
	return u.index.Update(doc.ID(), doc)
}

// GetUsers resolves many ids in one read transaction. Unknown ids are skipped.
func (u UserRepository) GetUsers(_ context.Context, ids []string) ([]User, error) {
	var users []User
	err := u.db.View(func(txn *badger.Txn) error {
		for _, id := range lo.Uniq(ids) {
			item, err := txn.Get(userKey(id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			var user User
			if err = item.Value(func(value []byte) error {
				return json.Unmarshal(value, &user)
			}); err != nil {
				return err
			}
			users = append(users, user)
		}
		return nil
	})
	return users, err
}

// SearchUsers runs a case-insensitive partial match on names and email.
// Every field is indexed lower-cased as a single term, so a "*query*"
// wildcard behaves like an ILIKE '%query%'.
func (u UserRepository) SearchUsers(ctx context.Context, query, excludeID string, limit int) ([]User, error) {
	terms := strings.ToLower(strings.TrimSpace(query))
	terms = strings.NewReplacer("*", "", "?", "").Replace(terms)
	if terms == "" || limit <= 0 {
		return nil, nil
	}
	pattern := "*" + terms + "*"
	q := bluge.NewBooleanQuery().
		AddShould(
			bluge.NewWildcardQuery(pattern).SetField(fieldFirstName),
			bluge.NewWildcardQuery(pattern).SetField(fieldLastName),
			bluge.NewWildcardQuery(pattern).SetField(fieldFullName),
			bluge.NewWildcardQuery(pattern).SetField(fieldEmail),
		).
		SetMinShould(1)
	if excludeID != "" {
		q.AddMustNot(bluge.NewTermQuery(excludeID).SetField(fieldUserID))
	}
	request := bluge.NewTopNSearch(limit, q).
		SortBy([]string{fieldFirstName, fieldLastName, fieldUserID})

	reader, err := u.index.Reader()
	if err != nil {
		return nil, fmt.Errorf("open index reader: %w", err)
	}
	defer func() { _ = reader.Close() }()

	matches, err := reader.Search(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	var ids []string
	match, err := matches.Next()
	for err == nil && match != nil {
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == fieldUserID {
				ids = append(ids, string(value))
			}
			return true
		})
		if err != nil {
			break
		}
		match, err = matches.Next()
	}
	if err != nil {
		return nil, err
	}

	users, err := u.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	// GetUsers does not keep the ranking, restore it.
	byID := lo.KeyBy(users, func(user User) string { return user.ID })
	return lo.FilterMap(ids, func(id string, _ int) (User, bool) {
		user, ok := byID[id]
		return user, ok
	}), nil
}
