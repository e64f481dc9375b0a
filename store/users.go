// Package store assembles domain conversations and messages from the
// backend tables: batched lookups, joins in memory, derived fields.
package store

import (
	"campus-chat/domain"
	"campus-chat/repositories"
	"campus-chat/storage"
	"context"
	"fmt"

	"github.com/samber/lo"
)

// ToUserInfo projects a directory row for display.
func ToUserInfo(user repositories.User, avatars storage.AvatarResolver) domain.UserInfo {
	info := domain.UserInfo{
		ID:        domain.UserID(user.ID),
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
	}
	if avatars != nil {
		info.AvatarURL = avatars.PublicURL(user.AvatarPath)
	}
	return info
}

// lookupUsers resolves distinct ids with a single call to the directory.
func lookupUsers(ctx context.Context, users repositories.IUserRepository, avatars storage.AvatarResolver, ids []string) (map[domain.UserID]domain.UserInfo, error) {
	ids = lo.Uniq(lo.Compact(ids))
	if len(ids) == 0 {
		return map[domain.UserID]domain.UserInfo{}, nil
	}
	rows, err := users.GetUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("lookup users: %w", err)
	}
	infos := make(map[domain.UserID]domain.UserInfo, len(rows))
	for _, row := range rows {
		infos[domain.UserID(row.ID)] = ToUserInfo(row, avatars)
	}
	return infos, nil
}

// UserDirectory is the searchable identity directory.
type UserDirectory struct {
	users   repositories.IUserRepository
	avatars storage.AvatarResolver
}

func NewUserDirectory(users repositories.IUserRepository, avatars storage.AvatarResolver) *UserDirectory {
	return &UserDirectory{users: users, avatars: avatars}
}

// SearchUsers runs a case-insensitive partial match over names and email, without excludeID.
func (d *UserDirectory) SearchUsers(ctx context.Context, query string, excludeID domain.UserID, limit int) ([]domain.UserInfo, error) {
	rows, err := d.users.SearchUsers(ctx, query, string(excludeID), limit)
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(row repositories.User, _ int) domain.UserInfo {
		return ToUserInfo(row, d.avatars)
	}), nil
}
