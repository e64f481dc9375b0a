package postgres

import (
	"campus-chat/repositories"
	"context"
	"log/slog"
	"strings"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewUserRepository(db *gorm.DB, log *slog.Logger) UserRepository {
	return UserRepository{db: db, log: log}
}

func (u UserRepository) SaveUser(ctx context.Context, user repositories.User) error {
	row := User{ID: user.ID, FirstName: user.FirstName, LastName: user.LastName, Email: user.Email, AvatarPath: user.AvatarPath}
	return u.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (u UserRepository) GetUsers(ctx context.Context, ids []string) ([]repositories.User, error) {
	ids = lo.Uniq(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []User
	if err := u.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return lo.Map(rows, func(row User, _ int) repositories.User { return row.toRow() }), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchUsers is an ILIKE '%query%' over first name, last name, full name and email.
func (u UserRepository) SearchUsers(ctx context.Context, query, excludeID string, limit int) ([]repositories.User, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return nil, nil
	}
	pattern := "%" + likeEscaper.Replace(query) + "%"
	db := u.db.WithContext(ctx).
		Where("first_name ILIKE @p OR last_name ILIKE @p OR (first_name || ' ' || last_name) ILIKE @p OR email ILIKE @p",
			map[string]any{"p": pattern})
	if excludeID != "" {
		db = db.Where("id <> ?", excludeID)
	}
	var rows []User
	if err := db.Order("lower(first_name), lower(last_name), id").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return lo.Map(rows, func(row User, _ int) repositories.User { return row.toRow() }), nil
}
