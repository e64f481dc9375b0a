// Package postgres is the relational backend: the conversations,
// conversation_participants, messages and users tables through GORM.
// Committed changes are pushed to a repositories.ChangePublisher.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects with a few attempts, the database often starts alongside the process.
func Open(ctx context.Context, dsn string, log *slog.Logger) (*gorm.DB, error) {
	var last error
	sleep := 500 * time.Millisecond
	for attempt := 1; attempt <= 5; attempt++ {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Warn),
			TranslateError: true,
		})
		if err == nil {
			sqlDB, err := db.DB()
			if err == nil {
				if err = sqlDB.PingContext(ctx); err == nil {
					sqlDB.SetMaxOpenConns(20)
					sqlDB.SetMaxIdleConns(5)
					sqlDB.SetConnMaxLifetime(30 * time.Minute)
					return db, nil
				}
			}
			last = err
		} else {
			last = err
		}
		log.Warn(fmt.Sprintf("Postgres not reachable (attempt %d): %v", attempt, last))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
		sleep *= 2
	}
	return nil, fmt.Errorf("open postgres: %w", last)
}

// Migrate creates or updates the chat tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &Conversation{}, &ConversationParticipant{}, &Message{})
}
