package main

import (
	"campus-chat/contract"
	"campus-chat/internal"
	"campus-chat/observability"
	"campus-chat/realtime"
	"campus-chat/repositories"
	"campus-chat/repositories/postgres"
	"campus-chat/runtime/workers"
	"campus-chat/storage"
	"campus-chat/store"
	"context"
	"fmt"
	"log/slog"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/redis/go-redis/v9"
)

// backend bundles the stores of one table surface with their realtime feed.
type backend struct {
	conversations *store.ConversationStore
	messages      *store.MessageStore
	users         *store.UserDirectory
	userRepo      repositories.IUserRepository
	avatars       *storage.Avatars
	feed          *realtime.Feed
	db            *badger.DB // nil on postgres
	closers       []func()
}

func openBackend(ctx context.Context, config internal.Config, log *slog.Logger, metrics *observability.Metrics) (*backend, error) {
	avatars, err := storage.NewAvatars(config.Avatars())
	if err != nil {
		return nil, err
	}
	var b *backend
	switch config.Backend {
	case internal.BackendPostgres:
		b, err = openPostgres(ctx, config, log, avatars, metrics)
	default:
		b, err = openBadger(ctx, config, log, avatars, metrics)
	}
	if err != nil {
		return nil, err
	}
	b.avatars = avatars
	return b, nil
}

func openBadger(ctx context.Context, config internal.Config, log *slog.Logger, avatars storage.AvatarResolver, metrics *observability.Metrics) (*backend, error) {
	b := &backend{}
	db, err := badger.Open(buildBadgerOpts(ctx, config, log))
	if err != nil {
		return nil, fmt.Errorf("database opening failed: %w", err)
	}
	b.onClose(func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	})
	b.supervise(ctx, log, workers.NewBadgerGC(db, log, config.BadgerGCInterval))

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	b.onClose(func() {
		log.Info("Closing Bluge...")
		_ = writer.Close()
	})

	conversations := repositories.NewConversationRepository(db, log, config.FeedTTL)
	messages, err := repositories.NewMessageRepository(db, log, config.FeedTTL)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("message repository: %w", err)
	}
	b.onClose(func() { _ = messages.Close() })
	users := repositories.NewUserRepository(db, writer, log)

	source := realtime.NewBadgerSource(db, log, config.SubscribeTimeout)
	b.db = db
	b.wire(log, conversations, messages, users, avatars, source, metrics)
	return b, nil
}

func openPostgres(ctx context.Context, config internal.Config, log *slog.Logger, avatars storage.AvatarResolver, metrics *observability.Metrics) (*backend, error) {
	b := &backend{}
	db, err := postgres.Open(ctx, config.DatabaseDSN, log)
	if err != nil {
		return nil, err
	}
	b.onClose(func() {
		log.Info("Closing Postgres...")
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err = postgres.Migrate(db); err != nil {
		b.Close()
		return nil, err
	}

	client := redis.NewClient(&redis.Options{Addr: config.RedisAddr})
	b.onClose(func() { _ = client.Close() })
	if err = client.Ping(ctx).Err(); err != nil {
		b.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	source := realtime.NewRedisSource(client, log, config.RedisPrefix)
	conversations := postgres.NewConversationRepository(db, source, log)
	messages := postgres.NewMessageRepository(db, source, log)
	users := postgres.NewUserRepository(db, log)
	b.wire(log, conversations, messages, users, avatars, source, metrics)
	return b, nil
}

func (b *backend) wire(log *slog.Logger, conversations repositories.IConversationRepository,
	messages repositories.IMessageRepository, users repositories.IUserRepository,
	avatars storage.AvatarResolver, source realtime.ChangeSource, metrics *observability.Metrics) {
	b.conversations = store.NewConversationStore(log, conversations, messages, users, avatars)
	b.messages = store.NewMessageStore(log, messages, conversations, users, avatars)
	b.users = store.NewUserDirectory(users, avatars)
	b.userRepo = users
	b.feed = realtime.NewFeed(log, source, realtime.NewRegistry(), metrics)
}

// supervise runs background workers until the backend closes.
func (b *backend) supervise(ctx context.Context, log *slog.Logger, worker ...contract.Worker) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		workers.NewSupervisor(log).Add(worker...).Run(ctx)
	}()
	b.onClose(func() {
		cancel()
		<-done
	})
}

func (b *backend) onClose(fn func()) {
	b.closers = append(b.closers, fn)
}

// Close releases resources in reverse opening order.
func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

func buildBadgerOpts(ctx context.Context, config internal.Config, log *slog.Logger) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if log.Enabled(ctx, slog.LevelDebug) {
		return options.WithLoggingLevel(badger.DEBUG)
	}
	return options.WithLoggingLevel(badger.WARNING)
}
