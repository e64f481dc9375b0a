package realtime

import (
	"campus-chat/errors"
	"campus-chat/repositories"
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisSource carries change records over Redis pub/sub, one channel per table.
// It is both the publisher used by the Postgres repositories and the source
// the feed listens to.
type RedisSource struct {
	client *redis.Client
	log    *slog.Logger
	prefix string
}

func NewRedisSource(client *redis.Client, log *slog.Logger, prefix string) *RedisSource {
	return &RedisSource{client: client, log: log, prefix: prefix}
}

func (r *RedisSource) channelName(table repositories.Table) string {
	return fmt.Sprintf("%s:changes:%s", r.prefix, table)
}

func (r *RedisSource) Publish(ctx context.Context, change repositories.Change) error {
	data, err := repositories.EncodeChange(change)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channelName(change.Table), data).Err()
}

func (r *RedisSource) Listen(ctx context.Context, channel Channel, onChange func(repositories.Change), onStatus func(Status)) error {
	pubsub := r.client.Subscribe(ctx, r.channelName(channel.Table))
	defer func() { _ = pubsub.Close() }()

	// The first reply of a SUBSCRIBE is its confirmation.
	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		onStatus(StatusChannelError)
		return err
	}
	onStatus(StatusSubscribed)

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				onStatus(StatusClosed)
				return fmt.Errorf("%w: redis channel closed", errors.ErrSubscription)
			}
			change, err := repositories.DecodeChange([]byte(msg.Payload))
			if err != nil {
				r.log.Warn(fmt.Sprintf("Undecodable change on %s: %v", msg.Channel, err))
				continue
			}
			onChange(change)
		}
	}
}
