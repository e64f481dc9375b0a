package realtime

import (
	"campus-chat/domain"
	"campus-chat/domain/event"
	"campus-chat/errors"
	"campus-chat/observability"
	"campus-chat/repositories"
	"context"
	"fmt"
	"log/slog"
)

// Feed turns backend row changes into typed events per topic.
// Each subscription owns its own channel on the source.
type Feed struct {
	log      *slog.Logger
	source   ChangeSource
	registry *Registry
	metrics  *observability.Metrics
}

func NewFeed(log *slog.Logger, source ChangeSource, registry *Registry, metrics *observability.Metrics) *Feed {
	return &Feed{log: log, source: source, registry: registry, metrics: metrics}
}

func (f *Feed) Registry() *Registry { return f.registry }

// SubscribeMessages delivers every message inserted in the conversation.
// A message id is delivered at most once per subscription.
func (f *Feed) SubscribeMessages(conversationID domain.ConversationID, onMessage func(domain.Message)) *Subscription {
	topic := domain.MessagesTopic(conversationID)
	channel := Channel{
		Name:       topic.String(),
		Table:      repositories.TableMessages,
		Operations: []repositories.Operation{repositories.OperationInsert},
		Filter:     Eq("conversation_id", string(conversationID)),
	}
	seen := make(map[string]struct{})
	return f.open(topic, channel, func(change repositories.Change) bool {
		if _, ok := seen[change.Message.ID]; ok {
			f.log.Debug(fmt.Sprintf("Duplicate delivery of message %s dropped", change.Message.ID))
			return false
		}
		seen[change.Message.ID] = struct{}{}
		onMessage(change.Message.ToDomain())
		return true
	})
}

// SubscribeConversations delivers creations and updated_at bumps of the
// conversations userID takes part in.
func (f *Feed) SubscribeConversations(userID domain.UserID, onEvent func(event.ConversationChanged)) *Subscription {
	topic := domain.ConversationsTopic(userID)
	channel := Channel{
		Name:       topic.String(),
		Table:      repositories.TableConversations,
		Operations: []repositories.Operation{repositories.OperationInsert, repositories.OperationUpdate},
		Filter:     Eq("participant_id", string(userID)),
	}
	return f.open(topic, channel, func(change repositories.Change) bool {
		kind := event.ConversationUpdated
		if change.Operation == repositories.OperationInsert {
			kind = event.ConversationCreated
		}
		onEvent(event.ConversationChanged{
			Change:         kind,
			ConversationID: domain.ConversationID(change.Conversation.ID),
			UpdatedAt:      change.Conversation.UpdatedAt,
		})
		return true
	})
}

func (f *Feed) open(topic domain.Topic, channel Channel, deliver func(repositories.Change) bool) *Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	sub := newSubscription(topic, cancel)
	sub.onClose = func() {
		f.registry.Unsubscribe(sub.id, topic)
		f.metrics.SubscriptionClosed(topic.Kind)
		f.log.Debug("Realtime subscription closed", "topic", topic.String(), "id", sub.id)
	}
	sub.transition(StateUnsubscribed, StateSubscribing)
	f.registry.Subscribe(sub.id, topic, sub)
	f.metrics.SubscriptionOpened(topic.Kind)

	onChange := func(change repositories.Change) {
		if !channel.Accepts(change) {
			return
		}
		sub.deliver(func() {
			if deliver(change) {
				f.metrics.EventDelivered(topic.Kind)
			}
		})
	}
	onStatus := func(status Status) {
		switch status {
		case StatusSubscribed:
			if sub.transition(StateSubscribing, StateSubscribed) {
				f.log.Debug("Realtime subscription ready", "topic", topic.String(), "id", sub.id)
			}
		default:
			f.log.Warn("Realtime channel status", "topic", topic.String(), "status", string(status))
			sub.close(fmt.Errorf("%w: channel %s", errors.ErrSubscription, status))
		}
	}

	go func() {
		defer close(sub.done)
		err := f.source.Listen(ctx, channel, onChange, onStatus)
		switch {
		case ctx.Err() != nil:
			// explicit unsubscribe
		case err != nil:
			f.log.Error(fmt.Sprintf("Realtime channel %s failed: %v", channel.Name, err))
			sub.close(fmt.Errorf("%w: %v", errors.ErrSubscription, err))
		default:
			sub.close(fmt.Errorf("%w: channel %s closed by the backend", errors.ErrSubscription, channel.Name))
		}
	}()
	return sub
}
