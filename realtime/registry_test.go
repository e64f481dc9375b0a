package realtime

import (
	"campus-chat/domain"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func detached(topic domain.Topic) *Subscription {
	_, cancel := context.WithCancel(context.Background())
	return newSubscription(topic, cancel)
}

func TestRegistry_Subscribe_One_Topic_One_Subscription(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	topic := domain.MessagesTopic("c1")
	sub := detached(topic)

	// Given nothing is subscribed
	req.Empty(registry.subscriptions)
	req.Zero(registry.Count(topic))

	// When a subscription is recorded
	registry.Subscribe(sub.ID(), topic, sub)

	// Then
	req.Equal(1, registry.Count(topic))
	req.Equal([]*Subscription{sub}, registry.GetSubscriptions(topic))
}

func TestRegistry_Subscribe_One_Topic_Multiple_Subscriptions(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	topic := domain.MessagesTopic("c1")
	sub1, sub2 := detached(topic), detached(topic)

	registry.Subscribe(sub1.ID(), topic, sub1)
	registry.Subscribe(sub2.ID(), topic, sub2)

	req.Equal(2, registry.Count(topic))
	req.ElementsMatch([]*Subscription{sub1, sub2}, registry.GetSubscriptions(topic))
}

func TestRegistry_Unsubscribe_Leaves_Other_Topics_Alone(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	messages := domain.MessagesTopic("c1")
	conversations := domain.ConversationsTopic("u1")
	sub1, sub2, sub3 := detached(messages), detached(messages), detached(conversations)
	registry.Subscribe(sub1.ID(), messages, sub1)
	registry.Subscribe(sub2.ID(), messages, sub2)
	registry.Subscribe(sub3.ID(), conversations, sub3)

	// When one subscription of the messages topic goes away
	registry.Unsubscribe(sub1.ID(), messages)

	// Then only its own reference is dropped
	req.Equal(1, registry.Count(messages))
	req.Equal(1, registry.Count(conversations))

	// When the last one goes away the topic is forgotten
	registry.Unsubscribe(sub2.ID(), messages)
	registry.Unsubscribe(sub2.ID(), messages)
	req.Zero(registry.Count(messages))
	req.Nil(registry.GetSubscriptions(messages))
	_, ok := registry.topics[messages]
	req.False(ok)
}
