package realtime

import (
	"campus-chat/domain"
	"sync"
)

type Set map[string]struct{}

// Registry keeps a reference count of live subscriptions per topic.
// It holds no channel, tearing one subscription down never touches another.
type Registry struct {
	mu            sync.RWMutex
	subscriptions map[string]*Subscription // map subscription id -> Subscription
	topics        map[domain.Topic]Set     // map topic to subscription ids
}

func NewRegistry() *Registry {
	return &Registry{
		subscriptions: make(map[string]*Subscription),
		topics:        make(map[domain.Topic]Set),
	}
}

// Subscribe records a live subscription under its topic.
// If the topic does not exist yet, it is initialized on the fly.
func (r *Registry) Subscribe(id string, topic domain.Topic, sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.subscriptions[id] = sub

	if _, ok := r.topics[topic]; !ok {
		r.topics[topic] = make(Set)
	}
	r.topics[topic][id] = struct{}{}
}

// Unsubscribe forgets a subscription. Empty topics are removed
// so the map does not grow with every conversation ever opened.
func (r *Registry) Unsubscribe(id string, topic domain.Topic) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.subscriptions, id)

	if members, ok := r.topics[topic]; ok {
		delete(members, id)
		if len(members) == 0 {
			delete(r.topics, topic)
		}
	}
}

// Count returns how many subscriptions are live on a topic.
func (r *Registry) Count(topic domain.Topic) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics[topic])
}

// GetSubscriptions returns the live subscriptions of a topic, nil if none.
func (r *Registry) GetSubscriptions(topic domain.Topic) []*Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.topics[topic]
	if !ok {
		return nil
	}
	var active []*Subscription
	for id := range members {
		if sub, exists := r.subscriptions[id]; exists {
			active = append(active, sub)
		}
	}
	return active
}
