package projection

import (
	"campus-chat/domain"
	"slices"
	"sync"
)

// Inbox is the local conversation list, most recently updated first.
type Inbox struct {
	mu            sync.Mutex
	conversations []domain.Conversation
}

func NewInbox() *Inbox {
	return &Inbox{}
}

func (i *Inbox) Load(conversations []domain.Conversation) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.conversations = slices.Clone(conversations)
	domain.SortConversations(i.conversations)
}

// Upsert replaces the conversation with the same id or adds it, then restores the order.
func (i *Inbox) Upsert(conversation domain.Conversation) {
	i.mu.Lock()
	defer i.mu.Unlock()
	idx := slices.IndexFunc(i.conversations, func(c domain.Conversation) bool { return c.ID == conversation.ID })
	if idx >= 0 {
		i.conversations[idx] = conversation
	} else {
		i.conversations = append(i.conversations, conversation)
	}
	domain.SortConversations(i.conversations)
}

func (i *Inbox) Get(id domain.ConversationID) (domain.Conversation, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	idx := slices.IndexFunc(i.conversations, func(c domain.Conversation) bool { return c.ID == id })
	if idx < 0 {
		return domain.Conversation{}, false
	}
	return i.conversations[idx], true
}

func (i *Inbox) Conversations() []domain.Conversation {
	i.mu.Lock()
	defer i.mu.Unlock()
	return slices.Clone(i.conversations)
}
