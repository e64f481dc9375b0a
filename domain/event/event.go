package event

import (
	"campus-chat/domain"
	"time"
)

type ConversationChange string

const (
	ConversationCreated ConversationChange = "created"
	ConversationUpdated ConversationChange = "updated"
)

// ConversationChanged is published when a conversation of the subscribed
// identity is created or its updated_at is bumped by a new message.
type ConversationChanged struct {
	Change         ConversationChange
	ConversationID domain.ConversationID
	UpdatedAt      time.Time
}

// MessageReceived wraps a confirmed message pushed by the realtime feed.
type MessageReceived struct {
	Message domain.Message
}

func (m MessageReceived) ConversationID() domain.ConversationID {
	return m.Message.ConversationID
}
