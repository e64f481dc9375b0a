package domain

import (
	"sort"
	"time"
)

type ConversationID string

// Conversation is a 1:1 thread between exactly two identities.
// LastMessage is derived at read time for previews, it is not stored.
type Conversation struct {
	ID           ConversationID
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Participants []ConversationParticipant
	LastMessage  *Message
}

func (c Conversation) HasParticipant(id UserID) bool {
	for _, p := range c.Participants {
		if p.UserID == id {
			return true
		}
	}
	return false
}

// Counterpart returns the participant that is not me.
func (c Conversation) Counterpart(me UserID) (ConversationParticipant, bool) {
	for _, p := range c.Participants {
		if p.UserID != me {
			return p, true
		}
	}
	return ConversationParticipant{}, false
}

// SortConversations orders an inbox by most recent activity first.
func SortConversations(conversations []Conversation) {
	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})
}
