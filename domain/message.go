// Package domain contains core concepts of the chat system.
// This file defines Message entities and their ordering rules.
package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type MessageID string

// TempIDPrefix marks ids generated locally for messages the backend has not
// confirmed yet. Server ids are UUIDs and never carry it.
const TempIDPrefix = "temp-"

// MaxContentLength bounds message content, counted in runes.
const MaxContentLength = 500

type Message struct {
	ID             MessageID
	ConversationID ConversationID
	SenderID       UserID
	Content        string
	CreatedAt      time.Time
	Read           bool
	Sender         *UserInfo
}

// NewOptimisticMessage builds the local entry rendered before confirmation.
func NewOptimisticMessage(conversationID ConversationID, senderID UserID, content string, at time.Time) Message {
	return Message{
		ID:             MessageID(TempIDPrefix + uuid.NewString()),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      at,
		Read:           false,
	}
}

func (id MessageID) IsTemporary() bool {
	return strings.HasPrefix(string(id), TempIDPrefix)
}

func (m Message) IsOptimistic() bool {
	return m.ID.IsTemporary()
}

// SortMessages orders messages ascending by creation time.
// The sort is stable, equal timestamps keep their insertion order.
func SortMessages(messages []Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
}

// InsertMessage inserts m after every message created at or before it.
func InsertMessage(messages []Message, m Message) []Message {
	i := sort.Search(len(messages), func(i int) bool {
		return messages[i].CreatedAt.After(m.CreatedAt)
	})
	messages = append(messages, Message{})
	copy(messages[i+1:], messages[i:])
	messages[i] = m
	return messages
}
