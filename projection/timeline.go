// Package projection builds local timelines from observed events.
// Handles ordering, deduplication, and optimistic entries.
// Does not emit events or interact with UI directly.
package projection

import (
	"campus-chat/domain"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Timeline is the local, ordered message list of one conversation as seen by its owner.
// Messages are always sorted by created_at, ties by insertion order.
type Timeline struct {
	mu             sync.Mutex
	owner          domain.UserID
	conversationID domain.ConversationID
	echoWindow     time.Duration
	messages       []domain.Message
	// collapsed maps a temporary id to the confirmed id that replaced it
	// through a realtime echo, before the send call returned.
	collapsed map[domain.MessageID]domain.MessageID
}

func NewTimeline(conversationID domain.ConversationID, owner domain.UserID, echoWindow time.Duration) *Timeline {
	return &Timeline{
		owner:          owner,
		conversationID: conversationID,
		echoWindow:     echoWindow,
		collapsed:      make(map[domain.MessageID]domain.MessageID),
	}
}

// Load merges a fresh read of the history in. Rows of the read win over
// local copies. Pending entries survive, and so do confirmed ones missing from
// the read: messages are never deleted, those arrived live after it was taken.
func (t *Timeline) Load(messages []domain.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	local := t.messages
	t.messages = make([]domain.Message, 0, len(messages)+len(local))
	for _, m := range messages {
		if t.indexOf(m.ID) < 0 {
			t.messages = domain.InsertMessage(t.messages, m)
		}
	}
	for _, m := range local {
		if t.indexOf(m.ID) < 0 {
			t.messages = domain.InsertMessage(t.messages, m)
		}
	}
}

// AddOptimistic appends a local, not yet confirmed message authored by the owner.
func (t *Timeline) AddOptimistic(content string, at time.Time) domain.Message {
	m := domain.NewOptimisticMessage(t.conversationID, t.owner, content, at)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = domain.InsertMessage(t.messages, m)
	return m
}

// Confirm swaps the optimistic entry for the stored row. When the realtime
// echo already took its place nothing changes and false is returned.
func (t *Timeline) Confirm(tempID domain.MessageID, confirmed domain.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.collapsed[tempID]; ok && id == confirmed.ID {
		delete(t.collapsed, tempID)
		return false
	}
	changed := t.remove(tempID)
	if t.indexOf(confirmed.ID) >= 0 {
		return changed
	}
	t.messages = domain.InsertMessage(t.messages, confirmed)
	return true
}

// Discard rolls an optimistic entry back after a failed send.
func (t *Timeline) Discard(tempID domain.MessageID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remove(tempID)
}

// Receive applies a message observed on the realtime feed and reports whether
// the timeline changed. Known ids are ignored. An echo of a pending message
// of the owner, same content within the echo window, collapses into it.
func (t *Timeline) Receive(m domain.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if m.ConversationID != "" && m.ConversationID != t.conversationID {
		return false
	}
	if t.indexOf(m.ID) >= 0 {
		return false
	}
	if m.SenderID == t.owner {
		if i := t.pendingEcho(m); i >= 0 {
			tempID := t.messages[i].ID
			t.messages = slices.Delete(t.messages, i, i+1)
			t.collapsed[tempID] = m.ID
		}
	}
	t.messages = domain.InsertMessage(t.messages, m)
	return true
}

// Messages returns a copy of the ordered list.
func (t *Timeline) Messages() []domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.messages)
}

// Pending counts optimistic entries awaiting confirmation.
func (t *Timeline) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(lo.Filter(t.messages, func(m domain.Message, _ int) bool { return m.IsOptimistic() }))
}

func (t *Timeline) pendingEcho(m domain.Message) int {
	for i, candidate := range t.messages {
		if !candidate.IsOptimistic() || candidate.Content != m.Content {
			continue
		}
		delta := m.CreatedAt.Sub(candidate.CreatedAt)
		if delta < 0 {
			delta = -delta
		}
		if delta <= t.echoWindow {
			return i
		}
	}
	return -1
}

func (t *Timeline) indexOf(id domain.MessageID) int {
	return slices.IndexFunc(t.messages, func(m domain.Message) bool { return m.ID == id })
}

func (t *Timeline) remove(id domain.MessageID) bool {
	i := t.indexOf(id)
	if i < 0 {
		return false
	}
	t.messages = slices.Delete(t.messages, i, i+1)
	return true
}
