// Package domain contains core concepts of the chat system.
// This file defines Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"sort"
	"strings"
)

type UserID string

// Identity is the authenticated principal every query runs on behalf of.
type Identity struct {
	ID    UserID
	Email string
}

// UserInfo is the read-only display projection of an external identity.
// It is resolved at read time and never persisted by the chat core.
type UserInfo struct {
	ID        UserID
	FirstName string
	LastName  string
	Email     string
	AvatarURL string
}

// DisplayName falls back to the email when no name part is known.
func (u UserInfo) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		return u.Email
	}
	return name
}

// ConversationParticipant links an identity to a conversation.
type ConversationParticipant struct {
	ID             string
	ConversationID ConversationID
	UserID         UserID
	User           *UserInfo
}

const pairSeparator = ":"

// PairKey normalizes an unordered pair of identities into a single key,
// so that (a, b) and (b, a) always produce the same value.
func PairKey(a, b UserID) string {
	ids := []string{string(a), string(b)}
	sort.Strings(ids)
	return strings.Join(ids, pairSeparator)
}

// PairMembers splits a key built by PairKey.
func PairMembers(key string) (UserID, UserID, bool) {
	a, b, ok := strings.Cut(key, pairSeparator)
	if !ok || a == "" || b == "" {
		return "", "", false
	}
	return UserID(a), UserID(b), true
}
