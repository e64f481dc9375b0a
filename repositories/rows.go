package repositories

import (
	"campus-chat/domain"
	"time"
)

// DiskConversation is the stored conversation row.
// PairKey is the sorted participant pair, unique per conversation.
type DiskConversation struct {
	ID        string    `json:"id"`
	PairKey   string    `json:"pair_key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasMember reads membership from the pair key, without a participant lookup.
func (c DiskConversation) HasMember(userID string) bool {
	a, b, ok := domain.PairMembers(c.PairKey)
	if !ok {
		return false
	}
	return string(a) == userID || string(b) == userID
}

type DiskParticipant struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
}

// DiskMessage is the stored message row.
// Seq is a monotonic insertion counter used to break created_at ties.
type DiskMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	Read           bool      `json:"read"`
	Seq            uint64    `json:"seq"`
}

// ToDomain maps the row to a domain message, without sender enrichment.
func (m DiskMessage) ToDomain() domain.Message {
	return domain.Message{
		ID:             domain.MessageID(m.ID),
		ConversationID: domain.ConversationID(m.ConversationID),
		SenderID:       domain.UserID(m.SenderID),
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
		Read:           m.Read,
	}
}

// User is a row of the external identity directory.
type User struct {
	ID         string `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	AvatarPath string `json:"avatar_path"`
}
