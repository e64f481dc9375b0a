package postgres

import (
	"campus-chat/repositories"
	"time"
)

type Conversation struct {
	ID        string    `gorm:"primaryKey;size:36"`
	PairKey   string    `gorm:"size:200;uniqueIndex"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null;index"`
}

type ConversationParticipant struct {
	ID             string       `gorm:"primaryKey;size:36"`
	ConversationID string       `gorm:"size:36;not null;uniqueIndex:idx_participant_pair"`
	UserID         string       `gorm:"size:64;not null;uniqueIndex:idx_participant_pair;index"`
	Conversation   Conversation `gorm:"constraint:OnDelete:CASCADE"`
}

type Message struct {
	ID             string       `gorm:"primaryKey;size:36"`
	ConversationID string       `gorm:"size:36;not null;index:idx_messages_timeline,priority:1"`
	SenderID       string       `gorm:"size:64;not null"`
	Content        string       `gorm:"not null"`
	CreatedAt      time.Time    `gorm:"not null;index:idx_messages_timeline,priority:2"`
	Read           bool         `gorm:"not null;default:false"`
	Seq            uint64       `gorm:"autoIncrement"`
	Conversation   Conversation `gorm:"constraint:OnDelete:CASCADE"`
}

type User struct {
	ID         string `gorm:"primaryKey;size:64"`
	FirstName  string `gorm:"size:100"`
	LastName   string `gorm:"size:100"`
	Email      string `gorm:"size:255;index"`
	AvatarPath string `gorm:"size:500"`
}

func fromDiskConversation(c repositories.DiskConversation) Conversation {
	return Conversation{ID: c.ID, PairKey: c.PairKey, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

func (c Conversation) toDisk() repositories.DiskConversation {
	return repositories.DiskConversation{ID: c.ID, PairKey: c.PairKey, CreatedAt: c.CreatedAt.UTC(), UpdatedAt: c.UpdatedAt.UTC()}
}

func fromDiskParticipant(p repositories.DiskParticipant) ConversationParticipant {
	return ConversationParticipant{ID: p.ID, ConversationID: p.ConversationID, UserID: p.UserID}
}

func (p ConversationParticipant) toDisk() repositories.DiskParticipant {
	return repositories.DiskParticipant{ID: p.ID, ConversationID: p.ConversationID, UserID: p.UserID}
}

func fromDiskMessage(m repositories.DiskMessage) Message {
	return Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
		Read:           m.Read,
	}
}

func (m Message) toDisk() repositories.DiskMessage {
	return repositories.DiskMessage{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt.UTC(),
		Read:           m.Read,
		Seq:            m.Seq,
	}
}

func (u User) toRow() repositories.User {
	return repositories.User{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email, AvatarPath: u.AvatarPath}
}
