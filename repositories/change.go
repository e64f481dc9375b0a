//go:generate go run go.uber.org/mock/mockgen -source=change.go -destination=../mocks/mock_change_publisher.go -package=mocks
package repositories

import (
	"context"
	"encoding/json"
	"time"
)

type Table string

const (
	TableConversations Table = "conversations"
	TableParticipants  Table = "conversation_participants"
	TableMessages      Table = "messages"
)

type Operation string

const (
	OperationInsert Operation = "INSERT"
	OperationUpdate Operation = "UPDATE"
	OperationDelete Operation = "DELETE"
)

// Change is a row-level change notification, the payload of the realtime feed.
// Exactly one of the row pointers is set, according to Table.
type Change struct {
	Table        Table             `json:"table"`
	Operation    Operation         `json:"operation"`
	At           time.Time         `json:"at"`
	Conversation *DiskConversation `json:"conversation,omitempty"`
	Participant  *DiskParticipant  `json:"participant,omitempty"`
	Message      *DiskMessage      `json:"message,omitempty"`
}

// ChangePublisher pushes committed changes to the realtime transport.
type ChangePublisher interface {
	Publish(ctx context.Context, change Change) error
}

// Matches evaluates an equality filter against the changed row.
// An empty column matches every row of the table.
// On conversations, the "participant_id" column checks pair membership.
func (c Change) Matches(column, value string) bool {
	if column == "" {
		return true
	}
	switch c.Table {
	case TableMessages:
		if c.Message == nil {
			return false
		}
		switch column {
		case "id":
			return c.Message.ID == value
		case "conversation_id":
			return c.Message.ConversationID == value
		case "sender_id":
			return c.Message.SenderID == value
		}
	case TableConversations:
		if c.Conversation == nil {
			return false
		}
		switch column {
		case "id":
			return c.Conversation.ID == value
		case "participant_id":
			return c.Conversation.HasMember(value)
		}
	case TableParticipants:
		if c.Participant == nil {
			return false
		}
		switch column {
		case "conversation_id":
			return c.Participant.ConversationID == value
		case "user_id":
			return c.Participant.UserID == value
		}
	}
	return false
}

func EncodeChange(change Change) ([]byte, error) {
	return json.Marshal(change)
}

func DecodeChange(data []byte) (Change, error) {
	var change Change
	err := json.Unmarshal(data, &change)
	return change, err
}

func MessageChange(op Operation, m DiskMessage) Change {
	return Change{Table: TableMessages, Operation: op, At: time.Now().UTC(), Message: &m}
}

func ConversationChange(op Operation, c DiskConversation) Change {
	return Change{Table: TableConversations, Operation: op, At: time.Now().UTC(), Conversation: &c}
}

func ParticipantChange(op Operation, p DiskParticipant) Change {
	return Change{Table: TableParticipants, Operation: op, At: time.Now().UTC(), Participant: &p}
}
