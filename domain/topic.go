package domain

import "fmt"

type TopicKind string

const (
	TopicMessages      TopicKind = "messages"
	TopicConversations TopicKind = "conversations"
)

// Topic keys a realtime subscription: the messages of one conversation,
// or the conversations of one identity.
type Topic struct {
	Kind TopicKind
	Key  string
}

func MessagesTopic(id ConversationID) Topic {
	return Topic{Kind: TopicMessages, Key: string(id)}
}

func ConversationsTopic(id UserID) Topic {
	return Topic{Kind: TopicConversations, Key: string(id)}
}

func (t Topic) String() string {
	return fmt.Sprintf("%s:%s", t.Kind, t.Key)
}
