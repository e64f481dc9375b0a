package repositories

import (
	"campus-chat/errors"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func Test_Store_Messages_Keeps_Chronological_Order(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := openDB(t)
	conversations := NewConversationRepository(db, testLogger(), time.Minute)
	repository, err := NewMessageRepository(db, testLogger(), time.Minute)
	req.NoError(err)
	defer func() { _ = repository.Close() }()

	conversation, participants := newConversation("alice", "bob")
	req.NoError(conversations.CreateConversation(ctx, conversation, participants))

	// Given messages stored out of order, two of them on the same instant
	at := time.Now().UTC()
	inputs := []DiskMessage{
		{ConversationID: conversation.ID, SenderID: "bob", Content: "third", CreatedAt: at.Add(2 * time.Minute)},
		{ConversationID: conversation.ID, SenderID: "alice", Content: "first", CreatedAt: at},
		{ConversationID: conversation.ID, SenderID: "bob", Content: "second", CreatedAt: at},
	}
	for _, input := range inputs {
		stored, err := repository.StoreMessage(ctx, input)
		req.NoError(err)
		req.NotEmpty(stored.ID)
	}

	// When the conversation is read back
	messages, err := repository.GetMessages(ctx, conversation.ID)
	req.NoError(err)

	// Then messages are ordered by created_at, ties by insertion
	req.Len(messages, 3)
	req.Equal("first", messages[0].Content)
	req.Equal("second", messages[1].Content)
	req.Equal("third", messages[2].Content)
}

func Test_Store_Message_Assigns_Id_And_Timestamp(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := openDB(t)
	conversations := NewConversationRepository(db, testLogger(), time.Minute)
	repository, err := NewMessageRepository(db, testLogger(), time.Minute)
	req.NoError(err)

	conversation, participants := newConversation("alice", "bob")
	req.NoError(conversations.CreateConversation(ctx, conversation, participants))

	before := time.Now().UTC()
	stored, err := repository.StoreMessage(ctx, DiskMessage{ConversationID: conversation.ID, SenderID: "alice", Content: "hi"})
	req.NoError(err)

	req.NotEmpty(stored.ID)
	req.False(strings.HasPrefix(stored.ID, "temp-"))
	req.False(stored.CreatedAt.Before(before))
	req.Equal(time.UTC, stored.CreatedAt.Location())
	req.False(stored.Read)
}

func Test_Store_Message_Rejects_Unknown_Conversation(t *testing.T) {
	req := require.New(t)
	db := openDB(t)
	repository, err := NewMessageRepository(db, testLogger(), time.Minute)
	req.NoError(err)

	_, err = repository.StoreMessage(context.Background(), DiskMessage{ConversationID: "ghost", SenderID: "alice", Content: "hi"})

	req.Error(err)
	req.True(errors.Is(err, errors.ErrNotFound))
}

func Test_Get_Latest_Messages(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := openDB(t)
	conversations := NewConversationRepository(db, testLogger(), time.Minute)
	repository, err := NewMessageRepository(db, testLogger(), time.Minute)
	req.NoError(err)

	first, firstParticipants := newConversation("alice", "bob")
	second, secondParticipants := newConversation("alice", "clara")
	empty, emptyParticipants := newConversation("bob", "clara")
	req.NoError(conversations.CreateConversation(ctx, first, firstParticipants))
	req.NoError(conversations.CreateConversation(ctx, second, secondParticipants))
	req.NoError(conversations.CreateConversation(ctx, empty, emptyParticipants))

	at := time.Now().UTC()
	for i, content := range []string{"a", "b", "c"} {
		_, err = repository.StoreMessage(ctx, DiskMessage{ConversationID: first.ID, SenderID: "alice", Content: content, CreatedAt: at.Add(time.Duration(i) * time.Second)})
		req.NoError(err)
	}
	_, err = repository.StoreMessage(ctx, DiskMessage{ConversationID: second.ID, SenderID: "clara", Content: "z", CreatedAt: at})
	req.NoError(err)

	latest, err := repository.GetLatestMessages(ctx, []string{first.ID, second.ID, empty.ID})
	req.NoError(err)

	req.Len(latest, 2)
	req.Equal("c", latest[first.ID].Content)
	req.Equal("z", latest[second.ID].Content)
	_, ok := latest[empty.ID]
	req.False(ok)
}

func Test_Mark_Read_Only_Flips_Messages_Of_The_Other_Party(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := openDB(t)
	conversations := NewConversationRepository(db, testLogger(), time.Minute)
	repository, err := NewMessageRepository(db, testLogger(), time.Minute)
	req.NoError(err)

	conversation, participants := newConversation("alice", "bob")
	req.NoError(conversations.CreateConversation(ctx, conversation, participants))
	at := time.Now().UTC()
	for i, sender := range []string{"bob", "alice", "bob"} {
		_, err = repository.StoreMessage(ctx, DiskMessage{ConversationID: conversation.ID, SenderID: sender, Content: "x", CreatedAt: at.Add(time.Duration(i) * time.Second)})
		req.NoError(err)
	}

	// When alice reads the conversation twice
	count, err := repository.MarkRead(ctx, conversation.ID, "alice")
	req.NoError(err)
	again, err := repository.MarkRead(ctx, conversation.ID, "alice")
	req.NoError(err)

	// Then only bob's messages were flipped, once
	req.Equal(2, count)
	req.Equal(0, again)
	messages, err := repository.GetMessages(ctx, conversation.ID)
	req.NoError(err)
	for _, m := range messages {
		req.Equal(m.SenderID == "bob", m.Read)
	}
}

func Test_Store_Message_Records_A_Change(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := openDB(t)
	conversations := NewConversationRepository(db, testLogger(), time.Minute)
	repository, err := NewMessageRepository(db, testLogger(), time.Minute)
	req.NoError(err)

	conversation, participants := newConversation("alice", "bob")
	req.NoError(conversations.CreateConversation(ctx, conversation, participants))
	stored, err := repository.StoreMessage(ctx, DiskMessage{ConversationID: conversation.ID, SenderID: "alice", Content: "hi"})
	req.NoError(err)

	var changes []Change
	err = db.View(func(txn *badger.Txn) error {
		prefix := FeedTablePrefix(TableMessages)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(func(value []byte) error {
				change, err := DecodeChange(value)
				changes = append(changes, change)
				return err
			}); err != nil {
				return err
			}
		}
		return nil
	})
	req.NoError(err)

	req.Len(changes, 1)
	req.Equal(OperationInsert, changes[0].Operation)
	req.NotNil(changes[0].Message)
	req.Equal(stored.ID, changes[0].Message.ID)
	req.True(changes[0].Matches("conversation_id", conversation.ID))
}
