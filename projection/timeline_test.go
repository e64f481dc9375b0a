package projection

import (
	"campus-chat/domain"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

const conversationID domain.ConversationID = "c1"

func confirmed(id string, sender domain.UserID, content string, at time.Time) domain.Message {
	return domain.Message{
		ID:             domain.MessageID(id),
		ConversationID: conversationID,
		SenderID:       sender,
		Content:        content,
		CreatedAt:      at,
	}
}

func ids(messages []domain.Message) []domain.MessageID {
	return lo.Map(messages, func(m domain.Message, _ int) domain.MessageID { return m.ID })
}

func TestTimeline_Load_Sorts_Messages(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline(conversationID, "alice", 5*time.Second)
	at := time.Now()

	timeline.Load([]domain.Message{
		confirmed("m3", "bob", "c", at.Add(2*time.Second)),
		confirmed("m1", "alice", "a", at),
		confirmed("m2", "bob", "b", at),
	})

	req.Equal([]domain.MessageID{"m1", "m2", "m3"}, ids(timeline.Messages()))
}

func TestTimeline_Optimistic_Then_Confirm(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline(conversationID, "alice", 5*time.Second)
	at := time.Now()
	timeline.Load([]domain.Message{confirmed("m1", "bob", "hey", at)})

	// Given an optimistic message
	pending := timeline.AddOptimistic("hello", at.Add(time.Second))
	req.True(pending.IsOptimistic())
	req.Equal(1, timeline.Pending())
	req.Len(timeline.Messages(), 2)

	// When the send call returns the stored row
	changed := timeline.Confirm(pending.ID, confirmed("m2", "alice", "hello", at.Add(1500*time.Millisecond)))

	// Then the temporary entry is replaced, never duplicated
	req.True(changed)
	req.Equal(0, timeline.Pending())
	req.Equal([]domain.MessageID{"m1", "m2"}, ids(timeline.Messages()))
}

func TestTimeline_Optimistic_Then_Discard(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline(conversationID, "alice", 5*time.Second)

	pending := timeline.AddOptimistic("hello", time.Now())
	req.True(timeline.Discard(pending.ID))
	req.False(timeline.Discard(pending.ID))

	req.Empty(timeline.Messages())
}

func TestTimeline_Echo_Before_Confirm_Collapses(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline(conversationID, "alice", 5*time.Second)
	at := time.Now()

	pending := timeline.AddOptimistic("hello", at)
	stored := confirmed("m1", "alice", "hello", at.Add(200*time.Millisecond))

	// When the realtime echo wins the race against the send call
	req.True(timeline.Receive(stored))
	req.False(timeline.Confirm(pending.ID, stored))

	// Then only the stored message remains
	req.Equal([]domain.MessageID{"m1"}, ids(timeline.Messages()))
}

func TestTimeline_Echo_After_Confirm_Is_Ignored(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline(conversationID, "alice", 5*time.Second)
	at := time.Now()

	pending := timeline.AddOptimistic("hello", at)
	stored := confirmed("m1", "alice", "hello", at)
	req.True(timeline.Confirm(pending.ID, stored))

	req.False(timeline.Receive(stored))
	req.Len(timeline.Messages(), 1)
}

func TestTimeline_Echo_Outside_Window_Does_Not_Collapse(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline(conversationID, "alice", time.Second)
	at := time.Now()

	timeline.AddOptimistic("hello", at)
	req.True(timeline.Receive(confirmed("m1", "alice", "hello", at.Add(time.Minute))))

	req.Equal(1, timeline.Pending())
	req.Len(timeline.Messages(), 2)
}

func TestTimeline_Receive(t *testing.T) {
	at := time.Now()

	t.Run("message of the other party is inserted in order", func(t *testing.T) {
		timeline := NewTimeline(conversationID, "alice", time.Second)
		timeline.Load([]domain.Message{confirmed("m1", "bob", "a", at), confirmed("m3", "bob", "c", at.Add(2*time.Second))})
		require.True(t, timeline.Receive(confirmed("m2", "bob", "b", at.Add(time.Second))))
		require.Equal(t, []domain.MessageID{"m1", "m2", "m3"}, ids(timeline.Messages()))
	})

	t.Run("duplicate delivery is ignored", func(t *testing.T) {
		timeline := NewTimeline(conversationID, "alice", time.Second)
		m := confirmed("m1", "bob", "a", at)
		require.True(t, timeline.Receive(m))
		require.False(t, timeline.Receive(m))
		require.Len(t, timeline.Messages(), 1)
	})

	t.Run("same content from the other party does not collapse a pending message", func(t *testing.T) {
		timeline := NewTimeline(conversationID, "alice", time.Second)
		timeline.AddOptimistic("ok", at)
		require.True(t, timeline.Receive(confirmed("m1", "bob", "ok", at)))
		require.Equal(t, 1, timeline.Pending())
	})

	t.Run("message of another conversation is ignored", func(t *testing.T) {
		timeline := NewTimeline(conversationID, "alice", time.Second)
		other := confirmed("m1", "bob", "a", at)
		other.ConversationID = "c2"
		require.False(t, timeline.Receive(other))
		require.Empty(t, timeline.Messages())
	})
}

func TestTimeline_Load_Keeps_Pending_Messages(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline(conversationID, "alice", time.Second)
	at := time.Now()
	pending := timeline.AddOptimistic("in flight", at.Add(time.Minute))

	timeline.Load([]domain.Message{confirmed("m1", "bob", "a", at)})

	req.Equal([]domain.MessageID{"m1", pending.ID}, ids(timeline.Messages()))
}

func TestTimeline_Load_Keeps_Messages_Received_Meanwhile(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline(conversationID, "alice", time.Second)
	at := time.Now()

	// Given a message delivered live while the history was being read
	req.True(timeline.Receive(confirmed("m2", "bob", "still there?", at.Add(time.Second))))

	// When the older read lands, holding a fresher copy of nothing but m1
	timeline.Load([]domain.Message{confirmed("m1", "bob", "a", at)})

	// Then both are shown, in order
	req.Equal([]domain.MessageID{"m1", "m2"}, ids(timeline.Messages()))
}
