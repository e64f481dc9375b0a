package e2e

import (
	"campus-chat/domain"
	"campus-chat/repositories"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type testChatSuite struct {
	BaseBackendSuite
}

func TestChatSuite(t *testing.T) {
	suite.Run(t, &testChatSuite{})
}

func (s *testChatSuite) seedUser(name string) domain.UserID {
	id := uuid.NewString()
	s.Require().NoError(s.UserRepo.SaveUser(context.Background(), repositories.User{
		ID:        id,
		FirstName: name,
		LastName:  "E2E",
		Email:     fmt.Sprintf("%s.%s@campus.edu", name, id[:8]),
	}))
	return domain.UserID(id)
}

func (s *testChatSuite) TestFullConversationFlow() {
	ctx := context.Background()
	u1, u2 := s.seedUser("ana"), s.seedUser("bruno")
	alice, bob := s.ServiceFor(u1), s.ServiceFor(u2)
	var c1 domain.Conversation

	s.Run("Step 1: the pair gets a single conversation", func() {
		s.Step("create from both sides")
		var err error
		c1, err = alice.CreateConversation(ctx, u2)
		s.Require().NoError(err)
		again, err := bob.CreateConversation(ctx, u1)
		s.Require().NoError(err)
		s.Require().Equal(c1.ID, again.ID)
		s.Require().Len(c1.Participants, 2)
	})

	s.Run("Step 2: messages flow live and in order", func() {
		s.Step("subscribe then send")
		var mu sync.Mutex
		var received []domain.Message
		sub := bob.SubscribeToMessages(c1.ID, func(m domain.Message) {
			mu.Lock()
			defer mu.Unlock()
			received = append(received, m)
		})
		defer sub.Unsubscribe()
		<-sub.Ready()

		for _, content := range []string{"a", "b"} {
			_, ok := alice.SendMessage(ctx, c1.ID, content)
			s.Require().True(ok)
		}
		messages := bob.GetMessages(ctx, c1.ID)
		s.Require().Equal([]string{"a", "b"}, lo.Map(messages, func(m domain.Message, _ int) string { return m.Content }))
		s.Require().False(messages[0].Read)
		s.Require().Eventually(func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(received) == 2
		}, 5*time.Second, 20*time.Millisecond)
	})

	s.Run("Step 3: reading flips only the other party's messages", func() {
		s.Step("mark read")
		bob.MarkMessagesAsRead(ctx, c1.ID)
		_, ok := bob.SendMessage(ctx, c1.ID, "reply")
		s.Require().True(ok)
		for _, m := range bob.GetMessages(ctx, c1.ID) {
			s.Require().Equal(m.SenderID == u1, m.Read)
		}
		inbox := alice.GetConversations(ctx)
		s.Require().NotEmpty(inbox)
		s.Require().Equal(c1.ID, inbox[0].ID)
		s.Require().Equal("reply", inbox[0].LastMessage.Content)
	})

	s.Run("Step 4: search excludes the caller", func() {
		s.Step("search")
		users, err := alice.SearchUsers(ctx, "e2e")
		s.Require().NoError(err)
		s.Require().LessOrEqual(len(users), 10)
		for _, u := range users {
			s.Require().NotEqual(u1, u.ID)
		}
	})
}
