package services

import (
	"campus-chat/contract"
	"campus-chat/domain"
	"campus-chat/domain/event"
	"campus-chat/projection"
	"campus-chat/realtime"
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// InboxView keeps the conversation list of the signed-in user fresh
// from conversation events, without polling.
type InboxView struct {
	log      *slog.Logger
	service  contract.IChatService
	inbox    *projection.Inbox
	onChange func([]domain.Conversation)

	mu     sync.Mutex
	closed bool
	sub    *realtime.Subscription
}

func NewInboxView(log *slog.Logger, service contract.IChatService, onChange func([]domain.Conversation)) *InboxView {
	return &InboxView{
		log:      log,
		service:  service,
		inbox:    projection.NewInbox(),
		onChange: onChange,
	}
}

func (v *InboxView) Open(ctx context.Context) error {
	sub, err := v.service.SubscribeToConversations(ctx, v.onEvent)
	if err != nil {
		return err
	}
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		if sub != nil {
			sub.Unsubscribe()
		}
		return nil
	}
	v.sub = sub
	v.mu.Unlock()
	if err = awaitLive(ctx, v.log, sub); err != nil {
		return err
	}
	v.refresh(ctx)
	return nil
}

// Start opens the conversation with otherUserID and brings it into the list.
func (v *InboxView) Start(ctx context.Context, otherUserID domain.UserID) (domain.Conversation, error) {
	conversation, err := v.service.CreateConversation(ctx, otherUserID)
	if err != nil {
		return domain.Conversation{}, err
	}
	v.update(func(inbox *projection.Inbox) { inbox.Upsert(conversation) })
	return conversation, nil
}

func (v *InboxView) Conversations() []domain.Conversation {
	return v.inbox.Conversations()
}

func (v *InboxView) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	sub := v.sub
	v.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

func (v *InboxView) onEvent(e event.ConversationChanged) {
	v.log.Debug(fmt.Sprintf("Conversation %s %s, refreshing inbox", e.ConversationID, e.Change))
	v.refresh(context.Background())
}

// refresh reloads the list, last message and participants included.
func (v *InboxView) refresh(ctx context.Context) {
	conversations := v.service.GetConversations(ctx)
	v.update(func(inbox *projection.Inbox) { inbox.Load(conversations) })
}

func (v *InboxView) update(mutate func(*projection.Inbox)) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	mutate(v.inbox)
	v.mu.Unlock()
	if v.onChange != nil {
		v.onChange(v.inbox.Conversations())
	}
}
