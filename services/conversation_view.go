package services

import (
	"campus-chat/contract"
	"campus-chat/domain"
	"campus-chat/errors"
	"campus-chat/projection"
	"campus-chat/realtime"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// ConversationView drives one open conversation screen: the timeline,
// its realtime feed and the optimistic send flow.
// Once closed, results of calls still in flight are dropped.
type ConversationView struct {
	log            *slog.Logger
	service        contract.IChatService
	identity       contract.IdentityResolver
	conversationID domain.ConversationID
	echoWindow     time.Duration
	onChange       func([]domain.Message)

	mu       sync.Mutex
	closed   bool
	owner    domain.UserID
	timeline *projection.Timeline
	sub      *realtime.Subscription
	wg       sync.WaitGroup
}

func NewConversationView(log *slog.Logger, service contract.IChatService, identity contract.IdentityResolver,
	conversationID domain.ConversationID, echoWindow time.Duration, onChange func([]domain.Message)) *ConversationView {
	return &ConversationView{
		log:            log,
		service:        service,
		identity:       identity,
		conversationID: conversationID,
		echoWindow:     echoWindow,
		onChange:       onChange,
	}
}

// Open waits for the live channel before loading so nothing inserted in
// between is missed, then marks the conversation as read.
func (v *ConversationView) Open(ctx context.Context) error {
	identity, ok := v.identity.CurrentUser(ctx)
	if !ok {
		return errors.ErrUnauthenticated
	}
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.owner = identity.ID
	v.timeline = projection.NewTimeline(v.conversationID, identity.ID, v.echoWindow)
	v.mu.Unlock()

	sub := v.service.SubscribeToMessages(v.conversationID, v.receive)

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

	if err := awaitLive(ctx, v.log, sub); err != nil {
		return err
	}

	messages := v.service.GetMessages(ctx, v.conversationID)
	if !v.apply(func(t *projection.Timeline) bool { t.Load(messages); return true }) {
		return nil
	}
	v.markRead()
	return nil
}

// Send renders the message right away, then confirms it or rolls it back.
func (v *ConversationView) Send(ctx context.Context, content string) (domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Message{}, errors.ErrEmptyContent
	}
	var pending domain.Message
	if !v.apply(func(t *projection.Timeline) bool {
		pending = t.AddOptimistic(content, time.Now().UTC())
		return true
	}) {
		return domain.Message{}, fmt.Errorf("%w: conversation view closed", errors.ErrSendFailed)
	}

	message, err := v.service.Send(ctx, v.conversationID, content)
	if err != nil {
		v.apply(func(t *projection.Timeline) bool { return t.Discard(pending.ID) })
		return domain.Message{}, err
	}
	v.apply(func(t *projection.Timeline) bool { return t.Confirm(pending.ID, message) })
	return message, nil
}

// Messages is a snapshot of the timeline.
func (v *ConversationView) Messages() []domain.Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.timeline == nil {
		return nil
	}
	return v.timeline.Messages()
}

// Close releases the subscription and waits for pending read receipts. Safe to call twice.
func (v *ConversationView) Close() {
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
	v.wg.Wait()
}

func (v *ConversationView) receive(message domain.Message) {
	var owner domain.UserID
	changed := v.apply(func(t *projection.Timeline) bool {
		owner = v.owner
		return t.Receive(message)
	})
	if changed && message.SenderID != owner {
		v.markRead()
	}
}

// apply mutates the timeline and notifies the listener when it changed.
// It reports whether it changed, always false once the view is closed.
func (v *ConversationView) apply(mutate func(*projection.Timeline) bool) bool {
	v.mu.Lock()
	if v.closed || v.timeline == nil {
		v.mu.Unlock()
		return false
	}
	changed := mutate(v.timeline)
	var snapshot []domain.Message
	if changed {
		snapshot = v.timeline.Messages()
	}
	v.mu.Unlock()
	if changed && v.onChange != nil {
		v.onChange(snapshot)
	}
	return changed
}

// markRead runs off the caller goroutine, realtime callbacks must not block on a write.
func (v *ConversationView) markRead() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.wg.Add(1)
	v.mu.Unlock()
	go func() {
		defer v.wg.Done()
		v.service.MarkMessagesAsRead(context.Background(), v.conversationID)
	}()
}

// awaitLive blocks until sub has left the Subscribing state. A channel that
// failed instead is logged, the screen still loads without live updates.
func awaitLive(ctx context.Context, log *slog.Logger, sub *realtime.Subscription) error {
	if sub == nil {
		return nil
	}
	select {
	case <-sub.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := sub.Err(); err != nil {
		log.Warn(fmt.Sprintf("Realtime channel %s unavailable: %v", sub.Topic(), err))
	}
	return nil
}
