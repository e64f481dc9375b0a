package realtime

import (
	"campus-chat/domain"
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// State of a subscription. Transitions only move forward:
// Unsubscribed -> Subscribing -> Subscribed -> Closed.
type State int32

const (
	StateUnsubscribed State = iota
	StateSubscribing
	StateSubscribed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnsubscribed:
		return "unsubscribed"
	case StateSubscribing:
		return "subscribing"
	case StateSubscribed:
		return "subscribed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Subscription is the handle returned to a listener.
// Unsubscribe is idempotent and safe after the channel is already closed.
type Subscription struct {
	id        string
	topic     domain.Topic
	state     atomic.Int32
	cancel    context.CancelFunc
	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	closeOnce sync.Once
	onClose   func()

	deliverMu sync.Mutex

	errMu sync.Mutex
	err   error
}

func newSubscription(topic domain.Topic, cancel context.CancelFunc) *Subscription {
	return &Subscription{
		id:     uuid.NewString(),
		topic:  topic,
		cancel: cancel,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (s *Subscription) ID() string { return s.id }

func (s *Subscription) Topic() domain.Topic { return s.topic }

func (s *Subscription) State() State { return State(s.state.Load()) }

// Ready is closed once the subscription leaves the Subscribing state,
// either because the channel is live or because it closed.
func (s *Subscription) Ready() <-chan struct{} { return s.ready }

// Done is closed once the underlying channel has been released.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err returns why the channel closed on its own, nil after a plain Unsubscribe.
func (s *Subscription) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Subscription) Unsubscribe() {
	s.close(nil)
}

func (s *Subscription) transition(from, to State) bool {
	ok := s.state.CompareAndSwap(int32(from), int32(to))
	if ok && to != StateSubscribing {
		s.readyOnce.Do(func() { close(s.ready) })
	}
	return ok
}

// deliver runs fn unless the subscription is closed. Callbacks of one
// subscription never run concurrently.
func (s *Subscription) deliver(fn func()) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if s.State() == StateClosed {
		return
	}
	fn()
}

func (s *Subscription) close(cause error) {
	s.closeOnce.Do(func() {
		if cause != nil {
			s.errMu.Lock()
			s.err = cause
			s.errMu.Unlock()
		}
		s.state.Store(int32(StateClosed))
		s.readyOnce.Do(func() { close(s.ready) })
		s.cancel()
		if s.onClose != nil {
			s.onClose()
		}
	})
}
