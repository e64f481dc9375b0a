//go:generate go run go.uber.org/mock/mockgen -source=source.go -destination=../mocks/mock_change_source.go -package=mocks
// Package realtime subscribes to backend row changes and republishes them
// as typed events to local listeners.
//
// Delivery is best-effort: a channel that drops or fails is closed, never
// reconnected. Re-subscribing is the caller's decision.
package realtime

import (
	"campus-chat/repositories"
	"context"

	"github.com/samber/lo"
)

// Status is the connection status reported by a realtime channel.
type Status string

const (
	StatusSubscribed   Status = "SUBSCRIBED"
	StatusChannelError Status = "CHANNEL_ERROR"
	StatusTimedOut     Status = "TIMED_OUT"
	StatusClosed       Status = "CLOSED"
)

// Filter is an equality predicate on a column of the changed row.
type Filter struct {
	Column string
	Value  string
}

func Eq(column, value string) Filter {
	return Filter{Column: column, Value: value}
}

// Channel describes what a subscriber listens to: one table, some
// operations, one filter.
type Channel struct {
	Name       string
	Table      repositories.Table
	Operations []repositories.Operation
	Filter     Filter
}

// Accepts reports whether a change belongs to the channel.
func (c Channel) Accepts(change repositories.Change) bool {
	if change.Table != c.Table {
		return false
	}
	if len(c.Operations) > 0 && !lo.Contains(c.Operations, change.Operation) {
		return false
	}
	return change.Matches(c.Filter.Column, c.Filter.Value)
}

// ChangeSource is the realtime surface of the backend.
// Listen blocks until ctx is cancelled or the channel fails. It reports
// StatusSubscribed once changes are flowing and may call onChange with
// changes of the whole table, filtering is left to the caller.
type ChangeSource interface {
	Listen(ctx context.Context, channel Channel, onChange func(repositories.Change), onStatus func(Status)) error
}
