package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrUnauthenticated      = fmt.Errorf("unauthenticated")
	ErrNotFound             = fmt.Errorf("not found")
	ErrSendFailed           = fmt.Errorf("send failed")
	ErrSubscription         = fmt.Errorf("subscription failed")
	ErrEmptyContent         = fmt.Errorf("message content is empty")
	ErrContentTooLong       = fmt.Errorf("message content is too long")
	ErrEmptyQuery           = fmt.Errorf("search query is empty")
	ErrQueryTooLong         = fmt.Errorf("search query is too long")
	ErrInvalidParticipants  = fmt.Errorf("a conversation needs two distinct participants")
	ErrConversationExists   = fmt.Errorf("conversation already exists for this pair")
	ErrInvalidToken         = fmt.Errorf("invalid session token")
	ErrSubscriptionTimedOut = fmt.Errorf("subscription timed out")
	ErrWorkerPanic          = fmt.Errorf("worker panic")
)

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}
