package repositories

import (
	"campus-chat/errors"
	"math/rand/v2"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	maxUpdateAttempts = 50
	maxConflictDelay  = 10 * time.Millisecond
)

// update runs fn in a read-write transaction and replays it when Badger
// detects a conflict with a concurrent commit. fn must reset any state it
// captures, it may run more than once. The last conflict is returned once
// attempts run out.
func update(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		err = db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		time.Sleep(conflictDelay(attempt))
	}
	return err
}

// conflictDelay is a jittered backoff, contenders spread out instead of colliding again.
func conflictDelay(attempt int) time.Duration {
	ceiling := min(time.Duration(attempt)*time.Millisecond, maxConflictDelay)
	return rand.N(ceiling) + time.Microsecond
}
