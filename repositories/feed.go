package repositories

import (
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// FeedPrefix namespaces the change records written next to every row mutation.
// Records expire after the configured TTL, they only exist to be observed
// by live subscribers.
const FeedPrefix = "feed:"

// FeedTablePrefix is the key prefix of the change records of one table.
func FeedTablePrefix(table Table) []byte {
	return []byte(fmt.Sprintf("%s%s:", FeedPrefix, table))
}

// recordChange writes the change record in the same transaction as the row,
// so a subscriber never observes a change that was not committed.
func recordChange(txn *badger.Txn, change Change, ttl time.Duration) error {
	data, err := EncodeChange(change)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	key := fmt.Sprintf("%s%019d:%s", FeedTablePrefix(change.Table), change.At.UnixNano(), uuid.NewString())
	entry := badger.NewEntry([]byte(key), data)
	if ttl > 0 {
		entry = entry.WithTTL(ttl)
	}
	return txn.SetEntry(entry)
}
