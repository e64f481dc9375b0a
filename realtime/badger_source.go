package realtime

import (
	"bytes"
	"campus-chat/errors"
	"campus-chat/repositories"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/pb"
	"github.com/google/uuid"
)

const (
	probePrefix       = repositories.FeedPrefix + "probe:"
	dispatchQueueSize = 256
	visibilityTimeout = 50 * time.Millisecond
)

// BadgerSource listens to the change records the Badger repositories write
// under the feed prefix.
//
// badger.DB.Subscribe gives no signal once the subscriber is registered, so
// readiness is a handshake: the source keeps writing a probe record until its
// own callback observes it, then reports StatusSubscribed.
type BadgerSource struct {
	db            *badger.DB
	log           *slog.Logger
	timeout       time.Duration
	probeInterval time.Duration
}

func NewBadgerSource(db *badger.DB, log *slog.Logger, timeout time.Duration) *BadgerSource {
	return &BadgerSource{db: db, log: log, timeout: timeout, probeInterval: 10 * time.Millisecond}
}

func (s *BadgerSource) Listen(ctx context.Context, channel Channel, onChange func(repositories.Change), onStatus func(Status)) error {
	listenCtx, cancel := context.WithCancel(ctx)
	var dispatching sync.WaitGroup
	defer func() {
		cancel()
		dispatching.Wait()
	}()

	probeKey := []byte(probePrefix + uuid.NewString())
	tablePrefix := repositories.FeedTablePrefix(channel.Table)
	ready := make(chan struct{})
	var readyOnce sync.Once

	// The Badger callback only decodes and queues, visibility waits and
	// listener callbacks run on the dispatcher, in commit order.
	queue := make(chan queuedChange, dispatchQueueSize)
	dispatching.Add(1)
	go func() {
		defer dispatching.Done()
		s.dispatch(listenCtx, queue, onChange)
	}()

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.db.Subscribe(listenCtx, func(kvs *badger.KVList) error {
			for _, kv := range kvs.Kv {
				if bytes.Equal(kv.Key, probeKey) {
					readyOnce.Do(func() { close(ready) })
					continue
				}
				if len(kv.Value) == 0 {
					continue
				}
				change, err := repositories.DecodeChange(kv.Value)
				if err != nil {
					s.log.Warn(fmt.Sprintf("Undecodable change record %q: %v", kv.Key, err))
					continue
				}
				select {
				case queue <- queuedChange{key: append([]byte(nil), kv.Key...), change: change}:
				case <-listenCtx.Done():
					return nil
				}
			}
			return nil
		}, []pb.Match{{Prefix: tablePrefix}, {Prefix: probeKey}})
	}()

	if err := s.probe(probeKey); err != nil {
		onStatus(StatusChannelError)
		cancel()
		<-errChan
		return err
	}
	ticker := time.NewTicker(s.probeInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(s.timeout)
	defer deadline.Stop()

handshake:
	for {
		select {
		case <-ready:
			onStatus(StatusSubscribed)
			break handshake
		case <-ticker.C:
			if err := s.probe(probeKey); err != nil {
				s.log.Debug(fmt.Sprintf("Probe write failed: %v", err))
			}
		case <-deadline.C:
			onStatus(StatusTimedOut)
			cancel()
			<-errChan
			return errors.ErrSubscriptionTimedOut
		case err := <-errChan:
			if ctx.Err() != nil {
				return nil
			}
			onStatus(StatusChannelError)
			return err
		}
	}

	err := <-errChan
	if ctx.Err() != nil {
		return nil
	}
	if err == nil {
		// Subscribe returns nil when the database is closed under it.
		onStatus(StatusClosed)
		return nil
	}
	onStatus(StatusChannelError)
	return err
}

type queuedChange struct {
	key    []byte
	change repositories.Change
}

func (s *BadgerSource) dispatch(ctx context.Context, queue <-chan queuedChange, onChange func(repositories.Change)) {
	for {
		select {
		case <-ctx.Done():
			return
		case queued := <-queue:
			s.awaitVisible(ctx, queued.key)
			if ctx.Err() != nil {
				return
			}
			onChange(queued.change)
		}
	}
}

// awaitVisible holds a change back until a new read transaction sees it,
// for at most visibilityTimeout. Badger notifies subscribers slightly before
// the commit is visible to readers, and listeners usually read the changed
// rows right away.
func (s *BadgerSource) awaitVisible(ctx context.Context, key []byte) {
	deadline := time.Now().Add(visibilityTimeout)
	for ctx.Err() == nil {
		err := s.db.View(func(txn *badger.Txn) error {
			_, err := txn.Get(key)
			return err
		})
		if !errors.Is(err, badger.ErrKeyNotFound) || time.Now().After(deadline) {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

func (s *BadgerSource) probe(key []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, []byte{1}).WithTTL(time.Minute))
	})
}
