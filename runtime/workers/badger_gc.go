package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const gcDiscardRatio = 0.5

// BadgerGC reclaims value log space left by expired change records.
type BadgerGC struct {
	db       *badger.DB
	log      *slog.Logger
	interval time.Duration
}

func NewBadgerGC(db *badger.DB, log *slog.Logger, interval time.Duration) *BadgerGC {
	return &BadgerGC{db: db, log: log, interval: interval}
}

func (g *BadgerGC) Run(ctx context.Context) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := g.collect(); err != nil {
				return err
			}
		}
	}
}

// collect rewrites value log files until badger finds nothing worth rewriting.
func (g *BadgerGC) collect() error {
	rewrites := 0
	for {
		err := g.db.RunValueLogGC(gcDiscardRatio)
		switch {
		case err == nil:
			rewrites++
		case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrRejected):
			if rewrites > 0 {
				g.log.Debug(fmt.Sprintf("Badger GC rewrote %d value log files", rewrites))
			}
			return nil
		default:
			return fmt.Errorf("badger value log gc: %w", err)
		}
	}
}
