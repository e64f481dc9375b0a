package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestBadgerGC_Runs_Until_Cancelled(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })
	req.NoError(db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte("feed:messages:1"), []byte("{}")).WithTTL(time.Millisecond))
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// When a fresh database has nothing to rewrite
	err = NewBadgerGC(db, logs.GetLoggerFromLevel(slog.LevelDebug), 10*time.Millisecond).Run(ctx)

	// Then the worker keeps going until its context ends
	req.NoError(err)
}
