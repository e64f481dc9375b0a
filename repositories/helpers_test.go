package repositories

import (
	"campus-chat/domain"
	"log/slog"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func openIndex(t *testing.T) *bluge.Writer {
	t.Helper()
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })
	return writer
}

func testLogger() *slog.Logger {
	return logs.GetLoggerFromLevel(slog.LevelDebug)
}

func newConversation(a, b string) (DiskConversation, []DiskParticipant) {
	now := time.Now().UTC()
	conversation := DiskConversation{
		ID:        uuid.NewString(),
		PairKey:   domain.PairKey(domain.UserID(a), domain.UserID(b)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return conversation, []DiskParticipant{
		{ID: uuid.NewString(), ConversationID: conversation.ID, UserID: a},
		{ID: uuid.NewString(), ConversationID: conversation.ID, UserID: b},
	}
}
