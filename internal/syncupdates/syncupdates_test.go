package syncupdates

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPersistMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func journalMessage(id string) redis.XMessage {
	return redis.XMessage{
		ID: id,
		Values: map[string]any{
			"room":    "studio-123",
			"conn":    "7",
			"payload": `[{"client":1,"clock":1,"ops":[]}]`,
			"at":      "1690000000",
		},
	}
}

func TestPersistKeysRowsByStreamID(t *testing.T) {
	db, mock := newPersistMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO doc_updates (stream_id,")).
		WithArgs("1690000000000-0", "studio-123", int64(7), `[{"client":1,"clock":1,"ops":[]}]`, int64(1690000000)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := persist(context.Background(), db, []redis.XMessage{journalMessage("1690000000000-0")})
	require.NoError(t, err)
}

func TestPersistReplayedEntryIsSuppressed(t *testing.T) {
	db, mock := newPersistMock(t)

	// A replayed stream entry lands on the stream_id constraint: zero rows,
	// no error, the transaction still commits.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (stream_id) DO NOTHING")).
		WithArgs("1690000000000-0", "studio-123", int64(7), `[{"client":1,"clock":1,"ops":[]}]`, int64(1690000000)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := persist(context.Background(), db, []redis.XMessage{journalMessage("1690000000000-0")})
	require.NoError(t, err)
}

func TestPersistSkipsIncompleteMessages(t *testing.T) {
	db, mock := newPersistMock(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	msgs := []redis.XMessage{{ID: "1-0", Values: map[string]any{"room": "", "payload": ""}}}
	require.NoError(t, persist(context.Background(), db, msgs))
}
