package db_client

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateAppliesAllStatements(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for range schema {
		mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalTableKeyedByStreamID(t *testing.T) {
	// The journal tailer restarts from the beginning of the stream and
	// relies on ON CONFLICT (stream_id) to suppress the replay; that only
	// works with a unique constraint on the column.
	var found bool
	for _, stmt := range schema {
		flat := strings.Join(strings.Fields(stmt), " ")
		if strings.Contains(flat, "doc_updates") &&
			strings.Contains(flat, "stream_id TEXT NOT NULL UNIQUE") {
			found = true
		}
	}
	assert.True(t, found)
}
