package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore creates a migrated in-memory Store for testing.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	s, err := NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func TestSaveState_LoadState_Roundtrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	blob := []byte(`{"schemaVersion":4,"sessions":{},"sessionOrder":[],"tracking":{}}`)
	require.NoError(t, s.SaveState(ctx, blob))

	got, err := s.LoadState(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, string(blob), string(got))
}

func TestLoadState_EmptyReturnsNil(t *testing.T) {
	s := openTestStore(t)

	got, err := s.LoadState(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got, "unsaved state should load as nil, not an error")
}

func TestSaveState_OverwritesPrevious(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveState(ctx, []byte(`{"v":1}`)))
	require.NoError(t, s.SaveState(ctx, []byte(`{"v":2}`)))

	got, err := s.LoadState(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(got))

	var count int
	err = s.db.QueryRow("SELECT COUNT(*) FROM documents").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "state is a single upserted row")
}

func TestReset_DeletesStateAndAudits(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveState(ctx, []byte(`{"v":1}`)))
	require.NoError(t, s.Reset(ctx))

	got, err := s.LoadState(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	entries, err := s.RecentAudit(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, AuditStateReset, entries[0].Action)
}

func TestRecentAudit_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Audit(ctx, AuditSessionDeleted, "session a"))
	require.NoError(t, s.Audit(ctx, AuditSessionRestore, "session a"))
	require.NoError(t, s.Audit(ctx, AuditFavoriteToggle, "session b"))

	entries, err := s.RecentAudit(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, AuditFavoriteToggle, entries[0].Action)
	assert.Equal(t, AuditSessionRestore, entries[1].Action)
	assert.Equal(t, "session b", entries[0].Detail)
}

func TestRecentAudit_EmptyLog(t *testing.T) {
	s := openTestStore(t)

	entries, err := s.RecentAudit(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NotNil(t, entries, "empty log returns an empty slice, not nil")
}

func TestStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.StateBytes)
	assert.Zero(t, stats.AuditEntries)

	require.NoError(t, s.SaveState(ctx, []byte(`{"v":1}`)))
	require.NoError(t, s.Audit(ctx, AuditStateSaved, ""))

	stats, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), stats.StateBytes)
	assert.Equal(t, int64(1), stats.AuditEntries)
	assert.False(t, stats.StateUpdatedAt.IsZero())
}

func TestOpen_CreatesFileAndMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "meander.db")

	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	require.NoError(t, s.SaveState(ctx, []byte(`{"v":1}`)))

	got, err := s.LoadState(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(got))
}
