package cli

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/meander/internal/analytics"
	"github.com/runnerr0/meander/internal/clock"
	"github.com/runnerr0/meander/internal/config"
	"github.com/runnerr0/meander/internal/model"
	"github.com/runnerr0/meander/internal/store"
	"github.com/runnerr0/meander/internal/sync"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// openTestStore creates an in-memory migrated store.
func openTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	runner := store.NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	s, err := store.NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// testConfig returns defaults pointed at a temp directory and an
// unreachable daemon.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Storage.Path = t.TempDir()
	cfg.Daemon.BaseURL = "http://127.0.0.1:1"
	return cfg
}

// newTestCoordinator builds an offline coordinator over the given store.
func newTestCoordinator(t *testing.T, st *store.SQLiteStore) *sync.Coordinator {
	t.Helper()
	c, err := sync.New(context.Background(), sync.Options{
		Store:     st,
		Clock:     clock.NewFake(time.UnixMilli(900_000)),
		Analytics: analytics.DefaultSettings(),
	})
	require.NoError(t, err)
	return c
}

// seededState builds a two-session state: s1 closed and busy, s2 the
// active newcomer.
func seededState() *model.State {
	guide := "https://docs.example.com/guide"
	feed := "https://news.example.com/feed"

	s1 := model.NewSessionShell("s1", 1_000)
	s1.LastActivityAt = 601_000
	s1.UpdatedAt = 601_000
	s1.Nodes[guide] = &model.Node{
		URL:        guide,
		Title:      "Guide",
		VisitCount: 2,
		ActiveMs:   300_000,
		FirstSeen:  1_000,
		LastSeen:   500_000,
	}
	s1.Nodes[feed] = &model.Node{
		URL:        feed,
		Title:      "Feed",
		VisitCount: 1,
		ActiveMs:   60_000,
		FirstSeen:  2_000,
		LastSeen:   400_000,
	}
	s1.Edges[model.EdgeKey(guide, feed)] = &model.Edge{
		From:       guide,
		To:         feed,
		VisitCount: 3,
	}

	s2 := model.NewSessionShell("s2", 700_000)
	s2.LastActivityAt = 800_000
	s2.Label = "Wandering"
	s2.Archived = true
	s2.ArchivedAt = 810_000

	return model.ApplyStateDefaults(&model.State{
		Sessions:        map[string]*model.Session{"s1": s1, "s2": s2},
		SessionOrder:    []string{"s1", "s2"},
		ActiveSessionID: "s2",
	})
}

// seedCoordinator pushes the seeded state into the coordinator.
func seedCoordinator(t *testing.T, coord *sync.Coordinator) {
	t.Helper()
	coord.HandleDelta(&model.Delta{State: seededState()})
	require.Len(t, coord.State().Sessions, 2)
}
