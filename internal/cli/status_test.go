package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_EmptyStore(t *testing.T) {
	cfg := testConfig(t)
	st := openTestStore(t)

	cmd := &StatusCommand{
		globals: &GlobalFlags{},
		version: "dev",
	}

	output := captureOutput(t, func() {
		err := cmd.executeWith(cfg, st)
		require.NoError(t, err)
	})

	assert.Contains(t, output, "Meander Status")
	assert.Contains(t, output, "Version:")
	assert.Contains(t, output, "dev")
	assert.Contains(t, output, "Sessions:      0")
	assert.Contains(t, output, "not running")
}

func TestStatus_WithState(t *testing.T) {
	cfg := testConfig(t)
	st := openTestStore(t)
	ctx := context.Background()

	doc := `{
		"schemaVersion": 4,
		"sessions": {"s1": {"id": "s1", "startedAt": 1000, "nodes": {}, "edges": {}}},
		"sessionOrder": ["s1"],
		"activeSessionId": "s1",
		"tracking": {}
	}`
	require.NoError(t, st.SaveState(ctx, []byte(doc)))

	cmd := &StatusCommand{
		globals: &GlobalFlags{},
		version: "dev",
	}

	output := captureOutput(t, func() {
		err := cmd.executeWith(cfg, st)
		require.NoError(t, err)
	})

	assert.Contains(t, output, "schema v4")
	assert.Contains(t, output, "Sessions:      1")
	assert.Contains(t, output, "Active:        s1")
	assert.Contains(t, output, "Updated:")
}

func TestStatus_JSONOutput(t *testing.T) {
	cfg := testConfig(t)
	st := openTestStore(t)
	ctx := context.Background()

	doc := `{"schemaVersion":4,"sessions":{"s1":{"id":"s1","startedAt":1000,"nodes":{},"edges":{}}},"sessionOrder":["s1"],"tracking":{}}`
	require.NoError(t, st.SaveState(ctx, []byte(doc)))

	cmd := &StatusCommand{
		globals: &GlobalFlags{JSON: true},
		version: "dev",
	}

	output := captureOutput(t, func() {
		err := cmd.executeWith(cfg, st)
		require.NoError(t, err)
	})

	var result statusJSON
	err := json.Unmarshal([]byte(output), &result)
	require.NoError(t, err, "output should be valid JSON")

	assert.Equal(t, "dev", result.Version)
	assert.Equal(t, 4, result.SchemaVersion)
	assert.Equal(t, 1, result.Sessions)
	assert.Greater(t, result.StateBytes, int64(0))
	assert.False(t, result.DaemonRunning)
	assert.NotEmpty(t, result.StateUpdatedAt)
}

func TestStatus_TopDomainsSorted(t *testing.T) {
	cfg := testConfig(t)
	st := openTestStore(t)
	ctx := context.Background()

	doc := `{
		"schemaVersion": 4,
		"sessions": {"s1": {"id": "s1", "startedAt": 1000, "nodes": {
			"https://github.com/a": {"url": "https://github.com/a", "activeMs": 300000, "visitCount": 3},
			"https://stackoverflow.com/q": {"url": "https://stackoverflow.com/q", "activeMs": 200000, "visitCount": 2},
			"https://pkg.go.dev/fmt": {"url": "https://pkg.go.dev/fmt", "activeMs": 100000, "visitCount": 1}
		}, "edges": {}}},
		"sessionOrder": ["s1"],
		"tracking": {}
	}`
	require.NoError(t, st.SaveState(ctx, []byte(doc)))

	cmd := &StatusCommand{
		globals: &GlobalFlags{},
		version: "dev",
	}

	output := captureOutput(t, func() {
		err := cmd.executeWith(cfg, st)
		require.NoError(t, err)
	})

	githubIdx := strings.Index(output, "github.com")
	soIdx := strings.Index(output, "stackoverflow.com")
	pkgIdx := strings.Index(output, "pkg.go.dev")

	assert.Greater(t, githubIdx, 0, "github.com should appear in output")
	assert.Greater(t, soIdx, 0, "stackoverflow.com should appear in output")
	assert.Greater(t, pkgIdx, 0, "pkg.go.dev should appear in output")
	assert.Less(t, githubIdx, soIdx, "github.com (300s) should appear before stackoverflow.com (200s)")
	assert.Less(t, soIdx, pkgIdx, "stackoverflow.com (200s) should appear before pkg.go.dev (100s)")
}

func TestStatus_DaemonRunning(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testConfig(t)
	cfg.Daemon.BaseURL = server.URL
	st := openTestStore(t)

	cmd := &StatusCommand{
		globals: &GlobalFlags{},
		version: "dev",
	}

	output := captureOutput(t, func() {
		err := cmd.executeWith(cfg, st)
		require.NoError(t, err)
	})

	assert.Contains(t, output, "Daemon:        running")
}
