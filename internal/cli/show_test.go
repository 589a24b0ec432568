package cli

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShow_HumanOutput(t *testing.T) {
	coord := newTestCoordinator(t, openTestStore(t))
	seedCoordinator(t, coord)

	cmd := &ShowCommand{
		ID:      "s1",
		globals: &GlobalFlags{},
	}

	output := captureOutput(t, func() {
		err := cmd.executeWith(context.Background(), coord)
		require.NoError(t, err)
	})

	assert.Contains(t, output, "Session s1")
	assert.Contains(t, output, "Label:")
	assert.Contains(t, output, "Drift:")
	assert.Contains(t, output, "Top Domains:")
	assert.Contains(t, output, "docs.example.com")
}

func TestShow_DefaultsToActiveSession(t *testing.T) {
	coord := newTestCoordinator(t, openTestStore(t))
	seedCoordinator(t, coord)

	cmd := &ShowCommand{globals: &GlobalFlags{}}

	output := captureOutput(t, func() {
		err := cmd.executeWith(context.Background(), coord)
		require.NoError(t, err)
	})

	assert.Contains(t, output, "Session s2")
}

func TestShow_UnknownSession(t *testing.T) {
	coord := newTestCoordinator(t, openTestStore(t))
	seedCoordinator(t, coord)

	cmd := &ShowCommand{
		ID:      "missing",
		globals: &GlobalFlags{},
	}

	err := cmd.executeWith(context.Background(), coord)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestShow_NoSessionAtAll(t *testing.T) {
	coord := newTestCoordinator(t, openTestStore(t))

	cmd := &ShowCommand{globals: &GlobalFlags{}}

	err := cmd.executeWith(context.Background(), coord)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no session ID given")
}

func TestShow_JSONWithInsightsAndSummary(t *testing.T) {
	coord := newTestCoordinator(t, openTestStore(t))
	seedCoordinator(t, coord)

	cmd := &ShowCommand{
		ID:       "s1",
		Insights: true,
		Summary:  true,
		globals:  &GlobalFlags{JSON: true},
	}

	output := captureOutput(t, func() {
		err := cmd.executeWith(context.Background(), coord)
		require.NoError(t, err)
	})

	var result showJSON
	require.NoError(t, json.Unmarshal([]byte(output), &result))

	require.NotNil(t, result.Stats)
	assert.Equal(t, "s1", result.Stats.SessionID)
	assert.NotEmpty(t, result.Stats.Label)
	assert.NotEmpty(t, result.Insights)

	// No offload worker connected, so the summary is the local fallback.
	require.NotNil(t, result.Summary)
	assert.Contains(t, result.Summary.Brief, "docs.example.com")
}
