package cli

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReset_ClearsState(t *testing.T) {
	st := openTestStore(t)
	coord := newTestCoordinator(t, st)
	seedCoordinator(t, coord)

	cmd := &ResetCommand{
		Force:   true,
		globals: &GlobalFlags{},
	}

	output := captureOutput(t, func() {
		err := cmd.executeWith(context.Background(), coord)
		require.NoError(t, err)
	})

	assert.Contains(t, output, "Reset complete.")
	assert.Empty(t, coord.State().Sessions)

	raw, err := st.LoadState(context.Background())
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestReset_JSONOutput(t *testing.T) {
	coord := newTestCoordinator(t, openTestStore(t))
	seedCoordinator(t, coord)

	cmd := &ResetCommand{
		Force:   true,
		globals: &GlobalFlags{JSON: true},
	}

	output := captureOutput(t, func() {
		err := cmd.executeWith(context.Background(), coord)
		require.NoError(t, err)
	})

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(output), &result))
	assert.Equal(t, true, result["reset"])
}
