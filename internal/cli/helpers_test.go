package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.0 KB", formatBytes(1024))
	assert.Equal(t, "1.5 MB", formatBytes(1<<20+1<<19))
	assert.Equal(t, "2.0 GB", formatBytes(2<<30))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "0", formatNumber(0))
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1,000", formatNumber(1000))
	assert.Equal(t, "1,234,567", formatNumber(1234567))
}

func TestFormatDurationMs(t *testing.T) {
	assert.Equal(t, "0s", formatDurationMs(0))
	assert.Equal(t, "45s", formatDurationMs(45_000))
	assert.Equal(t, "5m", formatDurationMs(5*60_000))
	assert.Equal(t, "1h 12m", formatDurationMs(72*60_000))
}

func TestFormatTimestamp_Zero(t *testing.T) {
	assert.Equal(t, "never", formatTimestamp(0))
}

func TestLoadConfig_CustomPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sync:\n  batch_window_ms: 500\n"), 0o644))

	cfg, err := loadConfig(&GlobalFlags{Config: path})
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Sync.BatchWindowMs)
}

func TestBuildLogger_FileTarget(t *testing.T) {
	cfg := testConfig(t)
	cfg.Logging.File = filepath.Join(t.TempDir(), "meander.log")
	cfg.Logging.Level = "debug"

	logger, closeLog, err := buildLogger(cfg, false)
	require.NoError(t, err)

	logger.Debug("hello from test")
	closeLog()

	data, err := os.ReadFile(cfg.Logging.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from test")
}

func TestOpenConfiguredStore_CreatesDatabase(t *testing.T) {
	cfg := testConfig(t)

	st, err := openConfiguredStore(cfg)
	require.NoError(t, err)
	defer st.Close()

	dbPath, err := cfg.DatabasePath()
	require.NoError(t, err)
	_, statErr := os.Stat(dbPath)
	assert.NoError(t, statErr)
}
