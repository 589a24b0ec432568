package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/runnerr0/meander/internal/channel"
	"github.com/runnerr0/meander/internal/config"
	"github.com/runnerr0/meander/internal/store"
	"github.com/runnerr0/meander/internal/sync"
)

// loadConfig loads the config file named by --config, or the default
// location, creating it with defaults when missing.
func loadConfig(globals *GlobalFlags) (*config.Config, error) {
	if globals != nil && globals.Config != "" {
		return config.LoadOrCreateAt(globals.Config)
	}
	return config.LoadOrCreate()
}

// openConfiguredStore opens the SQLite store at the configured path,
// running migrations.
func openConfiguredStore(cfg *config.Config) (*store.SQLiteStore, error) {
	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// newCoordinator assembles a sync coordinator over the given store. With
// online set, the daemon client and push feed are wired in; otherwise the
// coordinator works purely from persisted state.
func newCoordinator(ctx context.Context, cfg *config.Config, st store.Store, online bool, logger *slog.Logger) (*sync.Coordinator, error) {
	opts := sync.Options{
		Store:          st,
		Logger:         logger,
		Analytics:      cfg.Analytics.Settings(),
		PollInterval:   cfg.Sync.PollInterval(),
		Batching:       cfg.Sync.Batching,
		BatchWindow:    cfg.Sync.BatchWindow(),
		ReconcileDelay: cfg.Sync.ReconcileDelay(),
		OffloadTimeout: cfg.Offload.Timeout(),
		OffloadMax:     cfg.Offload.MaxPending,
	}
	if online {
		opts.Client = channel.NewClient(cfg.Daemon.BaseURL)
		opts.PushURL = cfg.Daemon.PushURL
	}
	return sync.New(ctx, opts)
}

// buildLogger constructs the slog logger per the logging config. With a
// file configured, logs append there; otherwise they go to stderr.
// Verbose forces debug level.
func buildLogger(cfg *config.Config, verbose bool) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	closer := func() {}
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closer = func() { f.Close() }
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler), closer, nil
}

// checkDaemon reports whether the capture daemon answers its health
// endpoint within one second.
func checkDaemon(baseURL string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	return channel.NewClient(baseURL).Health(ctx) == nil
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatNumber formats an int64 with comma separators.
func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
		if len(s) > remainder {
			result.WriteString(",")
		}
	}
	for i := remainder; i < len(s); i += 3 {
		if i > remainder {
			result.WriteString(",")
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// formatDurationMs formats a millisecond duration like "1h 12m" or "45s".
func formatDurationMs(ms int64) string {
	if ms <= 0 {
		return "0s"
	}
	d := time.Duration(ms) * time.Millisecond
	if d >= time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	if d >= time.Minute {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}

// formatTimestamp renders a unix-millisecond timestamp in local time, or
// "never" for zero.
func formatTimestamp(ms int64) string {
	if ms <= 0 {
		return "never"
	}
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}
