package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/runnerr0/meander/internal/channel"
	"github.com/runnerr0/meander/internal/sync"
)

// Execute implements the go-flags Commander interface for WatchCommand.
func (c *WatchCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	logger, closeLog, err := buildLogger(cfg, c.globals != nil && c.globals.Verbose)
	if err != nil {
		return err
	}
	defer closeLog()

	st, err := openConfiguredStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if c.URL != "" {
		cfg.Daemon.BaseURL = c.URL
	}
	if c.PushURL != "" {
		cfg.Daemon.PushURL = c.PushURL
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := sync.Options{
		Store:          st,
		Client:         channel.NewClient(cfg.Daemon.BaseURL),
		PushURL:        cfg.Daemon.PushURL,
		Logger:         logger,
		Analytics:      cfg.Analytics.Settings(),
		PollInterval:   cfg.Sync.PollInterval(),
		Batching:       cfg.Sync.Batching,
		BatchWindow:    cfg.Sync.BatchWindow(),
		ReconcileDelay: cfg.Sync.ReconcileDelay(),
		OffloadTimeout: cfg.Offload.Timeout(),
		OffloadMax:     cfg.Offload.MaxPending,
	}
	if c.PollSeconds > 0 {
		opts.PollInterval = time.Duration(c.PollSeconds) * time.Second
	}

	coord, err := sync.New(ctx, opts)
	if err != nil {
		return err
	}

	fmt.Printf("meander %s watching %s (push %s)\n", c.version, cfg.Daemon.BaseURL, cfg.Daemon.PushURL)
	logger.Info("sync starting", "daemon", cfg.Daemon.BaseURL, "poll", opts.PollInterval)

	if err := coord.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("sync loop: %w", err)
	}

	fmt.Println("meander stopped")
	return nil
}
