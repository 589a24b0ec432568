package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/runnerr0/meander/internal/sync"
)

// Execute implements the go-flags Commander interface for ResetCommand.
func (c *ResetCommand) Execute(args []string) error {
	// Confirmation prompt unless --force
	if !c.Force {
		fmt.Println("⚠ WARNING: This will permanently delete ALL local session data.")
		fmt.Println("  - All recorded sessions and their graphs")
		fmt.Println("  - All derived analytics and summaries")
		fmt.Println()
		fmt.Println("This action cannot be undone.")
		fmt.Println()
		fmt.Print(`Type "RESET" to confirm: `)

		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			return fmt.Errorf("aborted: no input received")
		}
		input := strings.TrimSpace(scanner.Text())
		if input != "RESET" {
			return fmt.Errorf("aborted: confirmation text did not match")
		}
	}

	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	st, err := openConfiguredStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	// With the daemon reachable, the reset also clears daemon state;
	// otherwise it clears only the local copy.
	online := checkDaemon(cfg.Daemon.BaseURL)

	ctx := context.Background()
	coord, err := newCoordinator(ctx, cfg, st, online, nil)
	if err != nil {
		return err
	}

	return c.executeWith(ctx, coord)
}

// executeWith runs the reset against a provided coordinator (for testing).
func (c *ResetCommand) executeWith(ctx context.Context, coord *sync.Coordinator) error {
	if err := coord.Reset(ctx); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		out := map[string]interface{}{
			"reset":   true,
			"message": "all local state deleted",
		}
		enc := json.NewEncoder(os.Stdout)
		return enc.Encode(out)
	}

	fmt.Println("Reset complete. Local state is empty.")
	return nil
}
