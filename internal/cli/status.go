package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/runnerr0/meander/internal/analytics"
	"github.com/runnerr0/meander/internal/config"
	"github.com/runnerr0/meander/internal/model"
	"github.com/runnerr0/meander/internal/normalize"
	"github.com/runnerr0/meander/internal/store"
)

const statusTopDomains = 5

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string            `json:"version"`
	DatabasePath      string            `json:"database_path"`
	DatabaseSizeBytes int64             `json:"database_size_bytes"`
	StateBytes        int64             `json:"state_bytes"`
	StateUpdatedAt    string            `json:"state_updated_at,omitempty"`
	SchemaVersion     int               `json:"schema_version"`
	Sessions          int               `json:"sessions"`
	ActiveSession     string            `json:"active_session,omitempty"`
	AuditEntries      int64             `json:"audit_entries"`
	TopDomains        []domainCountJSON `json:"top_domains"`
	DaemonURL         string            `json:"daemon_url"`
	DaemonRunning     bool              `json:"daemon_running"`
}

type domainCountJSON struct {
	Domain   string `json:"domain"`
	ActiveMs int64  `json:"active_ms"`
	Visits   int    `json:"visits"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	st, err := openConfiguredStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	return c.executeWith(cfg, st)
}

// executeWith runs status against a provided config and store (for testing).
func (c *StatusCommand) executeWith(cfg *config.Config, st *store.SQLiteStore) error {
	ctx := context.Background()

	stats, err := st.Stats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	var state *model.State
	if raw, err := st.LoadState(ctx); err == nil && raw != nil {
		if normalized, ok := normalize.Normalize(raw); ok {
			state = normalized
		}
	}

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return fmt.Errorf("resolve database path: %w", err)
	}
	var dbSize int64
	if info, err := os.Stat(dbPath); err == nil {
		dbSize = info.Size()
	}

	daemonRunning := checkDaemon(cfg.Daemon.BaseURL)

	if c.globals != nil && c.globals.JSON {
		return c.printStatusJSON(cfg, stats, state, dbPath, dbSize, daemonRunning)
	}
	return c.printStatusHuman(cfg, stats, state, dbPath, dbSize, daemonRunning)
}

func (c *StatusCommand) printStatusHuman(cfg *config.Config, stats *store.Stats, state *model.State, dbPath string, dbSize int64, daemonRunning bool) error {
	fmt.Println("Meander Status")
	fmt.Println("==============")
	fmt.Printf("Version:       %s\n", c.version)
	fmt.Printf("Database:      %s (%s)\n", dbPath, formatBytes(dbSize))
	fmt.Printf("State:         %s", formatBytes(stats.StateBytes))
	if state != nil {
		fmt.Printf(" (schema v%d)", state.SchemaVersion)
	}
	fmt.Println()
	if !stats.StateUpdatedAt.IsZero() {
		fmt.Printf("Updated:       %s\n", stats.StateUpdatedAt.Local().Format("2006-01-02 15:04"))
	}

	sessionCount := 0
	if state != nil {
		sessionCount = len(state.Sessions)
	}
	fmt.Printf("Sessions:      %s\n", formatNumber(int64(sessionCount)))
	if state != nil && state.ActiveSessionID != "" {
		fmt.Printf("Active:        %s\n", state.ActiveSessionID)
	}
	fmt.Printf("Audit:         %s entries\n", formatNumber(stats.AuditEntries))

	if domains := topDomains(state, statusTopDomains); len(domains) > 0 {
		fmt.Println()
		fmt.Println("Top Domains:")
		for _, d := range domains {
			fmt.Printf("  %-30s %s · %d visits\n", d.Domain, formatDurationMs(d.ActiveMs), d.Visits)
		}
	}

	fmt.Println()
	if daemonRunning {
		fmt.Printf("Daemon:        running (%s)\n", cfg.Daemon.BaseURL)
	} else {
		fmt.Printf("Daemon:        not running (%s)\n", cfg.Daemon.BaseURL)
	}

	return nil
}

func (c *StatusCommand) printStatusJSON(cfg *config.Config, stats *store.Stats, state *model.State, dbPath string, dbSize int64, daemonRunning bool) error {
	out := statusJSON{
		Version:           c.version,
		DatabasePath:      dbPath,
		DatabaseSizeBytes: dbSize,
		StateBytes:        stats.StateBytes,
		AuditEntries:      stats.AuditEntries,
		TopDomains:        topDomains(state, statusTopDomains),
		DaemonURL:         cfg.Daemon.BaseURL,
		DaemonRunning:     daemonRunning,
	}
	if state != nil {
		out.SchemaVersion = state.SchemaVersion
		out.Sessions = len(state.Sessions)
		out.ActiveSession = state.ActiveSessionID
	}
	if !stats.StateUpdatedAt.IsZero() {
		out.StateUpdatedAt = stats.StateUpdatedAt.UTC().Format(time.RFC3339)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// topDomains aggregates node engagement by domain across all surviving
// sessions, busiest first.
func topDomains(state *model.State, limit int) []domainCountJSON {
	if state == nil {
		return nil
	}

	type agg struct {
		activeMs int64
		visits   int
	}
	byDomain := make(map[string]*agg)
	for _, s := range state.Sessions {
		if s.Deleted {
			continue
		}
		for _, n := range s.Nodes {
			domain := analytics.DomainOf(n.URL)
			if domain == "" {
				continue
			}
			a := byDomain[domain]
			if a == nil {
				a = &agg{}
				byDomain[domain] = a
			}
			a.activeMs += n.ActiveMs
			a.visits += n.VisitCount
		}
	}

	out := make([]domainCountJSON, 0, len(byDomain))
	for domain, a := range byDomain {
		out = append(out, domainCountJSON{Domain: domain, ActiveMs: a.activeMs, Visits: a.visits})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ActiveMs != out[j].ActiveMs {
			return out[i].ActiveMs > out[j].ActiveMs
		}
		return out[i].Domain < out[j].Domain
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
