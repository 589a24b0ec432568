package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/runnerr0/meander/internal/model"
	"github.com/runnerr0/meander/internal/sync"
)

// sessionJSON is one session row in the JSON output.
type sessionJSON struct {
	ID          string `json:"id"`
	Label       string `json:"label,omitempty"`
	StartedAt   string `json:"started_at"`
	DurationMs  int64  `json:"duration_ms"`
	Navigations int    `json:"navigations"`
	Nodes       int    `json:"nodes"`
	Favorite    bool   `json:"favorite,omitempty"`
	Archived    bool   `json:"archived,omitempty"`
	Deleted     bool   `json:"deleted,omitempty"`
	Active      bool   `json:"active,omitempty"`
}

// Execute implements the go-flags Commander interface for SessionsCommand.
func (c *SessionsCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	st, err := openConfiguredStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	// Mutations go through the daemon when it is reachable; otherwise
	// they apply locally and the next sync reconciles.
	online := checkDaemon(cfg.Daemon.BaseURL)

	ctx := context.Background()
	coord, err := newCoordinator(ctx, cfg, st, online, nil)
	if err != nil {
		return err
	}

	return c.executeWith(ctx, coord)
}

// executeWith runs the command against a provided coordinator (for testing).
func (c *SessionsCommand) executeWith(ctx context.Context, coord *sync.Coordinator) error {
	switch {
	case c.Favorite != "":
		if err := coord.ToggleFavorite(ctx, c.Favorite); err != nil {
			return err
		}
	case c.Delete != "":
		if err := coord.DeleteSession(ctx, c.Delete); err != nil {
			return err
		}
	case c.Restore != "":
		if err := coord.RestoreSession(ctx, c.Restore); err != nil {
			return err
		}
	}

	state := coord.State()
	sessions := make([]*model.Session, 0, len(state.SessionOrder))
	for _, s := range state.OrderedSessions() {
		if s.Deleted && !c.All {
			continue
		}
		sessions = append(sessions, s)
		if c.Limit > 0 && len(sessions) >= c.Limit {
			break
		}
	}

	if c.globals != nil && c.globals.JSON {
		return c.printJSON(state, sessions)
	}
	return c.printHuman(state, sessions)
}

func (c *SessionsCommand) printHuman(state *model.State, sessions []*model.Session) error {
	if len(sessions) == 0 {
		fmt.Println("No sessions recorded.")
		return nil
	}

	sessionWord := "sessions"
	if len(sessions) == 1 {
		sessionWord = "session"
	}
	fmt.Printf("%d %s\n\n", len(sessions), sessionWord)

	for i, s := range sessions {
		marker := " "
		if s.ID == state.ActiveSessionID {
			marker = "*"
		}
		fmt.Printf("%s %d. %s", marker, i+1, s.ID)
		if s.Favorite {
			fmt.Print(" ★")
		}
		if s.Archived {
			fmt.Print(" (archived)")
		}
		if s.Deleted {
			fmt.Print(" (deleted)")
		}
		fmt.Println()

		label := s.Label
		if label == "" {
			label = "unlabeled"
		}
		fmt.Printf("    %s · %s · %d navs · %d pages\n",
			label, formatDurationMs(s.Duration()), s.NavigationCount, len(s.Nodes))
		fmt.Printf("    started %s\n", formatTimestamp(s.StartedAt))

		if i < len(sessions)-1 {
			fmt.Println()
		}
	}

	return nil
}

func (c *SessionsCommand) printJSON(state *model.State, sessions []*model.Session) error {
	out := make([]sessionJSON, len(sessions))
	for i, s := range sessions {
		out[i] = sessionJSON{
			ID:          s.ID,
			Label:       s.Label,
			StartedAt:   formatTimestamp(s.StartedAt),
			DurationMs:  s.Duration(),
			Navigations: s.NavigationCount,
			Nodes:       len(s.Nodes),
			Favorite:    s.Favorite,
			Archived:    s.Archived,
			Deleted:     s.Deleted,
			Active:      s.ID == state.ActiveSessionID,
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
