package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/runnerr0/meander/internal/analytics"
	"github.com/runnerr0/meander/internal/sync"
)

// showJSON is the JSON output structure for the show command.
type showJSON struct {
	Stats    *analytics.SessionStats `json:"stats"`
	Insights []analytics.Insight     `json:"insights,omitempty"`
	Summary  *sync.Summary           `json:"summary,omitempty"`
}

// Execute implements the go-flags Commander interface for ShowCommand.
func (c *ShowCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	st, err := openConfiguredStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	coord, err := newCoordinator(ctx, cfg, st, false, nil)
	if err != nil {
		return err
	}

	return c.executeWith(ctx, coord)
}

// executeWith runs the command against a provided coordinator (for testing).
func (c *ShowCommand) executeWith(ctx context.Context, coord *sync.Coordinator) error {
	id := c.ID
	if id == "" {
		id = coord.State().ActiveSessionID
	}
	if id == "" {
		return fmt.Errorf("no session ID given and no active session")
	}

	stats, err := coord.SessionStats(id)
	if err != nil {
		return err
	}

	var insights []analytics.Insight
	if c.Insights {
		insights, err = coord.Insights(id)
		if err != nil {
			return err
		}
	}

	var summary *sync.Summary
	if c.Summary {
		sum, err := coord.Summary(ctx, id)
		if err != nil {
			return err
		}
		summary = &sum
	}

	if c.globals != nil && c.globals.JSON {
		return c.printJSON(stats, insights, summary)
	}
	return c.printHuman(stats, insights, summary)
}

func (c *ShowCommand) printHuman(stats *analytics.SessionStats, insights []analytics.Insight, summary *sync.Summary) error {
	fmt.Printf("Session %s\n", stats.SessionID)
	fmt.Printf("Label:        %s", stats.Label)
	if stats.LabelDetail != "" {
		fmt.Printf(" (%s)", stats.LabelDetail)
	}
	fmt.Println()
	fmt.Printf("Drift:        %s (%.2f, %s confidence)\n", stats.Drift.Label, stats.Drift.Score, stats.Drift.Confidence)
	fmt.Printf("Distraction:  %.2f\n", stats.DistractionAverage)
	fmt.Printf("Chain:        %d pages\n", stats.DeepestChain.Length)

	if stats.TrapDoor != nil {
		fmt.Printf("Trap door:    %s (%s, depth %d)\n",
			stats.TrapDoor.URL,
			formatDurationMs(stats.TrapDoor.PostVisitDurationMs),
			stats.TrapDoor.PostVisitDepth)
	}

	if len(stats.TopDomains) > 0 {
		fmt.Println()
		fmt.Println("Top Domains:")
		for _, d := range stats.TopDomains {
			fmt.Printf("  %-30s %s · %d visits\n", d.Domain, formatDurationMs(d.ActiveMs), d.Visits)
		}
	}

	if len(stats.TopPages) > 0 {
		fmt.Println()
		fmt.Println("Top Pages:")
		for _, p := range stats.TopPages {
			title := p.Title
			if title == "" {
				title = p.URL
			}
			fmt.Printf("  %-50.50s %s\n", title, formatDurationMs(p.ActiveMs))
		}
	}

	if len(stats.TopDistractions) > 0 {
		fmt.Println()
		fmt.Println("Top Distractions:")
		for _, p := range stats.TopDistractions {
			title := p.Title
			if title == "" {
				title = p.URL
			}
			fmt.Printf("  %-50.50s %.2f\n", title, p.Score)
		}
	}

	if len(insights) > 0 {
		fmt.Println()
		fmt.Println("Insights:")
		for _, in := range insights {
			fmt.Printf("  - %s", in.Title)
			if in.Detail != "" {
				fmt.Printf(": %s", in.Detail)
			}
			fmt.Println()
		}
	}

	if summary != nil {
		fmt.Println()
		fmt.Println("Summary:")
		fmt.Printf("  %s\n", summary.Brief)
		if summary.Detailed != "" {
			fmt.Printf("  %s\n", summary.Detailed)
		}
	}

	return nil
}

func (c *ShowCommand) printJSON(stats *analytics.SessionStats, insights []analytics.Insight, summary *sync.Summary) error {
	out := showJSON{
		Stats:    stats,
		Insights: insights,
		Summary:  summary,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
