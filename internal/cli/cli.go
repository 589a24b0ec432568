package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Status   *StatusCommand
	Sessions *SessionsCommand
	Show     *ShowCommand
	Watch    *WatchCommand
	Reset    *ResetCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "meander"
	parser.LongDescription = "Local browsing-session graph sync, analytics, and recall."

	cmds := &commands{
		Status:   &StatusCommand{globals: &globals, version: version},
		Sessions: &SessionsCommand{globals: &globals, version: version},
		Show:     &ShowCommand{globals: &globals, version: version},
		Watch:    &WatchCommand{globals: &globals, version: version},
		Reset:    &ResetCommand{globals: &globals, version: version},
	}

	parser.AddCommand("status", "Show storage health and statistics", "Show storage health, daemon reachability, and configuration summary.", cmds.Status)
	parser.AddCommand("sessions", "List recorded sessions", "List recorded sessions in display order, with optional favorite/delete/restore mutations.", cmds.Sessions)
	parser.AddCommand("show", "Show one session's analytics", "Show one session's derived statistics, insights, and summary.", cmds.Show)
	parser.AddCommand("watch", "Run the sync loop", "Connect to the capture daemon and keep the local state synchronized.", cmds.Watch)
	parser.AddCommand("reset", "Delete ALL local state", "Delete ALL local session state. Destructive operation with safety prompt.", cmds.Reset)

	return parser, &globals, cmds
}

// Run is the main entry point for the meander CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("meander %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
