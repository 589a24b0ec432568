package cli

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// StatusCommand — show storage health, daemon reachability, config summary.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// SessionsCommand — list recorded sessions, with optional mutations.
type SessionsCommand struct {
	All      bool   `long:"all" description:"Include deleted sessions"`
	Limit    int    `long:"limit" description:"Maximum sessions to list" default:"20"`
	Favorite string `long:"favorite" description:"Toggle the favorite flag on a session ID"`
	Delete   string `long:"delete" description:"Mark a session deleted"`
	Restore  string `long:"restore" description:"Restore a deleted session"`

	globals *GlobalFlags
	version string
}

// ShowCommand — print one session's derived stats, insights, and summary.
type ShowCommand struct {
	ID       string `long:"id" description:"Session ID (defaults to the active session)"`
	Insights bool   `long:"insights" description:"Include the derived insight lines"`
	Summary  bool   `long:"summary" description:"Include the session summary"`

	globals *GlobalFlags
	version string
}

// WatchCommand — run the sync loop against the capture daemon.
type WatchCommand struct {
	URL         string `long:"url" description:"Override daemon base URL"`
	PushURL     string `long:"push-url" description:"Override daemon push feed URL"`
	PollSeconds int    `long:"poll" description:"Override snapshot poll interval in seconds"`

	globals *GlobalFlags
	version string
}

// ResetCommand — delete the entire local state with safety confirmation.
type ResetCommand struct {
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
}
