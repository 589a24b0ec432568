// Package analytics derives per-session statistics from the session
// graph: top domains and pages, distraction scores, the deepest
// navigation chain, trap doors, session labels, and intent drift. Every
// derivation is a pure function of a session snapshot plus the settings;
// the Engine fronts them with bounded, fingerprint-invalidated caches.
package analytics

import "time"

// Settings holds the tunable thresholds of the derivation heuristics.
// These are heuristics, not protocol: the defaults mirror what the
// capture daemon ships with, and the config file can override any of
// them.
type Settings struct {
	// BingeCap bounds the single-domain binge multiplier applied to a
	// node's base distraction score.
	BingeCap float64

	// LateNightBonus is added to a node's score when its first visit
	// falls inside the late-night window [LateNightStartHour,
	// LateNightEndHour).
	LateNightBonus     float64
	LateNightStartHour int
	LateNightEndHour   int

	// RepeatVisitStep amplifies the score per revisit beyond the first,
	// up to RepeatVisitMax extra visits.
	RepeatVisitStep float64
	RepeatVisitMax  int

	// TechnicalURLMarkers name auth/login path fragments excluded from
	// distraction penalties.
	TechnicalURLMarkers []string

	// Trap door qualification: navigations and active time accumulated
	// after first entry before the session ends or goes idle.
	TrapDoorMinDepth      int
	TrapDoorMinDurationMs int64

	// Loop classification: at least LoopMinNodes distinct nodes visited
	// LoopMinVisits times or more.
	LoopMinVisits int
	LoopMinNodes  int

	// DominantCategoryShare is the category share above which a session
	// classifies as focused.
	DominantCategoryShare float64

	// WanderNavsPerMinute is the navigation density above which an
	// unfocused, non-looping session classifies as wandering.
	WanderNavsPerMinute float64

	// DriftMinCategorized is the minimum number of categorized nodes
	// below which intent drift degrades to Unknown.
	DriftMinCategorized int

	// Location is the timezone hours are evaluated in for late-night
	// weighting and the night-owl label.
	Location *time.Location
}

// DefaultSettings returns the shipped thresholds.
func DefaultSettings() Settings {
	return Settings{
		BingeCap:              1.6,
		LateNightBonus:        0.6,
		LateNightStartHour:    23,
		LateNightEndHour:      6,
		RepeatVisitStep:       0.1,
		RepeatVisitMax:        5,
		TechnicalURLMarkers:   []string{"login", "signin", "sign-in", "auth", "oauth", "sso", "account", "password"},
		TrapDoorMinDepth:      5,
		TrapDoorMinDurationMs: 10 * 60 * 1000,
		LoopMinVisits:         2,
		LoopMinNodes:          2,
		DominantCategoryShare: 0.55,
		WanderNavsPerMinute:   1.2,
		DriftMinCategorized:   2,
		Location:              time.Local,
	}
}

// location defaults to the local timezone so a zero-value field never
// panics time conversions.
func (s Settings) location() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}

// lateNight reports whether the epoch-ms instant falls inside the
// late-night window. The window wraps midnight when start > end.
func (s Settings) lateNight(epochMs int64) bool {
	if epochMs == 0 {
		return false
	}
	hour := time.UnixMilli(epochMs).In(s.location()).Hour()
	if s.LateNightStartHour > s.LateNightEndHour {
		return hour >= s.LateNightStartHour || hour < s.LateNightEndHour
	}
	return hour >= s.LateNightStartHour && hour < s.LateNightEndHour
}
