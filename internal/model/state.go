// Package model defines the canonical in-memory session graph: the root
// State aggregate, Sessions with their node/edge maps and event logs, the
// live Tracking pointer, and the Delta patch types the reconciler applies.
package model

import "sort"

// SchemaVersionCurrent is the latest persisted schema generation.
const SchemaVersionCurrent = 4

// CategoryRandom is the category assigned to nodes the categorizer has not
// (or cannot) classify.
const CategoryRandom = "Random"

// State is the root aggregate: every session the user has recorded, their
// display order, the session currently receiving live events, and the
// single live-activity pointer.
type State struct {
	SchemaVersion   int                 `json:"schemaVersion"`
	Sessions        map[string]*Session `json:"sessions"`
	SessionOrder    []string            `json:"sessionOrder"`
	ActiveSessionID string              `json:"activeSessionId,omitempty"`
	Tracking        Tracking            `json:"tracking"`
}

// Session is one bounded browsing episode.
type Session struct {
	ID             string `json:"id"`
	StartedAt      int64  `json:"startedAt"`
	EndedAt        *int64 `json:"endedAt,omitempty"`
	LastActivityAt int64  `json:"lastActivityAt,omitempty"`
	UpdatedAt      int64  `json:"updatedAt,omitempty"`

	Nodes  map[string]*Node `json:"nodes"`
	Edges  map[string]*Edge `json:"edges"`
	Events *EventLog        `json:"events"`

	TrapDoors      []TrapDoor       `json:"trapDoors,omitempty"`
	CategoryTotals map[string]int64 `json:"categoryTotals,omitempty"`

	DistractionAverage float64      `json:"distractionAverage,omitempty"`
	Label              string       `json:"label,omitempty"`
	LabelDetail        string       `json:"labelDetail,omitempty"`
	IntentDrift        *IntentDrift `json:"intentDrift,omitempty"`

	Favorite   bool  `json:"favorite,omitempty"`
	FavoriteAt int64 `json:"favoriteAt,omitempty"`
	Archived   bool  `json:"archived,omitempty"`
	ArchivedAt int64 `json:"archivedAt,omitempty"`
	Deleted    bool  `json:"deleted,omitempty"`
	DeletedAt  int64 `json:"deletedAt,omitempty"`

	NavigationCount int `json:"navigationCount"`

	SummaryBrief     string `json:"summaryBrief,omitempty"`
	SummaryDetailed  string `json:"summaryDetailed,omitempty"`
	SummaryUpdatedAt int64  `json:"summaryUpdatedAt,omitempty"`
}

// Node is a distinct URL visited within a session.
type Node struct {
	URL                  string  `json:"url"`
	Title                string  `json:"title,omitempty"`
	Category             string  `json:"category,omitempty"`
	VisitCount           int     `json:"visitCount"`
	ActiveMs             int64   `json:"activeMs"`
	FirstSeen            int64   `json:"firstSeen,omitempty"`
	LastSeen             int64   `json:"lastSeen,omitempty"`
	FirstNavigationIndex *int    `json:"firstNavigationIndex,omitempty"`
	LastNavigationIndex  *int    `json:"lastNavigationIndex,omitempty"`
	DistractionScore     float64 `json:"distractionScore,omitempty"`
}

// Edge is a directed navigation between two URLs within a session.
type Edge struct {
	From       string `json:"from"`
	To         string `json:"to"`
	VisitCount int    `json:"visitCount"`
	ActiveMs   int64  `json:"activeMs,omitempty"`
	FirstSeen  int64  `json:"firstSeen,omitempty"`
	LastSeen   int64  `json:"lastSeen,omitempty"`
}

// TrapDoor marks a node whose post-entry engagement identifies it as a
// likely distraction sink.
type TrapDoor struct {
	URL                 string `json:"url"`
	PostVisitDurationMs int64  `json:"postVisitDurationMs"`
	PostVisitDepth      int    `json:"postVisitDepth"`
}

// Tracking is the single live-activity pointer: what tab and URL are
// active right now. It is mutated in place by the reconciler, never
// replaced except by a full State replacement.
type Tracking struct {
	ActiveTabID       int    `json:"activeTabId,omitempty"`
	ActiveURL         string `json:"activeUrl,omitempty"`
	ActiveSince       int64  `json:"activeSince,omitempty"`
	LastInteractionAt int64  `json:"lastInteractionAt,omitempty"`
	UserIdle          bool   `json:"userIdle,omitempty"`
	LastInactiveAt    int64  `json:"lastInactiveAt,omitempty"`
}

// IntentDrift describes how far a session wandered from its early intent.
type IntentDrift struct {
	Score      float64  `json:"score"`
	Label      string   `json:"label"`
	Reason     string   `json:"reason,omitempty"`
	Confidence string   `json:"confidence"`
	Drivers    []string `json:"drivers,omitempty"`
}

// EdgeKey builds the canonical edge map key for a from→to navigation.
func EdgeKey(from, to string) string {
	return from + " -> " + to
}

// Duration returns the session's elapsed time in milliseconds: ended-at
// minus started-at for closed sessions, last-activity minus started-at for
// open ones. Returns 0 when the session has no usable bounds.
func (s *Session) Duration() int64 {
	end := s.LastActivityAt
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	if end <= s.StartedAt {
		return 0
	}
	return end - s.StartedAt
}

// SumEdgeVisits returns the sum of all edge visit counts, the definition
// of navigationCount when it is not explicitly overridden.
func (s *Session) SumEdgeVisits() int {
	total := 0
	for _, e := range s.Edges {
		total += e.VisitCount
	}
	return total
}

// OrderedSessions returns the sessions in sessionOrder, skipping ids that
// are missing from the map.
func (st *State) OrderedSessions() []*Session {
	out := make([]*Session, 0, len(st.SessionOrder))
	for _, id := range st.SessionOrder {
		if s, ok := st.Sessions[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

// ActiveSession returns the session currently receiving live events, or
// nil if none is set.
func (st *State) ActiveSession() *Session {
	if st.ActiveSessionID == "" {
		return nil
	}
	return st.Sessions[st.ActiveSessionID]
}

// sessionIDsByStart returns all session ids sorted by ascending startedAt,
// ties broken by id for determinism.
func sessionIDsByStart(sessions map[string]*Session) []string {
	ids := make([]string, 0, len(sessions))
	for id := range sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := sessions[ids[i]], sessions[ids[j]]
		if a.StartedAt != b.StartedAt {
			return a.StartedAt < b.StartedAt
		}
		return ids[i] < ids[j]
	})
	return ids
}
