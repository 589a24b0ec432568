package model

// ApplyStateDefaults fills every optional State field with its documented
// default and runs the per-session defaulting pass on each session. It is
// the single place structural gaps are repaired: after it returns,
// Sessions is never nil, SessionOrder covers every session, and
// ActiveSessionID points at a live session or is empty.
func ApplyStateDefaults(st *State) *State {
	if st == nil {
		return nil
	}
	if st.SchemaVersion == 0 {
		st.SchemaVersion = SchemaVersionCurrent
	}
	if st.Sessions == nil {
		st.Sessions = make(map[string]*Session)
	}
	for id, s := range st.Sessions {
		if s == nil {
			delete(st.Sessions, id)
			continue
		}
		if s.ID == "" {
			s.ID = id
		}
		ApplySessionDefaults(s)
	}

	// Drop order entries that reference missing sessions, then make sure
	// every session appears exactly once, appending strays by startedAt.
	seen := make(map[string]bool, len(st.SessionOrder))
	order := st.SessionOrder[:0]
	for _, id := range st.SessionOrder {
		if _, ok := st.Sessions[id]; ok && !seen[id] {
			order = append(order, id)
			seen[id] = true
		}
	}
	if len(order) < len(st.Sessions) {
		for _, id := range sessionIDsByStart(st.Sessions) {
			if !seen[id] {
				order = append(order, id)
				seen[id] = true
			}
		}
	}
	st.SessionOrder = order

	if st.ActiveSessionID != "" {
		s, ok := st.Sessions[st.ActiveSessionID]
		if !ok || s.Deleted {
			st.ActiveSessionID = ""
		}
	}
	if st.ActiveSessionID == "" {
		for i := len(st.SessionOrder) - 1; i >= 0; i-- {
			if s := st.Sessions[st.SessionOrder[i]]; s != nil && !s.Deleted {
				st.ActiveSessionID = st.SessionOrder[i]
				break
			}
		}
	}
	return st
}

// ApplySessionDefaults fills a session's optional fields so the rest of
// the engine never has to nil-check maps or the event log.
func ApplySessionDefaults(s *Session) *Session {
	if s.Nodes == nil {
		s.Nodes = make(map[string]*Node)
	}
	if s.Edges == nil {
		s.Edges = make(map[string]*Edge)
	}
	if s.Events == nil {
		s.Events = NewEventLog()
	}
	if s.CategoryTotals == nil {
		s.CategoryTotals = make(map[string]int64)
	}
	for url, n := range s.Nodes {
		if n == nil {
			delete(s.Nodes, url)
			continue
		}
		if n.URL == "" {
			n.URL = url
		}
		if n.Category == "" {
			n.Category = CategoryRandom
		}
	}
	for key, e := range s.Edges {
		if e == nil {
			delete(s.Edges, key)
			continue
		}
		if e.From == "" && e.To == "" {
			if from, to, ok := splitEdgeKey(key); ok {
				e.From, e.To = from, to
			}
		}
	}
	if s.NavigationCount == 0 {
		s.NavigationCount = s.SumEdgeVisits()
	}
	if s.LastActivityAt == 0 {
		s.LastActivityAt = s.StartedAt
	}
	if s.UpdatedAt == 0 {
		s.UpdatedAt = s.LastActivityAt
	}
	return s
}

// NewSessionShell returns a minimal empty session for the given id, used
// when a delta references a session the local state has never seen.
func NewSessionShell(id string, startedAt int64) *Session {
	return ApplySessionDefaults(&Session{
		ID:        id,
		StartedAt: startedAt,
	})
}

// splitEdgeKey parses a canonical "<from> -> <to>" edge key.
func splitEdgeKey(key string) (from, to string, ok bool) {
	const sep = " -> "
	for i := 0; i+len(sep) <= len(key); i++ {
		if key[i:i+len(sep)] == sep {
			return key[:i], key[i+len(sep):], true
		}
	}
	return "", "", false
}
