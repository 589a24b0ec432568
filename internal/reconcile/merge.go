// Package reconcile keeps the live State synchronized with the
// authoritative capture daemon: it merges incoming deltas under an
// optional batching window, applies optimistic local edits, and pulls
// authoritative snapshots to correct divergence.
package reconcile

import (
	"github.com/runnerr0/meander/internal/model"
)

// Merge folds src into dst in arrival order: field-wise last-write-wins
// for tracking and sessionPatch, list-append for sessionsPatch, and
// replace-wins for sessionOrder and the node/edge patches. Event patches
// append so no event is lost across a batch window.
func Merge(dst, src *model.Delta) {
	if src == nil {
		return
	}
	if src.State != nil {
		dst.State = src.State
	}
	if src.Tracking != nil {
		if dst.Tracking == nil {
			dst.Tracking = &model.TrackingPatch{}
		}
		dst.Tracking.Merge(src.Tracking)
	}
	if src.SessionID != "" && src.SessionID != dst.SessionID {
		// A batch only accumulates patches for one session; a delta for a
		// different session flushes scoped fields into the new target.
		dst.SessionID = src.SessionID
		dst.SessionPatch = nil
		dst.NodePatch = nil
		dst.EdgePatch = nil
		dst.EventPatch = nil
	}
	if src.SessionPatch != nil {
		if dst.SessionPatch == nil {
			dst.SessionPatch = &model.SessionPatch{}
		}
		dst.SessionPatch.Merge(src.SessionPatch)
	}
	if src.NodePatch != nil {
		if dst.NodePatch == nil {
			dst.NodePatch = make(map[string]*model.Node, len(src.NodePatch))
		}
		for url, n := range src.NodePatch {
			dst.NodePatch[url] = n
		}
	}
	if src.EdgePatch != nil {
		if dst.EdgePatch == nil {
			dst.EdgePatch = make(map[string]*model.Edge, len(src.EdgePatch))
		}
		for key, e := range src.EdgePatch {
			dst.EdgePatch[key] = e
		}
	}
	if len(src.EventPatch) > 0 {
		dst.EventPatch = append(dst.EventPatch, src.EventPatch...)
	}
	if len(src.SessionsPatch) > 0 {
		dst.SessionsPatch = append(dst.SessionsPatch, src.SessionsPatch...)
	}
	if src.SessionOrder != nil {
		dst.SessionOrder = src.SessionOrder
	}
}

// Apply mutates st per the delta and returns the (possibly replaced)
// state plus whether anything changed. A delta carrying a full state is a
// resynchronization: it replaces the state wholesale. A nil st starts
// from an empty defaulted state.
func Apply(st *model.State, d *model.Delta) (*model.State, bool) {
	if d == nil {
		return st, false
	}
	if d.State != nil {
		return model.ApplyStateDefaults(d.State), true
	}
	if st == nil {
		st = &model.State{}
	}
	if st.Sessions == nil {
		model.ApplyStateDefaults(st)
	}

	changed := false

	if d.Tracking != nil {
		d.Tracking.ApplyTo(&st.Tracking)
		changed = true
	}

	for _, patch := range d.SessionsPatch {
		if patch == nil || patch.ID == "" {
			continue
		}
		if existing, ok := st.Sessions[patch.ID]; ok {
			mergeSessionUpsert(existing, patch)
		} else {
			st.Sessions[patch.ID] = model.ApplySessionDefaults(patch)
			st.SessionOrder = append(st.SessionOrder, patch.ID)
		}
		changed = true
	}

	if d.SessionOrder != nil {
		st.SessionOrder = d.SessionOrder
		changed = true
	}

	if d.SessionID != "" {
		s, ok := st.Sessions[d.SessionID]
		if !ok {
			s = model.NewSessionShell(d.SessionID, 0)
			st.Sessions[d.SessionID] = s
			st.SessionOrder = append(st.SessionOrder, d.SessionID)
		}
		if applySessionScoped(s, d) {
			changed = true
		}
	}

	if changed {
		model.ApplyStateDefaults(st)
	}
	return st, changed
}

// applySessionScoped merges the session-scoped parts of a delta.
func applySessionScoped(s *model.Session, d *model.Delta) bool {
	changed := false

	if d.SessionPatch != nil {
		d.SessionPatch.ApplyTo(s)
		changed = true
	}
	for url, n := range d.NodePatch {
		if n == nil {
			continue
		}
		if n.URL == "" {
			n.URL = url
		}
		if n.Category == "" {
			n.Category = model.CategoryRandom
		}
		s.Nodes[url] = n
		changed = true
	}
	for key, e := range d.EdgePatch {
		if e == nil {
			continue
		}
		s.Edges[key] = e
		changed = true
	}
	for _, ev := range d.EventPatch {
		s.Events.Append(ev)
		if ev.Type == model.EventActiveTimeFlush {
			applyActiveTimeFlush(s, ev)
		}
		changed = true
	}
	return changed
}

// applyActiveTimeFlush folds a flushed active-time interval into the
// affected node, synthesizing a minimal node record when the node has
// not been seen yet, and bumps the session's activity timestamps.
func applyActiveTimeFlush(s *model.Session, ev model.Event) {
	if ev.URL == "" {
		return
	}
	n, ok := s.Nodes[ev.URL]
	if !ok {
		n = &model.Node{
			URL:       ev.URL,
			Category:  model.CategoryRandom,
			FirstSeen: ev.TS,
		}
		s.Nodes[ev.URL] = n
	}
	n.ActiveMs += ev.DurationMs
	n.LastSeen = ev.TS
	s.UpdatedAt = ev.TS
	s.LastActivityAt = ev.TS
}

// mergeSessionUpsert folds a whole-session upsert into an existing
// session: non-zero scalar fields win, containers replace when present.
func mergeSessionUpsert(dst, src *model.Session) {
	if src.StartedAt != 0 {
		dst.StartedAt = src.StartedAt
	}
	if src.EndedAt != nil {
		dst.EndedAt = src.EndedAt
	}
	if src.LastActivityAt != 0 {
		dst.LastActivityAt = src.LastActivityAt
	}
	if src.UpdatedAt != 0 {
		dst.UpdatedAt = src.UpdatedAt
	}
	if src.Nodes != nil {
		dst.Nodes = src.Nodes
	}
	if src.Edges != nil {
		dst.Edges = src.Edges
	}
	if src.Events != nil {
		dst.Events = src.Events
	}
	if src.TrapDoors != nil {
		dst.TrapDoors = src.TrapDoors
	}
	if src.CategoryTotals != nil {
		dst.CategoryTotals = src.CategoryTotals
	}
	if src.DistractionAverage != 0 {
		dst.DistractionAverage = src.DistractionAverage
	}
	if src.Label != "" {
		dst.Label = src.Label
		dst.LabelDetail = src.LabelDetail
	}
	if src.IntentDrift != nil {
		dst.IntentDrift = src.IntentDrift
	}
	if src.NavigationCount != 0 {
		dst.NavigationCount = src.NavigationCount
	}
	if src.SummaryBrief != "" {
		dst.SummaryBrief = src.SummaryBrief
	}
	if src.SummaryDetailed != "" {
		dst.SummaryDetailed = src.SummaryDetailed
	}
	if src.SummaryUpdatedAt != 0 {
		dst.SummaryUpdatedAt = src.SummaryUpdatedAt
	}
	dst.Favorite = src.Favorite
	dst.FavoriteAt = src.FavoriteAt
	dst.Archived = src.Archived
	dst.ArchivedAt = src.ArchivedAt
	dst.Deleted = src.Deleted
	dst.DeletedAt = src.DeletedAt
	model.ApplySessionDefaults(dst)
}
