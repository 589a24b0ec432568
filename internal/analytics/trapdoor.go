package analytics

import (
	"sort"

	"github.com/runnerr0/meander/internal/model"
)

// DetectTrapDoor finds the session's trap door: the first node (by
// first-seen time) entered after the session's start whose post-entry
// navigation depth and active duration both exceed the thresholds. The
// session's opening node never qualifies: a rabbit hole is somewhere you
// fell into, not where you began. Returns nil when nothing qualifies.
func DetectTrapDoor(s *model.Session, set Settings) *model.TrapDoor {
	end := s.LastActivityAt
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	if end == 0 {
		return nil
	}

	nodes := make([]*model.Node, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		if n.FirstSeen > 0 {
			nodes = append(nodes, n)
		}
	}
	if len(nodes) < 2 {
		return nil
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].FirstSeen != nodes[j].FirstSeen {
			return nodes[i].FirstSeen < nodes[j].FirstSeen
		}
		return nodes[i].URL < nodes[j].URL
	})

	// Count navigations after each candidate's entry in one pass over the
	// log instead of rescanning per node.
	var navTimes []int64
	for _, e := range s.Events.Logical() {
		if e.Type == model.EventNavigation {
			navTimes = append(navTimes, e.TS)
		}
	}
	sort.Slice(navTimes, func(i, j int) bool { return navTimes[i] < navTimes[j] })

	for _, n := range nodes[1:] {
		duration := end - n.FirstSeen
		if duration < set.TrapDoorMinDurationMs {
			continue
		}
		depth := navsAfter(navTimes, n.FirstSeen)
		if depth < set.TrapDoorMinDepth {
			continue
		}
		return &model.TrapDoor{
			URL:                 n.URL,
			PostVisitDurationMs: duration,
			PostVisitDepth:      depth,
		}
	}
	return nil
}

// navsAfter counts navigation timestamps strictly after ts.
func navsAfter(sorted []int64, ts int64) int {
	i := sort.Search(len(sorted), func(i int) bool { return sorted[i] > ts })
	return len(sorted) - i
}
