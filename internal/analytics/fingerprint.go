package analytics

import "github.com/runnerr0/meander/internal/model"

// Fingerprint summarizes the mutable session fields a derivation depends
// on. It is a comparable struct rather than a concatenated string so
// staleness checks cannot collide. The activity aggregates catch in-place
// node and edge mutations that leave the counts unchanged. A cached
// result whose fingerprint differs from the freshly computed one is
// recomputed.
type Fingerprint struct {
	UpdatedAt       int64
	LastActivityAt  int64
	EndedAt         int64
	NavigationCount int
	NodeCount       int
	EdgeCount       int
	EventCount      int
	TrapDoorCount   int
	NodeActiveMs    int64
	NodeVisits      int
	NodeLastSeen    int64
	EdgeVisits      int
	Favorite        bool
	Archived        bool
	Deleted         bool
}

// FingerprintOf computes the cache fingerprint for a session.
func FingerprintOf(s *model.Session) Fingerprint {
	fp := Fingerprint{
		UpdatedAt:       s.UpdatedAt,
		LastActivityAt:  s.LastActivityAt,
		NavigationCount: s.NavigationCount,
		NodeCount:       len(s.Nodes),
		EdgeCount:       len(s.Edges),
		EventCount:      s.Events.Len(),
		TrapDoorCount:   len(s.TrapDoors),
		EdgeVisits:      s.SumEdgeVisits(),
		Favorite:        s.Favorite,
		Archived:        s.Archived,
		Deleted:         s.Deleted,
	}
	for _, n := range s.Nodes {
		fp.NodeActiveMs += n.ActiveMs
		fp.NodeVisits += n.VisitCount
		if n.LastSeen > fp.NodeLastSeen {
			fp.NodeLastSeen = n.LastSeen
		}
	}
	if s.EndedAt != nil {
		fp.EndedAt = *s.EndedAt
	}
	return fp
}
