package analytics

import (
	"net/url"
	"sort"

	"github.com/runnerr0/meander/internal/model"
)

// DomainStat aggregates the active time spent on one domain.
type DomainStat struct {
	Domain   string `json:"domain"`
	ActiveMs int64  `json:"activeMs"`
	Visits   int    `json:"visits"`
}

// PageStat is one URL's accumulated engagement.
type PageStat struct {
	URL      string  `json:"url"`
	Title    string  `json:"title,omitempty"`
	ActiveMs int64   `json:"activeMs"`
	Visits   int     `json:"visits"`
	Score    float64 `json:"score,omitempty"`
}

// DomainOf extracts the hostname from a URL, or "" if it cannot be parsed.
func DomainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// TopDomains groups the session's nodes by domain and ranks them by
// active time, descending, ties broken by domain lexical order.
func TopDomains(s *model.Session, limit int) []DomainStat {
	byDomain := make(map[string]*DomainStat)
	for _, n := range s.Nodes {
		domain := DomainOf(n.URL)
		if domain == "" {
			continue
		}
		st, ok := byDomain[domain]
		if !ok {
			st = &DomainStat{Domain: domain}
			byDomain[domain] = st
		}
		st.ActiveMs += n.ActiveMs
		st.Visits += n.VisitCount
	}

	out := make([]DomainStat, 0, len(byDomain))
	for _, st := range byDomain {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ActiveMs != out[j].ActiveMs {
			return out[i].ActiveMs > out[j].ActiveMs
		}
		return out[i].Domain < out[j].Domain
	})
	return clip(out, limit)
}

// TopPages ranks the session's nodes by active time, descending, ties
// broken by URL lexical order.
func TopPages(s *model.Session, limit int) []PageStat {
	out := make([]PageStat, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		out = append(out, PageStat{
			URL:      n.URL,
			Title:    n.Title,
			ActiveMs: n.ActiveMs,
			Visits:   n.VisitCount,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ActiveMs != out[j].ActiveMs {
			return out[i].ActiveMs > out[j].ActiveMs
		}
		return out[i].URL < out[j].URL
	})
	return clip(out, limit)
}

// TopDistractions ranks nodes with recorded active time by distraction
// score, descending, ties broken by URL lexical order. Nodes scoring 0
// are omitted.
func TopDistractions(s *model.Session, set Settings, limit int) []PageStat {
	out := make([]PageStat, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		if n.ActiveMs <= 0 {
			continue
		}
		score := Score(s, n, set)
		if score <= 0 {
			continue
		}
		out = append(out, PageStat{
			URL:      n.URL,
			Title:    n.Title,
			ActiveMs: n.ActiveMs,
			Visits:   n.VisitCount,
			Score:    score,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].URL < out[j].URL
	})
	return clip(out, limit)
}

// CommonStartDomain returns the most frequent first-visited domain across
// all non-deleted sessions, ties broken by the most recently started
// session using that domain. Empty when no session has a start node.
func CommonStartDomain(st *model.State) string {
	type entry struct {
		count  int
		latest int64
	}
	counts := make(map[string]*entry)
	for _, s := range st.Sessions {
		if s.Deleted {
			continue
		}
		domain := startDomain(s)
		if domain == "" {
			continue
		}
		e, ok := counts[domain]
		if !ok {
			e = &entry{}
			counts[domain] = e
		}
		e.count++
		if s.StartedAt > e.latest {
			e.latest = s.StartedAt
		}
	}

	best := ""
	for domain, e := range counts {
		if best == "" {
			best = domain
			continue
		}
		b := counts[best]
		if e.count > b.count || (e.count == b.count && e.latest > b.latest) ||
			(e.count == b.count && e.latest == b.latest && domain < best) {
			best = domain
		}
	}
	return best
}

// startDomain finds the domain of the session's earliest-seen node.
func startDomain(s *model.Session) string {
	var first *model.Node
	for _, n := range s.Nodes {
		if n.FirstSeen == 0 {
			continue
		}
		if first == nil || n.FirstSeen < first.FirstSeen ||
			(n.FirstSeen == first.FirstSeen && n.URL < first.URL) {
			first = n
		}
	}
	if first == nil {
		return ""
	}
	return DomainOf(first.URL)
}

func clip[T any](list []T, limit int) []T {
	if limit > 0 && len(list) > limit {
		return list[:limit]
	}
	return list
}
