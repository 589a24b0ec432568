package analytics

import (
	"strings"

	"github.com/runnerr0/meander/internal/model"
)

// Score computes a node's distraction score: its active time relative to
// the session average, amplified by single-domain binging (capped at
// BingeCap), a late-night bonus, and repeat visits. Technical URLs
// (auth/login paths) are excluded from penalty and score 0, as does any
// node with missing inputs; the score degrades to neutral, never errors.
func Score(s *model.Session, n *model.Node, set Settings) float64 {
	if s == nil || n == nil || n.ActiveMs <= 0 {
		return 0
	}
	if isTechnicalURL(n.URL, set) {
		return 0
	}

	mean := meanActiveMs(s)
	if mean <= 0 {
		return 0
	}
	score := float64(n.ActiveMs) / mean

	// Single-domain binge weight: the more of the session lived on this
	// node's domain, the heavier the node weighs, up to the cap.
	if share := domainShare(s, DomainOf(n.URL)); share > 0 {
		binge := 1 + share
		if binge > set.BingeCap {
			binge = set.BingeCap
		}
		score *= binge
	}

	if n.VisitCount > 1 {
		repeats := n.VisitCount - 1
		if set.RepeatVisitMax > 0 && repeats > set.RepeatVisitMax {
			repeats = set.RepeatVisitMax
		}
		score *= 1 + set.RepeatVisitStep*float64(repeats)
	}

	if set.lateNight(n.FirstSeen) {
		score += set.LateNightBonus
	}

	if score < 0 {
		return 0
	}
	return score
}

// meanActiveMs is the average active time over nodes that recorded any.
func meanActiveMs(s *model.Session) float64 {
	var total int64
	count := 0
	for _, n := range s.Nodes {
		if n.ActiveMs > 0 {
			total += n.ActiveMs
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return float64(total) / float64(count)
}

// domainShare is the fraction of the session's total active time spent on
// the given domain.
func domainShare(s *model.Session, domain string) float64 {
	if domain == "" {
		return 0
	}
	var total, onDomain int64
	for _, n := range s.Nodes {
		if n.ActiveMs <= 0 {
			continue
		}
		total += n.ActiveMs
		if DomainOf(n.URL) == domain {
			onDomain += n.ActiveMs
		}
	}
	if total == 0 {
		return 0
	}
	return float64(onDomain) / float64(total)
}

func isTechnicalURL(rawURL string, set Settings) bool {
	lower := strings.ToLower(rawURL)
	for _, marker := range set.TechnicalURLMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
