package analytics

import (
	"fmt"

	"github.com/runnerr0/meander/internal/model"
)

// Session classification labels.
const (
	LabelFocused   = "Focused"
	LabelLooping   = "Looping"
	LabelWandering = "Wandering"
	LabelNightOwl  = "Night Owl"
	LabelBrowsing  = "Browsing"
)

// Classify labels a session by comparing dominant category share,
// visit-count concentration, navigation density, and time of day. The
// precedence is fixed: a dominant category wins over loop detection,
// which wins over generic wandering; time of day is the last resort
// before the default label.
func Classify(s *model.Session, set Settings) (label, detail string) {
	if category, share, ok := dominantCategory(s); ok && share >= set.DominantCategoryShare {
		return LabelFocused, fmt.Sprintf("mostly %s (%.0f%%)", category, share*100)
	}

	if looped := loopedNodes(s, set.LoopMinVisits); looped >= set.LoopMinNodes {
		return LabelLooping, fmt.Sprintf("%d pages revisited", looped)
	}

	if minutes := float64(s.Duration()) / 60000; minutes > 0 {
		density := float64(s.NavigationCount) / minutes
		if density >= set.WanderNavsPerMinute {
			return LabelWandering, fmt.Sprintf("%.1f navigations per minute", density)
		}
	}

	if set.lateNight(s.StartedAt) {
		return LabelNightOwl, "started late at night"
	}

	return LabelBrowsing, ""
}

// dominantCategory returns the category with the largest share of the
// session's categorized time. Uncategorized ("Random") time counts toward
// the total but can never dominate.
func dominantCategory(s *model.Session) (string, float64, bool) {
	totals := s.CategoryTotals
	if len(totals) == 0 {
		totals = make(map[string]int64)
		for _, n := range s.Nodes {
			totals[n.Category] += n.ActiveMs
		}
	}

	var overall int64
	bestCategory := ""
	var bestMs int64
	for category, ms := range totals {
		if ms <= 0 {
			continue
		}
		overall += ms
		if category == model.CategoryRandom || category == "" {
			continue
		}
		if ms > bestMs || (ms == bestMs && category < bestCategory) {
			bestCategory, bestMs = category, ms
		}
	}
	if overall == 0 || bestCategory == "" {
		return "", 0, false
	}
	return bestCategory, float64(bestMs) / float64(overall), true
}

// loopedNodes counts distinct nodes visited at least minVisits times.
func loopedNodes(s *model.Session, minVisits int) int {
	count := 0
	for _, n := range s.Nodes {
		if n.VisitCount >= minVisits {
			count++
		}
	}
	return count
}
