package analytics

import (
	"fmt"
	"sort"

	"github.com/runnerr0/meander/internal/model"
)

// Drift confidence levels and labels.
const (
	DriftUnknown   = "Unknown"
	DriftCommitted = "Committed"
	DriftDrifting  = "Drifting"
	DriftDrifted   = "Drifted"

	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// Drift scores how far a session wandered from its early intent by
// comparing the dominant category of the session's first half against the
// category mix of its second half. With fewer than DriftMinCategorized
// categorized nodes the result degrades to {Unknown, low} rather than
// guessing.
func Drift(s *model.Session, set Settings) model.IntentDrift {
	categorized := categorizedNodes(s)
	if len(categorized) < set.DriftMinCategorized {
		return model.IntentDrift{
			Label:      DriftUnknown,
			Confidence: ConfidenceLow,
			Reason:     "not enough categorized activity",
		}
	}

	mid := s.StartedAt + s.Duration()/2
	earlyTotals := make(map[string]int64)
	lateTotals := make(map[string]int64)
	for _, n := range categorized {
		if n.FirstSeen <= mid {
			earlyTotals[n.Category] += n.ActiveMs
		} else {
			lateTotals[n.Category] += n.ActiveMs
		}
	}

	intent, intentShare := dominantShare(earlyTotals)
	if intent == "" {
		return model.IntentDrift{
			Label:      DriftUnknown,
			Confidence: ConfidenceLow,
			Reason:     "no categorized activity early in the session",
		}
	}

	_, lateIntentShare := shareOf(lateTotals, intent)
	score := intentShare - lateIntentShare
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	drift := model.IntentDrift{
		Score:      score,
		Confidence: driftConfidence(len(categorized)),
		Drivers:    topCategories(lateTotals, intent, 3),
	}
	switch {
	case len(lateTotals) == 0:
		drift.Label = DriftCommitted
		drift.Reason = fmt.Sprintf("stayed on %s throughout", intent)
	case score >= 0.6:
		drift.Label = DriftDrifted
		drift.Reason = fmt.Sprintf("started on %s, ended elsewhere", intent)
	case score >= 0.3:
		drift.Label = DriftDrifting
		drift.Reason = fmt.Sprintf("attention shifted away from %s", intent)
	default:
		drift.Label = DriftCommitted
		drift.Reason = fmt.Sprintf("stayed mostly on %s", intent)
	}
	return drift
}

// categorizedNodes returns nodes with a real category: Random means the
// categorizer had nothing to say.
func categorizedNodes(s *model.Session) []*model.Node {
	var out []*model.Node
	for _, n := range s.Nodes {
		if n.Category != "" && n.Category != model.CategoryRandom {
			out = append(out, n)
		}
	}
	return out
}

func driftConfidence(categorized int) string {
	switch {
	case categorized >= 8:
		return ConfidenceHigh
	case categorized >= 4:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// dominantShare returns the category with the largest share of the totals.
func dominantShare(totals map[string]int64) (string, float64) {
	var overall, bestMs int64
	best := ""
	for category, ms := range totals {
		if ms <= 0 {
			continue
		}
		overall += ms
		if ms > bestMs || (ms == bestMs && category < best) {
			best, bestMs = category, ms
		}
	}
	if overall == 0 {
		return "", 0
	}
	return best, float64(bestMs) / float64(overall)
}

// shareOf returns category's share of the totals.
func shareOf(totals map[string]int64, category string) (int64, float64) {
	var overall int64
	for _, ms := range totals {
		if ms > 0 {
			overall += ms
		}
	}
	if overall == 0 {
		return 0, 0
	}
	return totals[category], float64(totals[category]) / float64(overall)
}

// topCategories lists the heaviest categories other than except, largest
// first, at most limit.
func topCategories(totals map[string]int64, except string, limit int) []string {
	type kv struct {
		category string
		ms       int64
	}
	var list []kv
	for category, ms := range totals {
		if category == except || ms <= 0 {
			continue
		}
		list = append(list, kv{category, ms})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].ms != list[j].ms {
			return list[i].ms > list[j].ms
		}
		return list[i].category < list[j].category
	})
	var out []string
	for i, e := range list {
		if limit > 0 && i >= limit {
			break
		}
		out = append(out, e.category)
	}
	return out
}
