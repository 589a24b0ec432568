package analytics

import (
	"fmt"

	"github.com/runnerr0/meander/internal/cache"
	"github.com/runnerr0/meander/internal/model"
)

// Cache capacities and ranking limits for derived results.
const (
	statsCacheSize    = 200
	insightsCacheSize = 200

	topDomainsLimit      = 5
	topPagesLimit        = 10
	topDistractionsLimit = 5
)

// SessionStats bundles every expensive per-session derivation.
type SessionStats struct {
	SessionID          string            `json:"sessionId"`
	Label              string            `json:"label"`
	LabelDetail        string            `json:"labelDetail,omitempty"`
	Drift              model.IntentDrift `json:"drift"`
	TopDomains         []DomainStat      `json:"topDomains,omitempty"`
	TopPages           []PageStat        `json:"topPages,omitempty"`
	TopDistractions    []PageStat        `json:"topDistractions,omitempty"`
	DeepestChain       Chain             `json:"deepestChain"`
	TrapDoor           *model.TrapDoor   `json:"trapDoor,omitempty"`
	DistractionAverage float64           `json:"distractionAverage"`
}

// Insight is one line of derived narrative handed to the summarization
// collaborator.
type Insight struct {
	Kind   string `json:"kind"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

// Engine computes session statistics behind bounded, key-invalidated
// caches. Derivations treat the session they read as immutable for the
// duration of one computation; callers must not hand the engine a session
// that is concurrently being patched.
type Engine struct {
	settings Settings
	stats    *cache.Cache[string, cache.Fingerprinted[Fingerprint, *SessionStats]]
	insights *cache.Cache[string, cache.Fingerprinted[Fingerprint, []Insight]]
}

// NewEngine creates an Engine with the given thresholds.
func NewEngine(settings Settings) *Engine {
	return &Engine{
		settings: settings,
		stats:    cache.New[string, cache.Fingerprinted[Fingerprint, *SessionStats]](statsCacheSize),
		insights: cache.New[string, cache.Fingerprinted[Fingerprint, []Insight]](insightsCacheSize),
	}
}

// Settings returns the thresholds the engine derives with.
func (e *Engine) Settings() Settings { return e.settings }

// SessionStats returns the session's derived statistics, recomputing only
// when the session's fingerprint has changed since the cached result.
func (e *Engine) SessionStats(s *model.Session) *SessionStats {
	fp := FingerprintOf(s)
	if cached, ok := cache.Lookup(e.stats, s.ID, fp); ok {
		return cached
	}
	stats := ComputeStats(s, e.settings)
	cache.Store(e.stats, s.ID, fp, stats)
	return stats
}

// Insights returns the session's insight list, cached like SessionStats.
func (e *Engine) Insights(s *model.Session) []Insight {
	fp := FingerprintOf(s)
	if cached, ok := cache.Lookup(e.insights, s.ID, fp); ok {
		return cached
	}
	insights := buildInsights(e.SessionStats(s))
	cache.Store(e.insights, s.ID, fp, insights)
	return insights
}

// Invalidate drops cached results for a session, used when a session is
// deleted outright.
func (e *Engine) Invalidate(sessionID string) {
	e.stats.Delete(sessionID)
	e.insights.Delete(sessionID)
}

// ComputeStats derives everything for one session without caching. Pure:
// identical inputs yield identical results.
func ComputeStats(s *model.Session, set Settings) *SessionStats {
	label, detail := Classify(s, set)
	stats := &SessionStats{
		SessionID:       s.ID,
		Label:           label,
		LabelDetail:     detail,
		Drift:           Drift(s, set),
		TopDomains:      TopDomains(s, topDomainsLimit),
		TopPages:        TopPages(s, topPagesLimit),
		TopDistractions: TopDistractions(s, set, topDistractionsLimit),
		DeepestChain:    DeepestChain(s),
		TrapDoor:        DetectTrapDoor(s, set),
	}

	var total float64
	count := 0
	for _, n := range s.Nodes {
		if n.ActiveMs <= 0 {
			continue
		}
		total += Score(s, n, set)
		count++
	}
	if count > 0 {
		stats.DistractionAverage = total / float64(count)
	}
	return stats
}

func buildInsights(stats *SessionStats) []Insight {
	var out []Insight
	out = append(out, Insight{
		Kind:   "label",
		Title:  stats.Label,
		Detail: stats.LabelDetail,
	})
	if stats.TrapDoor != nil {
		out = append(out, Insight{
			Kind:  "trap_door",
			Title: "Fell into " + stats.TrapDoor.URL,
			Detail: fmt.Sprintf("%d navigations and %.1f minutes after entry",
				stats.TrapDoor.PostVisitDepth, float64(stats.TrapDoor.PostVisitDurationMs)/60000),
		})
	}
	if stats.Drift.Label != DriftUnknown {
		out = append(out, Insight{
			Kind:   "intent_drift",
			Title:  stats.Drift.Label,
			Detail: stats.Drift.Reason,
		})
	}
	if len(stats.TopDistractions) > 0 {
		top := stats.TopDistractions[0]
		out = append(out, Insight{
			Kind:   "top_distraction",
			Title:  top.URL,
			Detail: fmt.Sprintf("distraction score %.2f", top.Score),
		})
	}
	return out
}
