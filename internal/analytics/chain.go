package analytics

import (
	"sort"

	"github.com/runnerr0/meander/internal/model"
)

// Chain is the longest unbroken navigation run in a session: the number
// of navigations followed and the ordered URLs visited.
type Chain struct {
	Length int      `json:"length"`
	URLs   []string `json:"urls,omitempty"`
}

// DeepestChain walks the event log in timestamp order following
// navigation from→to edges and reports the longest unbroken chain. A run
// breaks whenever a navigation does not start where the previous one
// ended. Sessions with fewer than two navigation events yield length 0.
func DeepestChain(s *model.Session) Chain {
	var navs []model.Event
	for _, e := range s.Events.Logical() {
		if e.Type == model.EventNavigation && e.FromURL != "" && e.ToURL != "" {
			navs = append(navs, e)
		}
	}
	if len(navs) < 2 {
		return Chain{}
	}
	sort.SliceStable(navs, func(i, j int) bool { return navs[i].TS < navs[j].TS })

	var best, current []string
	for _, e := range navs {
		if len(current) > 0 && current[len(current)-1] == e.FromURL {
			current = append(current, e.ToURL)
		} else {
			current = []string{e.FromURL, e.ToURL}
		}
		if len(current) > len(best) {
			best = append(best[:0:0], current...)
		}
	}

	return Chain{Length: len(best) - 1, URLs: best}
}
