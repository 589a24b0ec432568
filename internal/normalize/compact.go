package normalize

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/runnerr0/meander/internal/model"
)

// The table-compacted encoding deduplicates URL strings into a top-level
// urlTable; nodes, edges, and trap doors reference them by integer index.
// Node map keys are the decimal index, edge keys are "<i> -> <j>". Event
// URLs are not compacted.

type compactSession struct {
	ID                 string                  `json:"id"`
	StartedAt          int64                   `json:"startedAt"`
	EndedAt            *int64                  `json:"endedAt"`
	LastActivityAt     int64                   `json:"lastActivityAt"`
	UpdatedAt          int64                   `json:"updatedAt"`
	Nodes              map[string]*compactNode `json:"nodes"`
	Edges              map[string]*compactEdge `json:"edges"`
	Events             *model.EventLog         `json:"events"`
	TrapDoors          []compactTrapDoor       `json:"trapDoors"`
	CategoryTotals     map[string]int64        `json:"categoryTotals"`
	DistractionAverage float64                 `json:"distractionAverage"`
	Label              string                  `json:"label"`
	LabelDetail        string                  `json:"labelDetail"`
	IntentDrift        *model.IntentDrift      `json:"intentDrift"`
	Favorite           bool                    `json:"favorite"`
	FavoriteAt         int64                   `json:"favoriteAt"`
	Archived           bool                    `json:"archived"`
	ArchivedAt         int64                   `json:"archivedAt"`
	Deleted            bool                    `json:"deleted"`
	DeletedAt          int64                   `json:"deletedAt"`
	NavigationCount    int                     `json:"navigationCount"`
	SummaryBrief       string                  `json:"summaryBrief"`
	SummaryDetailed    string                  `json:"summaryDetailed"`
	SummaryUpdatedAt   int64                   `json:"summaryUpdatedAt"`
}

type compactNode struct {
	URL                  int     `json:"url"`
	Title                string  `json:"title"`
	Category             string  `json:"category"`
	VisitCount           int     `json:"visitCount"`
	ActiveMs             int64   `json:"activeMs"`
	FirstSeen            int64   `json:"firstSeen"`
	LastSeen             int64   `json:"lastSeen"`
	FirstNavigationIndex *int    `json:"firstNavigationIndex"`
	LastNavigationIndex  *int    `json:"lastNavigationIndex"`
	DistractionScore     float64 `json:"distractionScore"`
}

type compactEdge struct {
	From       int   `json:"from"`
	To         int   `json:"to"`
	VisitCount int   `json:"visitCount"`
	ActiveMs   int64 `json:"activeMs"`
	FirstSeen  int64 `json:"firstSeen"`
	LastSeen   int64 `json:"lastSeen"`
}

type compactTrapDoor struct {
	URL                 int   `json:"url"`
	PostVisitDurationMs int64 `json:"postVisitDurationMs"`
	PostVisitDepth      int   `json:"postVisitDepth"`
}

// decodeCompact rebuilds full records by resolving every index through the
// url table. An index the table cannot resolve defaults to an omitted
// field: the affected node or edge is skipped, a trap door keeps an empty
// URL. Decoding never fails on a bad index.
func decodeCompact(doc *stateDoc) *model.State {
	st := newStateFrom(doc)
	resolve := func(i int) (string, bool) {
		if i < 0 || i >= len(doc.URLTable) || doc.URLTable[i] == "" {
			return "", false
		}
		return doc.URLTable[i], true
	}

	for id, raw := range doc.Sessions {
		var cs compactSession
		if err := json.Unmarshal(raw, &cs); err != nil {
			continue
		}
		s := &model.Session{
			ID:                 cs.ID,
			StartedAt:          cs.StartedAt,
			EndedAt:            cs.EndedAt,
			LastActivityAt:     cs.LastActivityAt,
			UpdatedAt:          cs.UpdatedAt,
			Events:             cs.Events,
			CategoryTotals:     cs.CategoryTotals,
			DistractionAverage: cs.DistractionAverage,
			Label:              cs.Label,
			LabelDetail:        cs.LabelDetail,
			IntentDrift:        cs.IntentDrift,
			Favorite:           cs.Favorite,
			FavoriteAt:         cs.FavoriteAt,
			Archived:           cs.Archived,
			ArchivedAt:         cs.ArchivedAt,
			Deleted:            cs.Deleted,
			DeletedAt:          cs.DeletedAt,
			NavigationCount:    cs.NavigationCount,
			SummaryBrief:       cs.SummaryBrief,
			SummaryDetailed:    cs.SummaryDetailed,
			SummaryUpdatedAt:   cs.SummaryUpdatedAt,
		}
		if s.ID == "" {
			s.ID = id
		}

		s.Nodes = make(map[string]*model.Node, len(cs.Nodes))
		for _, cn := range cs.Nodes {
			if cn == nil {
				continue
			}
			url, ok := resolve(cn.URL)
			if !ok {
				continue
			}
			s.Nodes[url] = &model.Node{
				URL:                  url,
				Title:                cn.Title,
				Category:             cn.Category,
				VisitCount:           cn.VisitCount,
				ActiveMs:             cn.ActiveMs,
				FirstSeen:            cn.FirstSeen,
				LastSeen:             cn.LastSeen,
				FirstNavigationIndex: cn.FirstNavigationIndex,
				LastNavigationIndex:  cn.LastNavigationIndex,
				DistractionScore:     cn.DistractionScore,
			}
		}

		s.Edges = make(map[string]*model.Edge, len(cs.Edges))
		for _, ce := range cs.Edges {
			if ce == nil {
				continue
			}
			from, okFrom := resolve(ce.From)
			to, okTo := resolve(ce.To)
			if !okFrom || !okTo {
				continue
			}
			s.Edges[model.EdgeKey(from, to)] = &model.Edge{
				From:       from,
				To:         to,
				VisitCount: ce.VisitCount,
				ActiveMs:   ce.ActiveMs,
				FirstSeen:  ce.FirstSeen,
				LastSeen:   ce.LastSeen,
			}
		}

		for _, ct := range cs.TrapDoors {
			url, _ := resolve(ct.URL)
			s.TrapDoors = append(s.TrapDoors, model.TrapDoor{
				URL:                 url,
				PostVisitDurationMs: ct.PostVisitDurationMs,
				PostVisitDepth:      ct.PostVisitDepth,
			})
		}

		st.Sessions[s.ID] = s
	}
	return model.ApplyStateDefaults(st)
}

// EncodeCompact serializes a State into the table-compacted document. The
// capture daemon is the usual producer of this form; the encoder exists so
// the decode path can be exercised end to end.
func EncodeCompact(st *model.State) ([]byte, error) {
	table := make([]string, 0)
	index := make(map[string]int)
	intern := func(url string) int {
		if i, ok := index[url]; ok {
			return i
		}
		index[url] = len(table)
		table = append(table, url)
		return index[url]
	}

	sessions := make(map[string]*compactSession, len(st.Sessions))
	for _, id := range orderedIDs(st) {
		s := st.Sessions[id]
		cs := &compactSession{
			ID:                 s.ID,
			StartedAt:          s.StartedAt,
			EndedAt:            s.EndedAt,
			LastActivityAt:     s.LastActivityAt,
			UpdatedAt:          s.UpdatedAt,
			Events:             s.Events,
			CategoryTotals:     s.CategoryTotals,
			DistractionAverage: s.DistractionAverage,
			Label:              s.Label,
			LabelDetail:        s.LabelDetail,
			IntentDrift:        s.IntentDrift,
			Favorite:           s.Favorite,
			FavoriteAt:         s.FavoriteAt,
			Archived:           s.Archived,
			ArchivedAt:         s.ArchivedAt,
			Deleted:            s.Deleted,
			DeletedAt:          s.DeletedAt,
			NavigationCount:    s.NavigationCount,
			SummaryBrief:       s.SummaryBrief,
			SummaryDetailed:    s.SummaryDetailed,
			SummaryUpdatedAt:   s.SummaryUpdatedAt,
			Nodes:              make(map[string]*compactNode, len(s.Nodes)),
			Edges:              make(map[string]*compactEdge, len(s.Edges)),
		}
		for url, n := range s.Nodes {
			i := intern(url)
			cs.Nodes[strconv.Itoa(i)] = &compactNode{
				URL:                  i,
				Title:                n.Title,
				Category:             n.Category,
				VisitCount:           n.VisitCount,
				ActiveMs:             n.ActiveMs,
				FirstSeen:            n.FirstSeen,
				LastSeen:             n.LastSeen,
				FirstNavigationIndex: n.FirstNavigationIndex,
				LastNavigationIndex:  n.LastNavigationIndex,
				DistractionScore:     n.DistractionScore,
			}
		}
		for _, e := range s.Edges {
			from, to := intern(e.From), intern(e.To)
			key := strconv.Itoa(from) + " -> " + strconv.Itoa(to)
			cs.Edges[key] = &compactEdge{
				From:       from,
				To:         to,
				VisitCount: e.VisitCount,
				ActiveMs:   e.ActiveMs,
				FirstSeen:  e.FirstSeen,
				LastSeen:   e.LastSeen,
			}
		}
		for _, td := range s.TrapDoors {
			cs.TrapDoors = append(cs.TrapDoors, compactTrapDoor{
				URL:                 intern(td.URL),
				PostVisitDurationMs: td.PostVisitDurationMs,
				PostVisitDepth:      td.PostVisitDepth,
			})
		}
		sessions[id] = cs
	}

	raw := make(map[string]json.RawMessage, len(sessions))
	for id, cs := range sessions {
		b, err := json.Marshal(cs)
		if err != nil {
			return nil, err
		}
		raw[id] = b
	}

	return json.Marshal(stateDoc{
		SchemaVersion:   model.SchemaVersionCurrent,
		CompactTables:   true,
		URLTable:        table,
		Sessions:        raw,
		SessionOrder:    st.SessionOrder,
		ActiveSessionID: st.ActiveSessionID,
		Tracking:        &st.Tracking,
	})
}

// orderedIDs walks sessions in display order so table indexes are stable
// across encodes of the same state.
func orderedIDs(st *model.State) []string {
	ids := make([]string, 0, len(st.Sessions))
	seen := make(map[string]bool, len(st.Sessions))
	for _, id := range st.SessionOrder {
		if _, ok := st.Sessions[id]; ok && !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}
	for id := range st.Sessions {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids[len(seen):])
	return ids
}
