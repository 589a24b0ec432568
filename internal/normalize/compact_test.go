package normalize

import (
	"testing"

	"github.com/runnerr0/meander/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const compactBlob = `{
	"schemaVersion": 4,
	"compactTables": true,
	"urlTable": ["https://a.com/start", "https://b.com/page", "https://c.com/hole"],
	"sessions": {
		"s1": {
			"id": "s1",
			"startedAt": 1000,
			"nodes": {
				"0": {"url": 0, "title": "Start", "visitCount": 1, "activeMs": 500},
				"1": {"url": 1, "title": "Page", "visitCount": 2, "activeMs": 1500},
				"2": {"url": 2, "title": "Hole", "visitCount": 4, "activeMs": 9000}
			},
			"edges": {
				"0 -> 1": {"from": 0, "to": 1, "visitCount": 1},
				"1 -> 2": {"from": 1, "to": 2, "visitCount": 2}
			},
			"trapDoors": [{"url": 2, "postVisitDurationMs": 60000, "postVisitDepth": 8}]
		}
	},
	"sessionOrder": ["s1"],
	"activeSessionId": "s1"
}`

func TestDecodeCompact_ResolvesIndexes(t *testing.T) {
	st, ok := Normalize([]byte(compactBlob))
	require.True(t, ok)

	s := st.Sessions["s1"]
	require.NotNil(t, s)

	require.Contains(t, s.Nodes, "https://a.com/start")
	require.Contains(t, s.Nodes, "https://b.com/page")
	require.Contains(t, s.Nodes, "https://c.com/hole")
	assert.Equal(t, "Hole", s.Nodes["https://c.com/hole"].Title)
	assert.Equal(t, int64(9000), s.Nodes["https://c.com/hole"].ActiveMs)

	key := model.EdgeKey("https://b.com/page", "https://c.com/hole")
	require.Contains(t, s.Edges, key)
	assert.Equal(t, 2, s.Edges[key].VisitCount)

	require.Len(t, s.TrapDoors, 1)
	assert.Equal(t, "https://c.com/hole", s.TrapDoors[0].URL)
	assert.Equal(t, 8, s.TrapDoors[0].PostVisitDepth)

	assert.Equal(t, 3, s.NavigationCount, "synthesized from edge visits")
}

func TestDecodeCompact_UnresolvedIndexDefaultsNotFails(t *testing.T) {
	raw := `{
		"schemaVersion": 4,
		"compactTables": true,
		"urlTable": ["https://only.com"],
		"sessions": {
			"s1": {
				"id": "s1",
				"nodes": {
					"0": {"url": 0, "visitCount": 1},
					"9": {"url": 9, "visitCount": 1}
				},
				"edges": {
					"0 -> 9": {"from": 0, "to": 9, "visitCount": 1}
				},
				"trapDoors": [{"url": 42, "postVisitDurationMs": 1, "postVisitDepth": 1}]
			}
		}
	}`

	st, ok := Normalize([]byte(raw))
	require.True(t, ok)

	s := st.Sessions["s1"]
	require.NotNil(t, s)
	assert.Len(t, s.Nodes, 1, "unresolvable node is skipped")
	assert.Empty(t, s.Edges, "edge with an unresolvable endpoint is skipped")
	require.Len(t, s.TrapDoors, 1)
	assert.Empty(t, s.TrapDoors[0].URL, "trap door keeps an empty URL")
}

func TestCompact_RoundtripIsIdempotent(t *testing.T) {
	first, ok := Normalize([]byte(compactBlob))
	require.True(t, ok)

	compacted, err := EncodeCompact(first)
	require.NoError(t, err)

	second, ok := Normalize(compacted)
	require.True(t, ok)

	a, err := Encode(first)
	require.NoError(t, err)
	b, err := Encode(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestEncodeCompact_InternsSharedURLs(t *testing.T) {
	st := model.ApplyStateDefaults(&model.State{
		Sessions: map[string]*model.Session{
			"s1": {
				ID: "s1",
				Nodes: map[string]*model.Node{
					"https://a": {URL: "https://a", VisitCount: 1},
					"https://b": {URL: "https://b", VisitCount: 1},
				},
				Edges: map[string]*model.Edge{
					model.EdgeKey("https://a", "https://b"): {From: "https://a", To: "https://b", VisitCount: 1},
				},
				TrapDoors: []model.TrapDoor{{URL: "https://b", PostVisitDurationMs: 10, PostVisitDepth: 2}},
			},
		},
	})

	data, err := EncodeCompact(st)
	require.NoError(t, err)

	back, ok := Normalize(data)
	require.True(t, ok)
	s := back.Sessions["s1"]
	require.NotNil(t, s)
	assert.Contains(t, s.Nodes, "https://a")
	assert.Contains(t, s.Nodes, "https://b")
	assert.Equal(t, "https://b", s.TrapDoors[0].URL)
}
