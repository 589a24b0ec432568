package normalize

import (
	"testing"

	"github.com/runnerr0/meander/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_RejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"not json", "not json at all {{"},
		{"json null", "null"},
		{"array", "[1, 2, 3]"},
		{"unrelated object", `{"foo": "bar", "count": 3}`},
		{"scalar", `42`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st, ok := Normalize([]byte(tc.raw))
			assert.False(t, ok)
			assert.Nil(t, st)
		})
	}
}

func TestNormalize_GenOneExampleScenario(t *testing.T) {
	raw := `{"schemaVersion":1,"session":{"id":"s","nodes":{},"edges":{}}}`

	st, ok := Normalize([]byte(raw))
	require.True(t, ok)

	assert.Equal(t, model.SchemaVersionCurrent, st.SchemaVersion)
	assert.Equal(t, []string{"s"}, st.SessionOrder)
	assert.Equal(t, "s", st.ActiveSessionID)
	require.Contains(t, st.Sessions, "s")
	assert.Equal(t, 0, st.Sessions["s"].NavigationCount)
}

func TestNormalize_GenOneNavigationCountFromEdges(t *testing.T) {
	raw := `{
		"schemaVersion": 1,
		"session": {
			"id": "s1",
			"startedAt": 1000,
			"nodes": {
				"https://a.com": {"url": "https://a.com", "visitCount": 3, "firstNavigationIndex": 7},
				"https://b.com": {"url": "https://b.com", "visitCount": 2}
			},
			"edges": {
				"https://a.com -> https://b.com": {"from": "https://a.com", "to": "https://b.com", "visitCount": 4},
				"https://b.com -> https://a.com": {"from": "https://b.com", "to": "https://a.com", "visitCount": 3}
			}
		}
	}`

	st, ok := Normalize([]byte(raw))
	require.True(t, ok)

	s := st.Sessions["s1"]
	require.NotNil(t, s)
	assert.Equal(t, 7, s.NavigationCount, "navigationCount equals the sum of edge visit counts")
	for _, n := range s.Nodes {
		assert.Nil(t, n.FirstNavigationIndex, "gen-1 nodes have null navigation indexes")
		assert.Nil(t, n.LastNavigationIndex)
	}
}

func TestNormalize_GenOneMissingIDGetsOne(t *testing.T) {
	raw := `{"schemaVersion":1,"session":{"startedAt":500,"nodes":{},"edges":{}}}`

	st, ok := Normalize([]byte(raw))
	require.True(t, ok)

	require.Len(t, st.Sessions, 1)
	for id, s := range st.Sessions {
		assert.NotEmpty(t, id)
		assert.Equal(t, id, s.ID)
	}
}

func TestNormalize_CanonicalPassThrough(t *testing.T) {
	raw := `{
		"schemaVersion": 3,
		"sessions": {
			"a": {"id": "a", "startedAt": 100, "nodes": {}, "edges": {}},
			"b": {"id": "b", "startedAt": 200, "nodes": {}, "edges": {}}
		},
		"sessionOrder": ["a", "b"],
		"activeSessionId": "b",
		"tracking": {"activeUrl": "https://x.com", "activeTabId": 9}
	}`

	st, ok := Normalize([]byte(raw))
	require.True(t, ok)

	assert.Equal(t, model.SchemaVersionCurrent, st.SchemaVersion)
	assert.Equal(t, []string{"a", "b"}, st.SessionOrder)
	assert.Equal(t, "b", st.ActiveSessionID)
	assert.Equal(t, "https://x.com", st.Tracking.ActiveURL)
	assert.Equal(t, 9, st.Tracking.ActiveTabID)
}

func TestNormalize_VersionlessSessionShapedStampsLatest(t *testing.T) {
	raw := `{"sessions":{"x":{"id":"x","startedAt":50,"nodes":{},"edges":{}}}}`

	st, ok := Normalize([]byte(raw))
	require.True(t, ok)

	assert.Equal(t, model.SchemaVersionCurrent, st.SchemaVersion)
	assert.Equal(t, []string{"x"}, st.SessionOrder)
	assert.Equal(t, "x", st.ActiveSessionID)
}

func TestNormalize_DropsUndecodableSession(t *testing.T) {
	raw := `{
		"schemaVersion": 4,
		"sessions": {
			"good": {"id": "good", "startedAt": 1, "nodes": {}, "edges": {}},
			"bad": "this is not a session"
		}
	}`

	st, ok := Normalize([]byte(raw))
	require.True(t, ok)

	assert.Contains(t, st.Sessions, "good")
	assert.NotContains(t, st.Sessions, "bad")
}

func TestNormalize_IdempotentAcrossGenerations(t *testing.T) {
	blobs := map[string]string{
		"gen1": `{"schemaVersion":1,"session":{"id":"s","startedAt":10,"nodes":{"https://a":{"url":"https://a","visitCount":1}},"edges":{"https://a -> https://b":{"from":"https://a","to":"https://b","visitCount":1}}}}`,
		"gen2": `{"schemaVersion":2,"sessions":{"s":{"id":"s","startedAt":10,"nodes":{},"edges":{}}}}`,
		"gen4": `{"schemaVersion":4,"sessions":{"s":{"id":"s","startedAt":10,"nodes":{},"edges":{}}},"sessionOrder":["s"],"activeSessionId":"s"}`,
	}
	for name, raw := range blobs {
		t.Run(name, func(t *testing.T) {
			first, ok := Normalize([]byte(raw))
			require.True(t, ok)

			encoded, err := Encode(first)
			require.NoError(t, err)

			second, ok := Normalize(encoded)
			require.True(t, ok)

			reencoded, err := Encode(second)
			require.NoError(t, err)
			assert.JSONEq(t, string(encoded), string(reencoded))
		})
	}
}

func TestEncode_StampsSchemaVersion(t *testing.T) {
	st := model.ApplyStateDefaults(&model.State{})
	st.SchemaVersion = 0

	data, err := Encode(st)
	require.NoError(t, err)

	back, ok := Normalize(data)
	require.True(t, ok, "encoded state must normalize")
	assert.Equal(t, model.SchemaVersionCurrent, back.SchemaVersion)
	assert.Equal(t, 0, st.SchemaVersion, "Encode must not mutate its input")
}
