// Package normalize migrates persisted session-state blobs of any
// supported schema generation into the canonical model. It is the only
// reader of raw store bytes: whatever generation wrote the blob, the rest
// of the engine sees one shape.
//
// Detection runs in priority order: the table-compacted encoding, the
// canonical generations 2-4, the generation-1 single-session document,
// then version-less but session-shaped input. Anything else is "no data".
// Normalization is pure and idempotent.
package normalize

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/runnerr0/meander/internal/model"
)

// stateDoc is the loose probe shape used to detect the generation before
// committing to a decode path. Sessions stay raw because the compact
// encoding stores node/edge URLs as integers.
type stateDoc struct {
	SchemaVersion   int                        `json:"schemaVersion"`
	CompactTables   bool                       `json:"compactTables,omitempty"`
	URLTable        []string                   `json:"urlTable,omitempty"`
	Sessions        map[string]json.RawMessage `json:"sessions,omitempty"`
	Session         json.RawMessage            `json:"session,omitempty"`
	SessionOrder    []string                   `json:"sessionOrder,omitempty"`
	ActiveSessionID string                     `json:"activeSessionId,omitempty"`
	Tracking        *model.Tracking            `json:"tracking,omitempty"`
}

// Normalize decodes a previously persisted blob into a canonical State.
// The second return is false when the blob is absent, unparseable, or not
// session-shaped; callers treat that as an empty state.
func Normalize(raw []byte) (*model.State, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var doc stateDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false
	}

	switch {
	case doc.CompactTables && doc.URLTable != nil:
		return decodeCompact(&doc), true
	case doc.SchemaVersion >= 2 && doc.SchemaVersion <= model.SchemaVersionCurrent && doc.Sessions != nil:
		return decodeCanonical(&doc), true
	case doc.Sessions == nil && len(doc.Session) > 0 && string(doc.Session) != "null":
		return migrateGenOne(&doc), true
	case doc.Sessions != nil:
		// Session-shaped but missing or unknown version tag: stamp it as
		// the latest generation and default the rest.
		return decodeCanonical(&doc), true
	default:
		return nil, false
	}
}

// decodeCanonical handles generations 2-4: sessions already keyed by URL.
// Individual sessions that fail to decode are dropped rather than failing
// the whole state.
func decodeCanonical(doc *stateDoc) *model.State {
	st := newStateFrom(doc)
	for id, raw := range doc.Sessions {
		var s model.Session
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		if s.ID == "" {
			s.ID = id
		}
		st.Sessions[id] = &s
	}
	return model.ApplyStateDefaults(st)
}

// migrateGenOne wraps a generation-1 single-session document into the
// multi-session shape: one map entry, a synthesized id when absent, and
// navigationCount recovered from edge visit counts.
func migrateGenOne(doc *stateDoc) *model.State {
	st := newStateFrom(doc)

	var s model.Session
	if err := json.Unmarshal(doc.Session, &s); err != nil {
		return model.ApplyStateDefaults(st)
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	// Generation 1 predates navigation indexes; they are null regardless
	// of what the blob carried.
	for _, n := range s.Nodes {
		if n != nil {
			n.FirstNavigationIndex = nil
			n.LastNavigationIndex = nil
		}
	}
	s.NavigationCount = 0 // resynthesized from edges by the defaulting pass

	st.Sessions[s.ID] = &s
	st.SessionOrder = []string{s.ID}
	st.ActiveSessionID = s.ID
	return model.ApplyStateDefaults(st)
}

// newStateFrom seeds a canonical State with the document's non-session
// fields. The schema version is always stamped to the latest generation.
func newStateFrom(doc *stateDoc) *model.State {
	st := &model.State{
		SchemaVersion:   model.SchemaVersionCurrent,
		Sessions:        make(map[string]*model.Session, len(doc.Sessions)),
		SessionOrder:    doc.SessionOrder,
		ActiveSessionID: doc.ActiveSessionID,
	}
	if doc.Tracking != nil {
		st.Tracking = *doc.Tracking
	}
	return st
}

// Encode serializes a canonical State into the persisted gen-4 document.
func Encode(st *model.State) ([]byte, error) {
	if st.SchemaVersion != model.SchemaVersionCurrent {
		clone := *st
		clone.SchemaVersion = model.SchemaVersionCurrent
		st = &clone
	}
	return json.Marshal(st)
}
