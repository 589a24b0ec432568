package model

// Delta is an incremental patch against the live State. A delta carrying a
// full State is a resynchronization and replaces everything; otherwise its
// fields are merged per the rules in the reconciler: last-write-wins for
// tracking and sessionPatch, list-append for sessionsPatch and the event
// patch, replace-wins for sessionOrder and the node/edge patches.
type Delta struct {
	State *State `json:"state,omitempty"`

	Tracking *TrackingPatch `json:"tracking,omitempty"`

	SessionID    string           `json:"sessionId,omitempty"`
	SessionPatch *SessionPatch    `json:"sessionPatch,omitempty"`
	NodePatch    map[string]*Node `json:"nodePatch,omitempty"`
	EdgePatch    map[string]*Edge `json:"edgePatch,omitempty"`
	EventPatch   []Event          `json:"eventPatch,omitempty"`

	SessionsPatch []*Session `json:"sessionsPatch,omitempty"`
	SessionOrder  []string   `json:"sessionOrder,omitempty"`
}

// TrackingPatch is a partial update of the live Tracking pointer. Nil
// fields leave the current value untouched.
type TrackingPatch struct {
	ActiveTabID       *int    `json:"activeTabId,omitempty"`
	ActiveURL         *string `json:"activeUrl,omitempty"`
	ActiveSince       *int64  `json:"activeSince,omitempty"`
	LastInteractionAt *int64  `json:"lastInteractionAt,omitempty"`
	UserIdle          *bool   `json:"userIdle,omitempty"`
	LastInactiveAt    *int64  `json:"lastInactiveAt,omitempty"`
}

// SessionPatch is a partial update of one session's scalar fields. Nil
// fields leave the current value untouched; CategoryTotals replaces the
// whole map when present.
type SessionPatch struct {
	StartedAt          *int64             `json:"startedAt,omitempty"`
	EndedAt            *int64             `json:"endedAt,omitempty"`
	LastActivityAt     *int64             `json:"lastActivityAt,omitempty"`
	UpdatedAt          *int64             `json:"updatedAt,omitempty"`
	Label              *string            `json:"label,omitempty"`
	LabelDetail        *string            `json:"labelDetail,omitempty"`
	DistractionAverage *float64           `json:"distractionAverage,omitempty"`
	IntentDrift        *IntentDrift       `json:"intentDrift,omitempty"`
	Favorite           *bool              `json:"favorite,omitempty"`
	FavoriteAt         *int64             `json:"favoriteAt,omitempty"`
	Archived           *bool              `json:"archived,omitempty"`
	ArchivedAt         *int64             `json:"archivedAt,omitempty"`
	Deleted            *bool              `json:"deleted,omitempty"`
	DeletedAt          *int64             `json:"deletedAt,omitempty"`
	NavigationCount    *int               `json:"navigationCount,omitempty"`
	CategoryTotals     map[string]int64   `json:"categoryTotals,omitempty"`
	TrapDoors          []TrapDoor         `json:"trapDoors,omitempty"`
	SummaryBrief       *string            `json:"summaryBrief,omitempty"`
	SummaryDetailed    *string            `json:"summaryDetailed,omitempty"`
	SummaryUpdatedAt   *int64             `json:"summaryUpdatedAt,omitempty"`
}

// Merge folds src into p field-wise: any non-nil src field wins.
func (p *TrackingPatch) Merge(src *TrackingPatch) {
	if src == nil {
		return
	}
	if src.ActiveTabID != nil {
		p.ActiveTabID = src.ActiveTabID
	}
	if src.ActiveURL != nil {
		p.ActiveURL = src.ActiveURL
	}
	if src.ActiveSince != nil {
		p.ActiveSince = src.ActiveSince
	}
	if src.LastInteractionAt != nil {
		p.LastInteractionAt = src.LastInteractionAt
	}
	if src.UserIdle != nil {
		p.UserIdle = src.UserIdle
	}
	if src.LastInactiveAt != nil {
		p.LastInactiveAt = src.LastInactiveAt
	}
}

// ApplyTo writes the patch's set fields onto the live tracking pointer.
func (p *TrackingPatch) ApplyTo(t *Tracking) {
	if p == nil {
		return
	}
	if p.ActiveTabID != nil {
		t.ActiveTabID = *p.ActiveTabID
	}
	if p.ActiveURL != nil {
		t.ActiveURL = *p.ActiveURL
	}
	if p.ActiveSince != nil {
		t.ActiveSince = *p.ActiveSince
	}
	if p.LastInteractionAt != nil {
		t.LastInteractionAt = *p.LastInteractionAt
	}
	if p.UserIdle != nil {
		t.UserIdle = *p.UserIdle
	}
	if p.LastInactiveAt != nil {
		t.LastInactiveAt = *p.LastInactiveAt
	}
}

// Merge folds src into p field-wise: any non-nil src field wins.
func (p *SessionPatch) Merge(src *SessionPatch) {
	if src == nil {
		return
	}
	if src.StartedAt != nil {
		p.StartedAt = src.StartedAt
	}
	if src.EndedAt != nil {
		p.EndedAt = src.EndedAt
	}
	if src.LastActivityAt != nil {
		p.LastActivityAt = src.LastActivityAt
	}
	if src.UpdatedAt != nil {
		p.UpdatedAt = src.UpdatedAt
	}
	if src.Label != nil {
		p.Label = src.Label
	}
	if src.LabelDetail != nil {
		p.LabelDetail = src.LabelDetail
	}
	if src.DistractionAverage != nil {
		p.DistractionAverage = src.DistractionAverage
	}
	if src.IntentDrift != nil {
		p.IntentDrift = src.IntentDrift
	}
	if src.Favorite != nil {
		p.Favorite = src.Favorite
	}
	if src.FavoriteAt != nil {
		p.FavoriteAt = src.FavoriteAt
	}
	if src.Archived != nil {
		p.Archived = src.Archived
	}
	if src.ArchivedAt != nil {
		p.ArchivedAt = src.ArchivedAt
	}
	if src.Deleted != nil {
		p.Deleted = src.Deleted
	}
	if src.DeletedAt != nil {
		p.DeletedAt = src.DeletedAt
	}
	if src.NavigationCount != nil {
		p.NavigationCount = src.NavigationCount
	}
	if src.CategoryTotals != nil {
		p.CategoryTotals = src.CategoryTotals
	}
	if src.TrapDoors != nil {
		p.TrapDoors = src.TrapDoors
	}
	if src.SummaryBrief != nil {
		p.SummaryBrief = src.SummaryBrief
	}
	if src.SummaryDetailed != nil {
		p.SummaryDetailed = src.SummaryDetailed
	}
	if src.SummaryUpdatedAt != nil {
		p.SummaryUpdatedAt = src.SummaryUpdatedAt
	}
}

// ApplyTo writes the patch's set fields onto a session.
func (p *SessionPatch) ApplyTo(s *Session) {
	if p == nil {
		return
	}
	if p.StartedAt != nil {
		s.StartedAt = *p.StartedAt
	}
	if p.EndedAt != nil {
		s.EndedAt = p.EndedAt
	}
	if p.LastActivityAt != nil {
		s.LastActivityAt = *p.LastActivityAt
	}
	if p.UpdatedAt != nil {
		s.UpdatedAt = *p.UpdatedAt
	}
	if p.Label != nil {
		s.Label = *p.Label
	}
	if p.LabelDetail != nil {
		s.LabelDetail = *p.LabelDetail
	}
	if p.DistractionAverage != nil {
		s.DistractionAverage = *p.DistractionAverage
	}
	if p.IntentDrift != nil {
		s.IntentDrift = p.IntentDrift
	}
	if p.Favorite != nil {
		s.Favorite = *p.Favorite
	}
	if p.FavoriteAt != nil {
		s.FavoriteAt = *p.FavoriteAt
	}
	if p.Archived != nil {
		s.Archived = *p.Archived
	}
	if p.ArchivedAt != nil {
		s.ArchivedAt = *p.ArchivedAt
	}
	if p.Deleted != nil {
		s.Deleted = *p.Deleted
	}
	if p.DeletedAt != nil {
		s.DeletedAt = *p.DeletedAt
	}
	if p.NavigationCount != nil {
		s.NavigationCount = *p.NavigationCount
	}
	if p.CategoryTotals != nil {
		s.CategoryTotals = p.CategoryTotals
	}
	if p.TrapDoors != nil {
		s.TrapDoors = p.TrapDoors
	}
	if p.SummaryBrief != nil {
		s.SummaryBrief = *p.SummaryBrief
	}
	if p.SummaryDetailed != nil {
		s.SummaryDetailed = *p.SummaryDetailed
	}
	if p.SummaryUpdatedAt != nil {
		s.SummaryUpdatedAt = *p.SummaryUpdatedAt
	}
}
