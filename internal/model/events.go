package model

import "encoding/json"

// MaxEvents is the fixed capacity of a session's event log.
const MaxEvents = 5000

// Event types recorded in a session's event log.
const (
	EventNavigation      = "navigation"
	EventActiveTimeFlush = "active_time_flushed"
	EventTabActivated    = "tab_activated"
	EventURLChanged      = "url_changed"
	EventSessionStarted  = "session_started"
	EventSessionEnded    = "session_ended"
)

// Event is one timestamped occurrence within a session.
type Event struct {
	Type       string `json:"type"`
	TS         int64  `json:"ts"`
	URL        string `json:"url,omitempty"`
	FromURL    string `json:"fromUrl,omitempty"`
	ToURL      string `json:"toUrl,omitempty"`
	Title      string `json:"title,omitempty"`
	TabID      int    `json:"tabId,omitempty"`
	DurationMs int64  `json:"durationMs,omitempty"`
}

// EventLog is a fixed-capacity circular buffer of events. Once full, new
// appends overwrite the oldest entry; the count saturates at capacity and
// never decreases except on Reset. The cursor arithmetic is internal:
// callers append and read in logical (oldest to newest) order only.
type EventLog struct {
	buf      []Event
	cursor   int // next write position
	count    int
	capacity int
}

// NewEventLog returns an empty event log with the standard capacity.
func NewEventLog() *EventLog {
	return NewEventLogSize(MaxEvents)
}

// NewEventLogSize returns an empty event log with the given capacity.
// Capacities below 1 fall back to MaxEvents.
func NewEventLogSize(capacity int) *EventLog {
	if capacity < 1 {
		capacity = MaxEvents
	}
	return &EventLog{capacity: capacity}
}

// Append adds an event, overwriting the oldest entry when the log is full.
func (l *EventLog) Append(e Event) {
	if l.capacity == 0 {
		l.capacity = MaxEvents
	}
	if l.count < l.capacity {
		l.buf = append(l.buf, e)
		l.count++
		l.cursor = l.count % l.capacity
		return
	}
	l.buf[l.cursor] = e
	l.cursor = (l.cursor + 1) % l.capacity
}

// Len returns the number of events held, at most the capacity.
func (l *EventLog) Len() int {
	if l == nil {
		return 0
	}
	return l.count
}

// Cap returns the log's fixed capacity.
func (l *EventLog) Cap() int {
	if l.capacity == 0 {
		return MaxEvents
	}
	return l.capacity
}

// Logical returns a copy of the events in logical order, oldest first.
func (l *EventLog) Logical() []Event {
	if l == nil || l.count == 0 {
		return nil
	}
	out := make([]Event, 0, l.count)
	if l.count < l.capacity {
		return append(out, l.buf...)
	}
	out = append(out, l.buf[l.cursor:]...)
	return append(out, l.buf[:l.cursor]...)
}

// Reset discards all events, keeping the capacity.
func (l *EventLog) Reset() {
	l.buf = nil
	l.cursor = 0
	l.count = 0
}

// MarshalJSON encodes the log as a plain array in logical order. The
// persisted document never carries cursor state; a reload rebuilds the
// ring from the array.
func (l *EventLog) MarshalJSON() ([]byte, error) {
	events := l.Logical()
	if events == nil {
		events = []Event{}
	}
	return json.Marshal(events)
}

// UnmarshalJSON rebuilds the ring from a logical-order array, keeping only
// the most recent capacity events if the array is oversized.
func (l *EventLog) UnmarshalJSON(data []byte) error {
	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		return err
	}
	l.capacity = MaxEvents
	l.buf = nil
	l.cursor = 0
	l.count = 0
	if len(events) > l.capacity {
		events = events[len(events)-l.capacity:]
	}
	for _, e := range events {
		l.Append(e)
	}
	return nil
}
