package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLog_AppendBelowCapacity(t *testing.T) {
	l := NewEventLogSize(10)

	for i := 0; i < 5; i++ {
		l.Append(Event{Type: EventNavigation, TS: int64(i)})
	}

	assert.Equal(t, 5, l.Len())
	events := l.Logical()
	require.Len(t, events, 5)
	for i, e := range events {
		assert.Equal(t, int64(i), e.TS)
	}
}

func TestEventLog_SaturatesAtCapacity(t *testing.T) {
	const capacity = 8
	const extra = 5
	l := NewEventLogSize(capacity)

	for i := 0; i < capacity+extra; i++ {
		l.Append(Event{TS: int64(i)})
	}

	// Count saturates; the buffer holds exactly the most recent capacity
	// events in logical order.
	assert.Equal(t, capacity, l.Len())
	events := l.Logical()
	require.Len(t, events, capacity)
	for i, e := range events {
		assert.Equal(t, int64(extra+i), e.TS)
	}
}

func TestEventLog_FullCapacityInvariant(t *testing.T) {
	l := NewEventLog()

	for i := 0; i < MaxEvents+3; i++ {
		l.Append(Event{TS: int64(i)})
	}

	assert.Equal(t, MaxEvents, l.Len())
	events := l.Logical()
	assert.Equal(t, int64(3), events[0].TS)
	assert.Equal(t, int64(MaxEvents+2), events[len(events)-1].TS)
}

func TestEventLog_Reset(t *testing.T) {
	l := NewEventLogSize(4)
	l.Append(Event{TS: 1})
	l.Append(Event{TS: 2})

	l.Reset()

	assert.Equal(t, 0, l.Len())
	assert.Nil(t, l.Logical())
}

func TestEventLog_JSONRoundtrip(t *testing.T) {
	l := NewEventLog()
	l.Append(Event{Type: EventNavigation, TS: 1, FromURL: "https://a", ToURL: "https://b"})
	l.Append(Event{Type: EventActiveTimeFlush, TS: 2, URL: "https://b", DurationMs: 500})

	data, err := json.Marshal(l)
	require.NoError(t, err)

	var back EventLog
	require.NoError(t, json.Unmarshal(data, &back))

	assert.Equal(t, l.Logical(), back.Logical())
	assert.Equal(t, 2, back.Len())
}

func TestEventLog_UnmarshalOversizedArray(t *testing.T) {
	events := make([]Event, MaxEvents+10)
	for i := range events {
		events[i] = Event{TS: int64(i)}
	}
	data, err := json.Marshal(events)
	require.NoError(t, err)

	var l EventLog
	require.NoError(t, json.Unmarshal(data, &l))

	assert.Equal(t, MaxEvents, l.Len())
	assert.Equal(t, int64(10), l.Logical()[0].TS)
}

func TestEventLog_NilSafeLen(t *testing.T) {
	var l *EventLog
	assert.Equal(t, 0, l.Len())
	assert.Nil(t, l.Logical())
}
