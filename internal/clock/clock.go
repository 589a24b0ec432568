// Package clock abstracts timer scheduling so batching, debounce, and
// offload timeouts are testable without wall-clock waits.
package clock

import "time"

// Clock provides the current time and deadline timers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancelable deadline timer. Stop reports whether the timer was
// stopped before firing.
type Timer interface {
	Stop() bool
}

// System returns a Clock backed by the time package.
func System() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
