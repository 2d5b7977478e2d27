// Package schedule provides the deferred-turn and interval timers the
// collector runs on. Every callback of a scheduler runs on one logical
// thread: the Loop goroutine for live collection, or the caller of Advance
// for the Virtual scheduler used by replays and tests.
package schedule

import "time"

// Timer is a handle on a pending callback. Stop is idempotent and, once it
// returns, the callback is guaranteed not to run.
type Timer interface {
	Stop()
}

// Scheduler registers deferred and periodic callbacks.
type Scheduler interface {
	// AfterFunc runs fn once after d. A zero d schedules fn on a later turn,
	// never synchronously.
	AfterFunc(d time.Duration, fn func()) Timer

	// Every runs fn every d until the returned Timer is stopped.
	Every(d time.Duration, fn func()) Timer
}

// Defer schedules fn on the next turn of s.
func Defer(s Scheduler, fn func()) Timer {
	return s.AfterFunc(0, fn)
}

// StopAll stops every non-nil timer.
func StopAll(timers ...Timer) {
	for _, t := range timers {
		if t != nil {
			t.Stop()
		}
	}
}
