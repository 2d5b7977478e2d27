// Package lifecycle is the notification bus every collector component talks
// through. Notifications are delivered synchronously, in subscription order,
// on the notifying goroutine.
package lifecycle

import (
	"sync"

	"codeberg.org/mutker/rumcollect/internal/observable"
)

// EventType identifies a kind of notification. Each kind has exactly one
// payload type, listed next to the constant.
type EventType int

const (
	ViewCreated                 EventType = iota // ViewCreatedEvent
	ViewUpdated                                  // ViewUpdatedEvent
	ViewEnded                                    // ViewEndedEvent
	SessionRenewed                               // SessionRenewedEvent
	PerformanceEntriesCollected                  // []performance.Entry
	RequestCompleted                             // RequestCompleteEvent
	RawEventCollected                            // rumevent.Raw
	EventAssembled                               // rumevent.Event
)

var eventTypeNames = map[EventType]string{
	ViewCreated:                 "view_created",
	ViewUpdated:                 "view_updated",
	ViewEnded:                   "view_ended",
	SessionRenewed:              "session_renewed",
	PerformanceEntriesCollected: "performance_entries_collected",
	RequestCompleted:            "request_completed",
	RawEventCollected:           "raw_event_collected",
	EventAssembled:              "event_assembled",
}

func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// LifeCycle fans notifications out to the subscribers of their kind.
type LifeCycle struct {
	mu    sync.Mutex
	buses map[EventType]*observable.Observable[any]
}

func New() *LifeCycle {
	return &LifeCycle{buses: make(map[EventType]*observable.Observable[any])}
}

func (lc *LifeCycle) bus(kind EventType) *observable.Observable[any] {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	b, ok := lc.buses[kind]
	if !ok {
		b = observable.New[any]()
		lc.buses[kind] = b
	}
	return b
}

// Notify delivers payload to every subscriber of kind.
func (lc *LifeCycle) Notify(kind EventType, payload any) {
	lc.bus(kind).Notify(payload)
}

// Subscribe registers an untyped handler for kind.
func (lc *LifeCycle) Subscribe(kind EventType, fn func(any)) *observable.Subscription {
	return lc.bus(kind).Subscribe(fn)
}

// Subscribers returns the number of handlers registered for kind.
func (lc *LifeCycle) Subscribers(kind EventType) int {
	return lc.bus(kind).Len()
}

// On registers a typed handler for kind. Payloads of another type are
// ignored.
func On[T any](lc *LifeCycle, kind EventType, fn func(T)) *observable.Subscription {
	return lc.Subscribe(kind, func(payload any) {
		if v, ok := payload.(T); ok {
			fn(v)
		}
	})
}
