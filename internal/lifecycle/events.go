package lifecycle

import (
	"codeberg.org/mutker/rumcollect/internal/clock"
	"codeberg.org/mutker/rumcollect/internal/rumevent"
)

type ViewCreatedEvent struct {
	ID          string
	Name        string
	URL         string
	StartClocks clock.ClocksState
}

// ViewUpdatedEvent carries the full current state of a view.
type ViewUpdatedEvent struct {
	ID          string
	Name        string
	StartClocks clock.ClocksState
	Payload     rumevent.ViewPayload
}

type ViewEndedEvent struct {
	ID        string
	EndClocks clock.ClocksState
}

type SessionRenewedEvent struct {
	SessionID string
}

// RequestKind tells fetch calls from XMLHttpRequests.
type RequestKind string

const (
	RequestFetch RequestKind = "fetch"
	RequestXHR   RequestKind = "xhr"
)

// RequestCompleteEvent describes a finished network call as the application
// saw it, independent of the performance timeline.
type RequestCompleteEvent struct {
	Kind         RequestKind
	URL          string
	Method       string
	Status       int
	StartClocks  clock.ClocksState
	Duration     clock.Duration
	ResponseSize *int64
}
