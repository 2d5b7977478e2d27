// Package collect turns application calls and life cycle notifications into
// raw events.
package collect

import (
	"maps"

	"codeberg.org/mutker/rumcollect/internal/clock"
	"codeberg.org/mutker/rumcollect/internal/lifecycle"
	"codeberg.org/mutker/rumcollect/internal/rumevent"
	"github.com/google/uuid"
)

const (
	ActionCustom = "custom"

	ErrorSourceCustom  = "custom"
	ErrorSourceSource  = "source"
	ErrorSourceNetwork = "network"
)

// Action is a custom action reported by the application.
type Action struct {
	Name    string
	Context map[string]any
	// StartClocks defaults to the time of the call.
	StartClocks *clock.ClocksState
}

// Error is an error reported by the application.
type Error struct {
	Message     string
	Source      string
	Stack       string
	Context     map[string]any
	StartClocks *clock.ClocksState
}

// API collects custom actions and errors.
type API struct {
	lc    *lifecycle.LifeCycle
	clock *clock.Clock
}

func NewAPI(lc *lifecycle.LifeCycle, clk *clock.Clock) *API {
	return &API{lc: lc, clock: clk}
}

func (a *API) AddAction(action Action) {
	start := a.startClocks(action.StartClocks)
	a.lc.Notify(lifecycle.RawEventCollected, rumevent.Raw{
		Type:      rumevent.TypeAction,
		ID:        uuid.NewString(),
		StartTime: start.Relative,
		Date:      start.TimeStamp,
		Payload: rumevent.ActionPayload{
			Type: ActionCustom,
			Name: action.Name,
		},
		CustomerContext: maps.Clone(action.Context),
	})
}

func (a *API) AddError(e Error) {
	source := e.Source
	if source == "" {
		source = ErrorSourceCustom
	}

	start := a.startClocks(e.StartClocks)
	a.lc.Notify(lifecycle.RawEventCollected, rumevent.Raw{
		Type:      rumevent.TypeError,
		ID:        uuid.NewString(),
		StartTime: start.Relative,
		Date:      start.TimeStamp,
		Payload: rumevent.ErrorPayload{
			Message: e.Message,
			Source:  source,
			Stack:   e.Stack,
		},
		CustomerContext: maps.Clone(e.Context),
	})
}

func (a *API) startClocks(given *clock.ClocksState) clock.ClocksState {
	if given != nil {
		return *given
	}
	return a.clock.Now()
}
