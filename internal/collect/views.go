package collect

import (
	"codeberg.org/mutker/rumcollect/internal/lifecycle"
	"codeberg.org/mutker/rumcollect/internal/observable"
	"codeberg.org/mutker/rumcollect/internal/rumevent"
)

// StartViewCollection emits a view event for every view update. The event
// id is the view id, so later versions of a view supersede earlier ones.
func StartViewCollection(lc *lifecycle.LifeCycle) *observable.Subscription {
	return lifecycle.On(lc, lifecycle.ViewUpdated, func(e lifecycle.ViewUpdatedEvent) {
		lc.Notify(lifecycle.RawEventCollected, rumevent.Raw{
			Type:      rumevent.TypeView,
			ID:        e.ID,
			StartTime: e.StartClocks.Relative,
			Date:      e.StartClocks.TimeStamp,
			Payload:   e.Payload,
		})
	})
}
