// Package contexts answers which view, and which session, an event
// belongs to.
package contexts

import (
	"codeberg.org/mutker/rumcollect/internal/clock"
	"codeberg.org/mutker/rumcollect/internal/history"
	"codeberg.org/mutker/rumcollect/internal/lifecycle"
	"codeberg.org/mutker/rumcollect/internal/observable"
	"codeberg.org/mutker/rumcollect/internal/schedule"
)

// ViewContext identifies a view.
type ViewContext struct {
	ID   string
	Name string
	URL  string
}

// ViewContexts is the ledger of view lifetimes. It is only written by view
// and session notifications, and read by everything that attributes events.
type ViewContexts struct {
	history *history.ValueHistory[ViewContext]
	subs    []*observable.Subscription
}

// NewViewContexts returns a ledger that is not wired to any notification.
func NewViewContexts(s schedule.Scheduler, clk *clock.Clock, cfg history.Config) *ViewContexts {
	return &ViewContexts{
		history: history.New[ViewContext](s, clk.RelativeNow, cfg),
	}
}

// StartViewContexts returns a ledger kept up to date from lc.
func StartViewContexts(lc *lifecycle.LifeCycle, s schedule.Scheduler, clk *clock.Clock, cfg history.Config) *ViewContexts {
	vc := NewViewContexts(s, clk, cfg)

	vc.subs = append(vc.subs,
		lifecycle.On(lc, lifecycle.ViewCreated, func(e lifecycle.ViewCreatedEvent) {
			vc.RecordViewStart(ViewContext{ID: e.ID, Name: e.Name, URL: e.URL}, e.StartClocks)
		}),
		lifecycle.On(lc, lifecycle.ViewEnded, func(e lifecycle.ViewEndedEvent) {
			vc.RecordViewEnd(e.ID, e.EndClocks)
		}),
		lifecycle.On(lc, lifecycle.ViewUpdated, func(e lifecycle.ViewUpdatedEvent) {
			if e.Name != "" {
				vc.rename(e.StartClocks.Relative, e.Name)
			}
		}),
		lifecycle.On(lc, lifecycle.SessionRenewed, func(lifecycle.SessionRenewedEvent) {
			vc.Reset()
		}),
	)
	return vc
}

// FindView returns the view live at the given relative time. Among views
// overlapping at that time, the last one started wins.
func (vc *ViewContexts) FindView(at clock.RelativeTime) (ViewContext, bool) {
	return vc.history.Find(at)
}

// CurrentView returns the view that has not ended yet.
func (vc *ViewContexts) CurrentView() (ViewContext, bool) {
	return vc.history.Current()
}

// RecordViewStart appends a view interval. A previous view that was never
// ended stays open.
func (vc *ViewContexts) RecordViewStart(view ViewContext, start clock.ClocksState) {
	vc.history.Add(view, start.Relative)
}

// RecordViewEnd closes the most recently started open interval.
func (vc *ViewContexts) RecordViewEnd(_ string, end clock.ClocksState) {
	vc.history.CloseActive(end.Relative)
}

// Reset drops every interval.
func (vc *ViewContexts) Reset() {
	vc.history.Reset()
}

// OnEvict reports how many intervals each periodic sweep removed.
func (vc *ViewContexts) OnEvict(fn func(n int)) {
	vc.history.OnEvict(fn)
}

func (vc *ViewContexts) rename(at clock.RelativeTime, name string) {
	vc.history.UpdateAt(at, func(v ViewContext) ViewContext {
		v.Name = name
		return v
	})
}

// Stop unsubscribes from the life cycle and cancels the sweep.
func (vc *ViewContexts) Stop() {
	for _, sub := range vc.subs {
		sub.Unsubscribe()
	}
	vc.history.Stop()
}
