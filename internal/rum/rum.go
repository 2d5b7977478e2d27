// Package rum wires every collector component onto one life cycle.
package rum

import (
	"sync"

	"codeberg.org/mutker/rumcollect/internal/assembly"
	"codeberg.org/mutker/rumcollect/internal/clock"
	"codeberg.org/mutker/rumcollect/internal/collect"
	"codeberg.org/mutker/rumcollect/internal/contexts"
	"codeberg.org/mutker/rumcollect/internal/lifecycle"
	"codeberg.org/mutker/rumcollect/internal/logger"
	"codeberg.org/mutker/rumcollect/internal/observable"
	"codeberg.org/mutker/rumcollect/internal/performance"
	"codeberg.org/mutker/rumcollect/internal/resource"
	"codeberg.org/mutker/rumcollect/internal/schedule"
	"codeberg.org/mutker/rumcollect/internal/session"
	"codeberg.org/mutker/rumcollect/internal/telemetry"
	"codeberg.org/mutker/rumcollect/internal/view"
	"codeberg.org/mutker/rumcollect/internal/viewmetrics"
)

// Platform is what the collector observes.
type Platform struct {
	Timeline  performance.Timeline
	Document  viewmetrics.Document
	Scheduler schedule.Scheduler
	Clock     *clock.Clock
}

// Rum is a running collector.
type Rum struct {
	lc       *lifecycle.LifeCycle
	clock    *clock.Clock
	api      *collect.API
	sessions *session.Manager
	views    *contexts.ViewContexts
	internal *contexts.InternalContext
	tracker  *view.Tracker
	log      logger.Logger

	resources    *resource.Collection
	assembler    *assembly.Assembler
	subs         []*observable.Subscription
	stopObserver func()

	stopOnce sync.Once
}

// Start composes the collector. rec may be nil.
func Start(cfg Config, p Platform, rec telemetry.Recorder) *Rum {
	lc := lifecycle.New()
	r := &Rum{
		lc:    lc,
		clock: p.Clock,
		api:   collect.NewAPI(lc, p.Clock),
		log:   logger.Component("rum"),
	}

	var (
		matchRecorder    resource.Recorder
		assemblyRecorder assembly.Recorder
	)
	if rec != nil {
		matchRecorder = rec
		assemblyRecorder = rec
		r.subs = append(r.subs, telemetry.CountEntries(lc, rec))
	}

	// The ledgers subscribe before the view tracker so that a session
	// renewal clears them before the next view is recorded.
	r.sessions = session.StartManager(lc, p.Scheduler, p.Clock, cfg.Session)
	r.views = contexts.StartViewContexts(lc, p.Scheduler, p.Clock, cfg.ViewHistory)
	if rec != nil {
		r.views.OnEvict(rec.RecordEvictions)
	}
	r.internal = contexts.NewInternalContext(cfg.ApplicationID, r.sessions, r.views)

	r.assembler = assembly.Start(lc, assembly.Config{
		ApplicationID: cfg.ApplicationID,
		GlobalContext: cfg.GlobalContext,
	}, r.sessions, r.views, assemblyRecorder)

	r.subs = append(r.subs,
		collect.StartViewCollection(lc),
		collect.StartLongTaskCollection(lc, p.Clock),
	)
	r.resources = resource.StartCollection(lc,
		resource.NewMatcher(p.Timeline, cfg.TolerantResourceTimings, matchRecorder),
		p.Clock, cfg.IntakeURLs)

	observer := performance.NewObserver(p.Timeline, p.Scheduler, cfg.IntakeURLs)
	r.tracker = view.Start(lc, viewmetrics.Sources{
		LifeCycle:    lc,
		Timeline:     p.Timeline,
		Capabilities: observer.Capabilities(),
		Document:     p.Document,
		Scheduler:    p.Scheduler,
		Clock:        p.Clock,
	}, view.Config{
		InitialName:    cfg.InitialViewName,
		InitialURL:     cfg.InitialViewURL,
		UpdateThrottle: cfg.ViewUpdateThrottle,
	})

	r.stopObserver = collect.StartPerformanceCollection(lc, observer)

	r.log.Debug().
		Str("application_id", cfg.ApplicationID).
		Str("session_id", r.sessions.ID()).
		Str("view_id", r.tracker.CurrentViewID()).
		Msg("Collector started")

	return r
}

// LifeCycle exposes the notification bus, for outputs such as the journal.
func (r *Rum) LifeCycle() *lifecycle.LifeCycle { return r.lc }

func (r *Rum) StartView(name, url string) string { return r.tracker.StartView(name, url) }

func (r *Rum) AddAction(action collect.Action) { r.api.AddAction(action) }

func (r *Rum) AddError(e collect.Error) { r.api.AddError(e) }

// CompleteRequest reports a finished fetch or XHR call.
func (r *Rum) CompleteRequest(req lifecycle.RequestCompleteEvent) {
	r.lc.Notify(lifecycle.RequestCompleted, req)
}

func (r *Rum) RenewSession() string { return r.sessions.Renew() }

func (r *Rum) SessionID() string { return r.sessions.ID() }

// InternalContext returns the attribution at startTime, or false when no
// session or no view was live then.
func (r *Rum) InternalContext(startTime clock.RelativeTime) (contexts.Internal, bool) {
	return r.internal.Get(startTime)
}

// Stop ends the current view, flushing its final state, then detaches
// every component. It is idempotent.
func (r *Rum) Stop() {
	r.stopOnce.Do(func() {
		r.stopObserver()
		r.tracker.Stop()
		r.resources.Stop()
		for _, sub := range r.subs {
			sub.Unsubscribe()
		}
		r.assembler.Stop()
		r.views.Stop()
		r.sessions.Stop()

		r.log.Debug().Msg("Collector stopped")
	})
}
