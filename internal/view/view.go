// Package view tracks the lifetime of views and publishes their state.
package view

import (
	"sync"

	"codeberg.org/mutker/rumcollect/internal/clock"
	"codeberg.org/mutker/rumcollect/internal/lifecycle"
	"codeberg.org/mutker/rumcollect/internal/observable"
	"codeberg.org/mutker/rumcollect/internal/rumevent"
	"codeberg.org/mutker/rumcollect/internal/schedule"
	"codeberg.org/mutker/rumcollect/internal/viewmetrics"
	"github.com/google/uuid"
)

const (
	LoadingInitial     = "initial_load"
	LoadingRouteChange = "route_change"

	// DefaultUpdateThrottle bounds how often a busy view is republished.
	DefaultUpdateThrottle = 3 * clock.OneSecond
)

type Config struct {
	InitialName    string
	InitialURL     string
	UpdateThrottle clock.Duration
}

type state struct {
	id          string
	name        string
	url         string
	loadingType string
	start       clock.ClocksState
	version     int
	counts      rumevent.EventCounts
	metrics     rumevent.InitialViewMetrics
	loadEvent   *clock.Duration
	initial     *viewmetrics.Tracker
	pending     schedule.Timer
}

// Tracker keeps exactly one view current, starting with the initial view of
// the page load. Only the initial view carries initial view metrics.
type Tracker struct {
	lc        *lifecycle.LifeCycle
	scheduler schedule.Scheduler
	clock     *clock.Clock
	throttle  clock.Duration
	subs      []*observable.Subscription

	mu      sync.Mutex
	current *state
	stopped bool
}

// Start creates the initial view.
func Start(lc *lifecycle.LifeCycle, src viewmetrics.Sources, cfg Config) *Tracker {
	if cfg.UpdateThrottle <= 0 {
		cfg.UpdateThrottle = DefaultUpdateThrottle
	}

	t := &Tracker{
		lc:        lc,
		scheduler: src.Scheduler,
		clock:     src.Clock,
		throttle:  cfg.UpdateThrottle,
	}

	initial := t.newView(cfg.InitialName, cfg.InitialURL, LoadingInitial, clock.ClocksState{
		Relative:  0,
		TimeStamp: src.Clock.Origin(),
	})
	t.mu.Lock()
	t.current = initial
	t.mu.Unlock()
	t.created(initial)

	metrics := viewmetrics.TrackInitialViewMetrics(src,
		func(loadEvent clock.Duration) {
			t.withView(initial.id, func(s *state) { s.loadEvent = &loadEvent })
		},
		func(m rumevent.InitialViewMetrics) {
			t.withView(initial.id, func(s *state) { s.metrics = m })
			t.scheduleUpdate(initial.id)
		},
	)
	t.mu.Lock()
	initial.initial = metrics
	t.mu.Unlock()

	t.subs = append(t.subs,
		lifecycle.On(lc, lifecycle.EventAssembled, t.countEvent),
		lifecycle.On(lc, lifecycle.SessionRenewed, func(lifecycle.SessionRenewedEvent) {
			name, url := t.currentLocation()
			t.StartView(name, url)
		}),
	)
	return t
}

func (t *Tracker) newView(name, url, loadingType string, start clock.ClocksState) *state {
	return &state{
		id:          uuid.NewString(),
		name:        name,
		url:         url,
		loadingType: loadingType,
		start:       start,
	}
}

func (t *Tracker) created(s *state) {
	t.lc.Notify(lifecycle.ViewCreated, lifecycle.ViewCreatedEvent{
		ID:          s.id,
		Name:        s.name,
		URL:         s.url,
		StartClocks: s.start,
	})
	t.publish(s, t.clock.Now(), true)
}

// StartView ends the current view and starts a route change view.
func (t *Tracker) StartView(name, url string) string {
	now := t.clock.Now()

	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return ""
	}
	previous := t.current
	next := t.newView(name, url, LoadingRouteChange, now)
	t.current = next
	t.mu.Unlock()

	t.end(previous, now)
	t.created(next)
	return next.id
}

// CurrentViewID returns the id of the current view.
func (t *Tracker) CurrentViewID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return ""
	}
	return t.current.id
}

func (t *Tracker) currentLocation() (string, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return "", ""
	}
	return t.current.name, t.current.url
}

// end stops s and publishes its final state.
func (t *Tracker) end(s *state, at clock.ClocksState) {
	t.mu.Lock()
	initial := s.initial
	s.initial = nil
	pending := s.pending
	s.pending = nil
	t.mu.Unlock()

	if initial != nil {
		initial.Stop()
	}
	schedule.StopAll(pending)

	t.lc.Notify(lifecycle.ViewEnded, lifecycle.ViewEndedEvent{ID: s.id, EndClocks: at})
	t.publish(s, at, false)
}

func (t *Tracker) withView(id string, fn func(s *state)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != nil && t.current.id == id {
		fn(t.current)
	}
}

func (t *Tracker) countEvent(e rumevent.Event) {
	if e.View == nil {
		return
	}

	counted := false
	t.withView(e.View.ID, func(s *state) {
		switch e.Type {
		case rumevent.TypeAction:
			s.counts.Action++
		case rumevent.TypeError:
			s.counts.Error++
		case rumevent.TypeLongTask:
			s.counts.LongTask++
		case rumevent.TypeResource:
			s.counts.Resource++
		default:
			return
		}
		counted = true
	})
	if counted {
		t.scheduleUpdate(e.View.ID)
	}
}

// scheduleUpdate publishes the view at most once per throttle period.
func (t *Tracker) scheduleUpdate(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.current
	if s == nil || s.id != id || s.pending != nil || t.stopped {
		return
	}
	s.pending = t.scheduler.AfterFunc(t.throttle.Std(), func() {
		t.mu.Lock()
		if t.current != s || s.pending == nil {
			t.mu.Unlock()
			return
		}
		s.pending = nil
		t.mu.Unlock()

		t.publish(s, t.clock.Now(), true)
	})
}

func (t *Tracker) publish(s *state, now clock.ClocksState, active bool) {
	t.mu.Lock()
	s.version++
	event := lifecycle.ViewUpdatedEvent{
		ID:          s.id,
		Name:        s.name,
		StartClocks: s.start,
		Payload: rumevent.ViewPayload{
			Name:               s.name,
			URL:                s.url,
			LoadingType:        s.loadingType,
			TimeSpent:          clock.ToServerDuration(clock.Elapsed(s.start.Relative, now.Relative)),
			IsActive:           active,
			DocumentVersion:    s.version,
			InitialViewMetrics: s.metrics.Clone(),
			EventCounts:        s.counts,
		},
	}
	if s.loadEvent != nil {
		loadEvent := *s.loadEvent
		event.Payload.LoadEvent = &loadEvent
	}
	t.mu.Unlock()

	t.lc.Notify(lifecycle.ViewUpdated, event)
}

// Stop ends the current view and detaches from the life cycle. It is
// idempotent.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	current := t.current
	t.mu.Unlock()

	for _, sub := range t.subs {
		sub.Unsubscribe()
	}
	if current != nil {
		t.end(current, t.clock.Now())
	}
}
