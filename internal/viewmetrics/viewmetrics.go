// Package viewmetrics merges the timing signals only the initial view of a
// page load has into a single record.
package viewmetrics

import (
	"sync"

	"codeberg.org/mutker/rumcollect/internal/clock"
	"codeberg.org/mutker/rumcollect/internal/lifecycle"
	"codeberg.org/mutker/rumcollect/internal/performance"
	"codeberg.org/mutker/rumcollect/internal/rumevent"
	"codeberg.org/mutker/rumcollect/internal/schedule"
)

// Sources are the collaborators the metrics are read from.
type Sources struct {
	LifeCycle    *lifecycle.LifeCycle
	Timeline     performance.Timeline
	Capabilities *performance.Capabilities
	Document     Document
	Scheduler    schedule.Scheduler
	Clock        *clock.Clock
}

// Tracker accumulates initial view metrics. Every source fills its own
// field; each change is reported with a snapshot of the whole record.
type Tracker struct {
	mu       sync.Mutex
	metrics  rumevent.InitialViewMetrics
	stopped  bool
	onUpdate func(rumevent.InitialViewMetrics)
	stops    []func()
}

// TrackInitialViewMetrics starts every source. setLoadEvent receives the
// load event timing once navigation timings are known.
func TrackInitialViewMetrics(src Sources, setLoadEvent func(clock.Duration), onUpdate func(rumevent.InitialViewMetrics)) *Tracker {
	t := &Tracker{onUpdate: onUpdate}

	firstHidden := TrackFirstHidden(src.Document)

	stopNavigation := trackNavigationTimings(src.Timeline, src.Capabilities, src.Document, src.Scheduler, src.Clock,
		func(timings rumevent.NavigationTimings) {
			t.update(func(m *rumevent.InitialViewMetrics) bool {
				if m.NavigationTimings != nil {
					return false
				}
				m.NavigationTimings = &timings
				return true
			}, func() {
				if setLoadEvent != nil {
					setLoadEvent(timings.LoadEvent)
				}
			})
		})

	stopFCP := trackFirstContentfulPaint(src.LifeCycle, firstHidden, func(fcp clock.Duration) {
		t.update(func(m *rumevent.InitialViewMetrics) bool {
			if m.FirstContentfulPaint != nil {
				return false
			}
			m.FirstContentfulPaint = &fcp
			return true
		}, nil)
	})

	stopFirstInput := trackFirstInput(src.LifeCycle, firstHidden, func(fi rumevent.FirstInput) {
		t.update(func(m *rumevent.InitialViewMetrics) bool {
			if m.FirstInput != nil {
				return false
			}
			m.FirstInput = &fi
			return true
		}, nil)
	})

	stopLCP := trackLargestContentfulPaint(src.LifeCycle, firstHidden, func(lcp rumevent.LargestContentfulPaint) {
		t.update(func(m *rumevent.InitialViewMetrics) bool {
			if m.LargestContentfulPaint != nil && *m.LargestContentfulPaint == lcp {
				return false
			}
			m.LargestContentfulPaint = &lcp
			return true
		}, nil)
	})

	t.stops = []func(){stopNavigation, stopFCP, stopFirstInput, stopLCP, firstHidden.Stop}
	return t
}

// update applies change and, when it modified the record, runs before and
// reports the new snapshot.
func (t *Tracker) update(change func(*rumevent.InitialViewMetrics) bool, before func()) {
	t.mu.Lock()
	if t.stopped || !change(&t.metrics) {
		t.mu.Unlock()
		return
	}
	snapshot := t.metrics.Clone()
	t.mu.Unlock()

	if before != nil {
		before()
	}
	if t.onUpdate != nil {
		t.onUpdate(snapshot)
	}
}

// Metrics returns a snapshot of the record.
func (t *Tracker) Metrics() rumevent.InitialViewMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.metrics.Clone()
}

// Stop detaches every source. No update is reported afterwards. Stop is
// idempotent.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	stops := t.stops
	t.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
}
