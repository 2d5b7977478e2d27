// Package performance wraps the platform performance timeline into
// observables of homogeneous entry batches.
package performance

import (
	"sync"

	"codeberg.org/mutker/rumcollect/internal/errors"
	"codeberg.org/mutker/rumcollect/internal/logger"
	"codeberg.org/mutker/rumcollect/internal/observable"
	"codeberg.org/mutker/rumcollect/internal/schedule"
)

// Observer creates entry observables over one timeline.
type Observer struct {
	timeline     Timeline
	scheduler    schedule.Scheduler
	intakes      []string
	capabilities *Capabilities
	log          logger.Logger
}

func NewObserver(tl Timeline, s schedule.Scheduler, intakes []string) *Observer {
	return &Observer{
		timeline:     tl,
		scheduler:    s,
		intakes:      intakes,
		capabilities: NewCapabilities(tl),
		log:          logger.Component("performance"),
	}
}

func (o *Observer) Timeline() Timeline { return o.timeline }

func (o *Observer) Capabilities() *Capabilities { return o.capabilities }

// Observe returns an observable of non-empty batches of opts.Type entries.
// The platform observer is connected by the first subscriber and
// disconnected after the last one leaves.
//
// A batch delivered while the observer is still connecting, or the first
// batch of a buffered observation, holds entries recorded before the
// observer existed; it is handed over on the next scheduler turn so that
// subscribers never run inside initialization. Later batches are delivered
// synchronously.
func (o *Observer) Observe(opts ObserveOptions) *observable.Observable[[]Entry] {
	return observable.NewLazy(func(notify func([]Entry)) func() {
		var (
			mu           sync.Mutex
			initializing = true
			delivered    bool
			stopped      bool
			deferred     []schedule.Timer
			cleanups     []func()
		)

		deliver := func(batch []Entry) {
			entries := o.filter(opts.Type, batch)
			if len(entries) == 0 {
				return
			}

			mu.Lock()
			if stopped {
				mu.Unlock()
				return
			}
			historical := initializing || (opts.Buffered && !delivered)
			delivered = true
			if historical {
				deferred = append(deferred, schedule.Defer(o.scheduler, func() {
					mu.Lock()
					done := stopped
					mu.Unlock()
					if !done {
						notify(entries)
					}
				}))
				mu.Unlock()
				return
			}
			mu.Unlock()

			notify(entries)
		}

		if disconnect, ok := o.connect(opts, deliver); ok {
			cleanups = append(cleanups, disconnect)
		}
		cleanups = append(cleanups, retainBufferFullListener(o.timeline))

		mu.Lock()
		initializing = false
		mu.Unlock()

		return func() {
			mu.Lock()
			stopped = true
			pending := deferred
			deferred = nil
			mu.Unlock()

			schedule.StopAll(pending...)
			for _, cleanup := range cleanups {
				cleanup()
			}
		}
	})
}

// connect registers the platform observer, falling back to the minimal
// option set when the requested options are rejected.
func (o *Observer) connect(opts ObserveOptions, deliver func([]Entry)) (func(), bool) {
	disconnect, err := o.timeline.Observe(opts, deliver)
	if err == nil {
		return disconnect, true
	}

	if errors.HasCode(err, ErrOptionsRejected) {
		o.log.Debug().
			Str("entry_type", string(opts.Type)).
			Err(err).
			Msg("Observer options rejected, retrying with entry types only")

		disconnect, err = o.timeline.Observe(ObserveOptions{EntryTypes: []EntryType{opts.Type}}, deliver)
		if err == nil {
			return disconnect, true
		}
	}

	o.log.Debug().
		Str("entry_type", string(opts.Type)).
		Err(err).
		Msg("Performance observer unavailable, no entries will be collected")

	return nil, false
}

// filter keeps entries of type t, dropping resources fetched from the
// collector's own intakes.
func (o *Observer) filter(t EntryType, batch []Entry) []Entry {
	entries := make([]Entry, 0, len(batch))
	for _, entry := range batch {
		if entry == nil || entry.EntryType() != t {
			continue
		}
		if resource, ok := entry.(*ResourceTiming); ok && !IsAllowedRequestURL(o.intakes, resource.Name) {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}
