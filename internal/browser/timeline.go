//go:build js && wasm

package browser

import (
	"sync"
	"sync/atomic"
	"syscall/js"

	"codeberg.org/mutker/rumcollect/internal/clock"
	"codeberg.org/mutker/rumcollect/internal/logger"
	"codeberg.org/mutker/rumcollect/internal/performance"
)

// Poster hands a task to the collector's loop.
type Poster func(fn func()) bool

type resourceKey struct {
	name       string
	start      clock.RelativeTime
	responseAt clock.RelativeTime
}

// Timeline is the page's performance timeline, read through the
// PerformanceObserver and performance globals. Observer callbacks are posted
// to the loop rather than run on the JS callback.
type Timeline struct {
	perf     js.Value
	observer js.Value
	post     Poster
	log      logger.Logger

	mu        sync.Mutex
	resources map[resourceKey]*performance.ResourceTiming
}

func NewTimeline(post Poster) (*Timeline, error) {
	perf := js.Global().Get("performance")
	if perf.IsUndefined() {
		return nil, errFactory.WithData(ErrMissingGlobal, "performance")
	}
	return &Timeline{
		perf:      perf,
		observer:  js.Global().Get("PerformanceObserver"),
		post:      post,
		log:       logger.Component("browser"),
		resources: make(map[resourceKey]*performance.ResourceTiming),
	}, nil
}

// intern returns the pointer already handed out for the same resource entry,
// so that repeated lookups agree on identity.
func (t *Timeline) intern(entries []performance.Entry) []performance.Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, e := range entries {
		r, ok := e.(*performance.ResourceTiming)
		if !ok {
			continue
		}
		key := resourceKey{name: r.Name, start: r.StartTime, responseAt: r.ResponseEnd}
		if known, ok := t.resources[key]; ok {
			entries[i] = known
			continue
		}
		t.resources[key] = r
	}
	return entries
}

func (t *Timeline) decode(list js.Value) []performance.Entry {
	entries, skipped := decodeEntries(list)
	if skipped > 0 {
		t.log.Debug().Int("skipped", skipped).Msg("Skipped unsupported timeline entries")
	}
	return t.intern(entries)
}

func (t *Timeline) Observe(opts performance.ObserveOptions, cb func([]performance.Entry)) (func(), error) {
	if t.observer.IsUndefined() {
		return nil, errFactory.New(performance.ErrObserverUnsupported)
	}

	var stopped atomic.Bool
	handler := js.FuncOf(func(_ js.Value, args []js.Value) any {
		entries := t.decode(args[0].Call("getEntries"))
		if len(entries) == 0 {
			return nil
		}
		t.post(func() {
			if !stopped.Load() {
				cb(entries)
			}
		})
		return nil
	})

	init := map[string]any{}
	if len(opts.EntryTypes) > 0 {
		types := make([]any, len(opts.EntryTypes))
		for i, et := range opts.EntryTypes {
			types[i] = string(et)
		}
		init["entryTypes"] = types
	} else {
		init["type"] = string(opts.Type)
		init["buffered"] = opts.Buffered
	}
	if opts.DurationThreshold > 0 {
		init["durationThreshold"] = opts.DurationThreshold
	}

	observer := t.observer.New(handler)
	if _, err := call(observer, "observe", js.ValueOf(init)); err != nil {
		handler.Release()
		return nil, errFactory.Wrap(performance.ErrOptionsRejected, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			stopped.Store(true)
			observer.Call("disconnect")
			handler.Release()
		})
	}, nil
}

func (t *Timeline) SupportedEntryTypes() ([]performance.EntryType, bool) {
	if t.observer.IsUndefined() {
		return nil, false
	}
	supported := t.observer.Get("supportedEntryTypes")
	if supported.IsUndefined() {
		return nil, false
	}

	types := make([]performance.EntryType, supported.Length())
	for i := range types {
		types[i] = performance.EntryType(supported.Index(i).String())
	}
	return types, true
}

func (t *Timeline) EntriesByType(et performance.EntryType) []performance.Entry {
	if t.perf.Get("getEntriesByType").IsUndefined() {
		return nil
	}
	return t.decode(t.perf.Call("getEntriesByType", string(et)))
}

func (t *Timeline) ResourcesByName(url string) []*performance.ResourceTiming {
	if t.perf.Get("getEntriesByName").IsUndefined() {
		return nil
	}

	entries := t.decode(t.perf.Call("getEntriesByName", url, string(performance.EntryResource)))
	resources := make([]*performance.ResourceTiming, 0, len(entries))
	for _, e := range entries {
		if r, ok := e.(*performance.ResourceTiming); ok {
			resources = append(resources, r)
		}
	}
	return resources
}

func (t *Timeline) OnResourceTimingBufferFull(fn func()) (func(), bool) {
	if t.perf.Get("addEventListener").IsUndefined() {
		return nil, false
	}

	handler := js.FuncOf(func(js.Value, []js.Value) any {
		t.post(fn)
		return nil
	})
	t.perf.Call("addEventListener", "resourcetimingbufferfull", handler)

	var once sync.Once
	return func() {
		once.Do(func() {
			t.perf.Call("removeEventListener", "resourcetimingbufferfull", handler)
			handler.Release()
		})
	}, true
}

func (t *Timeline) ClearResourceTimings() {
	if !t.perf.Get("clearResourceTimings").IsUndefined() {
		t.perf.Call("clearResourceTimings")
	}

	t.mu.Lock()
	clear(t.resources)
	t.mu.Unlock()
}
