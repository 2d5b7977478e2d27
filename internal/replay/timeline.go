package replay

import (
	"slices"
	"sync"

	"codeberg.org/mutker/rumcollect/internal/performance"
)

// DefaultResourceBufferSize matches the platform default.
const DefaultResourceBufferSize = 250

type timelineObserver struct {
	types []performance.EntryType
	cb    func([]performance.Entry)
}

// Timeline is an in-memory performance timeline. Entries are added with
// Record and fanned out to observers synchronously.
type Timeline struct {
	mu         sync.Mutex
	supported  []performance.EntryType
	bufferSize int
	entries    []performance.Entry
	resources  []*performance.ResourceTiming
	dropped    int
	observers  map[int]*timelineObserver
	bufferFull map[int]func()
	nextID     int
}

func NewTimeline(bufferSize int) *Timeline {
	if bufferSize <= 0 {
		bufferSize = DefaultResourceBufferSize
	}
	return &Timeline{
		supported: []performance.EntryType{
			performance.EntryEvent,
			performance.EntryFirstInput,
			performance.EntryLargestContentfulPaint,
			performance.EntryLayoutShift,
			performance.EntryLongTask,
			performance.EntryNavigation,
			performance.EntryPaint,
			performance.EntryResource,
		},
		bufferSize: bufferSize,
		observers:  make(map[int]*timelineObserver),
		bufferFull: make(map[int]func()),
	}
}

// Record appends entries to the timeline. A resource arriving on a full
// buffer fires the buffer-full listeners first and is dropped when they do
// not make room.
func (t *Timeline) Record(entries ...performance.Entry) {
	kept := make([]performance.Entry, 0, len(entries))
	for _, entry := range entries {
		if res, ok := entry.(*performance.ResourceTiming); ok && !t.bufferResource(res) {
			continue
		}
		t.mu.Lock()
		t.entries = append(t.entries, entry)
		t.mu.Unlock()
		kept = append(kept, entry)
	}
	t.deliver(kept)
}

func (t *Timeline) bufferResource(res *performance.ResourceTiming) bool {
	t.mu.Lock()
	if len(t.resources) >= t.bufferSize {
		listeners := make([]func(), 0, len(t.bufferFull))
		for _, fn := range t.bufferFull {
			listeners = append(listeners, fn)
		}
		t.mu.Unlock()

		for _, fn := range listeners {
			fn()
		}
		t.mu.Lock()
	}
	defer t.mu.Unlock()

	if len(t.resources) >= t.bufferSize {
		t.dropped++
		return false
	}
	t.resources = append(t.resources, res)
	return true
}

func (t *Timeline) deliver(entries []performance.Entry) {
	if len(entries) == 0 {
		return
	}

	t.mu.Lock()
	ids := make([]int, 0, len(t.observers))
	for id := range t.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	observers := make([]*timelineObserver, 0, len(ids))
	for _, id := range ids {
		observers = append(observers, t.observers[id])
	}
	t.mu.Unlock()

	for _, obs := range observers {
		if batch := obs.matching(entries); len(batch) > 0 {
			obs.cb(batch)
		}
	}
}

func (o *timelineObserver) matching(entries []performance.Entry) []performance.Entry {
	batch := make([]performance.Entry, 0, len(entries))
	for _, entry := range entries {
		if slices.Contains(o.types, entry.EntryType()) {
			batch = append(batch, entry)
		}
	}
	return batch
}

// Observe implements performance.Timeline. Buffered entries are delivered
// before Observe returns.
func (t *Timeline) Observe(opts performance.ObserveOptions, cb func([]performance.Entry)) (func(), error) {
	obs := &timelineObserver{types: opts.EntryTypes, cb: cb}
	buffered := false
	if len(obs.types) == 0 {
		obs.types = []performance.EntryType{opts.Type}
		buffered = opts.Buffered
	}

	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.observers[id] = obs
	var history []performance.Entry
	if buffered {
		history = obs.matching(t.entries)
	}
	t.mu.Unlock()

	if len(history) > 0 {
		cb(history)
	}

	return func() {
		t.mu.Lock()
		delete(t.observers, id)
		t.mu.Unlock()
	}, nil
}

func (t *Timeline) SupportedEntryTypes() ([]performance.EntryType, bool) {
	return slices.Clone(t.supported), true
}

func (t *Timeline) EntriesByType(entryType performance.EntryType) []performance.Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []performance.Entry
	for _, entry := range t.entries {
		if entry.EntryType() == entryType {
			out = append(out, entry)
		}
	}
	return out
}

func (t *Timeline) ResourcesByName(url string) []*performance.ResourceTiming {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []*performance.ResourceTiming
	for _, res := range t.resources {
		if res.Name == url {
			out = append(out, res)
		}
	}
	return out
}

func (t *Timeline) OnResourceTimingBufferFull(fn func()) (func(), bool) {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.bufferFull[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.bufferFull, id)
		t.mu.Unlock()
	}, true
}

// ClearResourceTimings empties the resource buffer. Entries already
// delivered stay in the timeline history.
func (t *Timeline) ClearResourceTimings() {
	t.mu.Lock()
	t.resources = nil
	t.mu.Unlock()
}

// Dropped returns the number of resources lost to a full buffer.
func (t *Timeline) Dropped() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}
