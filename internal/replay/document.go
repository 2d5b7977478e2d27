package replay

import (
	"maps"
	"slices"
	"sync"

	"codeberg.org/mutker/rumcollect/internal/clock"
)

// Document is a scripted page: it loads and hides when told to.
type Document struct {
	mu       sync.Mutex
	complete bool
	hidden   bool
	nextID   int
	onReady  map[int]func()
	onHidden map[int]func(clock.RelativeTime)
}

func NewDocument() *Document {
	return &Document{
		onReady:  make(map[int]func()),
		onHidden: make(map[int]func(clock.RelativeTime)),
	}
}

func (d *Document) RunOnReadyStateComplete(fn func()) func() {
	d.mu.Lock()
	if d.complete {
		d.mu.Unlock()
		fn()
		return func() {}
	}
	id := d.nextID
	d.nextID++
	d.onReady[id] = fn
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.onReady, id)
		d.mu.Unlock()
	}
}

func (d *Document) Hidden() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hidden
}

func (d *Document) OnHidden(fn func(clock.RelativeTime)) func() {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.onHidden[id] = fn
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.onHidden, id)
		d.mu.Unlock()
	}
}

// Load completes the page load. Later calls do nothing.
func (d *Document) Load() {
	d.mu.Lock()
	if d.complete {
		d.mu.Unlock()
		return
	}
	d.complete = true
	callbacks := d.onReady
	d.onReady = make(map[int]func())
	d.mu.Unlock()

	for _, id := range slices.Sorted(maps.Keys(callbacks)) {
		callbacks[id]()
	}
}

// Hide hides the page at the given time.
func (d *Document) Hide(at clock.RelativeTime) {
	d.mu.Lock()
	if d.hidden {
		d.mu.Unlock()
		return
	}
	d.hidden = true
	callbacks := make([]func(clock.RelativeTime), 0, len(d.onHidden))
	for _, id := range slices.Sorted(maps.Keys(d.onHidden)) {
		callbacks = append(callbacks, d.onHidden[id])
	}
	d.mu.Unlock()

	for _, fn := range callbacks {
		fn(at)
	}
}

func (d *Document) Show() {
	d.mu.Lock()
	d.hidden = false
	d.mu.Unlock()
}
