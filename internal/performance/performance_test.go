package performance_test

import (
	"encoding/json"
	"testing"
	"time"

	"codeberg.org/mutker/rumcollect/internal/clock"
	"codeberg.org/mutker/rumcollect/internal/errors"
	"codeberg.org/mutker/rumcollect/internal/performance"
	"codeberg.org/mutker/rumcollect/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const intake = "https://intake.example.com/api/v2/rum"

type fakeTimeline struct {
	absent         bool
	rejectExtended bool
	supported      []performance.EntryType
	supportedKnown bool
	probes         int

	historical []performance.Entry
	observers  map[int]func([]performance.Entry)
	observed   []performance.ObserveOptions
	nextID     int

	bufferFull map[int]func()
	cleared    int
}

func newFakeTimeline() *fakeTimeline {
	return &fakeTimeline{
		observers:  make(map[int]func([]performance.Entry)),
		bufferFull: make(map[int]func()),
	}
}

func (f *fakeTimeline) Observe(opts performance.ObserveOptions, cb func([]performance.Entry)) (func(), error) {
	if f.absent {
		return nil, errors.New().New(performance.ErrObserverUnsupported)
	}
	if f.rejectExtended && len(opts.EntryTypes) == 0 {
		return nil, errors.New().New(performance.ErrOptionsRejected)
	}
	f.observed = append(f.observed, opts)

	id := f.nextID
	f.nextID++
	f.observers[id] = cb
	if opts.Buffered && len(f.historical) > 0 {
		cb(f.historical)
	}
	return func() { delete(f.observers, id) }, nil
}

func (f *fakeTimeline) SupportedEntryTypes() ([]performance.EntryType, bool) {
	f.probes++
	return f.supported, f.supportedKnown
}

func (f *fakeTimeline) EntriesByType(performance.EntryType) []performance.Entry { return nil }

func (f *fakeTimeline) ResourcesByName(string) []*performance.ResourceTiming { return nil }

func (f *fakeTimeline) OnResourceTimingBufferFull(fn func()) (func(), bool) {
	id := f.nextID
	f.nextID++
	f.bufferFull[id] = fn
	return func() { delete(f.bufferFull, id) }, true
}

func (f *fakeTimeline) ClearResourceTimings() { f.cleared++ }

func (f *fakeTimeline) emit(entries ...performance.Entry) {
	for _, cb := range f.observers {
		cb(entries)
	}
}

func (f *fakeTimeline) fillBuffer() {
	for _, fn := range f.bufferFull {
		fn()
	}
}

func resource(url string, start float64) *performance.ResourceTiming {
	return &performance.ResourceTiming{Name: url, StartTime: clockTime(start)}
}

func clockTime(ms float64) clock.RelativeTime { return clock.RelativeTime(ms) }

func newObserver(tl performance.Timeline) (*performance.Observer, *schedule.Virtual) {
	v := schedule.NewVirtual(time.Unix(0, 0))
	return performance.NewObserver(tl, v, []string{intake}), v
}

func TestObserveDeliversFilteredBatchesSynchronously(t *testing.T) {
	tl := newFakeTimeline()
	obs, _ := newObserver(tl)

	var batches [][]performance.Entry
	sub := obs.Observe(performance.ObserveOptions{Type: performance.EntryResource}).
		Subscribe(func(b []performance.Entry) { batches = append(batches, b) })
	defer sub.Unsubscribe()

	kept := resource("https://example.com/app.js", 10)
	tl.emit(
		kept,
		resource(intake+"?batch=1", 11),
		&performance.PaintTiming{Name: "first-contentful-paint", StartTime: 12},
	)
	tl.emit(resource(intake, 13))

	require.Len(t, batches, 1)
	assert.Equal(t, []performance.Entry{kept}, batches[0])
}

func TestObserveDefersHistoricalBatch(t *testing.T) {
	tl := newFakeTimeline()
	tl.historical = []performance.Entry{resource("https://example.com/a", 1), resource("https://example.com/b", 2)}
	obs, v := newObserver(tl)

	var batches [][]performance.Entry
	sub := obs.Observe(performance.ObserveOptions{Type: performance.EntryResource, Buffered: true}).
		Subscribe(func(b []performance.Entry) { batches = append(batches, b) })
	defer sub.Unsubscribe()

	assert.Empty(t, batches)

	v.RunPending()
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 2)

	tl.emit(resource("https://example.com/c", 3))
	assert.Len(t, batches, 2)
}

func TestObserveDefersFirstBufferedBatchEvenWhenAsynchronous(t *testing.T) {
	tl := newFakeTimeline()
	obs, v := newObserver(tl)

	calls := 0
	sub := obs.Observe(performance.ObserveOptions{Type: performance.EntryPaint, Buffered: true}).
		Subscribe(func([]performance.Entry) { calls++ })
	defer sub.Unsubscribe()

	tl.emit(&performance.PaintTiming{Name: "first-paint", StartTime: 5})
	assert.Equal(t, 0, calls)
	v.RunPending()
	assert.Equal(t, 1, calls)

	tl.emit(&performance.PaintTiming{Name: "first-contentful-paint", StartTime: 6})
	assert.Equal(t, 2, calls)
}

func TestTeardownCancelsDeferredDelivery(t *testing.T) {
	tl := newFakeTimeline()
	tl.historical = []performance.Entry{resource("https://example.com/a", 1)}
	obs, v := newObserver(tl)

	calls := 0
	sub := obs.Observe(performance.ObserveOptions{Type: performance.EntryResource, Buffered: true}).
		Subscribe(func([]performance.Entry) { calls++ })

	sub.Unsubscribe()
	sub.Unsubscribe()
	v.Advance(time.Second)

	assert.Equal(t, 0, calls)
	assert.Empty(t, tl.observers)
}

func TestObserveFallsBackWhenOptionsRejected(t *testing.T) {
	tl := newFakeTimeline()
	tl.rejectExtended = true
	obs, _ := newObserver(tl)

	calls := 0
	sub := obs.Observe(performance.ObserveOptions{Type: performance.EntryLongTask, DurationThreshold: 40}).
		Subscribe(func([]performance.Entry) { calls++ })
	defer sub.Unsubscribe()

	require.Len(t, tl.observed, 1)
	assert.Equal(t, []performance.EntryType{performance.EntryLongTask}, tl.observed[0].EntryTypes)

	tl.emit(&performance.LongTaskTiming{Name: "self", StartTime: 1, Duration: 60})
	assert.Equal(t, 1, calls)
}

func TestObserveWithoutObserverProducesNothing(t *testing.T) {
	tl := newFakeTimeline()
	tl.absent = true
	obs, v := newObserver(tl)

	calls := 0
	sub := obs.Observe(performance.ObserveOptions{Type: performance.EntryResource}).
		Subscribe(func([]performance.Entry) { calls++ })

	tl.emit(resource("https://example.com/a", 1))
	v.Advance(time.Second)
	assert.Equal(t, 0, calls)
	assert.NotPanics(t, sub.Unsubscribe)
}

func TestBufferFullListenerIsShared(t *testing.T) {
	tl := newFakeTimeline()
	obs, _ := newObserver(tl)

	a := obs.Observe(performance.ObserveOptions{Type: performance.EntryResource}).Subscribe(func([]performance.Entry) {})
	b := obs.Observe(performance.ObserveOptions{Type: performance.EntryLongTask}).Subscribe(func([]performance.Entry) {})
	assert.Len(t, tl.bufferFull, 1)

	tl.fillBuffer()
	assert.Equal(t, 1, tl.cleared)

	a.Unsubscribe()
	assert.Len(t, tl.bufferFull, 1)
	b.Unsubscribe()
	assert.Empty(t, tl.bufferFull)
}

func TestCapabilitiesAreCachedAfterSuccessfulProbe(t *testing.T) {
	tl := newFakeTimeline()
	caps := performance.NewCapabilities(tl)

	assert.False(t, caps.SupportsTimingEvent(performance.EntryPaint))
	assert.Equal(t, 1, tl.probes)

	tl.supported = []performance.EntryType{performance.EntryPaint, performance.EntryResource}
	tl.supportedKnown = true
	assert.True(t, caps.SupportsTimingEvent(performance.EntryPaint))
	assert.False(t, caps.SupportsTimingEvent(performance.EntryLayoutShift))
	assert.Equal(t, 2, tl.probes)

	var missing *performance.Capabilities
	assert.False(t, missing.SupportsTimingEvent(performance.EntryPaint))
}

func TestIsAllowedRequestURL(t *testing.T) {
	intakes := []string{intake}

	assert.True(t, performance.IsAllowedRequestURL(intakes, "https://example.com/api"))
	assert.False(t, performance.IsAllowedRequestURL(intakes, intake+"?ddsource=browser"))
	assert.False(t, performance.IsAllowedRequestURL(intakes, ""))
	assert.True(t, performance.IsAllowedRequestURL(nil, "https://example.com"))
}

func TestDecodeEntry(t *testing.T) {
	entry, err := performance.DecodeEntry([]byte(`{
		"entryType": "resource",
		"name": "https://example.com/app.css",
		"initiatorType": "link",
		"startTime": 12.5,
		"duration": 40,
		"responseEnd": 52.5
	}`))
	require.NoError(t, err)

	res, ok := entry.(*performance.ResourceTiming)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/app.css", res.Name)
	assert.Equal(t, clockTime(12.5), res.Start())

	_, err = performance.DecodeEntry([]byte(`{"entryType":"mark"}`))
	assert.True(t, errors.HasCode(err, performance.ErrUnknownEntryType))

	_, err = performance.DecodeEntry([]byte(`not json`))
	assert.True(t, errors.HasCode(err, performance.ErrInvalidEntry))

	entries, skipped := performance.DecodeEntries([]json.RawMessage{
		json.RawMessage(`{"entryType":"paint","name":"first-paint","startTime":3}`),
		json.RawMessage(`{"entryType":"bogus"}`),
	})
	assert.Len(t, entries, 1)
	assert.Equal(t, 1, skipped)
}
