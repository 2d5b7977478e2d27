package collect

import (
	"codeberg.org/mutker/rumcollect/internal/lifecycle"
	"codeberg.org/mutker/rumcollect/internal/observable"
	"codeberg.org/mutker/rumcollect/internal/performance"
)

// LongTaskThreshold is the minimum duration of a reported long task.
const LongTaskThreshold = 50

// observedTypes are forwarded to the life cycle. Navigation entries are read
// on demand once the document has loaded.
var observedTypes = []performance.ObserveOptions{
	{Type: performance.EntryResource, Buffered: true},
	{Type: performance.EntryLongTask, Buffered: true, DurationThreshold: LongTaskThreshold},
	{Type: performance.EntryPaint, Buffered: true},
	{Type: performance.EntryFirstInput, Buffered: true},
	{Type: performance.EntryLargestContentfulPaint, Buffered: true},
}

// StartPerformanceCollection forwards every observed batch as a
// PerformanceEntriesCollected notification. The returned function
// disconnects all observers.
func StartPerformanceCollection(lc *lifecycle.LifeCycle, obs *performance.Observer) (stop func()) {
	subs := make([]*observable.Subscription, 0, len(observedTypes))
	for _, opts := range observedTypes {
		subs = append(subs, obs.Observe(opts).Subscribe(func(batch []performance.Entry) {
			lc.Notify(lifecycle.PerformanceEntriesCollected, batch)
		}))
	}

	return func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}
}
