package performance

// ObserveOptions mirror the options of a platform performance observer.
// When EntryTypes is set, Type and Buffered are ignored.
type ObserveOptions struct {
	Type              EntryType
	Buffered          bool
	DurationThreshold float64
	EntryTypes        []EntryType
}

// Timeline is the platform performance timeline.
type Timeline interface {
	// Observe delivers batches of new entries to cb until disconnect is
	// called. It fails with ErrObserverUnsupported when the platform has no
	// observer, and with ErrOptionsRejected when it refuses opts. Buffered
	// entries may be delivered before Observe returns.
	Observe(opts ObserveOptions, cb func([]Entry)) (disconnect func(), err error)

	// SupportedEntryTypes lists the observable entry types. ok is false when
	// the platform cannot tell.
	SupportedEntryTypes() (types []EntryType, ok bool)

	EntriesByType(t EntryType) []Entry

	// ResourcesByName returns the buffered resource entries fetched from url,
	// in timeline order. An entry is the same pointer on every call.
	ResourcesByName(url string) []*ResourceTiming

	// OnResourceTimingBufferFull registers fn for buffer-full signals. ok is
	// false when the platform has no such signal.
	OnResourceTimingBufferFull(fn func()) (remove func(), ok bool)

	ClearResourceTimings()
}
