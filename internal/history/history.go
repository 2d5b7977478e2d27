// Package history keeps a time-indexed ledger of values, each live over a
// half-open interval of relative time.
package history

import (
	"math"
	"sync"

	"codeberg.org/mutker/rumcollect/internal/clock"
	"codeberg.org/mutker/rumcollect/internal/schedule"
)

const (
	// DefaultTimeout matches the session expiry: nothing can be attributed
	// to an older interval anyway.
	DefaultTimeout       = 4 * clock.OneHour
	DefaultClearInterval = clock.OneMinute
)

var openEnd = clock.RelativeTime(math.Inf(1))

type Config struct {
	// Timeout is how long a closed interval is kept after its end.
	Timeout clock.Duration
	// ClearInterval is the period of the eviction sweep.
	ClearInterval clock.Duration
}

func DefaultConfig() Config {
	return Config{
		Timeout:       DefaultTimeout,
		ClearInterval: DefaultClearInterval,
	}
}

type entry[T any] struct {
	value T
	start clock.RelativeTime
	end   clock.RelativeTime
}

func (e *entry[T]) isOpen() bool { return e.end == openEnd }

func (e *entry[T]) contains(at clock.RelativeTime) bool {
	return e.start <= at && at < e.end
}

// ValueHistory stores intervals in insertion order. Lookups scan from the
// most recent one, so among overlapping intervals the last added wins.
type ValueHistory[T any] struct {
	mu      sync.Mutex
	entries []*entry[T]
	timeout clock.Duration
	now     func() clock.RelativeTime
	onEvict func(n int)
	sweep   schedule.Timer
}

// New starts a history whose eviction sweep runs on s every
// cfg.ClearInterval, until Stop.
func New[T any](s schedule.Scheduler, now func() clock.RelativeTime, cfg Config) *ValueHistory[T] {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ClearInterval <= 0 {
		cfg.ClearInterval = DefaultClearInterval
	}

	h := &ValueHistory[T]{
		timeout: cfg.Timeout,
		now:     now,
	}
	h.sweep = s.Every(cfg.ClearInterval.Std(), h.clearOld)
	return h
}

// OnEvict registers fn to be told how many intervals each sweep removed.
func (h *ValueHistory[T]) OnEvict(fn func(n int)) {
	h.mu.Lock()
	h.onEvict = fn
	h.mu.Unlock()
}

// Add appends an open interval starting at start. Intervals that are still
// open are left alone.
func (h *ValueHistory[T]) Add(value T, start clock.RelativeTime) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, &entry[T]{value: value, start: start, end: openEnd})
}

// CloseActive ends the most recently added open interval at end. It reports
// false when no interval is open.
func (h *ValueHistory[T]) CloseActive(end clock.RelativeTime) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := len(h.entries) - 1; i >= 0; i-- {
		if e := h.entries[i]; e.isOpen() {
			e.end = end
			return true
		}
	}
	return false
}

// Find returns the value live at at.
func (h *ValueHistory[T]) Find(at clock.RelativeTime) (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := len(h.entries) - 1; i >= 0; i-- {
		if e := h.entries[i]; e.contains(at) {
			return e.value, true
		}
	}
	var zero T
	return zero, false
}

// Current returns the value of the most recently added open interval.
func (h *ValueHistory[T]) Current() (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := len(h.entries) - 1; i >= 0; i-- {
		if e := h.entries[i]; e.isOpen() {
			return e.value, true
		}
	}
	var zero T
	return zero, false
}

// UpdateAt replaces the value live at at with the result of fn. It reports
// false when no interval contains at.
func (h *ValueHistory[T]) UpdateAt(at clock.RelativeTime, fn func(T) T) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := len(h.entries) - 1; i >= 0; i-- {
		if e := h.entries[i]; e.contains(at) {
			e.value = fn(e.value)
			return true
		}
	}
	return false
}

// Reset forgets every interval, the open one included.
func (h *ValueHistory[T]) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
}

func (h *ValueHistory[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Stop cancels the eviction sweep. It is idempotent.
func (h *ValueHistory[T]) Stop() {
	h.sweep.Stop()
}

// clearOld removes closed intervals that ended more than the timeout ago.
// Open intervals are kept whatever their age.
func (h *ValueHistory[T]) clearOld() {
	cutoff := clock.AddDuration(h.now(), -h.timeout)

	h.mu.Lock()
	kept := h.entries[:0]
	for _, e := range h.entries {
		if e.isOpen() || e.end >= cutoff {
			kept = append(kept, e)
		}
	}
	evicted := len(h.entries) - len(kept)
	for i := len(kept); i < len(h.entries); i++ {
		h.entries[i] = nil
	}
	h.entries = kept
	onEvict := h.onEvict
	h.mu.Unlock()

	if evicted > 0 && onEvict != nil {
		onEvict(evicted)
	}
}
