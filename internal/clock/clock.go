// Package clock keeps two time bases side by side: wall-clock epoch
// milliseconds and a monotonic "relative" time measured from the moment the
// collector started. All internal arithmetic happens in relative time.
package clock

import (
	"math"
	"sync"
	"time"
)

type (
	// RelativeTime is milliseconds elapsed since the clock origin.
	RelativeTime float64
	// TimeStamp is milliseconds since the Unix epoch.
	TimeStamp float64
	// Duration is a span in milliseconds.
	Duration float64
	// ServerDuration is a span in nanoseconds, the unit used when
	// timing breakdowns leave the collector.
	ServerDuration int64
)

const (
	OneSecond Duration = 1000
	OneMinute          = 60 * OneSecond
	OneHour            = 60 * OneMinute
)

// ClocksState pairs both time bases for a single instant.
type ClocksState struct {
	Relative  RelativeTime `json:"relative"`
	TimeStamp TimeStamp    `json:"timestamp"`
}

// Clock converts between the two time bases.
type Clock struct {
	origin   time.Time
	originMs TimeStamp
	now      func() time.Time

	mu   sync.Mutex
	last RelativeTime
}

// New returns a clock anchored at the current instant.
func New() *Clock {
	return NewFrom(time.Now)
}

// NewFrom returns a clock reading instants from now. The origin is the first
// reading; its monotonic component (if any) is what relative time is measured
// against.
func NewFrom(now func() time.Time) *Clock {
	origin := now()
	return &Clock{
		origin:   origin,
		originMs: TimeStamp(origin.UnixNano()) / TimeStamp(time.Millisecond),
		now:      now,
	}
}

// NewAt returns a clock whose origin is origin instead of the first reading
// of now. The platform's own time origin is usually earlier than the moment
// the collector starts.
func NewAt(origin time.Time, now func() time.Time) *Clock {
	return &Clock{
		origin:   origin,
		originMs: TimeStamp(origin.UnixNano()) / TimeStamp(time.Millisecond),
		now:      now,
	}
}

// Origin returns the wall-clock time of the clock origin.
func (c *Clock) Origin() TimeStamp {
	return c.originMs
}

// RelativeNow returns the monotonic time since origin. It never goes
// backwards, even if the underlying source does.
func (c *Clock) RelativeNow() RelativeTime {
	elapsed := RelativeTime(c.now().Sub(c.origin)) / RelativeTime(time.Millisecond)

	c.mu.Lock()
	defer c.mu.Unlock()
	if elapsed < c.last {
		return c.last
	}
	c.last = elapsed
	return elapsed
}

// Now returns both time bases for the current instant from a single reading.
func (c *Clock) Now() ClocksState {
	return c.RelativeToClocks(c.RelativeNow())
}

// RelativeToClocks anchors a relative time to the origin wall-clock time.
func (c *Clock) RelativeToClocks(relative RelativeTime) ClocksState {
	return ClocksState{
		Relative:  relative,
		TimeStamp: c.originMs + TimeStamp(relative),
	}
}

// TimeStampToClocks is the inverse of RelativeToClocks.
func (c *Clock) TimeStampToClocks(ts TimeStamp) ClocksState {
	return ClocksState{
		Relative:  RelativeTime(ts - c.originMs),
		TimeStamp: ts,
	}
}

// ToServerDuration converts milliseconds to rounded nanoseconds.
func ToServerDuration(d Duration) ServerDuration {
	return ServerDuration(math.Round(float64(d) * 1e6))
}

// Elapsed returns end - start.
func Elapsed(start, end RelativeTime) Duration {
	return Duration(end - start)
}

// AddDuration returns t shifted by d.
func AddDuration(t RelativeTime, d Duration) RelativeTime {
	return t + RelativeTime(d)
}

// Std converts to a time.Duration for use with timers.
func (d Duration) Std() time.Duration {
	return time.Duration(float64(d) * float64(time.Millisecond))
}

// FromStd converts a time.Duration to milliseconds.
func FromStd(d time.Duration) Duration {
	return Duration(d) / Duration(time.Millisecond)
}
