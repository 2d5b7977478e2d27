package resource

import (
	"codeberg.org/mutker/rumcollect/internal/clock"
	"codeberg.org/mutker/rumcollect/internal/performance"
	"codeberg.org/mutker/rumcollect/internal/rumevent"
)

// IsValidEntry reports whether the timings of entry can be trusted: none
// negative and every phase in causal order. Cross-origin fetches without a
// Timing-Allow-Origin header report zeroed phases and fail here.
func IsValidEntry(entry *performance.ResourceTiming) bool {
	if entry.StartTime < 0 {
		return false
	}

	inOrder := areInOrder(
		entry.StartTime,
		entry.FetchStart,
		entry.DomainLookupStart,
		entry.DomainLookupEnd,
		entry.ConnectStart,
		entry.ConnectEnd,
		entry.RequestStart,
		entry.ResponseStart,
		entry.ResponseEnd,
	)
	if !inOrder {
		return false
	}

	if hasRedirection(entry) {
		return areInOrder(entry.StartTime, entry.RedirectStart, entry.RedirectEnd, entry.FetchStart)
	}
	return true
}

func hasRedirection(entry *performance.ResourceTiming) bool {
	return entry.RedirectEnd > entry.StartTime
}

func areInOrder(times ...clock.RelativeTime) bool {
	for i := 1; i < len(times); i++ {
		if times[i-1] > times[i] {
			return false
		}
	}
	return true
}

// ComputeDetails breaks entry down into its fetch phases. In strict mode an
// invalid entry yields nil; in tolerant mode only the phases with
// inconsistent bounds are left out. Nil is also returned when no phase can
// be computed.
func ComputeDetails(entry *performance.ResourceTiming, tolerant bool) *rumevent.ResourceDetails {
	if !tolerant && !IsValidEntry(entry) {
		return nil
	}

	origin := entry.StartTime
	details := rumevent.ResourceDetails{
		Download:  formatTiming(origin, entry.ResponseStart, entry.ResponseEnd),
		FirstByte: formatTiming(origin, entry.RequestStart, entry.ResponseStart),
	}

	// no connect phase on a reused connection
	if entry.FetchStart < entry.ConnectEnd {
		details.Connect = formatTiming(origin, entry.ConnectStart, entry.ConnectEnd)

		if entry.ConnectStart <= entry.SecureConnectionStart && entry.SecureConnectionStart <= entry.ConnectEnd {
			details.SSL = formatTiming(origin, entry.SecureConnectionStart, entry.ConnectEnd)
		}
	}

	// no lookup on a cached or persistent connection
	if entry.FetchStart < entry.DomainLookupEnd {
		details.DNS = formatTiming(origin, entry.DomainLookupStart, entry.DomainLookupEnd)
	}

	if hasRedirection(entry) {
		details.Redirect = formatTiming(origin, entry.RedirectStart, entry.RedirectEnd)
	}

	if details.IsEmpty() {
		return nil
	}
	return &details
}

func formatTiming(origin, start, end clock.RelativeTime) *rumevent.Timing {
	if origin > start || start > end {
		return nil
	}
	return &rumevent.Timing{
		Start:    clock.ToServerDuration(clock.Elapsed(origin, start)),
		Duration: clock.ToServerDuration(clock.Elapsed(start, end)),
	}
}

// ComputeDuration returns the fetch duration. Some platforms report a zero
// duration for cross-origin resources, in which case the response end is
// used instead.
func ComputeDuration(entry *performance.ResourceTiming) clock.ServerDuration {
	if entry.Duration == 0 && entry.StartTime < entry.ResponseEnd {
		return clock.ToServerDuration(clock.Elapsed(entry.StartTime, entry.ResponseEnd))
	}
	return clock.ToServerDuration(entry.Duration)
}

// ComputeSize returns the decoded body size when the response was observed.
func ComputeSize(entry *performance.ResourceTiming) *int64 {
	if entry.StartTime < entry.ResponseStart {
		size := entry.DecodedBodySize
		return &size
	}
	return nil
}
