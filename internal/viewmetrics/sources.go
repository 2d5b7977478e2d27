package viewmetrics

import (
	"math"

	"codeberg.org/mutker/rumcollect/internal/clock"
	"codeberg.org/mutker/rumcollect/internal/lifecycle"
	"codeberg.org/mutker/rumcollect/internal/performance"
	"codeberg.org/mutker/rumcollect/internal/rumevent"
	"codeberg.org/mutker/rumcollect/internal/schedule"
)

const (
	// FCPMaximumDelay and LCPMaximumDelay bound the paints worth reporting;
	// later ones come from pages left open in the background.
	FCPMaximumDelay = 10 * clock.OneMinute
	LCPMaximumDelay = 10 * clock.OneMinute

	firstContentfulPaint = "first-contentful-paint"
)

// trackNavigationTimings reports the navigation milestones a turn after the
// load event, so that loadEventEnd is set. Incomplete navigations are
// dropped.
func trackNavigationTimings(
	tl performance.Timeline,
	caps *performance.Capabilities,
	doc Document,
	s schedule.Scheduler,
	clk *clock.Clock,
	callback func(rumevent.NavigationTimings),
) (stop func()) {
	var timer schedule.Timer
	stopReady := doc.RunOnReadyStateComplete(func() {
		timer = schedule.Defer(s, func() {
			if !caps.SupportsTimingEvent(performance.EntryNavigation) {
				return
			}
			for _, e := range tl.EntriesByType(performance.EntryNavigation) {
				entry, ok := e.(*performance.NavigationTiming)
				if !ok {
					continue
				}
				if entry.LoadEventEnd <= 0 {
					return
				}
				callback(processNavigationEntry(entry, clk.RelativeNow()))
				return
			}
		})
	})

	return func() {
		stopReady()
		schedule.StopAll(timer)
	}
}

func processNavigationEntry(entry *performance.NavigationTiming, now clock.RelativeTime) rumevent.NavigationTimings {
	timings := rumevent.NavigationTimings{
		DomComplete:      clock.Duration(entry.DomComplete),
		DomContentLoaded: clock.Duration(entry.DomContentLoadedEventEnd),
		DomInteractive:   clock.Duration(entry.DomInteractive),
		LoadEvent:        clock.Duration(entry.LoadEventEnd),
	}
	// some platforms report a negative or future response start
	if entry.ResponseStart >= 0 && entry.ResponseStart <= now {
		firstByte := clock.Duration(entry.ResponseStart)
		timings.FirstByte = &firstByte
	}
	return timings
}

// trackFirstContentfulPaint reports the first contentful paint once.
func trackFirstContentfulPaint(lc *lifecycle.LifeCycle, firstHidden *FirstHidden, callback func(clock.Duration)) (stop func()) {
	reported := false
	sub := lifecycle.On(lc, lifecycle.PerformanceEntriesCollected, func(entries []performance.Entry) {
		if reported {
			return
		}
		for _, e := range entries {
			paint, ok := e.(*performance.PaintTiming)
			if !ok || paint.Name != firstContentfulPaint {
				continue
			}
			if paint.StartTime >= firstHidden.TimeStamp() || clock.Duration(paint.StartTime) >= FCPMaximumDelay {
				continue
			}
			reported = true
			callback(clock.Duration(paint.StartTime))
			return
		}
	})
	return sub.Unsubscribe
}

// trackFirstInput reports the first input once.
func trackFirstInput(lc *lifecycle.LifeCycle, firstHidden *FirstHidden, callback func(rumevent.FirstInput)) (stop func()) {
	reported := false
	sub := lifecycle.On(lc, lifecycle.PerformanceEntriesCollected, func(entries []performance.Entry) {
		if reported {
			return
		}
		for _, e := range entries {
			input, ok := e.(*performance.FirstInputTiming)
			if !ok || input.StartTime >= firstHidden.TimeStamp() {
				continue
			}
			reported = true
			callback(rumevent.FirstInput{
				Delay:          max(clock.Elapsed(input.StartTime, input.ProcessingStart), 0),
				Time:           input.StartTime,
				TargetSelector: input.TargetSelector,
			})
			return
		}
	})
	return sub.Unsubscribe
}

// trackLargestContentfulPaint reports every new largest contentful paint
// candidate until the user first interacts with the page. Candidates
// painted after the first input are ignored.
func trackLargestContentfulPaint(lc *lifecycle.LifeCycle, firstHidden *FirstHidden, callback func(rumevent.LargestContentfulPaint)) (stop func()) {
	firstInteraction := clock.RelativeTime(math.Inf(1))
	sub := lifecycle.On(lc, lifecycle.PerformanceEntriesCollected, func(entries []performance.Entry) {
		for _, e := range entries {
			if input, ok := e.(*performance.FirstInputTiming); ok && input.StartTime < firstInteraction {
				firstInteraction = input.StartTime
			}
		}

		var last *performance.LargestContentfulPaint
		for _, e := range entries {
			lcp, ok := e.(*performance.LargestContentfulPaint)
			if !ok {
				continue
			}
			if lcp.StartTime >= firstInteraction ||
				lcp.StartTime >= firstHidden.TimeStamp() ||
				clock.Duration(lcp.StartTime) >= LCPMaximumDelay {
				continue
			}
			last = lcp
		}
		if last != nil {
			callback(rumevent.LargestContentfulPaint{
				Value:          last.StartTime,
				TargetSelector: last.TargetSelector,
			})
		}
	})
	return sub.Unsubscribe
}
