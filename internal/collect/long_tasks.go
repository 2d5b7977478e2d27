package collect

import (
	"codeberg.org/mutker/rumcollect/internal/clock"
	"codeberg.org/mutker/rumcollect/internal/lifecycle"
	"codeberg.org/mutker/rumcollect/internal/observable"
	"codeberg.org/mutker/rumcollect/internal/performance"
	"codeberg.org/mutker/rumcollect/internal/rumevent"
	"github.com/google/uuid"
)

func StartLongTaskCollection(lc *lifecycle.LifeCycle, clk *clock.Clock) *observable.Subscription {
	return lifecycle.On(lc, lifecycle.PerformanceEntriesCollected, func(entries []performance.Entry) {
		for _, entry := range entries {
			task, ok := entry.(*performance.LongTaskTiming)
			if !ok {
				continue
			}

			start := clk.RelativeToClocks(task.StartTime)
			lc.Notify(lifecycle.RawEventCollected, rumevent.Raw{
				Type:      rumevent.TypeLongTask,
				ID:        uuid.NewString(),
				StartTime: start.Relative,
				Date:      start.TimeStamp,
				Payload: rumevent.LongTaskPayload{
					Duration: clock.ToServerDuration(task.Duration),
				},
			})
		}
	})
}
