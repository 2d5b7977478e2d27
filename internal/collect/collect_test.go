package collect_test

import (
	"testing"
	"time"

	"codeberg.org/mutker/rumcollect/internal/clock"
	"codeberg.org/mutker/rumcollect/internal/collect"
	"codeberg.org/mutker/rumcollect/internal/lifecycle"
	"codeberg.org/mutker/rumcollect/internal/performance"
	"codeberg.org/mutker/rumcollect/internal/rumevent"
	"codeberg.org/mutker/rumcollect/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*lifecycle.LifeCycle, *schedule.Virtual, *clock.Clock, *[]rumevent.Raw) {
	t.Helper()

	lc := lifecycle.New()
	v := schedule.NewVirtual(time.UnixMilli(5_000))
	var raws []rumevent.Raw
	sub := lifecycle.On(lc, lifecycle.RawEventCollected, func(r rumevent.Raw) { raws = append(raws, r) })
	t.Cleanup(sub.Unsubscribe)
	return lc, v, clock.NewFrom(v.Now), &raws
}

func TestAddAction(t *testing.T) {
	lc, v, clk, raws := setup(t)
	api := collect.NewAPI(lc, clk)

	v.Advance(40 * time.Millisecond)
	ctx := map[string]any{"cart": 3}
	api.AddAction(collect.Action{Name: "checkout", Context: ctx})
	ctx["cart"] = 4

	require.Len(t, *raws, 1)
	raw := (*raws)[0]
	assert.Equal(t, rumevent.TypeAction, raw.Type)
	assert.NotEmpty(t, raw.ID)
	assert.Equal(t, clock.RelativeTime(40), raw.StartTime)
	assert.Equal(t, clock.TimeStamp(5_040), raw.Date)
	assert.Equal(t, rumevent.ActionPayload{Type: collect.ActionCustom, Name: "checkout"}, raw.Payload)
	assert.Equal(t, map[string]any{"cart": 3}, raw.CustomerContext)
}

func TestAddErrorDefaultsToCustomSource(t *testing.T) {
	lc, _, clk, raws := setup(t)
	api := collect.NewAPI(lc, clk)

	at := clk.RelativeToClocks(12)
	api.AddError(collect.Error{Message: "boom", StartClocks: &at})
	api.AddError(collect.Error{Message: "offline", Source: collect.ErrorSourceNetwork})

	require.Len(t, *raws, 2)
	assert.Equal(t, clock.RelativeTime(12), (*raws)[0].StartTime)
	assert.Equal(t, rumevent.ErrorPayload{Message: "boom", Source: collect.ErrorSourceCustom}, (*raws)[0].Payload)
	assert.Equal(t, collect.ErrorSourceNetwork, (*raws)[1].Payload.(rumevent.ErrorPayload).Source)
	assert.NotEqual(t, (*raws)[0].ID, (*raws)[1].ID)
}

func TestViewUpdatesBecomeViewEvents(t *testing.T) {
	lc, _, clk, raws := setup(t)
	sub := collect.StartViewCollection(lc)
	defer sub.Unsubscribe()

	start := clk.RelativeToClocks(0)
	lc.Notify(lifecycle.ViewUpdated, lifecycle.ViewUpdatedEvent{
		ID:          "view-1",
		StartClocks: start,
		Payload:     rumevent.ViewPayload{Name: "home", DocumentVersion: 2},
	})

	require.Len(t, *raws, 1)
	assert.Equal(t, rumevent.TypeView, (*raws)[0].Type)
	assert.Equal(t, "view-1", (*raws)[0].ID)
	assert.Equal(t, start.TimeStamp, (*raws)[0].Date)
	assert.Equal(t, 2, (*raws)[0].Payload.(rumevent.ViewPayload).DocumentVersion)
}

func TestLongTasks(t *testing.T) {
	lc, _, clk, raws := setup(t)
	sub := collect.StartLongTaskCollection(lc, clk)
	defer sub.Unsubscribe()

	lc.Notify(lifecycle.PerformanceEntriesCollected, []performance.Entry{
		&performance.LongTaskTiming{Name: "self", StartTime: 100, Duration: 75.5},
		&performance.PaintTiming{Name: "first-paint", StartTime: 10},
	})

	require.Len(t, *raws, 1)
	assert.Equal(t, rumevent.TypeLongTask, (*raws)[0].Type)
	assert.Equal(t, clock.RelativeTime(100), (*raws)[0].StartTime)
	assert.Equal(t, rumevent.LongTaskPayload{Duration: 75_500_000}, (*raws)[0].Payload)
}

type recordingTimeline struct {
	observers map[performance.EntryType]func([]performance.Entry)
}

func (r *recordingTimeline) Observe(opts performance.ObserveOptions, cb func([]performance.Entry)) (func(), error) {
	r.observers[opts.Type] = cb
	return func() { delete(r.observers, opts.Type) }, nil
}

func (r *recordingTimeline) SupportedEntryTypes() ([]performance.EntryType, bool) { return nil, false }

func (r *recordingTimeline) EntriesByType(performance.EntryType) []performance.Entry { return nil }

func (r *recordingTimeline) ResourcesByName(string) []*performance.ResourceTiming { return nil }

func (r *recordingTimeline) OnResourceTimingBufferFull(func()) (func(), bool) { return nil, false }

func (r *recordingTimeline) ClearResourceTimings() {}

func TestPerformanceCollectionForwardsBatches(t *testing.T) {
	lc, v, _, _ := setup(t)
	tl := &recordingTimeline{observers: make(map[performance.EntryType]func([]performance.Entry))}

	var batches [][]performance.Entry
	lifecycle.On(lc, lifecycle.PerformanceEntriesCollected, func(b []performance.Entry) { batches = append(batches, b) })

	stop := collect.StartPerformanceCollection(lc, performance.NewObserver(tl, v, nil))
	assert.Len(t, tl.observers, 5)

	tl.observers[performance.EntryLongTask]([]performance.Entry{
		&performance.LongTaskTiming{StartTime: 1, Duration: 60},
	})
	assert.Empty(t, batches, "first buffered batch waits a turn")
	v.RunPending()
	require.Len(t, batches, 1)

	tl.observers[performance.EntryLongTask]([]performance.Entry{
		&performance.LongTaskTiming{StartTime: 2, Duration: 60},
	})
	assert.Len(t, batches, 2)

	stop()
	assert.Empty(t, tl.observers)
}
