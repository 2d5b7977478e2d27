package resource_test

import (
	"testing"

	"codeberg.org/mutker/rumcollect/internal/clock"
	"codeberg.org/mutker/rumcollect/internal/lifecycle"
	"codeberg.org/mutker/rumcollect/internal/performance"
	"codeberg.org/mutker/rumcollect/internal/resource"
	"codeberg.org/mutker/rumcollect/internal/rumevent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const intakeURL = "https://intake.example.com/v1/input"

func startCollection(t *testing.T, tl *bufferTimeline) (*lifecycle.LifeCycle, *[]rumevent.Raw) {
	t.Helper()

	lc := lifecycle.New()
	var raws []rumevent.Raw
	lifecycle.On(lc, lifecycle.RawEventCollected, func(r rumevent.Raw) { raws = append(raws, r) })

	c := resource.StartCollection(lc, resource.NewMatcher(tl, false, nil), fixedClock(1000), []string{intakeURL})
	t.Cleanup(c.Stop)
	return lc, &raws
}

func TestRequestWithMatchingTiming(t *testing.T) {
	tl := &bufferTimeline{}
	entry := validEntry(fakeURL, 101, 50)
	entry.ResponseStart = 120
	entry.DecodedBodySize = 512
	tl.add(entry)
	lc, raws := startCollection(t, tl)

	lc.Notify(lifecycle.RequestCompleted, request(100, 500))

	require.Len(t, *raws, 1)
	raw := (*raws)[0]
	assert.Equal(t, rumevent.TypeResource, raw.Type)
	assert.NotEmpty(t, raw.ID)
	assert.Equal(t, clock.RelativeTime(101), raw.StartTime)
	assert.Equal(t, clock.TimeStamp(1101), raw.Date)

	payload, ok := raw.Payload.(rumevent.ResourcePayload)
	require.True(t, ok)
	assert.Equal(t, "fetch", payload.Type)
	assert.Equal(t, "GET", payload.Method)
	assert.Equal(t, 200, payload.Status)
	assert.Equal(t, clock.ServerDuration(50e6), payload.Duration)
	require.NotNil(t, payload.Size)
	assert.Equal(t, int64(512), *payload.Size)
	assert.NotNil(t, payload.Details)
}

func TestRequestWithoutTimingKeepsRequestClocks(t *testing.T) {
	lc, raws := startCollection(t, &bufferTimeline{})

	req := request(100, 500)
	req.Kind = lifecycle.RequestXHR
	req.StartClocks = clock.ClocksState{Relative: 100, TimeStamp: 1100}
	lc.Notify(lifecycle.RequestCompleted, req)

	require.Len(t, *raws, 1)
	payload := (*raws)[0].Payload.(rumevent.ResourcePayload)
	assert.Equal(t, "xhr", payload.Type)
	assert.Equal(t, clock.ServerDuration(500e6), payload.Duration)
	assert.Nil(t, payload.Details)
	assert.Equal(t, clock.TimeStamp(1100), (*raws)[0].Date)
}

func TestRequestsToIntakeAreIgnored(t *testing.T) {
	lc, raws := startCollection(t, &bufferTimeline{})

	req := request(100, 500)
	req.URL = intakeURL + "?batch_time=1"
	lc.Notify(lifecycle.RequestCompleted, req)

	assert.Empty(t, *raws)
}

func TestTimelineResourcesBecomeEvents(t *testing.T) {
	lc, raws := startCollection(t, &bufferTimeline{})

	image := completeTiming(func(e *performance.ResourceTiming) {
		e.Name, e.InitiatorType = "https://example.com/logo.png", "img"
	})
	xhr := completeTiming(func(e *performance.ResourceTiming) {
		e.Name, e.InitiatorType = "https://example.com/api", "xmlhttprequest"
	})
	lc.Notify(lifecycle.PerformanceEntriesCollected, []performance.Entry{
		image,
		xhr,
		&performance.LongTaskTiming{StartTime: 5, Duration: 60},
	})

	require.Len(t, *raws, 1)
	payload := (*raws)[0].Payload.(rumevent.ResourcePayload)
	assert.Equal(t, "image", payload.Type)
	assert.Equal(t, "https://example.com/logo.png", payload.URL)
	assert.Equal(t, clock.RelativeTime(10), (*raws)[0].StartTime)
}

func TestDataURLsAreTruncated(t *testing.T) {
	lc, raws := startCollection(t, &bufferTimeline{})

	lc.Notify(lifecycle.PerformanceEntriesCollected, []performance.Entry{
		completeTiming(func(e *performance.ResourceTiming) {
			e.Name, e.InitiatorType = "data:image/png;base64,iVBORw0KGgo=", "img"
		}),
	})

	require.Len(t, *raws, 1)
	assert.Equal(t, "data:image/png;base64", (*raws)[0].Payload.(rumevent.ResourcePayload).URL)
}

func TestStopUnsubscribes(t *testing.T) {
	lc := lifecycle.New()
	c := resource.StartCollection(lc, resource.NewMatcher(&bufferTimeline{}, false, nil), fixedClock(0), nil)

	c.Stop()
	c.Stop()
	assert.Equal(t, 0, lc.Subscribers(lifecycle.RequestCompleted))
	assert.Equal(t, 0, lc.Subscribers(lifecycle.PerformanceEntriesCollected))
}
