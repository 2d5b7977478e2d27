package replay_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"codeberg.org/mutker/rumcollect/internal/clock"
	"codeberg.org/mutker/rumcollect/internal/collect"
	"codeberg.org/mutker/rumcollect/internal/errors"
	"codeberg.org/mutker/rumcollect/internal/lifecycle"
	"codeberg.org/mutker/rumcollect/internal/performance"
	"codeberg.org/mutker/rumcollect/internal/replay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	records, err := replay.Parse(strings.NewReader(`
# comment
{"at":0,"kind":"load"}

{"at":5,"kind":"view","name":"home","url":"https://example.com/"}
{"at":5,"kind":"request","request":{"kind":"xhr","url":"https://example.com/api","start":1,"duration":3}}
`))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, replay.KindView, records[1].Kind)
	assert.Equal(t, "xhr", records[2].Request.Kind)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  errors.ErrorCode
	}{
		{"malformed", `{"at":`, replay.ErrInvalidRecord},
		{"unknown kind", `{"at":1,"kind":"scroll"}`, replay.ErrUnknownKind},
		{"request without url", `{"at":1,"kind":"request","request":{}}`, replay.ErrInvalidRecord},
		{"action without name", `{"at":1,"kind":"action"}`, replay.ErrInvalidRecord},
		{"negative time", `{"at":-1,"kind":"load"}`, replay.ErrInvalidRecord},
		{"out of order", "{\"at\":5,\"kind\":\"load\"}\n{\"at\":4,\"kind\":\"hidden\"}", replay.ErrOutOfOrder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := replay.Parse(strings.NewReader(tt.input))
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func resource(url string, start float64) *performance.ResourceTiming {
	return &performance.ResourceTiming{Name: url, StartTime: clock.RelativeTime(start)}
}

func TestTimelineDeliversByType(t *testing.T) {
	tl := replay.NewTimeline(0)

	var got [][]performance.Entry
	disconnect, err := tl.Observe(performance.ObserveOptions{Type: performance.EntryPaint}, func(b []performance.Entry) {
		got = append(got, b)
	})
	require.NoError(t, err)

	paint := &performance.PaintTiming{Name: "first-paint", StartTime: 1}
	tl.Record(resource("https://example.com/a", 1), paint)
	require.Len(t, got, 1)
	assert.Equal(t, []performance.Entry{paint}, got[0])

	disconnect()
	tl.Record(&performance.PaintTiming{Name: "first-contentful-paint", StartTime: 2})
	assert.Len(t, got, 1)
	assert.Len(t, tl.EntriesByType(performance.EntryPaint), 2)
}

func TestTimelineBufferedObserveReplaysHistory(t *testing.T) {
	tl := replay.NewTimeline(0)
	tl.Record(&performance.LongTaskTiming{StartTime: 1, Duration: 60})

	calls := 0
	_, err := tl.Observe(performance.ObserveOptions{Type: performance.EntryLongTask, Buffered: true}, func([]performance.Entry) { calls++ })
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	_, err = tl.Observe(performance.ObserveOptions{EntryTypes: []performance.EntryType{performance.EntryLongTask}}, func([]performance.Entry) { calls++ })
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "entry type lists never replay history")
}

func TestTimelineResourceBuffer(t *testing.T) {
	tl := replay.NewTimeline(2)
	tl.Record(resource("https://example.com/a", 1), resource("https://example.com/a", 2))
	tl.Record(resource("https://example.com/a", 3))

	assert.Len(t, tl.ResourcesByName("https://example.com/a"), 2)
	assert.Equal(t, 1, tl.Dropped())

	remove, ok := tl.OnResourceTimingBufferFull(tl.ClearResourceTimings)
	require.True(t, ok)
	defer remove()

	tl.Record(resource("https://example.com/b", 4))
	assert.Empty(t, tl.ResourcesByName("https://example.com/a"))
	assert.Len(t, tl.ResourcesByName("https://example.com/b"), 1)

	first := tl.ResourcesByName("https://example.com/b")[0]
	assert.Same(t, first, tl.ResourcesByName("https://example.com/b")[0])
}

func TestDocument(t *testing.T) {
	doc := replay.NewDocument()

	loaded := 0
	stop := doc.RunOnReadyStateComplete(func() { loaded++ })
	doc.RunOnReadyStateComplete(func() { loaded++ })
	stop()

	doc.Load()
	doc.Load()
	assert.Equal(t, 1, loaded)

	doc.RunOnReadyStateComplete(func() { loaded++ })
	assert.Equal(t, 2, loaded)

	var hiddenAt []clock.RelativeTime
	doc.OnHidden(func(at clock.RelativeTime) { hiddenAt = append(hiddenAt, at) })
	doc.Hide(30)
	doc.Hide(31)
	assert.True(t, doc.Hidden())
	doc.Show()
	doc.Hide(40)
	assert.Equal(t, []clock.RelativeTime{30, 40}, hiddenAt)
}

type target struct {
	calls    []string
	requests []lifecycle.RequestCompleteEvent
	actions  []collect.Action
	errors   []collect.Error
}

func (t *target) StartView(name, _ string) string {
	t.calls = append(t.calls, "view:"+name)
	return name
}

func (t *target) AddAction(a collect.Action) {
	t.calls = append(t.calls, "action:"+a.Name)
	t.actions = append(t.actions, a)
}

func (t *target) AddError(e collect.Error) {
	t.calls = append(t.calls, "error:"+e.Message)
	t.errors = append(t.errors, e)
}

func (t *target) CompleteRequest(req lifecycle.RequestCompleteEvent) {
	t.calls = append(t.calls, "request:"+req.URL)
	t.requests = append(t.requests, req)
}

func (t *target) RenewSession() string {
	t.calls = append(t.calls, "renew")
	return ""
}

func (t *target) Stop() { t.calls = append(t.calls, "stop") }

func TestPlay(t *testing.T) {
	records, err := replay.Parse(strings.NewReader(`
{"at":10,"kind":"entries","entries":[{"entryType":"paint","name":"first-paint","startTime":9},{"entryType":"mark"}]}
{"at":20,"kind":"request","request":{"kind":"xhr","url":"https://example.com/api","method":"POST","status":201,"start":12,"duration":8}}
{"at":25,"kind":"hidden"}
{"at":30,"kind":"action","name":"click"}
{"at":35,"kind":"error","message":"boom","source":"source"}
{"at":40,"kind":"view","name":"next","url":"https://example.com/next"}
{"at":45,"kind":"session_renew"}
{"at":50,"kind":"view_end"}
`))
	require.NoError(t, err)

	player := replay.NewPlayer(time.UnixMilli(2_000), 0)
	tgt := &target{}

	stats, err := player.Play(context.Background(), records, tgt, time.Second)
	require.NoError(t, err)

	assert.Equal(t, replay.Stats{Records: 8, Entries: 1, SkippedEntries: 1, Requests: 1}, stats)
	assert.Equal(t, []string{
		"request:https://example.com/api",
		"action:click",
		"error:boom",
		"view:next",
		"renew",
		"stop",
	}, tgt.calls)

	req := tgt.requests[0]
	assert.Equal(t, lifecycle.RequestXHR, req.Kind)
	assert.Equal(t, clock.ClocksState{Relative: 12, TimeStamp: 2_012}, req.StartClocks)
	assert.Equal(t, clock.Duration(8), req.Duration)

	assert.Equal(t, clock.RelativeTime(30), tgt.actions[0].StartClocks.Relative)
	assert.Equal(t, "source", tgt.errors[0].Source)
	assert.True(t, player.Document().Hidden())
	assert.Len(t, player.Timeline().EntriesByType(performance.EntryPaint), 1)
	assert.Equal(t, time.Duration(1050)*time.Millisecond, player.Scheduler().Elapsed())
}

func TestPlayStopsWhenCanceled(t *testing.T) {
	records := []replay.Record{{At: 1, Kind: replay.KindLoad}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := replay.NewPlayer(time.UnixMilli(0), 0).Play(ctx, records, &target{}, 0)
	assert.True(t, errors.HasCode(err, replay.ErrReplayCanceled))
}
