//go:build js && wasm

// Package browser runs the collector against the live page it is loaded in.
package browser

import (
	"syscall/js"
	"time"

	"codeberg.org/mutker/rumcollect/internal/clock"
	"codeberg.org/mutker/rumcollect/internal/rum"
	"codeberg.org/mutker/rumcollect/internal/schedule"
)

// NewClock returns a clock whose relative time is the page's
// performance.now(), so timeline entries need no conversion.
func NewClock() (*clock.Clock, error) {
	perf := js.Global().Get("performance")
	if perf.IsUndefined() || perf.Get("timeOrigin").IsUndefined() {
		return nil, errFactory.WithData(ErrMissingGlobal, "performance.timeOrigin")
	}

	origin := time.UnixMicro(int64(perf.Get("timeOrigin").Float() * 1000))
	return clock.NewAt(origin, func() time.Time {
		return origin.Add(time.Duration(perf.Call("now").Float() * float64(time.Millisecond)))
	}), nil
}

// NewPlatform binds the page to loop. Every collector callback runs on the
// goroutine running loop.
func NewPlatform(loop *schedule.Loop) (rum.Platform, error) {
	clk, err := NewClock()
	if err != nil {
		return rum.Platform{}, err
	}
	timeline, err := NewTimeline(loop.Post)
	if err != nil {
		return rum.Platform{}, err
	}
	doc, err := NewDocument(loop.Post)
	if err != nil {
		return rum.Platform{}, err
	}

	return rum.Platform{
		Timeline:  timeline,
		Document:  doc,
		Scheduler: loop,
		Clock:     clk,
	}, nil
}
