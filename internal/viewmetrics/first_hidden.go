package viewmetrics

import (
	"math"
	"sync"

	"codeberg.org/mutker/rumcollect/internal/clock"
)

// FirstHidden records when the page was hidden for the first time. Metrics
// observed after that are not representative of what the user saw.
type FirstHidden struct {
	mu   sync.Mutex
	at   clock.RelativeTime
	stop func()
}

func TrackFirstHidden(doc Document) *FirstHidden {
	fh := &FirstHidden{at: clock.RelativeTime(math.Inf(1))}
	if doc.Hidden() {
		fh.at = 0
		return fh
	}

	var once sync.Once
	stop := doc.OnHidden(func(at clock.RelativeTime) {
		once.Do(func() {
			fh.mu.Lock()
			fh.at = at
			fh.mu.Unlock()
			fh.Stop()
		})
	})

	fh.mu.Lock()
	fired := !math.IsInf(float64(fh.at), 1)
	if !fired {
		fh.stop = stop
	}
	fh.mu.Unlock()

	// hidden while subscribing
	if fired && stop != nil {
		stop()
	}
	return fh
}

// TimeStamp is +Inf while the page has not been hidden.
func (fh *FirstHidden) TimeStamp() clock.RelativeTime {
	fh.mu.Lock()
	defer fh.mu.Unlock()
	return fh.at
}

func (fh *FirstHidden) Stop() {
	fh.mu.Lock()
	stop := fh.stop
	fh.stop = nil
	fh.mu.Unlock()

	if stop != nil {
		stop()
	}
}
