package schedule

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"
)

// Virtual is a manually advanced scheduler. Time only moves inside Advance,
// which runs due callbacks in due order on the calling goroutine.
type Virtual struct {
	mu      sync.Mutex
	base    time.Time
	elapsed time.Duration
	seq     uint64
	queue   timerHeap
}

// NewVirtual returns a scheduler whose clock starts at base.
func NewVirtual(base time.Time) *Virtual {
	return &Virtual{base: base}
}

// Now returns the current virtual instant.
func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.base.Add(v.elapsed)
}

// Elapsed returns how far the clock has moved since base.
func (v *Virtual) Elapsed() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.elapsed
}

// Pending returns the number of live timers.
func (v *Virtual) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	n := 0
	for _, item := range v.queue {
		if !item.stopped.Load() {
			n++
		}
	}
	return n
}

// AfterFunc implements Scheduler.
func (v *Virtual) AfterFunc(d time.Duration, fn func()) Timer {
	return v.push(d, 0, fn)
}

// Every implements Scheduler. Periods below a millisecond are raised to one.
func (v *Virtual) Every(d time.Duration, fn func()) Timer {
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return v.push(d, d, fn)
}

func (v *Virtual) push(d, period time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.seq++
	item := &virtualTimer{
		due:    v.elapsed + d,
		seq:    v.seq,
		period: period,
		fn:     fn,
	}
	heap.Push(&v.queue, item)
	return item
}

// Advance moves the clock forward by d, running every callback that falls
// due on the way, including those scheduled by the callbacks themselves.
func (v *Virtual) Advance(d time.Duration) {
	v.mu.Lock()
	target := v.elapsed + d
	v.mu.Unlock()

	v.AdvanceTo(target)
}

// AdvanceTo moves the clock to the absolute offset target (relative to base).
// Offsets in the past only flush callbacks that are already due.
func (v *Virtual) AdvanceTo(target time.Duration) {
	for {
		v.mu.Lock()
		if target < v.elapsed {
			target = v.elapsed
		}
		if len(v.queue) == 0 || v.queue[0].due > target {
			v.elapsed = target
			v.mu.Unlock()
			return
		}

		item := heap.Pop(&v.queue).(*virtualTimer)
		v.elapsed = item.due
		if item.stopped.Load() {
			v.mu.Unlock()
			continue
		}
		if item.period > 0 {
			v.seq++
			item.due += item.period
			item.seq = v.seq
			heap.Push(&v.queue, item)
		} else {
			item.stopped.Store(true)
		}
		v.mu.Unlock()

		item.fn()
	}
}

// RunPending runs the callbacks already due without moving the clock.
func (v *Virtual) RunPending() {
	v.Advance(0)
}

type virtualTimer struct {
	due     time.Duration
	seq     uint64
	period  time.Duration
	fn      func()
	stopped atomic.Bool
	index   int
}

func (t *virtualTimer) Stop() {
	t.stopped.Store(true)
}

type timerHeap []*virtualTimer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].due == h[j].due {
		return h[i].seq < h[j].seq
	}
	return h[i].due < h[j].due
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	item := x.(*virtualTimer)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
