package schedule

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Loop is a single-goroutine task loop. Timer callbacks and posted tasks all
// run on the goroutine calling Run, one after another.
type Loop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}

	done      chan struct{}
	closeOnce sync.Once
}

// NewLoop returns an idle loop; call Run to start processing.
func NewLoop() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Run executes tasks until ctx is cancelled or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case <-l.wake:
			l.drain()
		}
	}
}

func (l *Loop) drain() {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		task := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		select {
		case <-l.done:
			return
		default:
			task()
		}
	}
}

// Post enqueues fn for a later turn. It reports false once the loop is closed.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Close stops the loop; pending tasks are dropped.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
	})
}

type loopTimer struct {
	stopped atomic.Bool
	timer   *time.Timer
	ticker  *time.Ticker
	quit    chan struct{}
}

func (t *loopTimer) Stop() {
	if !t.stopped.CompareAndSwap(false, true) {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	if t.ticker != nil {
		t.ticker.Stop()
		close(t.quit)
	}
}

// AfterFunc implements Scheduler.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	t := &loopTimer{}
	t.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.stopped.CompareAndSwap(false, true) {
				fn()
			}
		})
	})
	return t
}

// Every implements Scheduler.
func (l *Loop) Every(d time.Duration, fn func()) Timer {
	t := &loopTimer{
		ticker: time.NewTicker(d),
		quit:   make(chan struct{}),
	}

	go func() {
		for {
			select {
			case <-t.ticker.C:
				l.Post(func() {
					if !t.stopped.Load() {
						fn()
					}
				})
			case <-t.quit:
				return
			case <-l.done:
				return
			}
		}
	}()

	return t
}
