// Package observable implements a small synchronous publish/subscribe
// primitive. Subscribers are called in subscription order on the notifying
// goroutine.
package observable

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Subscription removes a subscriber. Unsubscribe is idempotent and safe on a
// nil receiver.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// NewSubscription wraps cancel so that it runs at most once.
func NewSubscription(cancel func()) *Subscription {
	return &Subscription{cancel: cancel}
}

func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

type observer[T any] struct {
	fn      func(T)
	removed atomic.Bool
}

// Observable fans values out to subscribers. A lazy observable runs its
// start function when the first subscriber arrives and the returned teardown
// when the last one leaves.
type Observable[T any] struct {
	mu        sync.Mutex
	observers []*observer[T]
	start     func(notify func(T)) (teardown func())
	teardown  func()
	running   bool
}

// New returns an observable without producer lifecycle.
func New[T any]() *Observable[T] {
	return &Observable[T]{}
}

// NewLazy returns an observable whose producer is started by the first
// subscription and torn down after the last unsubscription.
func NewLazy[T any](start func(notify func(T)) (teardown func())) *Observable[T] {
	return &Observable[T]{start: start}
}

// Subscribe registers fn.
func (o *Observable[T]) Subscribe(fn func(T)) *Subscription {
	obs := &observer[T]{fn: fn}

	o.mu.Lock()
	o.observers = append(o.observers, obs)
	startNow := o.start != nil && !o.running
	if startNow {
		o.running = true
	}
	o.mu.Unlock()

	if startNow {
		teardown := o.start(o.Notify)
		o.mu.Lock()
		if o.running {
			o.teardown = teardown
			teardown = nil
		}
		o.mu.Unlock()
		// every subscriber left while the producer was starting
		if teardown != nil {
			teardown()
		}
	}

	return NewSubscription(func() { o.remove(obs) })
}

func (o *Observable[T]) remove(obs *observer[T]) {
	obs.removed.Store(true)

	o.mu.Lock()
	o.observers = slices.DeleteFunc(o.observers, func(candidate *observer[T]) bool {
		return candidate == obs
	})
	var teardown func()
	if len(o.observers) == 0 && o.running {
		teardown = o.teardown
		o.teardown = nil
		o.running = false
	}
	o.mu.Unlock()

	if teardown != nil {
		teardown()
	}
}

// Notify delivers v to every current subscriber, in subscription order.
func (o *Observable[T]) Notify(v T) {
	o.mu.Lock()
	snapshot := slices.Clone(o.observers)
	o.mu.Unlock()

	for _, obs := range snapshot {
		if !obs.removed.Load() {
			obs.fn(v)
		}
	}
}

// Len returns the number of subscribers.
func (o *Observable[T]) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.observers)
}
