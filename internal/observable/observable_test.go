package observable_test

import (
	"testing"

	"codeberg.org/mutker/rumcollect/internal/observable"
	"github.com/stretchr/testify/assert"
)

func TestNotifyInSubscriptionOrder(t *testing.T) {
	o := observable.New[int]()
	var got []string

	o.Subscribe(func(v int) { got = append(got, "first") })
	o.Subscribe(func(v int) { got = append(got, "second") })
	o.Notify(1)

	assert.Equal(t, []string{"first", "second"}, got)
}

func TestUnsubscribeDuringNotify(t *testing.T) {
	o := observable.New[int]()
	calls := 0

	var second *observable.Subscription
	o.Subscribe(func(int) { second.Unsubscribe() })
	second = o.Subscribe(func(int) { calls++ })

	o.Notify(1)
	o.Notify(2)

	assert.Equal(t, 0, calls)
	assert.Equal(t, 1, o.Len())
}

func TestLazyStartAndTeardown(t *testing.T) {
	starts, teardowns := 0, 0
	var notify func(string)

	o := observable.NewLazy(func(n func(string)) func() {
		starts++
		notify = n
		return func() { teardowns++ }
	})

	var got []string
	a := o.Subscribe(func(v string) { got = append(got, "a:"+v) })
	b := o.Subscribe(func(v string) { got = append(got, "b:"+v) })
	assert.Equal(t, 1, starts)

	notify("x")
	a.Unsubscribe()
	a.Unsubscribe()
	assert.Equal(t, 0, teardowns)

	b.Unsubscribe()
	assert.Equal(t, 1, teardowns)
	assert.Equal(t, []string{"a:x", "b:x"}, got)

	o.Subscribe(func(string) {})
	assert.Equal(t, 2, starts)
}

func TestNilSubscriptionIsSafe(t *testing.T) {
	var s *observable.Subscription
	assert.NotPanics(t, s.Unsubscribe)
}
