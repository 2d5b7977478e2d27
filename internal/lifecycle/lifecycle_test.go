package lifecycle_test

import (
	"testing"

	"codeberg.org/mutker/rumcollect/internal/lifecycle"
	"github.com/stretchr/testify/assert"
)

func TestNotifyReachesOnlyMatchingKind(t *testing.T) {
	lc := lifecycle.New()
	var created, ended []string

	lifecycle.On(lc, lifecycle.ViewCreated, func(e lifecycle.ViewCreatedEvent) {
		created = append(created, e.ID)
	})
	lifecycle.On(lc, lifecycle.ViewEnded, func(e lifecycle.ViewEndedEvent) {
		ended = append(ended, e.ID)
	})

	lc.Notify(lifecycle.ViewCreated, lifecycle.ViewCreatedEvent{ID: "v1"})
	lc.Notify(lifecycle.ViewEnded, lifecycle.ViewEndedEvent{ID: "v1"})
	lc.Notify(lifecycle.ViewCreated, lifecycle.ViewCreatedEvent{ID: "v2"})

	assert.Equal(t, []string{"v1", "v2"}, created)
	assert.Equal(t, []string{"v1"}, ended)
}

func TestSubscribersRunInOrderAndSynchronously(t *testing.T) {
	lc := lifecycle.New()
	var order []int

	for i := 1; i <= 3; i++ {
		i := i
		lc.Subscribe(lifecycle.SessionRenewed, func(any) { order = append(order, i) })
	}
	lc.Notify(lifecycle.SessionRenewed, lifecycle.SessionRenewedEvent{})

	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestOnIgnoresMismatchedPayload(t *testing.T) {
	lc := lifecycle.New()
	calls := 0
	lifecycle.On(lc, lifecycle.ViewCreated, func(lifecycle.ViewCreatedEvent) { calls++ })

	lc.Notify(lifecycle.ViewCreated, "not a view")
	assert.Equal(t, 0, calls)
}

func TestUnsubscribe(t *testing.T) {
	lc := lifecycle.New()
	calls := 0
	sub := lifecycle.On(lc, lifecycle.ViewEnded, func(lifecycle.ViewEndedEvent) { calls++ })

	lc.Notify(lifecycle.ViewEnded, lifecycle.ViewEndedEvent{})
	sub.Unsubscribe()
	sub.Unsubscribe()
	lc.Notify(lifecycle.ViewEnded, lifecycle.ViewEndedEvent{})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, lc.Subscribers(lifecycle.ViewEnded))
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "view_created", lifecycle.ViewCreated.String())
	assert.Equal(t, "unknown", lifecycle.EventType(99).String())
}
