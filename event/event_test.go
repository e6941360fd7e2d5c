package event_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nabbar/netcore/event"
)

func TestPublishCallsSubscribersInOrder(t *testing.T) {
	var b event.Bus[int]
	var order []int

	b.Subscribe(func(v int) { order = append(order, v*10) })
	b.Subscribe(func(v int) { order = append(order, v*100) })

	b.Publish(1)

	require.Equal(t, []int{10, 100}, order)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	var b event.Bus[string]
	var received []string

	sub := b.Subscribe(func(v string) { received = append(received, v) })
	b.Publish("first")
	b.Unsubscribe(sub)
	b.Publish("second")

	require.Equal(t, []string{"first"}, received)
}

func TestLenReflectsSubscriberCount(t *testing.T) {
	var b event.Bus[int]
	require.Equal(t, 0, b.Len())

	sub := b.Subscribe(func(int) {})
	require.Equal(t, 1, b.Len())

	b.Unsubscribe(sub)
	require.Equal(t, 0, b.Len())
}
