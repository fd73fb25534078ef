package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := New[string]()
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	bus.Publish("hello")
	assert.Equal(t, "hello", <-ch1)
	assert.Equal(t, "hello", <-ch2)
	bus.Unsubscribe(ch1)
	_, ok := <-ch1
	assert.False(t, ok, "unsubscribed channel should be closed")
}

func TestBusClose(t *testing.T) {
	bus := New[int]()
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	bus.Close()
	_, ok := <-ch1
	assert.False(t, ok)
	_, ok = <-ch2
	assert.False(t, ok)

	bus.Publish(1)
	late := bus.Subscribe()
	_, ok = <-late
	assert.False(t, ok, "subscribe after close returns a closed channel")
	bus.Close()
}

func TestBusUnsubscribeAfterClose(t *testing.T) {
	bus := New[float64]()
	ch := bus.Subscribe()
	bus.Close()
	require.NotPanics(t, func() { bus.Unsubscribe(ch) })
}

func TestBusDropsWhenFull(t *testing.T) {
	bus := New[int]()
	ch := bus.SubscribeBuffered(1)
	bus.Publish(1)
	bus.Publish(2)
	assert.Equal(t, 1, <-ch)
	assert.Equal(t, uint64(1), bus.Dropped())
}

func TestBusImplementsEventBus(t *testing.T) {
	var _ EventBus[int] = New[int]()
}
