package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuffered_SendReceive(t *testing.T) {
	b := NewBuffered[int](2)
	assert.True(t, b.TrySend(1))
	assert.True(t, b.TrySend(2))
	assert.Equal(t, 2, b.Len())

	assert.Equal(t, 1, <-b.Receive())
	assert.Equal(t, 2, <-b.Receive())
	assert.Zero(t, b.Len())
}

func TestBuffered_TrySendDropsWhenFull(t *testing.T) {
	b := NewBuffered[string](1)

	assert.True(t, b.TrySend("a"))
	assert.False(t, b.TrySend("b"))
	assert.Equal(t, "a", <-b.Receive())
}

func TestBuffered_CloseEndsReceive(t *testing.T) {
	b := NewBuffered[int](1)
	assert.True(t, b.TrySend(7))
	b.Close()

	v, ok := <-b.Receive()
	assert.True(t, ok)
	assert.Equal(t, 7, v)

	_, ok = <-b.Receive()
	assert.False(t, ok)
}
