package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeakyQueue_DropsOldestWhenFull(t *testing.T) {
	q := newLeakyQueue(2)
	q.Push([]byte("a"))
	q.Push([]byte("b"))
	q.Push([]byte("c")) // drops "a"

	first, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "b", string(first))

	second, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "c", string(second))

	assert.Equal(t, 1, q.Drops())
	assert.Equal(t, 0, q.Drops(), "counter resets after read")
}

func TestLeakyQueue_PopAfterCloseReturnsFalse(t *testing.T) {
	q := newLeakyQueue(4)
	q.Close()
	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestBlockingQueue_FIFOOrder(t *testing.T) {
	q := newBlockingQueue(4)
	q.Push([]byte("1"))
	q.Push([]byte("2"))

	first, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "1", string(first))

	second, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "2", string(second))
}

func TestBlockingQueue_PopAfterCloseDrainsThenFalse(t *testing.T) {
	q := newBlockingQueue(4)
	q.Push([]byte("x"))
	q.Close()

	first, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "x", string(first))

	_, ok = q.Pop()
	assert.False(t, ok)
}
