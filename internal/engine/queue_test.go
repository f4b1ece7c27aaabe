package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateQueue_FIFO(t *testing.T) {
	q := newUpdateQueue()
	for _, prop := range []string{"a", "b", "c"} {
		require.True(t, q.Enqueue(Update{Kind: UpdateSetProp, Prop: prop}))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"a", "b", "c"} {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, got.Prop)
	}
	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestUpdateQueue_Close(t *testing.T) {
	q := newUpdateQueue()
	require.True(t, q.Enqueue(Update{Kind: UpdateEmit, Target: "button", Event: "click"}))
	q.Close()

	assert.False(t, q.Enqueue(Update{Kind: UpdateEmit}), "closed queue rejects updates")
	got, ok := q.TryDequeue()
	require.True(t, ok, "queued updates survive close")
	assert.Equal(t, "click", got.Event)
}

func TestUpdateQueue_ConcurrentEnqueue(t *testing.T) {
	q := newUpdateQueue()
	const goroutines = 20
	const perGoroutine = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				q.Enqueue(Update{Kind: UpdateSetProp, Prop: "n"})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, goroutines*perGoroutine, q.Len())
}

func TestUpdateKindString(t *testing.T) {
	assert.Equal(t, "set", UpdateSetProp.String())
	assert.Equal(t, "emit", UpdateEmit.String())
	assert.Equal(t, "tick", UpdateTick.String())
	assert.Equal(t, "unknown", UpdateKind(0).String())
}
