package distill

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkingSet(t *testing.T) {
	ws := NewWorkingSet()

	assert.True(t, ws.TryAdd("t1"))
	assert.False(t, ws.TryAdd("t1"))
	assert.True(t, ws.Contains("t1"))
	assert.Equal(t, 1, ws.Len())

	ws.Remove("t1")
	assert.False(t, ws.Contains("t1"))
	assert.True(t, ws.TryAdd("t1"), "removed threads are selectable again")
}

func TestWorkingSet_TryAddIsExclusive(t *testing.T) {
	ws := NewWorkingSet()
	var wins atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ws.TryAdd("hot") {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue[int]()
	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	assert.Equal(t, 5, q.Len())

	for i := 0; i < 5; i++ {
		got, err := q.Pop(context.Background())
		require.NoError(t, err)
		assert.Equal(t, i, got)
	}
	assert.Equal(t, 0, q.Len())
}

func TestQueue_PopWaitsForPush(t *testing.T) {
	q := NewQueue[string]()
	done := make(chan string)

	go func() {
		v, err := q.Pop(context.Background())
		assert.NoError(t, err)
		done <- v
	}()

	select {
	case <-done:
		t.Fatal("pop returned before push")
	case <-time.After(20 * time.Millisecond):
	}

	q.Push("hello")
	select {
	case v := <-done:
		assert.Equal(t, "hello", v)
	case <-time.After(time.Second):
		t.Fatal("pop did not wake up")
	}
}

func TestQueue_PopHonorsContext(t *testing.T) {
	q := NewQueue[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := NewQueue[int]()
	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.Push(p*100 + i)
			}
		}(p)
	}

	seen := make(map[int]bool)
	for len(seen) < 400 {
		v, err := q.Pop(context.Background())
		require.NoError(t, err)
		seen[v] = true
	}
	wg.Wait()
	assert.Equal(t, 0, q.Len())
}
