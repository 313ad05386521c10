package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := New()
	var got []int
	for i := 0; i < 500; i++ {
		i := i
		q.Push(func() { got = append(got, i) })
	}
	require.Equal(t, 500, q.Len())
	ran := q.Drain()
	require.Equal(t, 500, ran)
	for i, v := range got {
		require.Equal(t, i, v)
	}
	require.Equal(t, 0, q.Len())
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := New()
	var wg sync.WaitGroup
	const producers, perProducer = 8, 200
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(func() {})
			}
		}()
	}
	wg.Wait()
	require.Equal(t, producers*perProducer, q.Len())
	require.Equal(t, producers*perProducer, q.Drain())
}
