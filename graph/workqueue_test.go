package graph

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWorkQueueCompletionDelivered(t *testing.T) {
	var mu sync.Mutex
	var gotItems []WorkItem
	var gotErrs []error

	wq := NewWorkQueue(func(items []WorkItem, errs []error) {
		mu.Lock()
		defer mu.Unlock()
		gotItems = append(gotItems, items...)
		gotErrs = append(gotErrs, errs...)
	})
	defer wq.Close()

	wq.Add(WorkItem{Seq: 1, NodeID: 10, Kind: "negotiate"})
	require.Equal(t, 1, wq.Len())

	wq.Complete(1, nil)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(gotItems) == 1
	}, time.Second, time.Millisecond)

	require.Equal(t, uint32(1), gotItems[0].Seq)
	require.NoError(t, gotErrs[0])
	require.Equal(t, 0, wq.Len())
}

func TestWorkQueueUnknownSeqIgnored(t *testing.T) {
	called := make(chan struct{}, 1)
	wq := NewWorkQueue(func(items []WorkItem, errs []error) {
		called <- struct{}{}
	})
	defer wq.Close()

	wq.Complete(404, nil)

	select {
	case <-called:
		t.Fatal("onBatch must not fire for an unregistered seq")
	case <-time.After(50 * time.Millisecond):
	}
}
