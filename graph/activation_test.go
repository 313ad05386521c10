package graph

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestActivationRecordResetAndDecPending(t *testing.T) {
	a, err := NewActivationRecord()
	require.NoError(t, err)
	defer a.Close()

	a.Reset(3)
	require.EqualValues(t, 3, a.Required())
	require.EqualValues(t, 3, a.Pending())

	require.False(t, a.DecPending())
	require.False(t, a.DecPending())
	require.True(t, a.DecPending())
	require.False(t, a.DecPending(), "already drained, must not re-trigger")
}

func TestActivationRecordDecPendingExactlyOnceUnderContention(t *testing.T) {
	a, err := NewActivationRecord()
	require.NoError(t, err)
	defer a.Close()

	const fanIn = 64
	a.Reset(fanIn)

	var wg sync.WaitGroup
	var triggers int32
	var mu sync.Mutex
	for i := 0; i < fanIn; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if a.DecPending() {
				mu.Lock()
				triggers++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, triggers)
}

func TestActivationRecordGenerationsAreIndependent(t *testing.T) {
	a, err := NewActivationRecord()
	require.NoError(t, err)
	defer a.Close()

	a.Reset(2)
	require.False(t, a.DecPending()) // pending: 2 -> 1, not yet drained
	require.EqualValues(t, 1, a.Pending())

	a.AdvanceGeneration()
	a.Reset(5)
	require.EqualValues(t, 5, a.Pending(), "new generation starts fresh regardless of prior generation's drain state")
}

func TestActivationRecordPositionRoundTrip(t *testing.T) {
	a, err := NewActivationRecord()
	require.NoError(t, err)
	defer a.Close()

	p := Position{RateNum: 1, RateDen: 48000, Offset: 1024, Duration: 1024, ID: 7, Size: 1024}
	a.SetPosition(p)
	require.Equal(t, p, a.Position())
}

func TestActivationRecordTimestampsMonotonicOrdering(t *testing.T) {
	a, err := NewActivationRecord()
	require.NoError(t, err)
	defer a.Close()

	a.SetSignalTime(100)
	a.SetAwakeTime(150)
	a.SetFinishTime(200)
	require.LessOrEqual(t, a.SignalTime(), a.AwakeTime())
	require.LessOrEqual(t, a.AwakeTime(), a.FinishTime())
}
