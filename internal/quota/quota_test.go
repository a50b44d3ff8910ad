package quota

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticLimits map[string]Limit

func (s staticLimits) Limit(routeClass string) Limit { return s[routeClass] }

func TestAdmit_FixedWindow(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := start
	tracker := NewTracker(staticLimits{"search": {Requests: 3, Window: 60 * time.Second}}).
		WithClock(func() time.Time { return clock })

	// Three calls at t=0,1,2 all admitted.
	for i := 0; i < 3; i++ {
		clock = start.Add(time.Duration(i) * time.Second)
		d, err := tracker.Admit("ash", "search")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 2-i, d.Remaining)
	}

	// Fourth at t=3 rejected with retryAfter ~= 57s.
	clock = start.Add(3 * time.Second)
	d, err := tracker.Admit("ash", "search")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.False(t, d.Allowed)
	assert.Equal(t, 57*time.Second, d.RetryAfter)

	var denied *DeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, 57*time.Second, denied.RetryAfter)

	// After the window elapses the counter resets.
	clock = start.Add(61 * time.Second)
	d, err = tracker.Admit("ash", "search")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestAdmit_IndependentKeys(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(staticLimits{"detail": {Requests: 1, Window: time.Minute}})

	_, err := tracker.Admit("ash", "detail")
	require.NoError(t, err)
	_, err = tracker.Admit("ash", "detail")
	require.Error(t, err)

	// A different identity still has its full budget.
	_, err = tracker.Admit("misty", "detail")
	require.NoError(t, err)

	// Same identity, different class: separate window.
	tracker2 := NewTracker(staticLimits{
		"detail": {Requests: 1, Window: time.Minute},
		"export": {Requests: 1, Window: time.Minute},
	})
	_, err = tracker2.Admit("ash", "detail")
	require.NoError(t, err)
	_, err = tracker2.Admit("ash", "export")
	require.NoError(t, err)
}

func TestAdmit_UnlimitedClass(t *testing.T) {
	t.Parallel()

	tracker := NewTracker(staticLimits{})
	for i := 0; i < 1000; i++ {
		d, err := tracker.Admit("ash", "unconfigured")
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
}

// With limit K and N concurrent attempts on one key, exactly K are admitted
// and N-K rejected. Two racing requests must never both take the last slot.
func TestAdmit_ConcurrentExactlyK(t *testing.T) {
	t.Parallel()

	const (
		n = 200
		k = 25
	)
	tracker := NewTracker(staticLimits{"search": {Requests: k, Window: time.Minute}})

	var admitted, rejected atomic.Int64
	var wg sync.WaitGroup
	barrier := make(chan struct{})

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-barrier
			if _, err := tracker.Admit("ash", "search"); err == nil {
				admitted.Add(1)
			} else {
				rejected.Add(1)
			}
		}()
	}
	close(barrier)
	wg.Wait()

	assert.Equal(t, int64(k), admitted.Load())
	assert.Equal(t, int64(n-k), rejected.Load())
}

func TestCleanup(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := start
	tracker := NewTracker(staticLimits{"search": {Requests: 1, Window: time.Minute}}).
		WithClock(func() time.Time { return clock })

	_, err := tracker.Admit("ash", "search")
	require.NoError(t, err)

	clock = start.Add(3 * time.Minute)
	tracker.Cleanup()

	count := 0
	tracker.windows.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	assert.Zero(t, count)
}
