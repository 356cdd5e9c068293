package concurrency

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// peakTracker records the maximum number of concurrently running tasks.
type peakTracker struct {
	current atomic.Int32
	peak    atomic.Int32
}

func (p *peakTracker) enter() {
	n := p.current.Add(1)
	for {
		old := p.peak.Load()
		if n <= old || p.peak.CompareAndSwap(old, n) {
			return
		}
	}
}

func (p *peakTracker) leave() { p.current.Add(-1) }

func TestLimitDefaultsToGOMAXPROCS(t *testing.T) {
	assert.Equal(t, 3, Limit(3))
	assert.Equal(t, runtime.GOMAXPROCS(0), Limit(0))
	assert.Equal(t, runtime.GOMAXPROCS(0), Limit(-1))
}

func TestExecutorsRunEveryIndexWithinLimit(t *testing.T) {
	for _, scheduler := range []string{"window", "stream"} {
		t.Run(scheduler, func(t *testing.T) {
			const n, limit = 23, 4
			var (
				tracker peakTracker
				mu      sync.Mutex
				seen    = make(map[int]int)
			)

			skipped := NewExecutor(scheduler, limit).Execute(context.Background(), n, func(ctx context.Context, i int) {
				tracker.enter()
				defer tracker.leave()
				time.Sleep(2 * time.Millisecond)
				mu.Lock()
				seen[i]++
				mu.Unlock()
			})

			assert.Empty(t, skipped)
			require.Len(t, seen, n)
			for i := 0; i < n; i++ {
				assert.Equal(t, 1, seen[i], "index %d", i)
			}
			assert.LessOrEqual(t, int(tracker.peak.Load()), limit)
		})
	}
}

func TestWindowExecutorWaitsForWholeWindow(t *testing.T) {
	var (
		mu    sync.Mutex
		order []int
	)
	NewWindowExecutor(2).Execute(context.Background(), 4, func(ctx context.Context, i int) {
		if i == 0 {
			time.Sleep(20 * time.Millisecond)
		}
		mu.Lock()
		order = append(order, i)
		mu.Unlock()
	})

	require.Len(t, order, 4)
	// index 0 is slow but belongs to the first window, so it must finish
	// before anything from the second window starts.
	assert.ElementsMatch(t, []int{0, 1}, order[:2])
	assert.ElementsMatch(t, []int{2, 3}, order[2:])
}

func TestExecutorsStopLaunchingAfterCancel(t *testing.T) {
	for _, scheduler := range []string{"window", "stream"} {
		t.Run(scheduler, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			var ran atomic.Int32
			skipped := NewExecutor(scheduler, 2).Execute(ctx, 10, func(ctx context.Context, i int) {
				ran.Add(1)
				if i == 1 {
					cancel()
				}
				time.Sleep(5 * time.Millisecond)
			})

			assert.Equal(t, 10, int(ran.Load())+len(skipped))
			assert.NotEmpty(t, skipped)
			assert.Equal(t, 9, skipped[len(skipped)-1])
		})
	}
}

func TestSemaphoreAcquireContext(t *testing.T) {
	sem := NewSemaphore(1)
	require.NoError(t, sem.AcquireContext(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, sem.AcquireContext(ctx), context.DeadlineExceeded)

	sem.Release()
	require.NoError(t, sem.AcquireContext(context.Background()))
}
