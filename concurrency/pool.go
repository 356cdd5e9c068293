package concurrency

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Task processes the input at index. Tasks report their own failures; the
// executors never stop early because a task failed.
type Task func(ctx context.Context, index int)

// Executor runs n tasks with a bounded number in flight. It returns the
// indexes that were never launched because ctx was done.
type Executor interface {
	Execute(ctx context.Context, n int, task Task) (skipped []int)
}

// Limit resolves a configured concurrency value. Values <= 0 mean the number
// of usable CPUs at call time.
func Limit(configured int) int {
	if configured > 0 {
		return configured
	}
	if n := runtime.GOMAXPROCS(0); n > 0 {
		return n
	}
	return 1
}

// NewExecutor returns the executor for a scheduler name ("window" or "stream").
func NewExecutor(scheduler string, limit int) Executor {
	if scheduler == "stream" {
		return NewStreamExecutor(limit)
	}
	return NewWindowExecutor(limit)
}

// WindowExecutor launches up to size tasks, waits for the whole window and
// only then launches the next one.
type WindowExecutor struct {
	size int
}

func NewWindowExecutor(size int) *WindowExecutor {
	return &WindowExecutor{size: Limit(size)}
}

func (e *WindowExecutor) Execute(ctx context.Context, n int, task Task) []int {
	var skipped []int

	for start := 0; start < n; start += e.size {
		if ctx.Err() != nil {
			for i := start; i < n; i++ {
				skipped = append(skipped, i)
			}
			break
		}

		end := min(start+e.size, n)
		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				task(ctx, i)
				return nil
			})
		}
		_ = g.Wait()
	}

	return skipped
}

// StreamExecutor keeps at most limit tasks in flight and launches the next
// one as soon as a slot frees up.
type StreamExecutor struct {
	limit int
}

func NewStreamExecutor(limit int) *StreamExecutor {
	return &StreamExecutor{limit: Limit(limit)}
}

func (e *StreamExecutor) Execute(ctx context.Context, n int, task Task) []int {
	sem := NewSemaphore(e.limit)
	var (
		wg      sync.WaitGroup
		skipped []int
	)

	for i := 0; i < n; i++ {
		if err := sem.AcquireContext(ctx); err != nil {
			for j := i; j < n; j++ {
				skipped = append(skipped, j)
			}
			break
		}

		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release()
			task(ctx, i)
		}()
	}

	wg.Wait()
	return skipped
}

// Semaphore is a counting semaphore.
type Semaphore struct {
	tickets chan struct{}
}

func NewSemaphore(capacity int) *Semaphore {
	return &Semaphore{
		tickets: make(chan struct{}, capacity),
	}
}

// AcquireContext blocks until a ticket is free or ctx is done. A done context
// wins over a free ticket.
func (s *Semaphore) AcquireContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case s.tickets <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Semaphore) Release() {
	<-s.tickets
}
