package scheduler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// All fans out every task, waits for all of them, and returns the results
// in submission order. If any task failed, the lowest-indexed failure is
// returned; already-running siblings are left to finish on their own.
func (p *Pool) All(ctx context.Context, tasks []TaskFunc) ([]int64, error) {
	futures := make([]*Future, len(tasks))
	for i, fn := range tasks {
		futures[i] = p.Submit(ctx, fn)
	}

	results := make([]int64, len(tasks))
	var firstErr error
	for i, f := range futures {
		res := f.Wait()
		if res.Err != nil && firstErr == nil {
			firstErr = res.Err
		}
		results[i] = res.Value
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// First races the tasks and returns the first successful result, aborting
// the rest: queued siblings never start, and running ones finish with
// their results discarded. If every task fails, the last observed error is
// returned.
func (p *Pool) First(ctx context.Context, tasks []TaskFunc) (int64, error) {
	if len(tasks) == 0 {
		return 0, ErrNoTasks
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	first := make(chan int64, 1)
	done := make(chan struct{})

	var (
		mu      sync.Mutex
		lastErr error
		wg      sync.WaitGroup
	)

	for _, fn := range tasks {
		f := p.Submit(raceCtx, fn)
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := f.Wait()
			if res.Err == nil {
				select {
				case first <- res.Value:
				default:
				}
				return
			}
			mu.Lock()
			lastErr = res.Err
			mu.Unlock()
		}()
	}

	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case v := <-first:
		cancel()
		return v, nil
	case <-done:
		// A success may have landed in the same instant done closed.
		select {
		case v := <-first:
			return v, nil
		default:
		}
		return 0, lastErr
	}
}

// WithTimeout fans out the tasks under a deadline. If every task completes
// in time, results are returned in submission order (lowest-indexed failure
// first, as with All). On deadline, outstanding tasks are aborted and
// detached and ErrTimeout is returned.
func (p *Pool) WithTimeout(ctx context.Context, tasks []TaskFunc, timeout time.Duration) ([]int64, error) {
	deadlineCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	futures := make([]*Future, len(tasks))
	for i, fn := range tasks {
		futures[i] = p.Submit(deadlineCtx, fn)
	}

	results := make([]int64, len(tasks))
	var firstErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i, f := range futures {
			res := f.Wait()
			if res.Err != nil && firstErr == nil {
				firstErr = res.Err
			}
			results[i] = res.Value
		}
	}()

	select {
	case <-done:
		if firstErr != nil {
			return nil, firstErr
		}
		return results, nil
	case <-deadlineCtx.Done():
		return nil, ErrTimeout
	}
}

// CancelOnError fans out the tasks and polls them concurrently; the first
// observed failure cancels the group so queued siblings never start, and
// the failure is returned. Otherwise results come back in submission order.
func (p *Pool) CancelOnError(ctx context.Context, tasks []TaskFunc) ([]int64, error) {
	g, gctx := errgroup.WithContext(ctx)

	results := make([]int64, len(tasks))
	for i, fn := range tasks {
		g.Go(func() error {
			res := p.Submit(gctx, fn).Wait()
			if res.Err != nil {
				return res.Err
			}
			results[i] = res.Value
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
