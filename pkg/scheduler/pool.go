// Package scheduler provides the worker pool that runs guest invocations
// and the concurrency policies that aggregate their results.
//
// Guest calls are CPU-bound and never yield, so they run on a dedicated
// fixed-size pool of blocking workers instead of ad-hoc goroutines; pure
// host values bypass the pool via Go. Cancellation is cooperative at task
// granularity: a queued task observes its context before starting, while a
// task already running finishes (or traps on fuel) and has its result
// discarded by the awaiting policy.
package scheduler

import (
	"context"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// TaskFunc is one schedulable unit of work producing a 64-bit value.
type TaskFunc func(ctx context.Context) (int64, error)

// Result carries a task's value or error.
type Result struct {
	Value int64
	Err   error
}

// Future resolves to a task's Result exactly once.
type Future struct {
	result chan Result
}

// Wait blocks until the task completes and returns its result.
func (f *Future) Wait() Result {
	return <-f.result
}

type task struct {
	ctx    context.Context
	run    TaskFunc
	future *Future
}

// Pool is a fixed-size pool of blocking workers.
type Pool struct {
	tasks   chan *task
	workers int
	wg      sync.WaitGroup
	logger  *zap.Logger

	closeOnce sync.Once
}

// NewPool starts a pool with the given number of workers. A non-positive
// count falls back to the logical CPU count, or 4 if that is unavailable.
func NewPool(workers int, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pool{
		tasks:   make(chan *task, workers*16),
		workers: workers,
		logger:  logger,
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	p.logger.Debug("Worker pool started", zap.Int("workers", workers))
	return p
}

// Workers returns the pool size.
func (p *Pool) Workers() int {
	return p.workers
}

// Submit queues fn for execution and returns its Future. Submit never
// blocks: if the queue is full, handoff continues on a fresh goroutine so
// policies can fan out ahead of collection.
func (p *Pool) Submit(ctx context.Context, fn TaskFunc) *Future {
	f := &Future{result: make(chan Result, 1)}
	t := &task{ctx: ctx, run: fn, future: f}

	select {
	case p.tasks <- t:
	default:
		go func() { p.tasks <- t }()
	}
	return f
}

// Go runs fn outside the pool on its own goroutine. Used for pure host
// values that need no blocking worker.
func Go(ctx context.Context, fn TaskFunc) *Future {
	f := &Future{result: make(chan Result, 1)}
	go func() {
		f.result <- invoke(ctx, fn)
	}()
	return f
}

// Shutdown stops accepting work and waits for the workers to drain.
func (p *Pool) Shutdown() {
	p.closeOnce.Do(func() {
		close(p.tasks)
	})
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		t.future.result <- invoke(t.ctx, t.run)
	}
}

// invoke runs one task, converting a cancelled context into an error before
// the task starts and a worker panic into a JoinError.
func invoke(ctx context.Context, fn TaskFunc) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: &JoinError{Cause: r}}
		}
	}()

	if err := ctx.Err(); err != nil {
		return Result{Err: err}
	}

	v, err := fn(ctx)
	return Result{Value: v, Err: err}
}
