// Package tova is the host-facing surface of the execution runtime. It
// wires the WASM executor, the channel registry, and the scheduler into the
// operation set the host environment embeds.
package tova

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tova-lang/tova-runtime/pkg/channels"
	"github.com/tova-lang/tova-runtime/pkg/config"
	"github.com/tova-lang/tova-runtime/pkg/logging"
	"github.com/tova-lang/tova-runtime/pkg/scheduler"
	"github.com/tova-lang/tova-runtime/pkg/wasm"
)

// WasmTask names one guest invocation: module bytes, export name, and
// 64-bit signed arguments.
type WasmTask struct {
	Wasm []byte
	Func string
	Args []int64
}

// Runtime owns the long-lived pieces of the execution runtime. All methods
// are safe for concurrent use.
type Runtime struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *channels.Registry
	executor *wasm.Executor
	pool     *scheduler.Pool

	invocationLogger InvocationLogger
}

// Option configures the Runtime.
type Option func(*Runtime)

// WithInvocationLogger sets the invocation record sink.
func WithInvocationLogger(l InvocationLogger) Option {
	return func(r *Runtime) {
		r.invocationLogger = l
	}
}

// New creates a Runtime. A nil config gets defaults; a nil logger logs
// nothing.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) *Runtime {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := channels.NewRegistry(logger)
	r := &Runtime{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		executor: wasm.NewExecutor(registry, logger),
		pool:     scheduler.NewPool(cfg.Workers, logger),
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

var (
	defaultOnce    sync.Once
	defaultRuntime *Runtime
)

// Default returns the process-wide Runtime, creating it with default
// configuration on first use.
func Default() *Runtime {
	defaultOnce.Do(func() {
		logger, err := logging.NewDefaultLogger(logging.ComponentRuntime)
		if err != nil {
			defaultRuntime = New(nil, zap.NewNop())
			return
		}
		defaultRuntime = New(nil, logger.Logger)
	})
	return defaultRuntime
}

// Close drains the worker pool. The engine itself is process-lifetime and
// is not torn down.
func (r *Runtime) Close() {
	r.pool.Shutdown()
}

// HealthCheck reports a short status string.
func (r *Runtime) HealthCheck() string {
	return "tova_runtime ok"
}

// SpawnTask echoes the value through a scheduled host task. It dispatches
// via scheduler.Go on its own goroutine, not through the blocking worker
// pool used for guest invocations.
func (r *Runtime) SpawnTask(ctx context.Context, value int64) (int64, error) {
	res := scheduler.Go(ctx, func(context.Context) (int64, error) {
		return value, nil
	}).Wait()
	return res.Value, res.Err
}

// ConcurrentAll echoes each value through its own scheduled task and
// returns them in submission order.
func (r *Runtime) ConcurrentAll(ctx context.Context, values []int64) ([]int64, error) {
	futures := make([]*scheduler.Future, len(values))
	for i, v := range values {
		futures[i] = scheduler.Go(ctx, func(context.Context) (int64, error) {
			return v, nil
		})
	}

	results := make([]int64, len(values))
	for i, f := range futures {
		res := f.Wait()
		if res.Err != nil {
			return nil, res.Err
		}
		results[i] = res.Value
	}
	return results, nil
}

// ExecWasm runs one guest invocation on the blocking pool.
func (r *Runtime) ExecWasm(ctx context.Context, wasmBytes []byte, funcName string, args []int64) (int64, error) {
	started := time.Now()
	res := r.pool.Submit(ctx, func(ctx context.Context) (int64, error) {
		return r.executor.Exec(ctx, wasmBytes, funcName, args)
	}).Wait()
	r.logInvocation(ctx, funcName, started, res.Err)
	return res.Value, res.Err
}

// ExecWasmWithChannels is ExecWasm with the channel host imports linked.
func (r *Runtime) ExecWasmWithChannels(ctx context.Context, wasmBytes []byte, funcName string, args []int64) (int64, error) {
	started := time.Now()
	res := r.pool.Submit(ctx, func(ctx context.Context) (int64, error) {
		return r.executor.ExecWithChannels(ctx, wasmBytes, funcName, args)
	}).Wait()
	r.logInvocation(ctx, funcName, started, res.Err)
	return res.Value, res.Err
}

// ConcurrentWasm fans the tasks out and waits for all of them, returning
// results in submission order; the lowest-indexed failure wins.
func (r *Runtime) ConcurrentWasm(ctx context.Context, tasks []WasmTask) ([]int64, error) {
	return r.pool.All(ctx, r.taskFuncs(tasks, false))
}

// ConcurrentWasmWithChannels is ConcurrentWasm with the channel host
// imports linked into every instance.
func (r *Runtime) ConcurrentWasmWithChannels(ctx context.Context, tasks []WasmTask) ([]int64, error) {
	return r.pool.All(ctx, r.taskFuncs(tasks, true))
}

// ConcurrentWasmFirst races the tasks and returns the first successful
// result, aborting the rest. With no tasks it fails immediately.
func (r *Runtime) ConcurrentWasmFirst(ctx context.Context, tasks []WasmTask) (int64, error) {
	return r.pool.First(ctx, r.taskFuncs(tasks, false))
}

// ConcurrentWasmTimeout fans the tasks out under a deadline in
// milliseconds; on deadline all outstanding work is aborted and detached.
func (r *Runtime) ConcurrentWasmTimeout(ctx context.Context, tasks []WasmTask, timeoutMS uint32) ([]int64, error) {
	return r.pool.WithTimeout(ctx, r.taskFuncs(tasks, false), time.Duration(timeoutMS)*time.Millisecond)
}

// ConcurrentWasmCancelOnError fans the tasks out and aborts the remainder
// as soon as any task fails.
func (r *Runtime) ConcurrentWasmCancelOnError(ctx context.Context, tasks []WasmTask) ([]int64, error) {
	return r.pool.CancelOnError(ctx, r.taskFuncs(tasks, false))
}

// ConcurrentWasmShared runs homogeneous tasks against the first task's
// module, split into chunks that each reuse one store and instance. Guest
// functions must be pure: nothing may depend on memory or globals
// surviving between calls in a chunk. Results are concatenated in
// submission order.
func (r *Runtime) ConcurrentWasmShared(ctx context.Context, tasks []WasmTask) ([]int64, error) {
	if len(tasks) == 0 {
		return []int64{}, nil
	}

	wasmBytes := tasks[0].Wasm
	calls := make([]wasm.Call, len(tasks))
	for i, t := range tasks {
		calls[i] = wasm.Call{Func: t.Func, Args: t.Args}
	}

	chunkSize := (len(calls) + r.cfg.ChunkCount - 1) / r.cfg.ChunkCount
	if chunkSize < 1 {
		chunkSize = 1
	}

	type chunkFuture struct {
		future *scheduler.Future
		calls  []wasm.Call
		out    []wasm.Result
	}

	var chunks []*chunkFuture
	for start := 0; start < len(calls); start += chunkSize {
		end := start + chunkSize
		if end > len(calls) {
			end = len(calls)
		}
		chunk := &chunkFuture{calls: calls[start:end]}
		chunk.future = r.pool.Submit(ctx, func(ctx context.Context) (int64, error) {
			chunk.out = r.executor.ExecManyReuse(ctx, wasmBytes, chunk.calls)
			return 0, nil
		})
		chunks = append(chunks, chunk)
	}

	results := make([]int64, 0, len(calls))
	for _, chunk := range chunks {
		if res := chunk.future.Wait(); res.Err != nil {
			return nil, res.Err
		}
		for _, out := range chunk.out {
			if out.Err != nil {
				return nil, out.Err
			}
			results = append(results, out.Value)
		}
	}
	return results, nil
}

// taskFuncs adapts WasmTasks to scheduler tasks.
func (r *Runtime) taskFuncs(tasks []WasmTask, withChannels bool) []scheduler.TaskFunc {
	fns := make([]scheduler.TaskFunc, len(tasks))
	for i, t := range tasks {
		fns[i] = func(ctx context.Context) (int64, error) {
			if withChannels {
				return r.executor.ExecWithChannels(ctx, t.Wasm, t.Func, t.Args)
			}
			return r.executor.Exec(ctx, t.Wasm, t.Func, t.Args)
		}
	}
	return fns
}

// --- Channels ---

// ChannelCreate allocates a channel with the given capacity and returns
// its id. Capacity 0 creates a rendezvous channel.
func (r *Runtime) ChannelCreate(capacity uint32) uint64 {
	return r.registry.Create(capacity)
}

// ChannelSend delivers a value, reporting false on unknown or closed
// channels.
func (r *Runtime) ChannelSend(id uint64, value int64) bool {
	return r.registry.Send(id, value)
}

// ChannelReceive performs a non-blocking receive.
func (r *Runtime) ChannelReceive(id uint64) (int64, bool) {
	return r.registry.Receive(id)
}

// ChannelClose closes the channel; queued values remain receivable.
func (r *Runtime) ChannelClose(id uint64) {
	r.registry.Close(id)
}

// ChannelDestroy removes the channel unconditionally.
func (r *Runtime) ChannelDestroy(id uint64) {
	r.registry.Destroy(id)
}
