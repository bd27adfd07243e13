package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func echo(v int64) TaskFunc {
	return func(context.Context) (int64, error) {
		return v, nil
	}
}

func failWith(err error) TaskFunc {
	return func(context.Context) (int64, error) {
		return 0, err
	}
}

func TestPool_SubmitAndWait(t *testing.T) {
	p := NewPool(2, zap.NewNop())
	defer p.Shutdown()

	res := p.Submit(context.Background(), echo(7)).Wait()
	require.NoError(t, res.Err)
	assert.Equal(t, int64(7), res.Value)
}

func TestPool_FallbackWorkerCount(t *testing.T) {
	p := NewPool(0, zap.NewNop())
	defer p.Shutdown()

	assert.Positive(t, p.Workers())
}

func TestPool_PanicBecomesJoinError(t *testing.T) {
	p := NewPool(1, zap.NewNop())
	defer p.Shutdown()

	res := p.Submit(context.Background(), func(context.Context) (int64, error) {
		panic("boom")
	}).Wait()

	var je *JoinError
	require.ErrorAs(t, res.Err, &je)
}

func TestAll_OrderedResults(t *testing.T) {
	p := NewPool(4, zap.NewNop())
	defer p.Shutdown()

	tasks := make([]TaskFunc, 20)
	for i := range tasks {
		tasks[i] = echo(int64(i))
	}

	results, err := p.All(context.Background(), tasks)
	require.NoError(t, err)
	require.Len(t, results, 20)
	for i, v := range results {
		assert.Equal(t, int64(i), v)
	}
}

func TestAll_FirstIndexErrorWins(t *testing.T) {
	p := NewPool(4, zap.NewNop())
	defer p.Shutdown()

	errA := errors.New("a")
	errB := errors.New("b")
	_, err := p.All(context.Background(), []TaskFunc{
		echo(1), failWith(errA), echo(3), failWith(errB),
	})
	require.ErrorIs(t, err, errA)
}

func TestFirst_ReturnsSuccess(t *testing.T) {
	p := NewPool(4, zap.NewNop())
	defer p.Shutdown()

	v, err := p.First(context.Background(), []TaskFunc{
		failWith(errors.New("nope")),
		echo(42),
		failWith(errors.New("nope either")),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestFirst_AllFail(t *testing.T) {
	p := NewPool(4, zap.NewNop())
	defer p.Shutdown()

	_, err := p.First(context.Background(), []TaskFunc{
		failWith(errors.New("one")),
		failWith(errors.New("two")),
	})
	require.Error(t, err)
}

func TestFirst_NoTasks(t *testing.T) {
	p := NewPool(4, zap.NewNop())
	defer p.Shutdown()

	_, err := p.First(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoTasks)
}

func TestWithTimeout_CompletesInTime(t *testing.T) {
	p := NewPool(4, zap.NewNop())
	defer p.Shutdown()

	results, err := p.WithTimeout(context.Background(), []TaskFunc{echo(1), echo(2)}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, results)
}

func TestWithTimeout_DeadlineAborts(t *testing.T) {
	p := NewPool(2, zap.NewNop())
	defer p.Shutdown()

	slow := func(ctx context.Context) (int64, error) {
		select {
		case <-time.After(5 * time.Second):
			return 1, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	start := time.Now()
	_, err := p.WithTimeout(context.Background(), []TaskFunc{slow}, 50*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCancelOnError_AbortsRemainder(t *testing.T) {
	// Enough workers that every task starts immediately and observes the
	// group cancellation rather than queue ordering.
	p := NewPool(16, zap.NewNop())
	defer p.Shutdown()

	boom := errors.New("boom")
	var finished atomic.Int32

	tasks := []TaskFunc{failWith(boom)}
	// The siblings only complete if cancellation never reaches them.
	for i := 0; i < 8; i++ {
		tasks = append(tasks, func(ctx context.Context) (int64, error) {
			select {
			case <-time.After(5 * time.Second):
				finished.Add(1)
				return 1, nil
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		})
	}

	start := time.Now()
	_, err := p.CancelOnError(context.Background(), tasks)
	require.ErrorIs(t, err, boom)
	assert.Less(t, time.Since(start), 2*time.Second, "first error must abort the remainder")
	assert.Zero(t, finished.Load())
}

func TestCancelOnError_AllSucceed(t *testing.T) {
	p := NewPool(4, zap.NewNop())
	defer p.Shutdown()

	results, err := p.CancelOnError(context.Background(), []TaskFunc{echo(1), echo(2), echo(3)})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, results)
}

func TestGo_RunsOffPool(t *testing.T) {
	res := Go(context.Background(), echo(5)).Wait()
	require.NoError(t, res.Err)
	assert.Equal(t, int64(5), res.Value)
}
