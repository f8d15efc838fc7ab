package async

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_Await(t *testing.T) {
	e := New(Config{Workers: 2, QueueSize: 2})
	defer e.Shutdown()

	h, err := Submit(e, context.Background(), func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)

	got, err := h.Await(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestSubmit_RejectWhenSaturated(t *testing.T) {
	e := New(Config{Workers: 1, QueueSize: 1, Policy: Reject})
	defer e.Shutdown()

	started := make(chan struct{})
	block := make(chan struct{})

	// First task occupies the single worker, second fills the queue.
	h1, err := Submit(e, context.Background(), func(ctx context.Context) (int, error) {
		close(started)
		<-block
		return 1, nil
	})
	require.NoError(t, err)
	<-started

	h2, err := Submit(e, context.Background(), func(ctx context.Context) (int, error) {
		<-block
		return 2, nil
	})
	require.NoError(t, err)

	_, err = Submit(e, context.Background(), func(ctx context.Context) (int, error) {
		return 3, nil
	})
	assert.ErrorIs(t, err, ErrBusy)

	close(block)
	_, err = h1.Await(time.Second)
	require.NoError(t, err)
	_, err = h2.Await(time.Second)
	require.NoError(t, err)
}

func TestSubmit_BlockWaitsForSpace(t *testing.T) {
	e := New(Config{Workers: 1, QueueSize: 1, Policy: Block})
	defer e.Shutdown()

	started := make(chan struct{})
	release := make(chan struct{})
	h1, err := Submit(e, context.Background(), func(ctx context.Context) (int, error) {
		close(started)
		<-release
		return 1, nil
	})
	require.NoError(t, err)
	<-started

	// The worker is busy, so this one fills the queue slot.
	h2, err := Submit(e, context.Background(), func(ctx context.Context) (int, error) {
		return 2, nil
	})
	require.NoError(t, err)

	// The queue is full; this submit must wait until the worker frees up.
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(release)
	}()
	h3, err := Submit(e, context.Background(), func(ctx context.Context) (int, error) {
		return 3, nil
	})
	require.NoError(t, err)

	for _, h := range []*Handle[int]{h1, h2, h3} {
		_, err := h.Await(time.Second)
		require.NoError(t, err)
	}
}

func TestSubmit_BlockHonorsContext(t *testing.T) {
	e := New(Config{Workers: 1, QueueSize: 1, Policy: Block})
	defer e.Shutdown()

	started := make(chan struct{})
	block := make(chan struct{})
	defer close(block)

	_, err := Submit(e, context.Background(), func(ctx context.Context) (int, error) {
		close(started)
		<-block
		return 0, nil
	})
	require.NoError(t, err)
	<-started

	// Occupy the queue slot while the worker is busy.
	_, err = Submit(e, context.Background(), func(ctx context.Context) (int, error) {
		<-block
		return 0, nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = Submit(e, ctx, func(ctx context.Context) (int, error) {
		return 0, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWorkerCeiling(t *testing.T) {
	const workers = 3
	e := New(Config{Workers: workers, QueueSize: 32})
	defer e.Shutdown()

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := Submit(e, context.Background(), func(ctx context.Context) (int, error) {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				running.Add(-1)
				return 0, nil
			})
			if err != nil {
				return
			}
			_, _ = h.Await(2 * time.Second)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(workers))
}

func TestAwait_Timeout(t *testing.T) {
	e := New(Config{Workers: 1, QueueSize: 1})
	defer e.Shutdown()

	block := make(chan struct{})
	h, err := Submit(e, context.Background(), func(ctx context.Context) (int, error) {
		<-block
		return 7, nil
	})
	require.NoError(t, err)

	_, err = h.Await(20 * time.Millisecond)
	assert.ErrorIs(t, err, ErrTimedOut)

	// The task keeps running; a later Await still collects it.
	close(block)
	got, err := h.Await(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestHandle_Cancel(t *testing.T) {
	e := New(Config{Workers: 1, QueueSize: 2})
	defer e.Shutdown()

	block := make(chan struct{})
	defer close(block)

	// Occupy the worker so the next task stays queued.
	_, err := Submit(e, context.Background(), func(ctx context.Context) (int, error) {
		<-block
		return 0, nil
	})
	require.NoError(t, err)

	h, err := Submit(e, context.Background(), func(ctx context.Context) (int, error) {
		return 1, nil
	})
	require.NoError(t, err)
	h.Cancel()

	// Let the worker reach the cancelled task.
	block <- struct{}{}

	_, err = h.Await(time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestShutdown_WithParkedBlockSubmit(t *testing.T) {
	e := New(Config{Workers: 1, QueueSize: 1, Policy: Block})

	started := make(chan struct{})
	release := make(chan struct{})
	h1, err := Submit(e, context.Background(), func(ctx context.Context) (int, error) {
		close(started)
		<-release
		return 1, nil
	})
	require.NoError(t, err)
	<-started

	_, err = Submit(e, context.Background(), func(ctx context.Context) (int, error) {
		return 2, nil
	})
	require.NoError(t, err)

	// Worker and queue slot are both taken, so this submit parks on the send.
	submitErr := make(chan error, 1)
	go func() {
		h, err := Submit(e, context.Background(), func(ctx context.Context) (int, error) {
			return 3, nil
		})
		if err == nil {
			_, err = h.Await(time.Second)
		}
		submitErr <- err
	}()

	// Shut down while the third submitter is parked. It must either get in
	// before the close or see ErrClosed; it must never panic.
	time.Sleep(20 * time.Millisecond)
	go close(release)
	e.Shutdown()

	if err := <-submitErr; err != nil {
		assert.ErrorIs(t, err, ErrClosed)
	}
	got, err := h1.Await(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestSubmit_DetachedFromCallerContext(t *testing.T) {
	e := New(Config{Workers: 1, QueueSize: 1})
	defer e.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	h, err := Submit(e, ctx, func(taskCtx context.Context) (int, error) {
		if err := taskCtx.Err(); err != nil {
			return 0, err
		}
		return 9, nil
	})
	require.NoError(t, err)

	// Cancelling the caller's request context does not cancel the task.
	cancel()

	got, err := h.Await(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 9, got)
}

func TestShutdown(t *testing.T) {
	e := New(Config{Workers: 2, QueueSize: 4})

	var done atomic.Int32
	for i := 0; i < 4; i++ {
		_, err := Submit(e, context.Background(), func(ctx context.Context) (int, error) {
			done.Add(1)
			return 0, nil
		})
		require.NoError(t, err)
	}

	e.Shutdown()
	assert.Equal(t, int32(4), done.Load())

	_, err := Submit(e, context.Background(), func(ctx context.Context) (int, error) {
		return 0, nil
	})
	assert.ErrorIs(t, err, ErrClosed)

	// Shutdown is idempotent.
	e.Shutdown()
}
