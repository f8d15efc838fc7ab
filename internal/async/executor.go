// Package async runs bulk operations on a fixed pool of workers with a
// bounded queue. Saturation either rejects with ErrBusy or blocks the caller,
// per configuration; the pool never grows past its configured size.
package async

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"
)

var (
	// ErrBusy is returned by Submit when the queue is full and the executor
	// is configured to reject.
	ErrBusy = errors.New("executor saturated")
	// ErrTimedOut is returned by Await when the deadline passes first.
	ErrTimedOut = errors.New("await timed out")
	// ErrClosed is returned by Submit after Shutdown.
	ErrClosed = errors.New("executor closed")
)

// Policy selects the behavior of Submit on a full queue.
type Policy int

const (
	// Reject fails fast with ErrBusy.
	Reject Policy = iota
	// Block waits for queue space or caller context cancellation.
	Block
)

type Config struct {
	// Workers is the pool size. Zero means GOMAXPROCS.
	Workers int
	// QueueSize bounds pending tasks. Zero means Workers.
	QueueSize int
	Policy    Policy
}

type Executor struct {
	queue  chan func()
	policy Policy

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func New(cfg Config) *Executor {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = workers
	}
	e := &Executor{
		queue:  make(chan func(), queueSize),
		policy: cfg.Policy,
	}
	e.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go e.worker()
	}
	return e
}

func (e *Executor) worker() {
	defer e.wg.Done()
	for task := range e.queue {
		task()
	}
}

// Shutdown stops accepting tasks and waits for queued ones to drain.
func (e *Executor) Shutdown() {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	e.mu.Unlock()
	e.wg.Wait()
}

func (e *Executor) enqueue(ctx context.Context, task func()) error {
	// The read lock is held across the send so Shutdown cannot close the
	// queue while a submitter is parked on it. Readers do not exclude each
	// other, so blocked submitters do not serialize.
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrClosed
	}
	if e.policy == Reject {
		select {
		case e.queue <- task:
			return nil
		default:
			return ErrBusy
		}
	}
	select {
	case e.queue <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handle is a future-like reference to a submitted task.
type Handle[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc

	result T
	err    error
}

// Submit schedules fn on the executor and returns a handle to await it. The
// task context is detached from the caller's request lifetime; Cancel cancels
// it, which takes effect at task start or wherever fn checks the context.
func Submit[T any](e *Executor, ctx context.Context, fn func(ctx context.Context) (T, error)) (*Handle[T], error) {
	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	h := &Handle[T]{done: make(chan struct{}), cancel: cancel}

	err := e.enqueue(ctx, func() {
		defer close(h.done)
		defer cancel()
		if err := taskCtx.Err(); err != nil {
			h.err = err
			return
		}
		h.result, h.err = fn(taskCtx)
	})
	if err != nil {
		cancel()
		return nil, err
	}
	return h, nil
}

// Await blocks until the task finishes or the timeout elapses. A timeout does
// not cancel the task; it keeps running and a later Await can still collect it.
func (h *Handle[T]) Await(timeout time.Duration) (T, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-h.done:
		return h.result, h.err
	case <-timer.C:
		var zero T
		return zero, ErrTimedOut
	}
}

// Cancel requests best-effort cancellation of the task.
func (h *Handle[T]) Cancel() { h.cancel() }
