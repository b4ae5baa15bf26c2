// Package limiter provides a bounded-concurrency gate for arbitrary tasks.
//
// At most N scheduled tasks run at once; the rest wait and are admitted in the
// order they were scheduled. A task whose context is done before it is admitted
// resolves with the context error and never runs.
package limiter

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

type Limiter struct {
	sem   *semaphore.Weighted
	limit int

	mu sync.Mutex
	// tail is closed once the most recently scheduled task has acquired a slot or given up.
	tail chan struct{}
}

func New(limit int) (*Limiter, error) {
	if limit < 1 {
		return nil, fmt.Errorf("limiter: limit must be at least 1, got %d", limit)
	}
	tail := make(chan struct{})
	close(tail)
	return &Limiter{
		sem:   semaphore.NewWeighted(int64(limit)),
		limit: limit,
		tail:  tail,
	}, nil
}

func (l *Limiter) Limit() int {
	return l.limit
}

// Future is the pending result of a scheduled task.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Done is closed once the task has finished or was dropped before admission.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the task settles.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.val, f.err
}

// Schedule queues task on l without blocking the caller.
func Schedule[T any](ctx context.Context, l *Limiter, task func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	l.mu.Lock()
	prev := l.tail
	turn := make(chan struct{})
	l.tail = turn
	l.mu.Unlock()

	go func() {
		defer close(f.done)
		if err := l.admit(ctx, prev, turn); err != nil {
			f.err = err
			return
		}
		defer l.sem.Release(1)
		f.val, f.err = task(ctx)
	}()
	return f
}

// Do schedules task and waits for it.
func Do[T any](ctx context.Context, l *Limiter, task func(context.Context) (T, error)) (T, error) {
	return Schedule(ctx, l, task).Wait()
}

// admit waits for the previous task's turn, then for a free slot. Only one
// goroutine at a time waits on the semaphore, which keeps admission FIFO.
func (l *Limiter) admit(ctx context.Context, prev, turn chan struct{}) error {
	select {
	case <-prev:
	case <-ctx.Done():
		// hand the turn on only after the tasks ahead of us have moved
		go func() {
			<-prev
			close(turn)
		}()
		return ctx.Err()
	}
	defer close(turn)

	if err := ctx.Err(); err != nil {
		return err
	}
	return l.sem.Acquire(ctx, 1)
}
