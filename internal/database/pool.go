package database

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool runs blocking storage work on a bounded number of goroutines.
// Work is detached from the caller's cancellation: once started it runs to completion
// even if the caller stops waiting.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool creates a pool with room for size concurrent jobs
func NewPool(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size))}
}

// Run executes fn on the pool and waits for its result or for ctx to end.
// When ctx ends first the result of fn is discarded.
func (p *Pool) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		defer p.sem.Release(1)
		done <- fn(context.WithoutCancel(ctx))
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
