package database

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_ReturnsResult(t *testing.T) {
	pool := NewPool(2)
	want := errors.New("store failure")

	assert.NoError(t, pool.Run(context.Background(), func(context.Context) error { return nil }))
	assert.ErrorIs(t, pool.Run(context.Background(), func(context.Context) error { return want }), want)
}

func TestPool_BoundsConcurrency(t *testing.T) {
	pool := NewPool(2)

	var running, peak atomic.Int32
	release := make(chan struct{})
	errs := make(chan error, 5)

	for i := 0; i < 5; i++ {
		go func() {
			errs <- pool.Run(context.Background(), func(context.Context) error {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				<-release
				running.Add(-1)
				return nil
			})
		}()
	}

	require.Eventually(t, func() bool { return running.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(release)
	for i := 0; i < 5; i++ {
		require.NoError(t, <-errs)
	}
	assert.Equal(t, int32(2), peak.Load())
}

func TestPool_CallerCancellationDoesNotCancelWork(t *testing.T) {
	pool := NewPool(1)
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	proceed := make(chan struct{})
	finished := make(chan error, 1)
	runErr := make(chan error, 1)

	go func() {
		runErr <- pool.Run(ctx, func(workCtx context.Context) error {
			close(started)
			<-proceed
			finished <- workCtx.Err()
			return nil
		})
	}()

	<-started
	cancel()
	assert.ErrorIs(t, <-runErr, context.Canceled)
	close(proceed)

	select {
	case err := <-finished:
		assert.NoError(t, err, "work context must outlive the caller")
	case <-time.After(time.Second):
		t.Fatal("work did not complete")
	}
}

func TestPool_AcquireHonoursContext(t *testing.T) {
	pool := NewPool(1)
	block := make(chan struct{})
	defer close(block)

	go func() {
		_ = pool.Run(context.Background(), func(context.Context) error {
			<-block
			return nil
		})
	}()
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := pool.Run(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
