package async

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/schoolbus-hub/pkg/logger"
)

func newTestPool(workers, queue int) *Pool {
	return New(workers, queue, logger.New(io.Discard, "test", logger.LevelError))
}

func TestPool_RunsSubmittedTasks(t *testing.T) {
	p := newTestPool(4, 100)
	p.Start()

	var done atomic.Int32
	for range 50 {
		ok := p.Submit(context.Background(), "count", func(ctx context.Context) error {
			done.Add(1)
			return nil
		})
		require.True(t, ok)
	}

	require.NoError(t, p.Close())
	assert.Equal(t, int32(50), done.Load())
}

func TestPool_TaskOutlivesRequestContext(t *testing.T) {
	p := newTestPool(1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	var seen error
	require.True(t, p.Submit(ctx, "ctx", func(ctx context.Context) error {
		seen = ctx.Err()
		return nil
	}))
	cancel()

	p.Start()
	require.NoError(t, p.Close())
	assert.NoError(t, seen)
}

func TestPool_RejectsWhenFull(t *testing.T) {
	// not started: nothing drains the queue
	p := newTestPool(1, 1)

	noop := func(ctx context.Context) error { return nil }
	assert.True(t, p.Submit(context.Background(), "first", noop))
	assert.False(t, p.Submit(context.Background(), "second", noop))

	p.Start()
	require.NoError(t, p.Close())
}

func TestPool_SurvivesFailingAndPanickingTasks(t *testing.T) {
	p := newTestPool(1, 10)
	p.Start()

	var after atomic.Bool
	p.Submit(context.Background(), "fail", func(ctx context.Context) error { return errors.New("db down") })
	p.Submit(context.Background(), "panic", func(ctx context.Context) error { panic("bad") })
	p.Submit(context.Background(), "after", func(ctx context.Context) error {
		after.Store(true)
		return nil
	})

	require.NoError(t, p.Close())
	assert.True(t, after.Load())
}

func TestPool_SubmitAfterClose(t *testing.T) {
	p := newTestPool(1, 1)
	p.Start()
	require.NoError(t, p.Close())

	assert.False(t, p.Submit(context.Background(), "late", func(ctx context.Context) error { return nil }))
	assert.ErrorIs(t, p.Close(), ErrPoolClosed)
}
