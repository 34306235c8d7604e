package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRegisterAndCancelJob(t *testing.T) {
	pool := &WorkerPool{activeJobs: make(map[int64]context.CancelFunc)}

	ctx, cancel := context.WithCancel(context.Background())
	pool.RegisterJob(1, cancel)

	assert.True(t, pool.CancelJob(1))
	assert.Error(t, ctx.Err())

	assert.False(t, pool.CancelJob(999))
}

func TestPoolUnregisterJob(t *testing.T) {
	pool := &WorkerPool{activeJobs: make(map[int64]context.CancelFunc)}

	_, cancel := context.WithCancel(context.Background())
	pool.RegisterJob(1, cancel)
	assert.True(t, pool.CancelJob(1))

	pool.UnregisterJob(1)
	assert.False(t, pool.CancelJob(1))
}

func TestPoolGetActiveJobIDs(t *testing.T) {
	pool := &WorkerPool{activeJobs: make(map[int64]context.CancelFunc)}

	ids := pool.getActiveJobIDs()
	assert.Empty(t, ids)

	_, cancel1 := context.WithCancel(context.Background())
	defer cancel1()
	_, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	pool.RegisterJob(1, cancel1)
	pool.RegisterJob(2, cancel2)

	ids = pool.getActiveJobIDs()
	require.Len(t, ids, 2)
	assert.Contains(t, ids, int64(1))
	assert.Contains(t, ids, int64(2))
}

func TestPoolStopTwiceDoesNotPanic(t *testing.T) {
	pool := &WorkerPool{
		stopCh:     make(chan struct{}),
		activeJobs: make(map[int64]context.CancelFunc),
	}

	pool.Stop()
	assert.NotPanics(t, func() { pool.Stop() })
}
