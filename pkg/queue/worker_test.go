package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testPoolConfig() *PoolConfig {
	cfg := DefaultPoolConfig()
	cfg.PollInterval = 1 * time.Second
	cfg.PollIntervalJitter = 500 * time.Millisecond
	return cfg
}

func TestWorkerPollInterval(t *testing.T) {
	cfg := testPoolConfig()
	w := NewWorker("test-worker", nil, cfg, nil, nil)

	for i := 0; i < 100; i++ {
		d := w.pollInterval()
		assert.GreaterOrEqual(t, d, 500*time.Millisecond, "poll interval below minimum")
		assert.LessOrEqual(t, d, 1500*time.Millisecond, "poll interval above maximum")
	}
}

func TestWorkerPollIntervalNoJitter(t *testing.T) {
	cfg := testPoolConfig()
	cfg.PollIntervalJitter = 0
	w := NewWorker("test-worker", nil, cfg, nil, nil)

	assert.Equal(t, cfg.PollInterval, w.pollInterval())
}

func TestWorkerHealthReflectsStatus(t *testing.T) {
	w := NewWorker("test-worker", nil, testPoolConfig(), nil, nil)

	h := w.Health()
	assert.Equal(t, "test-worker", h.ID)
	assert.Equal(t, WorkerStatusIdle, h.Status)
	assert.Zero(t, h.JobsProcessed)

	w.setStatus(WorkerStatusWorking, 42)
	h = w.Health()
	assert.Equal(t, WorkerStatusWorking, h.Status)
	assert.Equal(t, int64(42), h.CurrentJobID)
}

func TestWorkerStopIsIdempotent(t *testing.T) {
	w := NewWorker("test-worker", nil, testPoolConfig(), nil, nil)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		<-w.stopCh
	}()

	w.Stop()
	assert.NotPanics(t, func() { w.Stop() })
}
