package config

import "github.com/codeready-toolchain/meetingcore/pkg/queue"

// ToPoolConfig converts the loaded queue section into pkg/queue.PoolConfig.
// Field names mirror each other directly, so this is a straight copy.
func (c QueueYAMLConfig) ToPoolConfig() *queue.PoolConfig {
	return &queue.PoolConfig{
		WorkerCount:             c.WorkerCount,
		MaxConcurrentJobs:       c.MaxConcurrentJobs,
		PollInterval:            c.PollInterval,
		PollIntervalJitter:      c.PollIntervalJitter,
		JobTimeout:              c.JobTimeout,
		GracefulShutdownTimeout: c.GracefulShutdownTimeout,
		HeartbeatInterval:       c.HeartbeatInterval,
		OrphanDetectionInterval: c.OrphanDetectionInterval,
		OrphanThreshold:         c.OrphanThreshold,
	}
}
