// Package cleanup runs the background retention sweep that purges
// terminal job rows once they are past their useful life.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/meetingcore/pkg/config"
	"github.com/codeready-toolchain/meetingcore/pkg/queue"
)

// Service periodically purges completed and failed job rows older than
// the configured retention window. All operations are idempotent and
// safe to run from multiple pods.
type Service struct {
	cfg   config.RetentionYAMLConfig
	store *queue.Store

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service.
func NewService(cfg config.RetentionYAMLConfig, store *queue.Store) *Service {
	return &Service{cfg: cfg, store: store}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("cleanup service started",
		"job_age", s.cfg.JobAge,
		"interval", s.cfg.CheckInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll(ctx)

	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Service) runAll(ctx context.Context) {
	s.purgeOldJobs(ctx)
}

func (s *Service) purgeOldJobs(ctx context.Context) {
	before := time.Now().Add(-s.cfg.JobAge)
	count, err := s.store.PurgeOld(ctx, before)
	if err != nil {
		slog.Error("retention: job purge failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("retention: purged old jobs", "count", count)
	}
}
