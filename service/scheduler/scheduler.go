// Package scheduler 定时清理过期会话
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mileusna/crontab"
)

const cleanupJobTimeout = 5 * time.Minute

type SessionSweeper interface {
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}

type Scheduler struct {
	ctab    *crontab.Crontab
	sweeper SessionSweeper
	spec    string
}

func New(sweeper SessionSweeper, spec string) *Scheduler {
	return &Scheduler{
		ctab:    crontab.New(),
		sweeper: sweeper,
		spec:    spec,
	}
}

// Run 启动时先清理一次，之后按 cron 表达式执行，直到 ctx 结束
func (s *Scheduler) Run(ctx context.Context) error {
	s.cleanup(ctx)

	if err := s.ctab.AddJob(s.spec, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), cleanupJobTimeout)
		defer cancel()
		s.cleanup(jobCtx)
	}); err != nil {
		s.ctab.Shutdown()
		return fmt.Errorf("failed to add session cleanup job: %v", err)
	}
	slog.Info("Session cleanup scheduled", "cron", s.spec)

	<-ctx.Done()
	s.ctab.Shutdown()
	return nil
}

func (s *Scheduler) cleanup(ctx context.Context) {
	n, err := s.sweeper.CleanupExpiredSessions(ctx)
	if err != nil {
		slog.Error("Failed to cleanup expired sessions", "err", err)
		return
	}
	slog.Debug("Session cleanup finished", "count", n)
}
