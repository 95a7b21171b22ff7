package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler runs delayed background tasks bound to a root context. A task's
// failure is logged; it never propagates to the code that scheduled it.
type Scheduler struct {
	ctx    context.Context
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler whose tasks are cancelled with ctx.
func NewScheduler(ctx context.Context, logger *zap.Logger) *Scheduler {
	return &Scheduler{ctx: ctx, logger: logger}
}

// After runs task once delay has elapsed.
func (s *Scheduler) After(name string, delay time.Duration, task func(context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			s.logger.Warn("scheduled task cancelled", zap.String("task", name))
			return
		case <-timer.C:
		}

		if err := task(s.ctx); err != nil {
			s.logger.Error("scheduled task failed", zap.String("task", name), zap.Error(err))
			return
		}
		s.logger.Debug("scheduled task done", zap.String("task", name))
	}()
}

// Wait blocks until every scheduled task has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
