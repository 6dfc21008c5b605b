package worker

import (
	"context"
	"time"

	"offlinesync/internal/models"

	"github.com/rs/zerolog"
)

// Drainer runs one pass over the pending queue.
type Drainer interface {
	ProcessPendingQueue(ctx context.Context) (models.SyncResult, error)
}

// Scheduler drains periodically. After a pass that left failures behind it
// waits according to the retry policy instead of the regular interval.
type Scheduler struct {
	drainer  Drainer
	interval time.Duration
	retry    RetryPolicy
	logger   *zerolog.Logger
	after    func(time.Duration) <-chan time.Time
}

func NewScheduler(drainer Drainer, interval time.Duration, retry RetryPolicy, logger *zerolog.Logger) *Scheduler {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Scheduler{
		drainer:  drainer,
		interval: interval,
		retry:    retry,
		logger:   logger,
		after:    time.After,
	}
}

// Start blocks until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("flush scheduler started")
	defer s.logger.Info().Msg("flush scheduler stopped")

	streak := 0
	delay := s.interval
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.after(delay):
		}

		res, err := s.drainer.ProcessPendingQueue(ctx)
		switch {
		case err != nil:
			streak++
			s.logger.Error().Err(err).Int("streak", streak).Msg("scheduled drain failed")
		case res.Failed > 0:
			streak++
			s.logger.Warn().
				Int("success", res.Success).
				Int("failed", res.Failed).
				Int("streak", streak).
				Msg("scheduled drain left failures")
		default:
			streak = 0
		}

		delay = s.nextDelay(streak)
	}
}

func (s *Scheduler) nextDelay(streak int) time.Duration {
	if streak == 0 {
		return s.interval
	}
	return s.retry.NextDelay(streak)
}
