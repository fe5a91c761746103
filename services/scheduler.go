// services/scheduler.go
package services

import (
	"context"
	"time"

	"feedquire/logger"

	"github.com/go-co-op/gocron/v2"
)

// StartSweepScheduler removes stale unverified profiles every interval until ctx is done.
func (s *ProfileService) StartSweepScheduler(ctx context.Context, interval, ttl time.Duration, log *logger.Logger) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			jobCtx, cancel := context.WithTimeout(ctx, time.Minute)
			defer cancel()

			n, err := s.SweepUnverified(jobCtx, ttl)
			if err != nil {
				log.Error("[Scheduler] sweep failed", "error", err)
				return
			}
			if n > 0 {
				log.Info("🧹 swept unverified profiles", "count", n, "ttl", ttl.String())
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	return sched, nil
}
