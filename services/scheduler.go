package services

import (
	"context"
	"time"

	"optihome/config"
	"optihome/utils"
)

// Scheduler triggers a daily scrape of both kinds at the configured time.
type Scheduler struct {
	logger   *utils.Logger
	cfg      *config.Config
	pipeline *ScrapePipeline
}

// NewScheduler creates a Scheduler; call Start to begin the loop.
func NewScheduler(logger *utils.Logger, cfg *config.Config, pipeline *ScrapePipeline) *Scheduler {
	return &Scheduler{logger: logger, cfg: cfg, pipeline: pipeline}
}

// Start runs the scheduling loop in a goroutine until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.cfg.SchedulerEnabled {
		s.logger.Info("[scheduler] Disabled (set ENABLE_SCHEDULER=true to enable)")
		return
	}

	s.logger.Info("[scheduler] Scraping daily at %02d:%02d",
		s.cfg.ScheduleHour, s.cfg.ScheduleMinute)

	go func() {
		for {
			wait := untilNext(time.Now(), s.cfg.ScheduleHour, s.cfg.ScheduleMinute)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			s.runAll(ctx)
		}
	}()
}

func (s *Scheduler) runAll(ctx context.Context) {
	for _, kind := range []string{"flat", "house"} {
		count, err := s.pipeline.Run(ctx, kind, s.cfg.PagesPerRun)
		if err != nil {
			s.logger.Error("[scheduler] %s run failed: %v", kind, err)
			continue
		}
		s.logger.Info("[scheduler] %s run stored %d properties", kind, count)
	}
}

// untilNext returns the duration from now to the next occurrence of
// hour:minute, which is tomorrow when today's slot has passed.
func untilNext(now time.Time, hour, minute int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
