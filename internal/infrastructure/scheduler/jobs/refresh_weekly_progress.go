// Package jobs contains the scheduled maintenance jobs.
package jobs

import (
	"context"
	"fmt"

	"github.com/yogaii/yogaii-streak/internal/application/command"
	"github.com/yogaii/yogaii-streak/pkg/logger"
)

// WeeklyProgressRefresher is implemented by command.RefreshWeeklyProgressHandler.
type WeeklyProgressRefresher interface {
	HandleAll(ctx context.Context) (*command.RefreshWeeklyProgressResult, error)
}

// RefreshWeeklyProgressJob recomputes weeklyProgress for every profile so
// users who stopped practicing see the count drop to zero on Monday.
type RefreshWeeklyProgressJob struct {
	handler WeeklyProgressRefresher
	log     *logger.Logger
}

// NewRefreshWeeklyProgressJob creates the job.
func NewRefreshWeeklyProgressJob(handler WeeklyProgressRefresher, log *logger.Logger) *RefreshWeeklyProgressJob {
	if log == nil {
		log = logger.Nop()
	}
	return &RefreshWeeklyProgressJob{handler: handler, log: log.With(logger.Component("job_refresh_weekly_progress"))}
}

func (j *RefreshWeeklyProgressJob) Name() string { return "refresh_weekly_progress" }

func (j *RefreshWeeklyProgressJob) Description() string {
	return "Recomputes weekly progress for all profiles in the current week"
}

// Run fails if any profile could not be refreshed.
func (j *RefreshWeeklyProgressJob) Run(ctx context.Context) error {
	res, err := j.handler.HandleAll(ctx)
	if err != nil {
		return fmt.Errorf("refresh weekly progress: %w", err)
	}

	j.log.Info("weekly progress refreshed",
		logger.Int("processed", res.Processed),
		logger.Int("failed", res.Failed),
		logger.Time("week_start", res.WeekStart),
	)

	if res.Failed > 0 {
		return fmt.Errorf("refresh weekly progress: %d of %d profiles failed", res.Failed, res.Processed+res.Failed)
	}
	return nil
}
