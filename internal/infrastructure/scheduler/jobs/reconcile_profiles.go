package jobs

import (
	"context"
	"fmt"

	"github.com/yogaii/yogaii-streak/internal/application/command"
	"github.com/yogaii/yogaii-streak/pkg/logger"
)

// ProfileReconciler is implemented by command.ReconcileProfileHandler.
type ProfileReconciler interface {
	Handle(ctx context.Context, cmd command.ReconcileProfileCommand) (*command.ReconcileProfileResult, error)
}

// UserLister lists the users that own a profile.
type UserLister interface {
	ListUserIDs(ctx context.Context) ([]string, error)
}

// ReconcileProfilesJob rebuilds every profile from its activity history and
// saves the ones that drifted.
type ReconcileProfilesJob struct {
	reconciler ProfileReconciler
	users      UserLister
	dryRun     bool
	log        *logger.Logger
}

// NewReconcileProfilesJob creates the job. With dryRun set, drift is only logged.
func NewReconcileProfilesJob(reconciler ProfileReconciler, users UserLister, dryRun bool, log *logger.Logger) *ReconcileProfilesJob {
	if log == nil {
		log = logger.Nop()
	}
	return &ReconcileProfilesJob{
		reconciler: reconciler,
		users:      users,
		dryRun:     dryRun,
		log:        log.With(logger.Component("job_reconcile_profiles")),
	}
}

func (j *ReconcileProfilesJob) Name() string { return "reconcile_profiles" }

func (j *ReconcileProfilesJob) Description() string {
	return "Rebuilds profile counters from activity history and repairs drift"
}

func (j *ReconcileProfilesJob) Run(ctx context.Context) error {
	ids, err := j.users.ListUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	var drifted, repaired, failed int
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := j.reconciler.Handle(ctx, command.ReconcileProfileCommand{UserID: id, DryRun: j.dryRun})
		if err != nil {
			failed++
			j.log.Warn("reconcile failed", logger.UserID(id), logger.Err(err))
			continue
		}
		if res.Diff.IsZero() {
			continue
		}

		drifted++
		if res.Applied {
			repaired++
		}
		j.log.Info("profile drift",
			logger.UserID(id),
			logger.Int("total_days_diff", res.Diff.TotalDays),
			logger.Int("xp_diff", res.Diff.XP),
			logger.Int("current_streak_diff", res.Diff.CurrentStreak),
			logger.Int("longest_streak_diff", res.Diff.LongestStreak),
			logger.Bool("applied", res.Applied),
		)
	}

	j.log.Info("reconcile finished",
		logger.Int("users", len(ids)),
		logger.Int("drifted", drifted),
		logger.Int("repaired", repaired),
		logger.Int("failed", failed),
	)

	if failed > 0 {
		return fmt.Errorf("reconcile: %d of %d profiles failed", failed, len(ids))
	}
	return nil
}
