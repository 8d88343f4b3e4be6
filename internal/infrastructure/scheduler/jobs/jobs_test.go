package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogaii/yogaii-streak/internal/application/command"
	"github.com/yogaii/yogaii-streak/internal/domain/streak"
)

type fakeRefresher struct {
	res *command.RefreshWeeklyProgressResult
	err error
}

func (f *fakeRefresher) HandleAll(ctx context.Context) (*command.RefreshWeeklyProgressResult, error) {
	return f.res, f.err
}

func TestRefreshWeeklyProgressJob(t *testing.T) {
	week := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	job := NewRefreshWeeklyProgressJob(&fakeRefresher{res: &command.RefreshWeeklyProgressResult{Processed: 3, WeekStart: week}}, nil)
	assert.Equal(t, "refresh_weekly_progress", job.Name())
	assert.NotEmpty(t, job.Description())
	assert.NoError(t, job.Run(context.Background()))

	job = NewRefreshWeeklyProgressJob(&fakeRefresher{res: &command.RefreshWeeklyProgressResult{Processed: 2, Failed: 1}}, nil)
	assert.ErrorContains(t, job.Run(context.Background()), "1 of 3")

	job = NewRefreshWeeklyProgressJob(&fakeRefresher{err: errors.New("store down")}, nil)
	assert.ErrorContains(t, job.Run(context.Background()), "store down")
}

type fakeReconciler struct {
	diffs map[string]streak.Diff
	fail  map[string]bool
	seen  []command.ReconcileProfileCommand
}

func (f *fakeReconciler) Handle(ctx context.Context, cmd command.ReconcileProfileCommand) (*command.ReconcileProfileResult, error) {
	f.seen = append(f.seen, cmd)
	if f.fail[cmd.UserID] {
		return nil, errors.New("conflict")
	}
	d := f.diffs[cmd.UserID]
	return &command.ReconcileProfileResult{Diff: d, Applied: !cmd.DryRun && !d.IsZero()}, nil
}

type fakeUsers []string

func (f fakeUsers) ListUserIDs(ctx context.Context) ([]string, error) { return f, nil }

func TestReconcileProfilesJob(t *testing.T) {
	rec := &fakeReconciler{diffs: map[string]streak.Diff{"u2": {XP: 50, TotalDays: 1}}}
	job := NewReconcileProfilesJob(rec, fakeUsers{"u1", "u2"}, false, nil)

	assert.Equal(t, "reconcile_profiles", job.Name())
	require.NoError(t, job.Run(context.Background()))
	require.Len(t, rec.seen, 2)
	assert.False(t, rec.seen[0].DryRun)
}

func TestReconcileProfilesJob_DryRunAndFailures(t *testing.T) {
	rec := &fakeReconciler{fail: map[string]bool{"u1": true}}
	job := NewReconcileProfilesJob(rec, fakeUsers{"u1", "u2", "u3"}, true, nil)

	err := job.Run(context.Background())
	assert.ErrorContains(t, err, "1 of 3")
	require.Len(t, rec.seen, 3)
	for _, cmd := range rec.seen {
		assert.True(t, cmd.DryRun)
	}
}

func TestReconcileProfilesJob_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &fakeReconciler{}
	err := NewReconcileProfilesJob(rec, fakeUsers{"u1"}, false, nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.seen)
}
