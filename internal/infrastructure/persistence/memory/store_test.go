package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogaii/yogaii-streak/internal/domain/achievement"
	"github.com/yogaii/yogaii-streak/internal/domain/activity"
	"github.com/yogaii/yogaii-streak/internal/domain/shared"
	"github.com/yogaii/yogaii-streak/internal/domain/streak"
	"github.com/yogaii/yogaii-streak/pkg/timeutil"
)

func TestActivities_RangeAndOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Activities()

	for _, d := range []time.Time{timeutil.Date(2024, 3, 3), timeutil.Date(2024, 3, 5), timeutil.Date(2024, 3, 4), timeutil.Date(2024, 3, 11)} {
		require.NoError(t, repo.Create(ctx, &activity.DailyActivity{UserID: "u", Date: d, Poses: []string{"tree"}, CreatedAt: d}))
	}
	require.NoError(t, repo.Create(ctx, &activity.DailyActivity{UserID: "other", Date: timeutil.Date(2024, 3, 5)}))

	week, err := repo.QueryByUserAndRange(ctx, "u", timeutil.Date(2024, 3, 4), timeutil.Date(2024, 3, 11))
	require.NoError(t, err)
	require.Len(t, week, 2)
	assert.Equal(t, timeutil.Date(2024, 3, 5), week[0].Date)
	assert.Equal(t, timeutil.Date(2024, 3, 4), week[1].Date)
	assert.NotEmpty(t, week[0].ID)

	all, err := repo.ListByUser(ctx, "u")
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, timeutil.Date(2024, 3, 3), all[0].Date)
	assert.Equal(t, timeutil.Date(2024, 3, 11), all[3].Date)

	// returned entities are copies
	all[0].Poses[0] = "changed"
	again, _ := repo.ListByUser(ctx, "u")
	assert.Equal(t, "tree", again[0].Poses[0])
}

func TestProfiles_Versioning(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Profiles()

	_, err := repo.GetByUser(ctx, "u")
	assert.ErrorIs(t, err, shared.ErrProfileNotFound)

	p := &streak.Profile{UserID: "u", WeeklyGoal: 5, Level: 1}
	require.NoError(t, repo.Create(ctx, p))
	assert.Equal(t, int64(1), p.Version)
	assert.ErrorIs(t, repo.Create(ctx, &streak.Profile{UserID: "u"}), shared.ErrProfileAlreadyExists)

	a, err := repo.GetByUser(ctx, "u")
	require.NoError(t, err)
	b, err := repo.GetByUser(ctx, "u")
	require.NoError(t, err)

	a.XP = 10
	require.NoError(t, repo.Update(ctx, a))
	assert.Equal(t, int64(2), a.Version)

	b.XP = 20
	assert.ErrorIs(t, repo.Update(ctx, b), shared.ErrProfileVersionStale)

	got, _ := repo.GetByUser(ctx, "u")
	assert.Equal(t, 10, got.XP)

	assert.ErrorIs(t, repo.Update(ctx, &streak.Profile{UserID: "missing"}), shared.ErrProfileNotFound)

	require.NoError(t, repo.Create(ctx, &streak.Profile{UserID: "a"}))
	ids, err := repo.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "u"}, ids)
}

func TestAchievements_UpsertKeepsID(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Achievements()

	ua := &achievement.UserAchievement{UserID: "u", AchievementID: "early_bird", Progress: 1, MaxProgress: 10}
	require.NoError(t, repo.Upsert(ctx, ua))
	id := ua.ID
	require.NotEmpty(t, id)

	require.NoError(t, repo.Upsert(ctx, &achievement.UserAchievement{UserID: "u", AchievementID: "early_bird", Progress: 2, MaxProgress: 10}))
	require.NoError(t, repo.Upsert(ctx, &achievement.UserAchievement{UserID: "u", AchievementID: "first_day", IsUnlocked: true}))

	list, err := repo.ListByUser(ctx, "u")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "early_bird", list[0].AchievementID)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, 2, list[0].Progress)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewStore()

	_, err := s.Profiles().GetByUser(ctx, "u")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Activities().Create(ctx, &activity.DailyActivity{UserID: "u"}), context.Canceled)
}
