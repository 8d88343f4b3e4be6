package sqlite

import (
	"context"
	"path/filepath"
	"sync"
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

var now = time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "yogaii.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestActivities_RangeAndOrder(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	repo := s.Activities()

	for _, d := range []int{20, 18, 19} {
		a, err := activity.NewDailyActivity(activity.NewActivityParams{
			UserID:          "u1",
			Date:            timeutil.Date(2024, time.March, d),
			DurationMinutes: 30,
			Poses:           []string{"tree", "warrior"},
			Quality:         activity.QualityGood,
			XPEarned:        84,
			CreatedAt:       now,
		})
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, a))
	}

	all, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 18, all[0].Date.Day())
	assert.Equal(t, 20, all[2].Date.Day())
	assert.Equal(t, []string{"tree", "warrior"}, all[0].Poses)

	ranged, err := repo.QueryByUserAndRange(ctx, "u1", timeutil.Date(2024, time.March, 19), timeutil.Date(2024, time.March, 20))
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, 19, ranged[0].Date.Day())

	none, err := repo.ListByUser(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestProfiles_OptimisticVersion(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	repo := s.Profiles()

	p, err := streak.NewProfile("u1", 4, now)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, p))
	assert.EqualValues(t, 1, p.Version)

	dup, _ := streak.NewProfile("u1", 4, now)
	assert.ErrorIs(t, repo.Create(ctx, dup), shared.ErrProfileAlreadyExists)

	loaded, err := repo.GetByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, loaded.LastPracticeDate)
	stale := loaded.Clone()

	loaded.ApplyActivity(timeutil.Date(2024, time.March, 20), 90, now)
	require.NoError(t, repo.Update(ctx, loaded))
	assert.EqualValues(t, 2, loaded.Version)
	assert.ErrorIs(t, repo.Update(ctx, stale), shared.ErrProfileVersionStale)

	again, err := repo.GetByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 90, again.XP)
	assert.Equal(t, 1, again.CurrentStreak)
	require.NotNil(t, again.LastPracticeDate)
	assert.True(t, timeutil.IsSameDay(*again.LastPracticeDate, timeutil.Date(2024, time.March, 20)))

	missing := again.Clone()
	missing.UserID = "nobody"
	assert.ErrorIs(t, repo.Update(ctx, missing), shared.ErrProfileNotFound)

	ids, err := repo.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, ids)
}

func TestProfiles_ConcurrentUpdatesConflict(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	repo := s.Profiles()

	p, _ := streak.NewProfile("u1", 0, now)
	require.NoError(t, repo.Create(ctx, p))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := p.Clone()
			c.XP += 10
			if repo.Update(ctx, c) == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestAchievements_UpsertKeepsID(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	repo := s.Achievements()

	ua := &achievement.UserAchievement{UserID: "u1", AchievementID: "early_bird", Progress: 1, MaxProgress: 10, UpdatedAt: now}
	require.NoError(t, repo.Upsert(ctx, ua))
	id := ua.ID

	unlockedAt := now
	next := &achievement.UserAchievement{UserID: "u1", AchievementID: "early_bird", Progress: 10, MaxProgress: 10, IsUnlocked: true, UnlockedAt: &unlockedAt, UpdatedAt: now}
	require.NoError(t, repo.Upsert(ctx, next))
	assert.Equal(t, id, next.ID)

	rows, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].IsUnlocked)
	assert.Equal(t, 10, rows[0].Progress)
}
