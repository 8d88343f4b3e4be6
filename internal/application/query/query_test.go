package query

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogaii/yogaii-streak/internal/application/command"
	"github.com/yogaii/yogaii-streak/internal/domain/achievement"
	"github.com/yogaii/yogaii-streak/internal/domain/activity"
	"github.com/yogaii/yogaii-streak/internal/domain/shared"
	"github.com/yogaii/yogaii-streak/internal/infrastructure/persistence/memory"
	"github.com/yogaii/yogaii-streak/pkg/timeutil"
)

// Wednesday.
var now = time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC)

type env struct {
	store  *memory.Store
	engine *command.RecordActivityHandler
	writer *command.ProfileWriter
	clock  timeutil.Clock
}

func newEnv() *env {
	store := memory.NewStore()
	clock := timeutil.FixedClock(now)
	writer := command.NewProfileWriter(store.Profiles(), nil, nil, clock, nil, command.DefaultProfileWriterConfig())
	return &env{
		store:  store,
		writer: writer,
		engine: command.NewRecordActivityHandler(store.Activities(), writer, nil, nil, clock, nil),
		clock:  clock,
	}
}

func (e *env) record(t *testing.T, user string, date time.Time, minutes int) {
	t.Helper()
	_, err := e.engine.Handle(context.Background(), command.RecordActivityCommand{UserID: user, Date: date, DurationMinutes: minutes})
	require.NoError(t, err)
}

func TestGetStreak_CreatesOnFirstAccess(t *testing.T) {
	e := newEnv()
	h := NewGetStreakHandler(e.writer, time.UTC, e.clock)

	v, err := h.Handle(context.Background(), GetStreakQuery{UserID: "u"})
	require.NoError(t, err)
	assert.Equal(t, 1, v.Level)
	assert.Equal(t, 5, v.WeeklyGoal)
	assert.False(t, v.StreakActive)

	ids, err := e.store.Profiles().ListUserIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"u"}, ids)

	_, err = h.Handle(context.Background(), GetStreakQuery{})
	assert.True(t, shared.IsValidation(err))
}

func TestGetStreak_ActiveFlag(t *testing.T) {
	e := newEnv()
	e.record(t, "u", timeutil.Date(2024, 3, 19), 10)
	h := NewGetStreakHandler(e.writer, time.UTC, e.clock)

	v, err := h.Handle(context.Background(), GetStreakQuery{UserID: "u"})
	require.NoError(t, err)
	assert.True(t, v.StreakActive)

	later := NewGetStreakHandler(e.writer, time.UTC, timeutil.FixedClock(now.AddDate(0, 0, 2)))
	v, err = later.Handle(context.Background(), GetStreakQuery{UserID: "u"})
	require.NoError(t, err)
	assert.False(t, v.StreakActive)
	assert.Equal(t, 1, v.CurrentStreak)
}

func TestStreakView_JSONIsFlat(t *testing.T) {
	e := newEnv()
	h := NewGetStreakHandler(e.writer, time.UTC, e.clock)
	v, err := h.Handle(context.Background(), GetStreakQuery{UserID: "u"})
	require.NoError(t, err)

	raw, err := json.Marshal(v)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Contains(t, m, "currentStreak")
	assert.Contains(t, m, "xpToNextLevel")
	assert.Contains(t, m, "streakActive")
	assert.NotContains(t, m, "Version")
}

func TestGetWeeklyActivities(t *testing.T) {
	e := newEnv()
	e.record(t, "u", timeutil.Date(2024, 3, 17), 10) // previous Sunday
	e.record(t, "u", timeutil.Date(2024, 3, 18), 10)
	e.record(t, "u", timeutil.Date(2024, 3, 20), 20)
	e.record(t, "u", timeutil.Date(2024, 3, 20), 5)
	e.record(t, "other", timeutil.Date(2024, 3, 19), 10)

	h := NewGetWeeklyActivitiesHandler(e.store.Activities(), time.UTC, e.clock)
	w, err := h.Handle(context.Background(), GetWeeklyActivitiesQuery{UserID: "u"})
	require.NoError(t, err)

	assert.Equal(t, timeutil.Date(2024, 3, 18), w.WeekStart)
	assert.Equal(t, timeutil.Date(2024, 3, 25), w.WeekEnd)
	require.Len(t, w.Activities, 3)
	assert.Equal(t, 20, w.Activities[0].Date.Day())
	assert.Equal(t, 18, w.Activities[2].Date.Day())
	assert.Equal(t, 2, w.PracticeDays)
	assert.Equal(t, 35, w.TotalMinutes)

	prev, err := h.Handle(context.Background(), GetWeeklyActivitiesQuery{UserID: "u", Date: timeutil.Date(2024, 3, 17)})
	require.NoError(t, err)
	assert.Len(t, prev.Activities, 1)
}

func TestGetWeeklyActivities_CalendarDateIgnoresZone(t *testing.T) {
	e := newEnv()
	e.record(t, "u", timeutil.Date(2024, 3, 3), 10)
	e.record(t, "u", timeutil.Date(2024, 3, 4), 10)

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	h := NewGetWeeklyActivitiesHandler(e.store.Activities(), ny, e.clock)

	w, err := h.Handle(context.Background(), GetWeeklyActivitiesQuery{UserID: "u", Date: timeutil.Date(2024, 3, 4)})
	require.NoError(t, err)
	assert.Equal(t, timeutil.Date(2024, 3, 4), w.WeekStart)
	assert.Equal(t, timeutil.Date(2024, 3, 11), w.WeekEnd)
	require.Len(t, w.Activities, 1)
	assert.Equal(t, 4, w.Activities[0].Date.Day())

	// The same instant read as a timestamp is Sunday evening in New York.
	w, err = h.Handle(context.Background(), GetWeeklyActivitiesQuery{UserID: "u", At: time.Date(2024, 3, 4, 2, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, timeutil.Date(2024, 2, 26), w.WeekStart)
}

type brokenActivities struct{ activity.Repository }

func (brokenActivities) QueryByUserAndRange(context.Context, string, time.Time, time.Time) ([]*activity.DailyActivity, error) {
	return nil, errors.New("timeout")
}

func TestGetWeeklyActivities_StoreError(t *testing.T) {
	h := NewGetWeeklyActivitiesHandler(brokenActivities{}, time.UTC, timeutil.FixedClock(now))
	_, err := h.Handle(context.Background(), GetWeeklyActivitiesQuery{UserID: "u"})
	assert.True(t, shared.IsStoreUnavailable(err))
}

func TestGetAchievements(t *testing.T) {
	e := newEnv()
	unlockedAt := now
	require.NoError(t, e.store.Achievements().Upsert(context.Background(), &achievement.UserAchievement{
		UserID: "u", AchievementID: "first_day", IsUnlocked: true, UnlockedAt: &unlockedAt, Progress: 1, MaxProgress: 1,
	}))

	h := NewGetAchievementsHandler(achievement.DefaultCatalog(), e.store.Achievements())
	res, err := h.Handle(context.Background(), GetAchievementsQuery{UserID: "u"})
	require.NoError(t, err)

	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 1, res.Unlocked)
	assert.Equal(t, "first_day", res.Achievements[0].ID)
	assert.True(t, res.Achievements[0].IsUnlocked)
}

func TestGetDashboard(t *testing.T) {
	e := newEnv()
	e.record(t, "u", timeutil.Date(2024, 3, 20), 30)

	streaks := NewGetStreakHandler(e.writer, time.UTC, e.clock)
	weekly := NewGetWeeklyActivitiesHandler(e.store.Activities(), time.UTC, e.clock)
	achievements := NewGetAchievementsHandler(achievement.DefaultCatalog(), e.store.Achievements())
	h := NewGetDashboardHandler(streaks, weekly, achievements)

	d, err := h.Handle(context.Background(), GetDashboardQuery{UserID: "u"})
	require.NoError(t, err)
	assert.Equal(t, 72, d.Streak.XP)
	assert.Len(t, d.Week.Activities, 1)
	assert.Equal(t, 5, d.Achievements.Total)

	broken := NewGetDashboardHandler(streaks, NewGetWeeklyActivitiesHandler(brokenActivities{}, time.UTC, e.clock), achievements)
	_, err = broken.Handle(context.Background(), GetDashboardQuery{UserID: "u"})
	assert.True(t, shared.IsStoreUnavailable(err))

	_, err = h.Handle(context.Background(), GetDashboardQuery{})
	assert.True(t, shared.IsValidation(err))
}
