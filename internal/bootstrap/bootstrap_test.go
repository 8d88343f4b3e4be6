package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogaii/yogaii-streak/config"
	"github.com/yogaii/yogaii-streak/internal/application/command"
	"github.com/yogaii/yogaii-streak/internal/application/query"
	"github.com/yogaii/yogaii-streak/pkg/timeutil"
)

func testConfig(driver string) *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{Driver: driver},
		Streak: config.StreakConfig{
			DefaultWeeklyGoal:   5,
			Location:            time.UTC,
			MaxConflictAttempts: 3,
		},
		Features:      config.LoadFeatureFlags(),
		Observability: config.ObservabilityConfig{LogLevel: "error"},
	}
}

func TestNew_MemoryEndToEnd(t *testing.T) {
	now := time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	c, err := New(ctx, testConfig(config.DriverMemory), nil, Options{EventHandlers: true, Clock: timeutil.FixedClock(now)})
	require.NoError(t, err)
	defer c.Close()

	res, err := c.RecordActivity.Handle(ctx, command.RecordActivityCommand{
		UserID:          "u1",
		Date:            time.Date(2024, 3, 6, 6, 30, 0, 0, time.UTC),
		DurationMinutes: 30,
		Poses:           []string{"tree", "warrior"},
		Quality:         "good",
	})
	require.NoError(t, err)
	assert.Equal(t, 84, res.Activity.XPEarned)
	assert.Equal(t, 1, res.Profile.CurrentStreak)

	assert.Eventually(t, func() bool {
		res, err := c.GetAchievements.Handle(ctx, query.GetAchievementsQuery{UserID: "u1"})
		if err != nil {
			return false
		}
		for _, v := range res.Achievements {
			if v.ID == "first_day" {
				return v.IsUnlocked
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	view, err := c.GetStreak.Handle(ctx, query.GetStreakQuery{UserID: "u1"})
	require.NoError(t, err)
	assert.True(t, view.StreakActive)
	assert.Equal(t, 84, view.XP)

	assert.Empty(t, c.Checks)
	assert.NoError(t, c.Close())
}

func TestNew_SQLite(t *testing.T) {
	cfg := testConfig(config.DriverSQLite)
	cfg.Database.SQLitePath = filepath.Join(t.TempDir(), "streak.db")

	c, err := New(context.Background(), cfg, nil, Options{})
	require.NoError(t, err)
	defer c.Close()

	require.Contains(t, c.Checks, "sqlite")
	assert.NoError(t, c.Checks["sqlite"](context.Background()))

	p, err := c.Writer.GetOrCreate(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.WeeklyGoal)
}

func TestNew_UnknownDriver(t *testing.T) {
	var (
		c   *Container
		err error
	)
	require.NotPanics(t, func() {
		c, err = New(context.Background(), testConfig("mongo"), nil, Options{})
	})
	assert.Nil(t, c)
	assert.ErrorContains(t, err, "unknown storage driver")
}

func TestNew_RedisFailureAfterStoreOpened(t *testing.T) {
	cfg := testConfig(config.DriverSQLite)
	cfg.Database.SQLitePath = filepath.Join(t.TempDir(), "streak.db")
	cfg.Redis = config.RedisConfig{Enabled: true, Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var (
		c   *Container
		err error
	)
	require.NotPanics(t, func() {
		c, err = New(ctx, cfg, nil, Options{})
	})
	assert.Nil(t, c)
	assert.ErrorContains(t, err, "connect redis")
}

func TestContainer_CloseRunsEveryCloser(t *testing.T) {
	var order []string
	c := &Container{closers: []func() error{
		func() error { order = append(order, "bus"); return nil },
		func() error { order = append(order, "store"); return assert.AnError },
	}}

	err := c.Close()
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, []string{"bus", "store"}, order)
	assert.NoError(t, c.Close())
}

func TestNewLogger(t *testing.T) {
	log := NewLogger(config.ObservabilityConfig{LogLevel: "debug", LogFormat: "console"})
	assert.NotNil(t, log)
}
