package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STORAGE_DRIVER", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 5, cfg.Streak.DefaultWeeklyGoal)
	assert.Equal(t, 3, cfg.Streak.MaxConflictAttempts)
	assert.Equal(t, time.UTC, cfg.Streak.Location)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "1h", cfg.Scheduler.WeeklyProgressSchedule)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestFromEnv_PostgresInferredFromURL(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/yogaii")
	t.Setenv("HTTP_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")
	t.Setenv("STORAGE_DRIVER", "mongo")
	t.Setenv("STREAK_WEEK_TIMEZONE", "Mars/Olympus")
	t.Setenv("STREAK_DEFAULT_WEEKLY_GOAL", "9")
	t.Setenv("REDIS_EVENT_BUS", "true")
	t.Setenv("ADMIN_API_KEY_HASHES", "plaintext")

	_, err := FromEnv()
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{"STORAGE_DRIVER", "JWT_SECRET", "STREAK_WEEK_TIMEZONE", "STREAK_DEFAULT_WEEKLY_GOAL", "REDIS_EVENT_BUS", "ADMIN_API_KEY_HASHES[0]"} {
		assert.True(t, strings.Contains(msg, want), "missing %s in %s", want, msg)
	}
}

func TestValidate_ProductionRejectsMemory(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORAGE_DRIVER", "memory")

	_, err := FromEnv()
	assert.ErrorContains(t, err, "not allowed in production")
}

func TestValidate_PostgresNeedsURL(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := FromEnv()
	assert.ErrorContains(t, err, "DATABASE_URL is required")
}

func TestFeatureFlags(t *testing.T) {
	t.Setenv("FEATURE_API_DASHBOARD", "false")
	t.Setenv("FEATURE_ACHIEVEMENTS_EVALUATE", "0")

	ff := LoadFeatureFlags()
	assert.False(t, ff.IsEnabled(FeatureDashboard, ""))
	assert.False(t, ff.IsEnabled(FeatureAchievements, "u1"))
	assert.True(t, ff.IsEnabled(FeatureReconcileAPI, "u1"))
	assert.False(t, ff.IsEnabled("unknown", ""))

	ff.SetUserOverride("u1", FeatureAchievements, true)
	assert.True(t, ff.IsEnabled(FeatureAchievements, "u1"))
	assert.False(t, ff.IsEnabled(FeatureAchievements, "u2"))
	ff.ClearUserOverrides("u1")
	assert.False(t, ff.IsEnabled(FeatureAchievements, "u1"))

	require.NoError(t, ff.EnableFeature(FeatureDashboard))
	assert.True(t, ff.IsEnabled(FeatureDashboard, "u1"))
	assert.ErrorIs(t, ff.SetRolloutPercent(FeatureDashboard, 101), ErrInvalidRolloutPercent)
	assert.ErrorIs(t, ff.DisableFeature("nope"), ErrFeatureNotFound)
	assert.Len(t, ff.GetAllFeatures(), 4)
}

func TestFeatureFlags_RolloutIsStable(t *testing.T) {
	ff := LoadFeatureFlags()
	require.NoError(t, ff.SetRolloutPercent(FeatureAchievements, 50))

	in := 0
	for i := 0; i < 1000; i++ {
		id := "user-" + string(rune('a'+i%26)) + string(rune('a'+i/26))
		first := ff.IsEnabled(FeatureAchievements, id)
		assert.Equal(t, first, ff.IsEnabled(FeatureAchievements, id))
		if first {
			in++
		}
	}
	assert.Greater(t, in, 300)
	assert.Less(t, in, 700)
}
