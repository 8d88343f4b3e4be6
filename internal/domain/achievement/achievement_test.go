package achievement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogaii/yogaii-streak/internal/domain/shared"
)

var now = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	all := c.All()
	require.Len(t, all, 5)

	ids := make([]string, 0, len(all))
	for _, d := range all {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"first_day", "week_streak", "month_streak", "early_bird", "level_5"}, ids)

	d, ok := c.Get("early_bird")
	require.True(t, ok)
	assert.Equal(t, TypeEarlyBird, d.Type)
	assert.Equal(t, 10, d.RequiredValue)
}

func TestParseCatalog_Rejects(t *testing.T) {
	tests := map[string]string{
		"malformed":    "achievements: [",
		"missing id":   "achievements:\n  - type: streak\n    required_value: 2\n",
		"unknown type": "achievements:\n  - id: x\n    type: karma\n    required_value: 2\n",
		"zero target":  "achievements:\n  - id: x\n    type: level\n    required_value: 0\n",
		"duplicate":    "achievements:\n  - id: x\n    type: level\n    required_value: 1\n  - id: x\n    type: level\n    required_value: 2\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(doc))
			assert.True(t, shared.IsValidation(err), "got %v", err)
		})
	}
}

func TestEvaluate_StreakProgressAndUnlock(t *testing.T) {
	def := Definition{ID: "week_streak", Type: TypeStreak, RequiredValue: 7}

	r := Evaluate(def, nil, "u1", Snapshot{CurrentStreak: 3}, now)
	assert.True(t, r.Changed)
	assert.False(t, r.Unlocked)
	assert.Equal(t, 3, r.Achievement.Progress)
	assert.Equal(t, 7, r.Achievement.MaxProgress)

	r = Evaluate(def, r.Achievement, "u1", Snapshot{CurrentStreak: 3}, now)
	assert.False(t, r.Changed)

	r = Evaluate(def, r.Achievement, "u1", Snapshot{CurrentStreak: 9}, now)
	assert.True(t, r.Unlocked)
	assert.True(t, r.Achievement.IsUnlocked)
	assert.Equal(t, 7, r.Achievement.Progress)
	require.NotNil(t, r.Achievement.UnlockedAt)

	// Streak broke afterwards: stays unlocked, progress kept.
	r = Evaluate(def, r.Achievement, "u1", Snapshot{CurrentStreak: 1}, now)
	assert.False(t, r.Changed)
	assert.True(t, r.Achievement.IsUnlocked)
	assert.Equal(t, 7, r.Achievement.Progress)
}

func TestEvaluate_StreakProgressCanDropWhileLocked(t *testing.T) {
	def := Definition{ID: "week_streak", Type: TypeStreak, RequiredValue: 7}
	r := Evaluate(def, nil, "u1", Snapshot{CurrentStreak: 5}, now)
	r = Evaluate(def, r.Achievement, "u1", Snapshot{CurrentStreak: 1}, now)

	assert.True(t, r.Changed)
	assert.Equal(t, 1, r.Achievement.Progress)
}

func TestEvaluate_EarlyBirdCounts(t *testing.T) {
	def := Definition{ID: "early_bird", Type: TypeEarlyBird, RequiredValue: 2}

	r := Evaluate(def, nil, "u1", Snapshot{EarlySession: true}, now)
	assert.Equal(t, 1, r.Achievement.Progress)

	r = Evaluate(def, r.Achievement, "u1", Snapshot{EarlySession: false}, now)
	assert.Equal(t, 1, r.Achievement.Progress)
	assert.False(t, r.Changed)

	r = Evaluate(def, r.Achievement, "u1", Snapshot{EarlySession: true}, now)
	assert.True(t, r.Unlocked)
}

func TestEvaluate_DoesNotMutateExisting(t *testing.T) {
	def := Definition{ID: "first_day", Type: TypeTotalDays, RequiredValue: 1}
	existing := &UserAchievement{UserID: "u1", AchievementID: "first_day"}

	r := Evaluate(def, existing, "u1", Snapshot{TotalDays: 1}, now)

	assert.True(t, r.Unlocked)
	assert.False(t, existing.IsUnlocked)
}

func TestEvaluateAllAndMerge(t *testing.T) {
	c := DefaultCatalog()
	results := EvaluateAll(c, nil, "u1", Snapshot{CurrentStreak: 1, TotalDays: 1, Level: 1, EarlySession: true}, now)
	require.Len(t, results, 5)

	var unlocked []string
	progress := make([]*UserAchievement, 0, len(results))
	for _, r := range results {
		if r.Unlocked {
			unlocked = append(unlocked, r.Achievement.AchievementID)
		}
		progress = append(progress, r.Achievement)
	}
	assert.Equal(t, []string{"first_day"}, unlocked)

	views := Merge(c, progress)
	require.Len(t, views, 5)
	assert.True(t, views[0].IsUnlocked)
	assert.Equal(t, 1, views[3].Progress)
	assert.Equal(t, 10, views[3].MaxProgress)

	empty := Merge(c, nil)
	assert.False(t, empty[0].IsUnlocked)
	assert.Zero(t, empty[0].Progress)
	assert.Equal(t, 1, empty[0].MaxProgress)

	assert.Len(t, IndexByID(progress), 5)
}
