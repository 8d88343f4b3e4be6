package eventhandler

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogaii/yogaii-streak/internal/domain/achievement"
	"github.com/yogaii/yogaii-streak/internal/domain/shared"
	"github.com/yogaii/yogaii-streak/internal/infrastructure/messaging"
	"github.com/yogaii/yogaii-streak/internal/infrastructure/persistence/memory"
	"github.com/yogaii/yogaii-streak/pkg/logger"
	"github.com/yogaii/yogaii-streak/pkg/timeutil"
)

type capture struct {
	mu     sync.Mutex
	events []shared.Event
}

func (c *capture) Publish(e shared.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func recorded(user string, hour, streak, total, level int) shared.ActivityRecordedEvent {
	return shared.ActivityRecordedEvent{
		BaseEvent:     shared.NewBaseEvent(shared.EventActivityRecorded, user),
		UserID:        user,
		LocalHour:     hour,
		CurrentStreak: streak,
		TotalDays:     total,
		Level:         level,
	}
}

func TestOnActivityRecorded_UnlocksFirstDay(t *testing.T) {
	store := memory.NewStore()
	pub := &capture{}
	h := NewOnActivityRecordedHandler(achievement.DefaultCatalog(), store.Achievements(), pub, timeutil.FixedClock(time.Now()), nil)

	require.NoError(t, h.Handle(recorded("u", 7, 1, 1, 1)))

	rows, err := store.Achievements().ListByUser(context.Background(), "u")
	require.NoError(t, err)
	byID := achievement.IndexByID(rows)
	require.Len(t, byID, 5)

	assert.True(t, byID["first_day"].IsUnlocked)
	assert.Equal(t, 1, byID["early_bird"].Progress)
	assert.Equal(t, 1, byID["week_streak"].Progress)
	assert.False(t, byID["week_streak"].IsUnlocked)

	require.Len(t, pub.events, 1)
	unlocked := pub.events[0].(shared.AchievementUnlockedEvent)
	assert.Equal(t, "first_day", unlocked.AchievementID)
}

func TestOnActivityRecorded_EarlyBirdAccumulates(t *testing.T) {
	store := memory.NewStore()
	pub := &capture{}
	h := NewOnActivityRecordedHandler(achievement.DefaultCatalog(), store.Achievements(), pub, nil, nil)

	for i := 1; i <= 10; i++ {
		hour := 6
		if i%2 == 0 {
			hour = -1 // bare date, not an early session
		}
		require.NoError(t, h.Handle(recorded("u", hour, i, i, 1)))
	}
	for i := 11; i <= 16; i++ {
		require.NoError(t, h.Handle(recorded("u", 5, i, i, 1)))
	}

	rows, _ := store.Achievements().ListByUser(context.Background(), "u")
	byID := achievement.IndexByID(rows)
	assert.True(t, byID["early_bird"].IsUnlocked)
	assert.Equal(t, 10, byID["early_bird"].Progress)
	assert.True(t, byID["week_streak"].IsUnlocked)
	assert.False(t, byID["month_streak"].IsUnlocked)
	assert.Equal(t, 16, byID["month_streak"].Progress)
}

func TestOnActivityRecorded_IgnoresOtherEvents(t *testing.T) {
	store := memory.NewStore()
	h := NewOnActivityRecordedHandler(achievement.DefaultCatalog(), store.Achievements(), nil, nil, nil)

	assert.NoError(t, h.Handle(shared.NewLevelUpEvent("u", 1, 2, 100)))
	rows, _ := store.Achievements().ListByUser(context.Background(), "u")
	assert.Empty(t, rows)
}

func TestOnActivityRecorded_IgnoresRelayedEvents(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Output: &buf, Level: logger.LevelInfo, Format: logger.FormatJSON})

	store := memory.NewStore()
	pub := &capture{}
	h := NewOnActivityRecordedHandler(achievement.DefaultCatalog(), store.Achievements(), pub, timeutil.FixedClock(time.Now()), log)

	data, err := messaging.Encode(recorded("u", 7, 1, 1, 1), "other-instance")
	require.NoError(t, err)
	remote, _, err := messaging.Decode(data)
	require.NoError(t, err)

	require.NoError(t, h.Handle(remote))

	rows, err := store.Achievements().ListByUser(context.Background(), "u")
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, pub.events)
	assert.Empty(t, buf.String())
}
