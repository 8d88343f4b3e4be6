package eventhandler

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogaii/yogaii-streak/internal/domain/shared"
	"github.com/yogaii/yogaii-streak/pkg/logger"
)

type subscriber struct {
	types []shared.EventType
}

func (s *subscriber) Subscribe(t shared.EventType, _ shared.EventHandler) error {
	s.types = append(s.types, t)
	return nil
}

func (s *subscriber) SubscribeAll(shared.EventHandler) error { return nil }

func TestOnLevelUp(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Output: &buf, Level: logger.LevelInfo, Format: logger.FormatJSON})
	h := NewOnLevelUpHandler(log)

	sub := &subscriber{}
	require.NoError(t, h.Register(sub))
	assert.Equal(t, []shared.EventType{shared.EventLevelUp, shared.EventAchievementUnlocked}, sub.types)

	require.NoError(t, h.Handle(shared.NewLevelUpEvent("u1", 1, 2, 130)))
	require.NoError(t, h.Handle(shared.NewAchievementUnlockedEvent("u1", "first_day", "First Day")))
	require.NoError(t, h.Handle(shared.NewProfileCreatedEvent("u1", 5)))

	out := buf.String()
	assert.Contains(t, out, `"message":"level up"`)
	assert.Contains(t, out, `"user_level":2`)
	assert.Contains(t, out, `"achievement_id":"first_day"`)
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("\n")))
}
