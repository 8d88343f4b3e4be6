// Package eventhandler contains domain event subscribers.
package eventhandler

import (
	"context"
	"fmt"
	"time"

	"github.com/yogaii/yogaii-streak/internal/domain/achievement"
	"github.com/yogaii/yogaii-streak/internal/domain/shared"
	"github.com/yogaii/yogaii-streak/pkg/keylock"
	"github.com/yogaii/yogaii-streak/pkg/logger"
	"github.com/yogaii/yogaii-streak/pkg/timeutil"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON ACTIVITY RECORDED HANDLER
// Advances achievement progress from the profile counters carried by the
// event and publishes achievement.unlocked for every newly unlocked entry.
// ═══════════════════════════════════════════════════════════════════════════

// OnActivityRecordedHandler updates achievement progress.
type OnActivityRecordedHandler struct {
	catalog   *achievement.Catalog
	repo      achievement.Repository
	publisher shared.EventPublisher
	locks     *keylock.KeyLock
	clock     timeutil.Clock
	log       *logger.Logger
	timeout   time.Duration
}

// NewOnActivityRecordedHandler creates the handler.
func NewOnActivityRecordedHandler(
	catalog *achievement.Catalog,
	repo achievement.Repository,
	publisher shared.EventPublisher,
	clock timeutil.Clock,
	log *logger.Logger,
) *OnActivityRecordedHandler {
	if publisher == nil {
		publisher = shared.NoopPublisher{}
	}
	if clock == nil {
		clock = timeutil.SystemClock
	}
	if log == nil {
		log = logger.Nop()
	}
	return &OnActivityRecordedHandler{
		catalog:   catalog,
		repo:      repo,
		publisher: publisher,
		locks:     keylock.New(),
		clock:     clock,
		log:       log.With(logger.Component("on_activity_recorded")),
		timeout:   5 * time.Second,
	}
}

// Register subscribes the handler to the bus.
func (h *OnActivityRecordedHandler) Register(bus shared.EventSubscriber) error {
	return bus.Subscribe(shared.EventActivityRecorded, h.Handle)
}

// Handle implements shared.EventHandler.
func (h *OnActivityRecordedHandler) Handle(event shared.Event) error {
	e, ok := event.(shared.ActivityRecordedEvent)
	if !ok {
		// Events relayed from other instances were already evaluated there.
		h.log.Debug("skipping event", logger.String("event_type", string(event.EventType())))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	// Early-bird progress is a counter, so evaluations for one user must not interleave.
	unlock, err := h.locks.Lock(ctx, e.UserID)
	if err != nil {
		return fmt.Errorf("on_activity_recorded: lock user %s: %w", e.UserID, err)
	}
	defer unlock()

	existing, err := h.repo.ListByUser(ctx, e.UserID)
	if err != nil {
		return fmt.Errorf("on_activity_recorded: failed to load achievements: %w", err)
	}

	snap := achievement.Snapshot{
		CurrentStreak: e.CurrentStreak,
		TotalDays:     e.TotalDays,
		Level:         e.Level,
		EarlySession:  e.LocalHour >= 0 && e.LocalHour < 8,
	}
	results := achievement.EvaluateAll(h.catalog, achievement.IndexByID(existing), e.UserID, snap, h.clock().UTC())

	for _, r := range results {
		if !r.Changed {
			continue
		}
		if err := h.repo.Upsert(ctx, r.Achievement); err != nil {
			return fmt.Errorf("on_activity_recorded: failed to save %s: %w", r.Achievement.AchievementID, err)
		}
		if !r.Unlocked {
			continue
		}

		def, _ := h.catalog.Get(r.Achievement.AchievementID)
		h.log.Info("achievement unlocked",
			logger.UserID(e.UserID),
			logger.String("achievement_id", def.ID),
		)
		unlocked := shared.NewAchievementUnlockedEvent(e.UserID, def.ID, def.Title)
		if e.CorrelationID != "" {
			unlocked.BaseEvent = unlocked.BaseEvent.WithCorrelationID(e.CorrelationID)
		}
		if err := h.publisher.Publish(unlocked); err != nil {
			h.log.Warn("failed to publish achievement event", logger.UserID(e.UserID), logger.Err(err))
		}
	}
	return nil
}
