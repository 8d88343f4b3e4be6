package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types.
const (
	// Practice events
	EventActivityRecorded EventType = "practice.activity_recorded"

	// Progress events
	EventProfileCreated    EventType = "progress.profile_created"
	EventXPGained          EventType = "progress.xp_gained"
	EventLevelUp           EventType = "progress.level_up"
	EventStreakUpdated     EventType = "progress.streak_updated"
	EventStreakBroken      EventType = "progress.streak_broken"
	EventProfileReconciled EventType = "progress.profile_reconciled"

	// Achievement events
	EventAchievementUnlocked EventType = "achievement.unlocked"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event. The aggregate of every progress event is the user.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// Correlation returns the correlation ID, empty when unset.
func (e BaseEvent) Correlation() string {
	return e.CorrelationID
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Practice Events
// ═══════════════════════════════════════════════════════════════════════════

// ActivityRecordedEvent is emitted after an activity was stored and applied to
// the user's profile. It carries the post-update profile counters so that
// subscribers do not need to reload the profile.
type ActivityRecordedEvent struct {
	BaseEvent
	UserID          string    `json:"user_id"`
	ActivityID      string    `json:"activity_id"`
	ActivityDate    time.Time `json:"activity_date"`
	LocalHour       int       `json:"local_hour"`
	DurationMinutes int       `json:"duration_minutes"`
	PoseCount       int       `json:"pose_count"`
	Quality         string    `json:"quality"`
	XPEarned        int       `json:"xp_earned"`

	CurrentStreak int `json:"current_streak"`
	LongestStreak int `json:"longest_streak"`
	TotalDays     int `json:"total_days"`
	Level         int `json:"level"`
	XP            int `json:"xp"`
}

// Payload implements Event interface.
func (e ActivityRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":          e.UserID,
		"activity_id":      e.ActivityID,
		"activity_date":    e.ActivityDate.Format("2006-01-02"),
		"local_hour":       e.LocalHour,
		"duration_minutes": e.DurationMinutes,
		"pose_count":       e.PoseCount,
		"quality":          e.Quality,
		"xp_earned":        e.XPEarned,
		"current_streak":   e.CurrentStreak,
		"longest_streak":   e.LongestStreak,
		"total_days":       e.TotalDays,
		"level":            e.Level,
		"xp":               e.XP,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// ProfileCreatedEvent is emitted when a streak profile is created with defaults.
type ProfileCreatedEvent struct {
	BaseEvent
	UserID     string `json:"user_id"`
	WeeklyGoal int    `json:"weekly_goal"`
}

// Payload implements Event interface.
func (e ProfileCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"weekly_goal": e.WeeklyGoal,
	}
}

// NewProfileCreatedEvent creates a new ProfileCreatedEvent.
func NewProfileCreatedEvent(userID string, weeklyGoal int) ProfileCreatedEvent {
	return ProfileCreatedEvent{
		BaseEvent:  NewBaseEvent(EventProfileCreated, userID),
		UserID:     userID,
		WeeklyGoal: weeklyGoal,
	}
}

// XPGainedEvent is emitted when a user gains XP.
type XPGainedEvent struct {
	BaseEvent
	UserID     string `json:"user_id"`
	Amount     int    `json:"amount"`
	NewTotal   int    `json:"new_total"`
	ActivityID string `json:"activity_id"`
}

// Payload implements Event interface.
func (e XPGainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"amount":      e.Amount,
		"new_total":   e.NewTotal,
		"activity_id": e.ActivityID,
	}
}

// NewXPGainedEvent creates a new XPGainedEvent.
func NewXPGainedEvent(userID string, amount, newTotal int, activityID string) XPGainedEvent {
	return XPGainedEvent{
		BaseEvent:  NewBaseEvent(EventXPGained, userID),
		UserID:     userID,
		Amount:     amount,
		NewTotal:   newTotal,
		ActivityID: activityID,
	}
}

// LevelUpEvent is emitted when cumulative XP crosses a level boundary.
type LevelUpEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	OldLevel int    `json:"old_level"`
	NewLevel int    `json:"new_level"`
	TotalXP  int    `json:"total_xp"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
		"total_xp":  e.TotalXP,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(userID string, oldLevel, newLevel, totalXP int) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, userID),
		UserID:    userID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		TotalXP:   totalXP,
	}
}

// StreakUpdatedEvent is emitted when the current streak grows.
type StreakUpdatedEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
	IsNewRecord   bool   `json:"is_new_record"`
}

// Payload implements Event interface.
func (e StreakUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"current_streak": e.CurrentStreak,
		"longest_streak": e.LongestStreak,
		"is_new_record":  e.IsNewRecord,
	}
}

// NewStreakUpdatedEvent creates a new StreakUpdatedEvent.
func NewStreakUpdatedEvent(userID string, current, longest int, isNewRecord bool) StreakUpdatedEvent {
	return StreakUpdatedEvent{
		BaseEvent:     NewBaseEvent(EventStreakUpdated, userID),
		UserID:        userID,
		CurrentStreak: current,
		LongestStreak: longest,
		IsNewRecord:   isNewRecord,
	}
}

// StreakBrokenEvent is emitted when a gap of more than one day restarts the streak.
type StreakBrokenEvent struct {
	BaseEvent
	UserID         string `json:"user_id"`
	PreviousStreak int    `json:"previous_streak"`
	DaysMissed     int    `json:"days_missed"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"previous_streak": e.PreviousStreak,
		"days_missed":     e.DaysMissed,
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(userID string, previousStreak, daysMissed int) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, userID),
		UserID:         userID,
		PreviousStreak: previousStreak,
		DaysMissed:     daysMissed,
	}
}

// ProfileReconciledEvent is emitted after a profile was rebuilt from history.
type ProfileReconciledEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	TotalDaysDiff int    `json:"total_days_diff"`
	XPDiff        int    `json:"xp_diff"`
}

// Payload implements Event interface.
func (e ProfileReconciledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"total_days_diff": e.TotalDaysDiff,
		"xp_diff":         e.XPDiff,
	}
}

// NewProfileReconciledEvent creates a new ProfileReconciledEvent.
func NewProfileReconciledEvent(userID string, totalDaysDiff, xpDiff int) ProfileReconciledEvent {
	return ProfileReconciledEvent{
		BaseEvent:     NewBaseEvent(EventProfileReconciled, userID),
		UserID:        userID,
		TotalDaysDiff: totalDaysDiff,
		XPDiff:        xpDiff,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Achievement Events
// ═══════════════════════════════════════════════════════════════════════════

// AchievementUnlockedEvent is emitted when a user unlocks an achievement.
type AchievementUnlockedEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	AchievementID string `json:"achievement_id"`
	Title         string `json:"title"`
}

// Payload implements Event interface.
func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"achievement_id": e.AchievementID,
		"title":          e.Title,
	}
}

// NewAchievementUnlockedEvent creates a new AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(userID, achievementID, title string) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:     NewBaseEvent(EventAchievementUnlocked, userID),
		UserID:        userID,
		AchievementID: achievementID,
		Title:         title,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// NoopPublisher discards events.
type NoopPublisher struct{}

// Publish implements EventPublisher.
func (NoopPublisher) Publish(Event) error { return nil }
