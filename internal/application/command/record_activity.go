package command

import (
	"context"
	"strings"
	"time"

	"github.com/yogaii/yogaii-streak/internal/domain/activity"
	"github.com/yogaii/yogaii-streak/internal/domain/shared"
	"github.com/yogaii/yogaii-streak/internal/domain/streak"
	"github.com/yogaii/yogaii-streak/pkg/logger"
	"github.com/yogaii/yogaii-streak/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD ACTIVITY COMMAND
// The streak engine: scores a practice session, stores it, and folds it into
// the user's streak profile (streak, XP, level, total days).
// ══════════════════════════════════════════════════════════════════════════════

// RecordActivityCommand contains the data to record a practice session.
type RecordActivityCommand struct {
	// UserID is the owner of the session.
	UserID string

	// Date is when the session happened. Only the calendar date matters for the
	// streak; a non-midnight time is kept as the session's start hour.
	Date time.Time

	// DurationMinutes must be non-negative.
	DurationMinutes int

	// Poses practiced. Duplicates are ignored.
	Poses []string

	// Quality is free text; unknown values get the neutral multiplier.
	Quality string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RecordActivityCommand) Validate() error {
	return activity.ValidateInput(c.UserID, c.Date, c.DurationMinutes)
}

// RecordActivityResult contains the result of recording an activity.
type RecordActivityResult struct {
	// Activity is the stored session.
	Activity *activity.DailyActivity

	// Profile is the profile after the update.
	Profile *streak.Profile

	// Transition tells how the streak reacted.
	Transition streak.Transition

	// LeveledUp is true when the level increased.
	LeveledUp bool

	// PreviousLevel is the level before this activity.
	PreviousLevel int

	// ProfileCreated is true when this activity created the profile.
	ProfileCreated bool

	// Events contains domain events generated.
	Events []shared.Event
}

// EngineMetrics receives telemetry from the engine.
type EngineMetrics interface {
	ActivityRecorded(quality string, xp int)
	LevelUp(newLevel int)
	StreakTransition(transition string)
	EngineFailure(step string)
	ObserveLatency(operation string, d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ActivityRecorded(string, int)         {}
func (noopMetrics) LevelUp(int)                          {}
func (noopMetrics) StreakTransition(string)              {}
func (noopMetrics) EngineFailure(string)                 {}
func (noopMetrics) ObserveLatency(string, time.Duration) {}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RecordActivityHandler handles the RecordActivityCommand.
type RecordActivityHandler struct {
	activities     activity.Repository
	profiles       *ProfileWriter
	eventPublisher shared.EventPublisher
	metrics        EngineMetrics
	clock          timeutil.Clock
	log            *logger.Logger
}

// NewRecordActivityHandler creates a new RecordActivityHandler.
// metrics, clock and log may be nil.
func NewRecordActivityHandler(
	activities activity.Repository,
	profiles *ProfileWriter,
	eventPublisher shared.EventPublisher,
	metrics EngineMetrics,
	clock timeutil.Clock,
	log *logger.Logger,
) *RecordActivityHandler {
	if eventPublisher == nil {
		eventPublisher = shared.NoopPublisher{}
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if clock == nil {
		clock = timeutil.SystemClock
	}
	if log == nil {
		log = logger.Nop()
	}

	return &RecordActivityHandler{
		activities:     activities,
		profiles:       profiles,
		eventPublisher: eventPublisher,
		metrics:        metrics,
		clock:          clock,
		log:            log.With(logger.Component("streak_engine")),
	}
}

// Handle executes the record activity command.
//
// Errors:
//   - validation errors (shared.IsValidation) when the input is rejected;
//   - a StoreUnavailable DomainError with Op "create_activity" when the
//     activity could not be stored (nothing was written);
//   - *PartialFailureError when the activity was stored but the profile was not updated.
func (h *RecordActivityHandler) Handle(ctx context.Context, cmd RecordActivityCommand) (*RecordActivityResult, error) {
	started := time.Now()
	defer func() { h.metrics.ObserveLatency("record_activity", time.Since(started)) }()

	if err := cmd.Validate(); err != nil {
		h.metrics.EngineFailure("validate")
		return nil, err
	}

	quality := activity.ParseQuality(cmd.Quality)
	poses := activity.NormalizePoses(cmd.Poses)
	xpEarned := streak.ComputeXP(cmd.DurationMinutes, len(poses), quality)

	act, err := activity.NewDailyActivity(activity.NewActivityParams{
		UserID:          strings.TrimSpace(cmd.UserID),
		Date:            cmd.Date,
		DurationMinutes: cmd.DurationMinutes,
		Poses:           poses,
		Quality:         quality,
		XPEarned:        xpEarned,
		CreatedAt:       h.clock().UTC(),
	})
	if err != nil {
		h.metrics.EngineFailure("validate")
		return nil, err
	}

	if err := h.activities.Create(ctx, act); err != nil {
		h.metrics.EngineFailure("create_activity")
		h.log.Error("failed to store activity", logger.UserID(act.UserID), logger.Err(err))
		return nil, shared.NewStoreUnavailableError("practice", "create_activity", err)
	}
	h.metrics.ActivityRecorded(string(quality), xpEarned)

	return h.apply(ctx, act, cmd.CorrelationID)
}

// ApplyToProfile folds an already stored activity into its user's profile.
// It is the retry path for a PartialFailureError. Applying the same activity
// twice counts it twice.
func (h *RecordActivityHandler) ApplyToProfile(ctx context.Context, act *activity.DailyActivity) (*RecordActivityResult, error) {
	return h.apply(ctx, act, "")
}

func (h *RecordActivityHandler) apply(ctx context.Context, act *activity.DailyActivity, correlationID string) (*RecordActivityResult, error) {
	var upd streak.Update
	mut, err := h.profiles.Mutate(ctx, act.UserID, func(p *streak.Profile) error {
		upd = p.ApplyActivity(act.Date, act.XPEarned, h.clock().UTC())
		return nil
	})
	if err != nil {
		step := stepOf(err)
		h.metrics.EngineFailure(step)
		h.log.Error("activity stored but profile not updated",
			logger.UserID(act.UserID),
			logger.ActivityID(act.ID),
			logger.String("step", step),
			logger.Err(err),
		)
		return nil, &PartialFailureError{Step: step, Activity: act, Err: err}
	}

	profile := mut.Profile
	result := &RecordActivityResult{
		Activity:       act,
		Profile:        profile,
		Transition:     upd.Transition,
		LeveledUp:      upd.LeveledUp,
		PreviousLevel:  upd.PrevLevel,
		ProfileCreated: mut.Created,
	}
	result.Events = h.buildEvents(act, profile, upd, correlationID)

	h.metrics.StreakTransition(string(upd.Transition))
	if upd.LeveledUp {
		h.metrics.LevelUp(upd.NewLevel)
		h.log.Info("level up",
			logger.UserID(act.UserID),
			logger.UserLevel(upd.NewLevel),
			logger.Int("previous_level", upd.PrevLevel),
		)
	}

	for _, event := range result.Events {
		if err := h.eventPublisher.Publish(event); err != nil {
			h.log.Warn("failed to publish event",
				logger.UserID(act.UserID),
				logger.String("event_type", string(event.EventType())),
				logger.Err(err),
			)
		}
	}

	h.log.Debug("activity recorded",
		logger.UserID(act.UserID),
		logger.ActivityID(act.ID),
		logger.XPAmount(act.XPEarned),
		logger.Streak(profile.CurrentStreak),
		logger.String("transition", string(upd.Transition)),
	)

	return result, nil
}

func (h *RecordActivityHandler) buildEvents(act *activity.DailyActivity, p *streak.Profile, upd streak.Update, correlationID string) []shared.Event {
	withCorrelation := func(b shared.BaseEvent) shared.BaseEvent {
		if correlationID != "" {
			return b.WithCorrelationID(correlationID)
		}
		return b
	}

	recorded := shared.ActivityRecordedEvent{
		BaseEvent:       withCorrelation(shared.NewBaseEvent(shared.EventActivityRecorded, act.UserID)),
		UserID:          act.UserID,
		ActivityID:      act.ID,
		ActivityDate:    act.Date,
		LocalHour:       act.StartHour,
		DurationMinutes: act.DurationMinutes,
		PoseCount:       act.PoseCount(),
		Quality:         string(act.Quality),
		XPEarned:        act.XPEarned,
		CurrentStreak:   p.CurrentStreak,
		LongestStreak:   p.LongestStreak,
		TotalDays:       p.TotalDays,
		Level:           p.Level,
		XP:              p.XP,
	}
	events := []shared.Event{recorded}

	if act.XPEarned > 0 {
		e := shared.NewXPGainedEvent(act.UserID, act.XPEarned, p.XP, act.ID)
		e.BaseEvent = withCorrelation(e.BaseEvent)
		events = append(events, e)
	}

	switch upd.Transition {
	case streak.TransitionStarted, streak.TransitionExtended:
		e := shared.NewStreakUpdatedEvent(act.UserID, p.CurrentStreak, p.LongestStreak, upd.NewBestStreak)
		e.BaseEvent = withCorrelation(e.BaseEvent)
		events = append(events, e)
	case streak.TransitionRestarted:
		e := shared.NewStreakBrokenEvent(act.UserID, upd.PrevStreak, upd.DaysDiff-1)
		e.BaseEvent = withCorrelation(e.BaseEvent)
		events = append(events, e)
	}

	if upd.LeveledUp {
		e := shared.NewLevelUpEvent(act.UserID, upd.PrevLevel, upd.NewLevel, p.XP)
		e.BaseEvent = withCorrelation(e.BaseEvent)
		events = append(events, e)
	}

	return events
}
