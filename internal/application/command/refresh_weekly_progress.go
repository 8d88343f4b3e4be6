package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yogaii/yogaii-streak/internal/domain/activity"
	"github.com/yogaii/yogaii-streak/internal/domain/shared"
	"github.com/yogaii/yogaii-streak/internal/domain/streak"
	"github.com/yogaii/yogaii-streak/pkg/logger"
	"github.com/yogaii/yogaii-streak/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// REFRESH WEEKLY PROGRESS
// Weekly progress is an aggregate over the activity log, kept out of the engine.
// This command recomputes it as the number of distinct practiced dates in the
// current Monday-start week.
// ══════════════════════════════════════════════════════════════════════════════

// RefreshWeeklyProgressResult summarizes a batch refresh.
type RefreshWeeklyProgressResult struct {
	Processed int
	Failed    int
	WeekStart time.Time
}

// RefreshWeeklyProgressHandler recomputes weekly progress.
type RefreshWeeklyProgressHandler struct {
	activities activity.Repository
	profiles   streak.Repository
	writer     *ProfileWriter
	location   *time.Location
	clock      timeutil.Clock
	log        *logger.Logger
}

// NewRefreshWeeklyProgressHandler creates a new handler. loc defines where weeks start.
func NewRefreshWeeklyProgressHandler(
	activities activity.Repository,
	profiles streak.Repository,
	writer *ProfileWriter,
	loc *time.Location,
	clock timeutil.Clock,
	log *logger.Logger,
) *RefreshWeeklyProgressHandler {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = timeutil.SystemClock
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RefreshWeeklyProgressHandler{
		activities: activities,
		profiles:   profiles,
		writer:     writer,
		location:   loc,
		clock:      clock,
		log:        log.With(logger.Component("weekly_progress")),
	}
}

// Handle refreshes a single user and returns the updated profile.
func (h *RefreshWeeklyProgressHandler) Handle(ctx context.Context, userID string) (*streak.Profile, error) {
	if userID == "" {
		return nil, shared.NewValidationError("streak", "refresh_weekly_progress", "user id is required")
	}

	from, to := timeutil.WeekRange(h.clock(), h.location)
	week, err := h.activities.QueryByUserAndRange(ctx, userID, from, to)
	if err != nil {
		return nil, shared.NewStoreUnavailableError("practice", "query_activities", err)
	}
	days := activity.CountPracticeDays(week)

	res, err := h.writer.Mutate(ctx, userID, func(p *streak.Profile) error {
		p.SetWeeklyProgress(days, h.clock().UTC())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res.Profile, nil
}

// HandleAll refreshes every profile. It keeps going after individual failures
// and returns them joined.
func (h *RefreshWeeklyProgressHandler) HandleAll(ctx context.Context) (*RefreshWeeklyProgressResult, error) {
	userIDs, err := h.profiles.ListUserIDs(ctx)
	if err != nil {
		return nil, shared.NewStoreUnavailableError("streak", "list_profiles", err)
	}

	from, _ := timeutil.WeekRange(h.clock(), h.location)
	result := &RefreshWeeklyProgressResult{WeekStart: from}

	var errs []error
	for _, id := range userIDs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := h.Handle(ctx, id); err != nil {
			result.Failed++
			errs = append(errs, fmt.Errorf("user %s: %w", id, err))
			h.log.Warn("weekly progress refresh failed", logger.UserID(id), logger.Err(err))
			continue
		}
		result.Processed++
	}

	h.log.Info("weekly progress refreshed",
		logger.Int("processed", result.Processed),
		logger.Int("failed", result.Failed),
		logger.String("week_start", timeutil.FormatDate(from)),
	)
	return result, errors.Join(errs...)
}
