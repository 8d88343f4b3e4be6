package query

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// GetDashboardQuery bundles the three reads a client needs for its home screen.
type GetDashboardQuery struct {
	UserID string
}

// Dashboard is the query result.
type Dashboard struct {
	Streak       *StreakView         `json:"streak"`
	Week         *WeeklyActivities   `json:"week"`
	Achievements *AchievementsResult `json:"achievements"`
}

// GetDashboardHandler runs the underlying queries concurrently.
type GetDashboardHandler struct {
	streaks      *GetStreakHandler
	weekly       *GetWeeklyActivitiesHandler
	achievements *GetAchievementsHandler
}

// NewGetDashboardHandler creates a new handler.
func NewGetDashboardHandler(streaks *GetStreakHandler, weekly *GetWeeklyActivitiesHandler, achievements *GetAchievementsHandler) *GetDashboardHandler {
	return &GetDashboardHandler{streaks: streaks, weekly: weekly, achievements: achievements}
}

// Handle executes the query. The first failure cancels the remaining reads.
func (h *GetDashboardHandler) Handle(ctx context.Context, q GetDashboardQuery) (*Dashboard, error) {
	if err := (GetStreakQuery{UserID: q.UserID}).Validate(); err != nil {
		return nil, err
	}

	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		v, err := h.streaks.Handle(gctx, GetStreakQuery{UserID: q.UserID})
		d.Streak = v
		return err
	})
	g.Go(func() error {
		w, err := h.weekly.Handle(gctx, GetWeeklyActivitiesQuery{UserID: q.UserID})
		d.Week = w
		return err
	})
	g.Go(func() error {
		a, err := h.achievements.Handle(gctx, GetAchievementsQuery{UserID: q.UserID})
		d.Achievements = a
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}
