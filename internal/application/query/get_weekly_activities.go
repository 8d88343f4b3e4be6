package query

import (
	"context"
	"strings"
	"time"

	"github.com/yogaii/yogaii-streak/internal/domain/activity"
	"github.com/yogaii/yogaii-streak/internal/domain/shared"
	"github.com/yogaii/yogaii-streak/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET WEEKLY ACTIVITIES QUERY
// Activities of the Monday-start week containing the reference date.
// ══════════════════════════════════════════════════════════════════════════════

// GetWeeklyActivitiesQuery contains the query parameters.
type GetWeeklyActivitiesQuery struct {
	UserID string

	// Date selects the week by calendar date, used as is.
	Date time.Time

	// At selects the week by instant, observed in the week timezone.
	// Ignored when Date is set. Both zero means now.
	At time.Time
}

// Validate checks the parameters.
func (q GetWeeklyActivitiesQuery) Validate() error {
	if strings.TrimSpace(q.UserID) == "" {
		return shared.NewValidationError("practice", "get_weekly_activities", "user id is required")
	}
	return nil
}

// WeeklyActivities is the query result.
type WeeklyActivities struct {
	WeekStart    time.Time                 `json:"weekStart"`
	WeekEnd      time.Time                 `json:"weekEnd"`
	Activities   []*activity.DailyActivity `json:"activities"`
	PracticeDays int                       `json:"practiceDays"`
	TotalMinutes int                       `json:"totalMinutes"`
	TotalXP      int                       `json:"totalXp"`
}

// GetWeeklyActivitiesHandler handles the GetWeeklyActivitiesQuery.
type GetWeeklyActivitiesHandler struct {
	activities activity.Repository
	location   *time.Location
	clock      timeutil.Clock
}

// NewGetWeeklyActivitiesHandler creates a new handler.
func NewGetWeeklyActivitiesHandler(activities activity.Repository, loc *time.Location, clock timeutil.Clock) *GetWeeklyActivitiesHandler {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = timeutil.SystemClock
	}
	return &GetWeeklyActivitiesHandler{activities: activities, location: loc, clock: clock}
}

// Handle executes the query.
func (h *GetWeeklyActivitiesHandler) Handle(ctx context.Context, q GetWeeklyActivitiesQuery) (*WeeklyActivities, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var from, to time.Time
	switch {
	case !q.Date.IsZero():
		from, to = timeutil.CalendarWeek(q.Date)
	case !q.At.IsZero():
		from, to = timeutil.WeekRange(q.At, h.location)
	default:
		from, to = timeutil.WeekRange(h.clock(), h.location)
	}

	list, err := h.activities.QueryByUserAndRange(ctx, strings.TrimSpace(q.UserID), from, to)
	if err != nil {
		return nil, shared.NewStoreUnavailableError("practice", "query_activities", err)
	}
	activity.SortByDateDesc(list)

	res := &WeeklyActivities{
		WeekStart:    from,
		WeekEnd:      to,
		Activities:   list,
		PracticeDays: activity.CountPracticeDays(list),
	}
	for _, a := range list {
		res.TotalMinutes += a.DurationMinutes
		res.TotalXP += a.XPEarned
	}
	return res, nil
}
