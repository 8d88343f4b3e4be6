package command

import (
	"context"
	"strings"

	"github.com/yogaii/yogaii-streak/internal/domain/shared"
	"github.com/yogaii/yogaii-streak/internal/domain/streak"
	"github.com/yogaii/yogaii-streak/pkg/timeutil"
)

// UpdateWeeklyGoalCommand sets the number of practice days a user aims for per week.
type UpdateWeeklyGoalCommand struct {
	UserID     string
	WeeklyGoal int
}

// Validate validates the command.
func (c UpdateWeeklyGoalCommand) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return shared.NewValidationError("streak", "update_weekly_goal", "user id is required")
	}
	if c.WeeklyGoal < 1 || c.WeeklyGoal > streak.MaxWeeklyGoal {
		return shared.ErrInvalidWeeklyGoal
	}
	return nil
}

// UpdateWeeklyGoalHandler handles the UpdateWeeklyGoalCommand.
type UpdateWeeklyGoalHandler struct {
	profiles *ProfileWriter
	clock    timeutil.Clock
}

// NewUpdateWeeklyGoalHandler creates a new UpdateWeeklyGoalHandler.
func NewUpdateWeeklyGoalHandler(profiles *ProfileWriter, clock timeutil.Clock) *UpdateWeeklyGoalHandler {
	if clock == nil {
		clock = timeutil.SystemClock
	}
	return &UpdateWeeklyGoalHandler{profiles: profiles, clock: clock}
}

// Handle executes the command and returns the updated profile.
func (h *UpdateWeeklyGoalHandler) Handle(ctx context.Context, cmd UpdateWeeklyGoalCommand) (*streak.Profile, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	res, err := h.profiles.Mutate(ctx, strings.TrimSpace(cmd.UserID), func(p *streak.Profile) error {
		return p.SetWeeklyGoal(cmd.WeeklyGoal, h.clock().UTC())
	})
	if err != nil {
		return nil, err
	}
	return res.Profile, nil
}
