// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"strings"
	"time"

	"github.com/yogaii/yogaii-streak/internal/domain/shared"
	"github.com/yogaii/yogaii-streak/internal/domain/streak"
	"github.com/yogaii/yogaii-streak/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STREAK QUERY
// Returns the user's streak profile. A user who never practiced gets a fresh
// profile with defaults, so clients never see "not found" for this resource.
// ══════════════════════════════════════════════════════════════════════════════

// ProfileProvider loads a profile, creating it on first access.
type ProfileProvider interface {
	GetOrCreate(ctx context.Context, userID string) (*streak.Profile, error)
}

// GetStreakQuery contains the query parameters.
type GetStreakQuery struct {
	UserID string
}

// Validate checks the parameters.
func (q GetStreakQuery) Validate() error {
	if strings.TrimSpace(q.UserID) == "" {
		return shared.NewValidationError("streak", "get_streak", "user id is required")
	}
	return nil
}

// StreakView is the profile plus values derived at read time.
type StreakView struct {
	*streak.Profile

	// StreakActive is false once a full calendar day passed without practice.
	StreakActive bool `json:"streakActive"`

	// WeeklyGoalReached compares stored weekly progress with the goal.
	WeeklyGoalReached bool `json:"weeklyGoalReached"`
}

// GetStreakHandler handles the GetStreakQuery.
type GetStreakHandler struct {
	profiles ProfileProvider
	location *time.Location
	clock    timeutil.Clock
}

// NewGetStreakHandler creates a new GetStreakHandler. loc defines "today".
func NewGetStreakHandler(profiles ProfileProvider, loc *time.Location, clock timeutil.Clock) *GetStreakHandler {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = timeutil.SystemClock
	}
	return &GetStreakHandler{profiles: profiles, location: loc, clock: clock}
}

// Handle executes the query.
func (h *GetStreakHandler) Handle(ctx context.Context, q GetStreakQuery) (*StreakView, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	p, err := h.profiles.GetOrCreate(ctx, strings.TrimSpace(q.UserID))
	if err != nil {
		return nil, err
	}

	today := timeutil.DateIn(h.clock(), h.location)
	return &StreakView{
		Profile:           p,
		StreakActive:      p.IsStreakActive(today),
		WeeklyGoalReached: p.WeeklyGoalReached(),
	}, nil
}
