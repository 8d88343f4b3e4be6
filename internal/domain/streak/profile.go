package streak

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yogaii/yogaii-streak/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK PROFILE AGGREGATE
// ══════════════════════════════════════════════════════════════════════════════

const (
	// DefaultWeeklyGoal is the weekly target given to new profiles.
	DefaultWeeklyGoal = 5

	// MaxWeeklyGoal is the number of days in a week.
	MaxWeeklyGoal = 7
)

// Profile is the per-user gamification state. There is exactly one per user.
type Profile struct {
	// ID is the storage identifier.
	ID string `json:"id"`

	// UserID is the owner; unique across profiles.
	UserID string `json:"userId"`

	// CurrentStreak is the run of consecutive practice days ending at LastPracticeDate.
	CurrentStreak int `json:"currentStreak"`

	// LongestStreak is the historical maximum of CurrentStreak.
	LongestStreak int `json:"longestStreak"`

	// TotalDays counts recorded activities, same-day resubmissions included.
	TotalDays int `json:"totalDays"`

	// LastPracticeDate is nil until the first activity.
	LastPracticeDate *time.Time `json:"lastPracticeDate"`

	// WeeklyGoal is the target number of practice days per week.
	WeeklyGoal int `json:"weeklyGoal"`

	// WeeklyProgress is refreshed by the weekly progress job, not by the engine.
	WeeklyProgress int `json:"weeklyProgress"`

	Level         int `json:"level"`
	XP            int `json:"xp"`
	XPToNextLevel int `json:"xpToNextLevel"`

	// Version increments on every save and guards against lost updates.
	Version int64 `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewProfile creates a profile with default values.
func NewProfile(userID string, weeklyGoal int, now time.Time) (*Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, shared.NewValidationError("streak", "new_profile", "user id is required")
	}
	if weeklyGoal == 0 {
		weeklyGoal = DefaultWeeklyGoal
	}
	if weeklyGoal < 1 || weeklyGoal > MaxWeeklyGoal {
		return nil, shared.ErrInvalidWeeklyGoal
	}

	return &Profile{
		ID:            uuid.NewString(),
		UserID:        userID,
		WeeklyGoal:    weeklyGoal,
		Level:         1,
		XPToNextLevel: XPPerLevel,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Mutations
// ─────────────────────────────────────────────────────────────────────────────

// Update describes the effect of one activity on a profile.
type Update struct {
	Transition    Transition
	DaysDiff      int
	PrevStreak    int
	PrevLongest   int
	PrevLevel     int
	NewLevel      int
	XPEarned      int
	LeveledUp     bool
	NewBestStreak bool
}

// ApplyActivity folds one activity into the profile: streak transition, XP,
// total days, and derived level fields.
func (p *Profile) ApplyActivity(activityDate time.Time, xpEarned int, now time.Time) Update {
	if xpEarned < 0 {
		xpEarned = 0
	}

	u := Update{
		PrevStreak:  p.CurrentStreak,
		PrevLongest: p.LongestStreak,
		PrevLevel:   p.Level,
		XPEarned:    xpEarned,
	}

	next, transition, diff := Advance(p.streakState(), activityDate)
	p.CurrentStreak = next.CurrentStreak
	p.LongestStreak = next.LongestStreak
	p.LastPracticeDate = next.LastPracticeDate
	u.Transition = transition
	u.DaysDiff = diff

	p.XP += xpEarned
	p.TotalDays++
	p.recomputeLevel()
	p.UpdatedAt = now

	u.NewLevel = p.Level
	u.LeveledUp = u.NewLevel > u.PrevLevel
	u.NewBestStreak = p.LongestStreak > u.PrevLongest
	return u
}

// SetWeeklyGoal changes the weekly target.
func (p *Profile) SetWeeklyGoal(goal int, now time.Time) error {
	if goal < 1 || goal > MaxWeeklyGoal {
		return shared.ErrInvalidWeeklyGoal
	}
	p.WeeklyGoal = goal
	p.UpdatedAt = now
	return nil
}

// SetWeeklyProgress stores the number of practice days in the current week.
func (p *Profile) SetWeeklyProgress(days int, now time.Time) {
	if days < 0 {
		days = 0
	}
	if days > MaxWeeklyGoal {
		days = MaxWeeklyGoal
	}
	p.WeeklyProgress = days
	p.UpdatedAt = now
}

// IsStreakActive reports whether the current streak survives on today.
func (p *Profile) IsStreakActive(today time.Time) bool {
	return p.CurrentStreak > 0 && IsAlive(p.LastPracticeDate, today)
}

// WeeklyGoalReached reports whether weekly progress meets the goal.
func (p *Profile) WeeklyGoalReached() bool {
	return p.WeeklyProgress >= p.WeeklyGoal
}

// Clone returns a deep copy.
func (p *Profile) Clone() *Profile {
	c := *p
	if p.LastPracticeDate != nil {
		d := *p.LastPracticeDate
		c.LastPracticeDate = &d
	}
	return &c
}

// CheckInvariants verifies the relations between derived and stored fields.
func (p *Profile) CheckInvariants() error {
	switch {
	case p.CurrentStreak < 0 || p.LongestStreak < 0 || p.TotalDays < 0 || p.XP < 0:
		return fmt.Errorf("streak: negative counter in profile %s", p.UserID)
	case p.CurrentStreak > p.LongestStreak:
		return fmt.Errorf("streak: current streak %d exceeds longest %d", p.CurrentStreak, p.LongestStreak)
	case p.Level != ComputeLevel(p.XP):
		return fmt.Errorf("streak: level %d does not match xp %d", p.Level, p.XP)
	case p.XPToNextLevel != ComputeXPToNextLevel(p.XP):
		return fmt.Errorf("streak: xp to next level %d does not match xp %d", p.XPToNextLevel, p.XP)
	case p.LastPracticeDate == nil && p.TotalDays > 0:
		return fmt.Errorf("streak: profile %s has activities but no last practice date", p.UserID)
	}
	return nil
}

func (p *Profile) streakState() State {
	return State{
		CurrentStreak:    p.CurrentStreak,
		LongestStreak:    p.LongestStreak,
		LastPracticeDate: p.LastPracticeDate,
	}
}

func (p *Profile) recomputeLevel() {
	p.Level = ComputeLevel(p.XP)
	p.XPToNextLevel = ComputeXPToNextLevel(p.XP)
}
