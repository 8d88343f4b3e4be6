package streak

import (
	"time"

	"github.com/yogaii/yogaii-streak/internal/domain/activity"
)

// Rebuild replays a user's full activity history onto a copy of base and
// returns the result. Identity, weekly goal, weekly progress and version are
// kept from base; every counter the engine maintains is recomputed.
//
// Activities are replayed in chronological order, so a history that was
// submitted out of order rebuilds as if it had arrived in order.
func Rebuild(base *Profile, history []*activity.DailyActivity, now time.Time) *Profile {
	out := base.Clone()
	out.CurrentStreak = 0
	out.LongestStreak = 0
	out.TotalDays = 0
	out.LastPracticeDate = nil
	out.XP = 0
	out.recomputeLevel()

	sorted := make([]*activity.DailyActivity, len(history))
	copy(sorted, history)
	activity.SortChronological(sorted)

	for _, a := range sorted {
		out.ApplyActivity(a.Date, a.XPEarned, now)
	}
	out.UpdatedAt = now
	return out
}

// Diff summarizes how far a stored profile drifted from its rebuilt version.
type Diff struct {
	TotalDays     int
	XP            int
	CurrentStreak int
	LongestStreak int
}

// IsZero reports whether the two profiles agree on all engine counters.
func (d Diff) IsZero() bool {
	return d == Diff{}
}

// Compare returns rebuilt minus stored for each engine counter.
func Compare(stored, rebuilt *Profile) Diff {
	return Diff{
		TotalDays:     rebuilt.TotalDays - stored.TotalDays,
		XP:            rebuilt.XP - stored.XP,
		CurrentStreak: rebuilt.CurrentStreak - stored.CurrentStreak,
		LongestStreak: rebuilt.LongestStreak - stored.LongestStreak,
	}
}
