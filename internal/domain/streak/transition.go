package streak

import (
	"time"

	"github.com/yogaii/yogaii-streak/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK CALCULATOR
// ══════════════════════════════════════════════════════════════════════════════

// Transition describes what a new activity did to the streak.
type Transition string

const (
	// TransitionStarted is the first activity ever.
	TransitionStarted Transition = "started"

	// TransitionExtended is an activity on the day after the last practice.
	TransitionExtended Transition = "extended"

	// TransitionSameDay is another activity on the last practice date.
	TransitionSameDay Transition = "same_day"

	// TransitionRestarted is an activity after a gap of more than one day.
	TransitionRestarted Transition = "restarted"

	// TransitionBackdated is an activity dated before the last practice date.
	// The streak and last practice date are left untouched.
	TransitionBackdated Transition = "backdated"
)

// State is the slice of a profile the streak calculator reads and writes.
type State struct {
	CurrentStreak    int
	LongestStreak    int
	LastPracticeDate *time.Time
}

// Advance applies one activity date to the streak state.
//
// The day difference is taken between calendar dates, so two sessions on the
// same date at different hours are a same-day resubmission. The returned int is
// the signed day difference (0 for the first activity).
func Advance(s State, activityDate time.Time) (State, Transition, int) {
	date := timeutil.DateOf(activityDate)

	var (
		transition Transition
		daysDiff   int
	)

	if s.LastPracticeDate == nil {
		s.CurrentStreak = 1
		s.LastPracticeDate = &date
		transition = TransitionStarted
	} else {
		daysDiff = timeutil.DaysDiff(*s.LastPracticeDate, date)
		switch {
		case daysDiff == 1:
			s.CurrentStreak++
			transition = TransitionExtended
		case daysDiff > 1:
			s.CurrentStreak = 1
			transition = TransitionRestarted
		case daysDiff == 0:
			transition = TransitionSameDay
		default:
			transition = TransitionBackdated
		}

		if transition != TransitionBackdated {
			s.LastPracticeDate = &date
		}
	}

	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}

	return s, transition, daysDiff
}

// IsAlive reports whether a streak ending at last is still unbroken on today,
// meaning the user practiced today or yesterday.
func IsAlive(last *time.Time, today time.Time) bool {
	if last == nil {
		return false
	}
	diff := timeutil.DaysDiff(*last, today)
	return diff == 0 || diff == 1
}
