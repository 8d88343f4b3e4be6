// Package activity contains the DailyActivity entity: one recorded practice
// session of a user. This is a pure domain layer with zero external dependencies
// besides uuid for identifiers.
package activity

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yogaii/yogaii-streak/internal/domain/shared"
	"github.com/yogaii/yogaii-streak/pkg/timeutil"
)

// Quality is the self-reported rating of a practice session.
type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityFair      Quality = "fair"

	// DefaultQuality is used when the client sends no rating.
	DefaultQuality = QualityGood
)

// ParseQuality maps client input onto the closed set of qualities.
// Matching is exact and case-sensitive. Empty input yields DefaultQuality.
// Anything else unrecognized, "Excellent" included, yields QualityFair,
// which carries the neutral multiplier.
func ParseQuality(s string) Quality {
	switch Quality(s) {
	case "":
		return DefaultQuality
	case QualityExcellent:
		return QualityExcellent
	case QualityGood:
		return QualityGood
	default:
		return QualityFair
	}
}

// IsValid reports whether q is one of the known qualities.
func (q Quality) IsValid() bool {
	return q == QualityExcellent || q == QualityGood || q == QualityFair
}

// MultiplierTenths returns the XP multiplier scaled by 10 so XP math stays in integers.
func (q Quality) MultiplierTenths() int {
	switch q {
	case QualityExcellent:
		return 15
	case QualityGood:
		return 12
	default:
		return 10
	}
}

func (q Quality) String() string {
	return string(q)
}

// NoStartHour marks an activity submitted as a bare date.
const NoStartHour = -1

// DailyActivity is one practice session. It is immutable once created.
type DailyActivity struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`

	// Date is the calendar date of the session, normalized to midnight UTC.
	Date time.Time `json:"date"`

	// StartHour is the local hour the session started, or NoStartHour.
	StartHour int `json:"startHour"`

	Practiced       bool      `json:"practiced"`
	DurationMinutes int       `json:"duration"`
	Poses           []string  `json:"poses"`
	Quality         Quality   `json:"quality"`
	XPEarned        int       `json:"xpEarned"`
	CreatedAt       time.Time `json:"createdAt"`
}

// NewActivityParams holds the inputs for NewDailyActivity.
type NewActivityParams struct {
	UserID          string
	Date            time.Time
	DurationMinutes int
	Poses           []string
	Quality         Quality
	XPEarned        int
	CreatedAt       time.Time
}

// ValidateInput checks the user-supplied part of an activity.
func ValidateInput(userID string, date time.Time, durationMinutes int) error {
	if strings.TrimSpace(userID) == "" {
		return shared.ErrEmptyUserID
	}
	if date.IsZero() {
		return shared.ErrMissingActivityDate
	}
	if durationMinutes < 0 {
		return shared.ErrNegativeDuration
	}
	return nil
}

// NewDailyActivity builds a validated activity with a fresh id.
func NewDailyActivity(p NewActivityParams) (*DailyActivity, error) {
	if err := ValidateInput(p.UserID, p.Date, p.DurationMinutes); err != nil {
		return nil, err
	}
	if p.XPEarned < 0 {
		return nil, shared.NewValidationError("practice", "validate", "xp earned cannot be negative")
	}

	quality := p.Quality
	if !quality.IsValid() {
		quality = ParseQuality(string(quality))
	}

	return &DailyActivity{
		ID:              uuid.NewString(),
		UserID:          strings.TrimSpace(p.UserID),
		Date:            timeutil.DateOf(p.Date),
		StartHour:       StartHourOf(p.Date),
		Practiced:       true,
		DurationMinutes: p.DurationMinutes,
		Poses:           NormalizePoses(p.Poses),
		Quality:         quality,
		XPEarned:        p.XPEarned,
		CreatedAt:       p.CreatedAt,
	}, nil
}

// PoseCount returns the number of distinct poses practiced.
func (a *DailyActivity) PoseCount() int {
	return len(a.Poses)
}

// IsEarlySession reports whether the session started before 08:00 local time.
func (a *DailyActivity) IsEarlySession() bool {
	return a.StartHour >= 0 && a.StartHour < 8
}

// StartHourOf extracts the local start hour from a submitted timestamp.
// An exact midnight is treated as a bare date.
func StartHourOf(t time.Time) int {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return NoStartHour
	}
	return t.Hour()
}

// NormalizePoses trims, drops blanks, and de-duplicates pose ids.
// The result is sorted since pose order carries no meaning.
func NormalizePoses(poses []string) []string {
	seen := make(map[string]struct{}, len(poses))
	out := make([]string, 0, len(poses))
	for _, p := range poses {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// SortByDateDesc orders activities newest first, ties broken by creation time.
func SortByDateDesc(list []*DailyActivity) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].Date.Equal(list[j].Date) {
			return list[i].Date.After(list[j].Date)
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

// SortChronological orders activities oldest first, ties broken by creation time.
func SortChronological(list []*DailyActivity) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].Date.Equal(list[j].Date) {
			return list[i].Date.Before(list[j].Date)
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}

// CountPracticeDays returns the number of distinct practiced calendar dates.
func CountPracticeDays(list []*DailyActivity) int {
	days := make(map[time.Time]struct{}, len(list))
	for _, a := range list {
		if a.Practiced {
			days[timeutil.DateOf(a.Date)] = struct{}{}
		}
	}
	return len(days)
}
