package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogaii/yogaii-streak/internal/domain/shared"
)

func TestParseQuality(t *testing.T) {
	tests := []struct {
		in   string
		want Quality
	}{
		{"", QualityGood},
		{"excellent", QualityExcellent},
		{"good", QualityGood},
		{"fair", QualityFair},
		{"amazing", QualityFair},
		{"Excellent", QualityFair},
		{" good ", QualityFair},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseQuality(tt.in), "input %q", tt.in)
	}
	assert.Equal(t, 10, ParseQuality("Excellent").MultiplierTenths())
}

func TestNewDailyActivity(t *testing.T) {
	submitted := time.Date(2024, 5, 1, 6, 30, 0, 0, time.FixedZone("UTC+5", 5*3600))
	created := time.Date(2024, 5, 1, 1, 31, 0, 0, time.UTC)

	a, err := NewDailyActivity(NewActivityParams{
		UserID:          "user-1",
		Date:            submitted,
		DurationMinutes: 30,
		Poses:           []string{"warrior", "tree", "warrior", " "},
		Quality:         QualityGood,
		XPEarned:        80,
		CreatedAt:       created,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), a.Date)
	assert.Equal(t, 6, a.StartHour)
	assert.True(t, a.IsEarlySession())
	assert.True(t, a.Practiced)
	assert.Equal(t, []string{"tree", "warrior"}, a.Poses)
	assert.Equal(t, 2, a.PoseCount())
	assert.Equal(t, created, a.CreatedAt)
}

func TestNewDailyActivity_Validation(t *testing.T) {
	base := NewActivityParams{UserID: "u", Date: time.Now(), DurationMinutes: 10}

	p := base
	p.DurationMinutes = -1
	_, err := NewDailyActivity(p)
	assert.ErrorIs(t, err, shared.ErrNegativeValue)
	assert.True(t, shared.IsValidation(err))

	p = base
	p.UserID = ""
	_, err = NewDailyActivity(p)
	assert.ErrorIs(t, err, shared.ErrEmptyValue)

	p = base
	p.Date = time.Time{}
	_, err = NewDailyActivity(p)
	assert.ErrorIs(t, err, shared.ErrMissingActivityDate)
}

func TestStartHourOf_BareDate(t *testing.T) {
	assert.Equal(t, NoStartHour, StartHourOf(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, StartHourOf(time.Date(2024, 5, 1, 0, 15, 0, 0, time.UTC)))

	a := &DailyActivity{StartHour: NoStartHour}
	assert.False(t, a.IsEarlySession())
}

func TestSortingAndCounting(t *testing.T) {
	d := func(day, minute int) *DailyActivity {
		return &DailyActivity{
			Date:      time.Date(2024, 5, day, 0, 0, 0, 0, time.UTC),
			CreatedAt: time.Date(2024, 5, day, 10, minute, 0, 0, time.UTC),
			Practiced: true,
		}
	}
	list := []*DailyActivity{d(2, 0), d(1, 5), d(3, 0), d(1, 1)}

	SortByDateDesc(list)
	assert.Equal(t, 3, list[0].Date.Day())
	assert.Equal(t, 5, list[2].CreatedAt.Minute())

	SortChronological(list)
	assert.Equal(t, 1, list[0].Date.Day())
	assert.Equal(t, 1, list[0].CreatedAt.Minute())

	assert.Equal(t, 3, CountPracticeDays(list))
}
