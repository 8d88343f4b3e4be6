package streak

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yogaii/yogaii-streak/internal/domain/activity"
)

func TestComputeXP(t *testing.T) {
	tests := []struct {
		name     string
		duration int
		poses    int
		quality  activity.Quality
		want     int
	}{
		{"good session", 30, 3, activity.QualityGood, 90},
		{"excellent session", 30, 3, activity.QualityExcellent, 112},
		{"fair session", 30, 3, activity.QualityFair, 75},
		{"unrecognized quality uses neutral multiplier", 30, 3, activity.Quality("stellar"), 75},
		{"zero inputs", 0, 0, activity.QualityExcellent, 0},
		{"poses only", 0, 1, activity.QualityGood, 6},
		{"floors fractional xp", 1, 0, activity.QualityExcellent, 3},
		{"negative duration clamps", -10, 2, activity.QualityFair, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeXP(tt.duration, tt.poses, tt.quality))
		})
	}
}

func TestComputeXP_QualityOrdering(t *testing.T) {
	for d := 0; d <= 120; d += 7 {
		for p := 0; p <= 12; p++ {
			ex := ComputeXP(d, p, activity.QualityExcellent)
			good := ComputeXP(d, p, activity.QualityGood)
			fair := ComputeXP(d, p, activity.QualityFair)
			assert.GreaterOrEqual(t, ex, good, "d=%d p=%d", d, p)
			assert.GreaterOrEqual(t, good, fair, "d=%d p=%d", d, p)
		}
	}
}

func TestComputeLevel(t *testing.T) {
	assert.Equal(t, 1, ComputeLevel(0))
	assert.Equal(t, 1, ComputeLevel(99))
	assert.Equal(t, 2, ComputeLevel(100))
	assert.Equal(t, 2, ComputeLevel(110))
	assert.Equal(t, 11, ComputeLevel(1050))
}

func TestComputeXPToNextLevel_Properties(t *testing.T) {
	prevLevel := 1
	for xp := 0; xp <= 2500; xp++ {
		level := ComputeLevel(xp)
		toNext := ComputeXPToNextLevel(xp)

		assert.Equal(t, level*XPPerLevel, toNext+xp, "xp=%d", xp)
		assert.True(t, toNext >= 1 && toNext <= 100, "xp=%d toNext=%d", xp, toNext)
		if xp%XPPerLevel == 0 {
			assert.Equal(t, 100, toNext, "xp=%d", xp)
		}
		assert.GreaterOrEqual(t, level, prevLevel)
		prevLevel = level
	}
}
