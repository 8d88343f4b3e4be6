// Package streak contains the StreakProfile aggregate and the pure calculators
// that drive it: XP awarded per activity, level thresholds, and consecutive-day
// streak transitions.
package streak

import (
	"github.com/yogaii/yogaii-streak/internal/domain/activity"
)

// ══════════════════════════════════════════════════════════════════════════════
// XP & LEVEL CALCULATORS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// XPPerMinute is the base XP for each practiced minute.
	XPPerMinute = 2

	// XPPerPose is the bonus XP for each distinct pose.
	XPPerPose = 5

	// XPPerLevel is the width of every level band.
	XPPerLevel = 100
)

// ComputeXP returns the experience awarded for one activity:
// floor((minutes*2 + poses*5) * multiplier). Negative inputs count as zero.
func ComputeXP(durationMinutes, poseCount int, quality activity.Quality) int {
	if durationMinutes < 0 {
		durationMinutes = 0
	}
	if poseCount < 0 {
		poseCount = 0
	}
	base := durationMinutes*XPPerMinute + poseCount*XPPerPose
	// Integer division floors for non-negative operands.
	return base * quality.MultiplierTenths() / 10
}

// ComputeLevel maps cumulative XP to a level starting at 1.
func ComputeLevel(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/XPPerLevel + 1
}

// ComputeXPToNextLevel returns how much XP is missing to reach the next level.
// The result is in [1, 100].
func ComputeXPToNextLevel(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return ComputeLevel(xp)*XPPerLevel - xp
}
