package sqlite

import (
	"time"

	"github.com/yogaii/yogaii-streak/internal/domain/achievement"
	"github.com/yogaii/yogaii-streak/internal/domain/activity"
	"github.com/yogaii/yogaii-streak/internal/domain/streak"
)

// activityModel maps daily_activities. Several rows per user and date are allowed.
type activityModel struct {
	ID              string    `gorm:"primaryKey;size:36"`
	UserID          string    `gorm:"size:128;not null;index:idx_activity_user_date,priority:1"`
	ActivityDate    time.Time `gorm:"not null;index:idx_activity_user_date,priority:2"`
	StartHour       int       `gorm:"not null;default:-1"`
	Practiced       bool      `gorm:"not null;default:true"`
	DurationMinutes int       `gorm:"not null"`
	Poses           []string  `gorm:"serializer:json"`
	Quality         string    `gorm:"size:20;not null"`
	XPEarned        int       `gorm:"not null"`
	CreatedAt       time.Time
}

func (activityModel) TableName() string { return "daily_activities" }

func activityToModel(a *activity.DailyActivity) *activityModel {
	return &activityModel{
		ID:              a.ID,
		UserID:          a.UserID,
		ActivityDate:    a.Date.UTC(),
		StartHour:       a.StartHour,
		Practiced:       a.Practiced,
		DurationMinutes: a.DurationMinutes,
		Poses:           append([]string{}, a.Poses...),
		Quality:         string(a.Quality),
		XPEarned:        a.XPEarned,
		CreatedAt:       a.CreatedAt,
	}
}

func (m *activityModel) toDomain() *activity.DailyActivity {
	return &activity.DailyActivity{
		ID:              m.ID,
		UserID:          m.UserID,
		Date:            m.ActivityDate.UTC(),
		StartHour:       m.StartHour,
		Practiced:       m.Practiced,
		DurationMinutes: m.DurationMinutes,
		Poses:           m.Poses,
		Quality:         activity.Quality(m.Quality),
		XPEarned:        m.XPEarned,
		CreatedAt:       m.CreatedAt,
	}
}

// profileModel maps streak_profiles.
type profileModel struct {
	ID               string `gorm:"primaryKey;size:36"`
	UserID           string `gorm:"size:128;not null;uniqueIndex"`
	CurrentStreak    int    `gorm:"not null"`
	LongestStreak    int    `gorm:"not null"`
	TotalDays        int    `gorm:"not null"`
	LastPracticeDate *time.Time
	WeeklyGoal       int   `gorm:"not null;default:5"`
	WeeklyProgress   int   `gorm:"not null"`
	Level            int   `gorm:"not null;default:1"`
	XP               int   `gorm:"column:xp;not null"`
	XPToNextLevel    int   `gorm:"column:xp_to_next_level;not null"`
	Version          int64 `gorm:"not null;default:1"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (profileModel) TableName() string { return "streak_profiles" }

func profileToModel(p *streak.Profile) *profileModel {
	m := &profileModel{
		ID:             p.ID,
		UserID:         p.UserID,
		CurrentStreak:  p.CurrentStreak,
		LongestStreak:  p.LongestStreak,
		TotalDays:      p.TotalDays,
		WeeklyGoal:     p.WeeklyGoal,
		WeeklyProgress: p.WeeklyProgress,
		Level:          p.Level,
		XP:             p.XP,
		XPToNextLevel:  p.XPToNextLevel,
		Version:        p.Version,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.LastPracticeDate != nil {
		d := p.LastPracticeDate.UTC()
		m.LastPracticeDate = &d
	}
	return m
}

func (m *profileModel) toDomain() *streak.Profile {
	p := &streak.Profile{
		ID:             m.ID,
		UserID:         m.UserID,
		CurrentStreak:  m.CurrentStreak,
		LongestStreak:  m.LongestStreak,
		TotalDays:      m.TotalDays,
		WeeklyGoal:     m.WeeklyGoal,
		WeeklyProgress: m.WeeklyProgress,
		Level:          m.Level,
		XP:             m.XP,
		XPToNextLevel:  m.XPToNextLevel,
		Version:        m.Version,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.LastPracticeDate != nil {
		d := m.LastPracticeDate.UTC()
		p.LastPracticeDate = &d
	}
	return p
}

// achievementModel maps user_achievements; (user_id, achievement_id) is unique.
type achievementModel struct {
	ID            string `gorm:"primaryKey;size:36"`
	UserID        string `gorm:"size:128;not null;uniqueIndex:idx_user_achievement,priority:1"`
	AchievementID string `gorm:"size:64;not null;uniqueIndex:idx_user_achievement,priority:2"`
	IsUnlocked    bool   `gorm:"not null"`
	UnlockedAt    *time.Time
	Progress      int `gorm:"not null"`
	MaxProgress   int `gorm:"not null"`
	UpdatedAt     time.Time
}

func (achievementModel) TableName() string { return "user_achievements" }

func (m *achievementModel) toDomain() *achievement.UserAchievement {
	return &achievement.UserAchievement{
		ID:            m.ID,
		UserID:        m.UserID,
		AchievementID: m.AchievementID,
		IsUnlocked:    m.IsUnlocked,
		UnlockedAt:    m.UnlockedAt,
		Progress:      m.Progress,
		MaxProgress:   m.MaxProgress,
		UpdatedAt:     m.UpdatedAt,
	}
}
