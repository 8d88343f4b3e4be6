package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yogaii/yogaii-streak/internal/domain/achievement"
	"github.com/yogaii/yogaii-streak/internal/domain/activity"
	"github.com/yogaii/yogaii-streak/internal/domain/shared"
	"github.com/yogaii/yogaii-streak/internal/domain/streak"
)

// ActivityRepository implements activity.Repository.
type ActivityRepository struct {
	db *gorm.DB
}

func (r *ActivityRepository) Create(ctx context.Context, a *activity.DailyActivity) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(activityToModel(a)).Error; err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

func (r *ActivityRepository) QueryByUserAndRange(ctx context.Context, userID string, from, to time.Time) ([]*activity.DailyActivity, error) {
	var rows []activityModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND activity_date >= ? AND activity_date < ?", userID, from.UTC(), to.UTC()).
		Order("activity_date DESC, created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	return toActivities(rows), nil
}

func (r *ActivityRepository) ListByUser(ctx context.Context, userID string) ([]*activity.DailyActivity, error) {
	var rows []activityModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("activity_date ASC, created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return toActivities(rows), nil
}

func toActivities(rows []activityModel) []*activity.DailyActivity {
	out := make([]*activity.DailyActivity, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out
}

// ProfileRepository implements streak.Repository with a version column.
type ProfileRepository struct {
	db *gorm.DB
}

func (r *ProfileRepository) GetByUser(ctx context.Context, userID string) (*streak.Profile, error) {
	var m profileModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return m.toDomain(), nil
}

func (r *ProfileRepository) Create(ctx context.Context, p *streak.Profile) error {
	m := profileToModel(p)
	m.Version = 1
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrProfileAlreadyExists
		}
		return fmt.Errorf("create profile: %w", err)
	}
	p.Version = 1
	return nil
}

func (r *ProfileRepository) Update(ctx context.Context, p *streak.Profile) error {
	m := profileToModel(p)
	res := r.db.WithContext(ctx).
		Model(&profileModel{}).
		Where("user_id = ? AND version = ?", p.UserID, p.Version).
		Updates(map[string]any{
			"current_streak":     m.CurrentStreak,
			"longest_streak":     m.LongestStreak,
			"total_days":         m.TotalDays,
			"last_practice_date": m.LastPracticeDate,
			"weekly_goal":        m.WeeklyGoal,
			"weekly_progress":    m.WeeklyProgress,
			"level":              m.Level,
			"xp":                 m.XP,
			"xp_to_next_level":   m.XPToNextLevel,
			"updated_at":         m.UpdatedAt,
			"version":            gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return fmt.Errorf("update profile: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&profileModel{}).Where("user_id = ?", p.UserID).Count(&count).Error; err != nil {
			return fmt.Errorf("check profile: %w", err)
		}
		if count == 0 {
			return shared.ErrProfileNotFound
		}
		return shared.ErrProfileVersionStale
	}

	p.Version++
	return nil
}

func (r *ProfileRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&profileModel{}).Order("user_id").Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return ids, nil
}

// AchievementRepository implements achievement.Repository.
type AchievementRepository struct {
	db *gorm.DB
}

func (r *AchievementRepository) ListByUser(ctx context.Context, userID string) ([]*achievement.UserAchievement, error) {
	var rows []achievementModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("achievement_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	out := make([]*achievement.UserAchievement, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (r *AchievementRepository) Upsert(ctx context.Context, ua *achievement.UserAchievement) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing achievementModel
		err := tx.Where("user_id = ? AND achievement_id = ?", ua.UserID, ua.AchievementID).First(&existing).Error
		switch {
		case err == nil:
			ua.ID = existing.ID
		case errors.Is(err, gorm.ErrRecordNotFound):
			if ua.ID == "" {
				ua.ID = uuid.NewString()
			}
		default:
			return fmt.Errorf("load achievement: %w", err)
		}

		m := achievementModel{
			ID:            ua.ID,
			UserID:        ua.UserID,
			AchievementID: ua.AchievementID,
			IsUnlocked:    ua.IsUnlocked,
			UnlockedAt:    ua.UnlockedAt,
			Progress:      ua.Progress,
			MaxProgress:   ua.MaxProgress,
			UpdatedAt:     ua.UpdatedAt,
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&m).Error; err != nil {
			return fmt.Errorf("upsert achievement: %w", err)
		}
		return nil
	})
}
