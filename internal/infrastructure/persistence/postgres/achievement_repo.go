package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yogaii/yogaii-streak/internal/domain/achievement"
)

// AchievementRepository implements achievement.Repository for PostgreSQL.
type AchievementRepository struct {
	conn *Connection
}

// NewAchievementRepository creates a new AchievementRepository.
func NewAchievementRepository(conn *Connection) *AchievementRepository {
	return &AchievementRepository{conn: conn}
}

// ListByUser returns every progress row of the user ordered by achievement id.
func (r *AchievementRepository) ListByUser(ctx context.Context, userID string) ([]*achievement.UserAchievement, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id, user_id, achievement_id, is_unlocked, unlocked_at, progress, max_progress, updated_at
		FROM user_achievements
		WHERE user_id = $1
		ORDER BY achievement_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	defer rows.Close()

	var out []*achievement.UserAchievement
	for rows.Next() {
		var ua achievement.UserAchievement
		if err := rows.Scan(
			&ua.ID, &ua.UserID, &ua.AchievementID, &ua.IsUnlocked, &ua.UnlockedAt,
			&ua.Progress, &ua.MaxProgress, &ua.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		out = append(out, &ua)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate achievements: %w", err)
	}
	return out, nil
}

// Upsert inserts or replaces the (user, achievement) row. An existing row keeps its id.
func (r *AchievementRepository) Upsert(ctx context.Context, ua *achievement.UserAchievement) error {
	if ua.ID == "" {
		ua.ID = uuid.NewString()
	}

	err := r.conn.QueryRow(ctx, `
		INSERT INTO user_achievements (
			id, user_id, achievement_id, is_unlocked, unlocked_at, progress, max_progress, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, achievement_id) DO UPDATE SET
			is_unlocked = EXCLUDED.is_unlocked,
			unlocked_at = EXCLUDED.unlocked_at,
			progress = EXCLUDED.progress,
			max_progress = EXCLUDED.max_progress,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`,
		ua.ID, ua.UserID, ua.AchievementID, ua.IsUnlocked, ua.UnlockedAt,
		ua.Progress, ua.MaxProgress, ua.UpdatedAt,
	).Scan(&ua.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert achievement: %w", err)
	}
	return nil
}
