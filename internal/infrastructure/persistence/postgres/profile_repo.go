package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/yogaii/yogaii-streak/internal/domain/shared"
	"github.com/yogaii/yogaii-streak/internal/domain/streak"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK PROFILE REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// ProfileRepository implements streak.Repository for PostgreSQL with
// optimistic concurrency on the version column.
type ProfileRepository struct {
	conn *Connection
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(conn *Connection) *ProfileRepository {
	return &ProfileRepository{conn: conn}
}

// GetByUser returns the user's profile.
func (r *ProfileRepository) GetByUser(ctx context.Context, userID string) (*streak.Profile, error) {
	row := r.conn.QueryRow(ctx, `
		SELECT id, user_id, current_streak, longest_streak, total_days, last_practice_date,
		       weekly_goal, weekly_progress, level, xp, xp_to_next_level, version,
		       created_at, updated_at
		FROM streak_profiles
		WHERE user_id = $1
	`, userID)

	var (
		p    streak.Profile
		last *time.Time
	)
	err := row.Scan(
		&p.ID, &p.UserID, &p.CurrentStreak, &p.LongestStreak, &p.TotalDays, &last,
		&p.WeeklyGoal, &p.WeeklyProgress, &p.Level, &p.XP, &p.XPToNextLevel, &p.Version,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if last != nil {
		d := last.UTC()
		p.LastPracticeDate = &d
	}
	return &p, nil
}

// Create inserts a profile at version 1.
func (r *ProfileRepository) Create(ctx context.Context, p *streak.Profile) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO streak_profiles (
			id, user_id, current_streak, longest_streak, total_days, last_practice_date,
			weekly_goal, weekly_progress, level, xp, xp_to_next_level, version,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1, $12, $13)
	`,
		p.ID, p.UserID, p.CurrentStreak, p.LongestStreak, p.TotalDays, p.LastPracticeDate,
		p.WeeklyGoal, p.WeeklyProgress, p.Level, p.XP, p.XPToNextLevel,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrProfileAlreadyExists
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}
	p.Version = 1
	return nil
}

// Update writes the profile if the stored version still equals p.Version.
func (r *ProfileRepository) Update(ctx context.Context, p *streak.Profile) error {
	tag, err := r.conn.Exec(ctx, `
		UPDATE streak_profiles SET
			current_streak = $1,
			longest_streak = $2,
			total_days = $3,
			last_practice_date = $4,
			weekly_goal = $5,
			weekly_progress = $6,
			level = $7,
			xp = $8,
			xp_to_next_level = $9,
			updated_at = $10,
			version = version + 1
		WHERE user_id = $11 AND version = $12
	`,
		p.CurrentStreak, p.LongestStreak, p.TotalDays, p.LastPracticeDate,
		p.WeeklyGoal, p.WeeklyProgress, p.Level, p.XP, p.XPToNextLevel,
		p.UpdatedAt, p.UserID, p.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.conn.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM streak_profiles WHERE user_id = $1)`, p.UserID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check profile: %w", err)
		}
		if !exists {
			return shared.ErrProfileNotFound
		}
		return shared.ErrProfileVersionStale
	}

	p.Version++
	return nil
}

// ListUserIDs returns every user with a profile, sorted.
func (r *ProfileRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.conn.Query(ctx, `SELECT user_id FROM streak_profiles ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
