package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yogaii/yogaii-streak/internal/domain/activity"
)

// ActivityRepository implements activity.Repository for PostgreSQL.
type ActivityRepository struct {
	conn *Connection
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(conn *Connection) *ActivityRepository {
	return &ActivityRepository{conn: conn}
}

const activityColumns = `id, user_id, activity_date, start_hour, practiced, duration_minutes, poses, quality, xp_earned, created_at`

// Create inserts a new activity row.
func (r *ActivityRepository) Create(ctx context.Context, a *activity.DailyActivity) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	poses := a.Poses
	if poses == nil {
		poses = []string{}
	}

	_, err := r.conn.Exec(ctx, `
		INSERT INTO daily_activities (`+activityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		a.ID,
		a.UserID,
		a.Date,
		a.StartHour,
		a.Practiced,
		a.DurationMinutes,
		poses,
		string(a.Quality),
		a.XPEarned,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}

// QueryByUserAndRange returns activities dated in [from, to), newest first.
func (r *ActivityRepository) QueryByUserAndRange(ctx context.Context, userID string, from, to time.Time) ([]*activity.DailyActivity, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT `+activityColumns+`
		FROM daily_activities
		WHERE user_id = $1 AND activity_date >= $2 AND activity_date < $3
		ORDER BY activity_date DESC, created_at DESC
	`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	return collectActivities(rows)
}

// ListByUser returns the full history in chronological order.
func (r *ActivityRepository) ListByUser(ctx context.Context, userID string) ([]*activity.DailyActivity, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT `+activityColumns+`
		FROM daily_activities
		WHERE user_id = $1
		ORDER BY activity_date ASC, created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return collectActivities(rows)
}

func collectActivities(rows pgx.Rows) ([]*activity.DailyActivity, error) {
	defer rows.Close()

	var out []*activity.DailyActivity
	for rows.Next() {
		var (
			a       activity.DailyActivity
			quality string
		)
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.Date, &a.StartHour, &a.Practiced,
			&a.DurationMinutes, &a.Poses, &quality, &a.XPEarned, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a.Quality = activity.Quality(quality)
		a.Date = a.Date.UTC()
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activities: %w", err)
	}
	return out, nil
}
