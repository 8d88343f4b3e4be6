package activity

import (
	"context"
	"time"

	"github.com/yogaii/yogaii-streak/pkg/timeutil"
)

// Repository defines the interface for activity persistence.
// This interface is implemented by the infrastructure layer.
type Repository interface {
	// Create persists a new activity. Activities are append-only.
	Create(ctx context.Context, a *DailyActivity) error

	// QueryByUserAndRange returns the user's activities whose calendar date lies
	// in [from, to), newest first.
	QueryByUserAndRange(ctx context.Context, userID string, from, to time.Time) ([]*DailyActivity, error)

	// ListByUser returns every activity of the user in chronological order.
	ListByUser(ctx context.Context, userID string) ([]*DailyActivity, error)
}

// ForDate returns the activities of a single calendar date.
func ForDate(ctx context.Context, repo Repository, userID string, date time.Time) ([]*DailyActivity, error) {
	from := timeutil.DateOf(date)
	return repo.QueryByUserAndRange(ctx, userID, from, from.AddDate(0, 0, 1))
}
