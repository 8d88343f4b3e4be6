package achievement

import "context"

// Repository persists per-user achievement progress.
type Repository interface {
	// ListByUser returns every progress row of the user.
	ListByUser(ctx context.Context, userID string) ([]*UserAchievement, error)

	// Upsert creates or replaces the row for (UserID, AchievementID).
	Upsert(ctx context.Context, ua *UserAchievement) error
}

// IndexByID keys progress rows by achievement id.
func IndexByID(list []*UserAchievement) map[string]*UserAchievement {
	m := make(map[string]*UserAchievement, len(list))
	for _, ua := range list {
		m[ua.AchievementID] = ua
	}
	return m
}
