package query

import (
	"context"
	"strings"

	"github.com/yogaii/yogaii-streak/internal/domain/achievement"
	"github.com/yogaii/yogaii-streak/internal/domain/shared"
)

// GetAchievementsQuery lists the whole catalog with the user's progress.
type GetAchievementsQuery struct {
	UserID string
}

// Validate checks the parameters.
func (q GetAchievementsQuery) Validate() error {
	if strings.TrimSpace(q.UserID) == "" {
		return shared.NewValidationError("achievement", "get_achievements", "user id is required")
	}
	return nil
}

// AchievementsResult is the query result.
type AchievementsResult struct {
	Achievements []achievement.View `json:"achievements"`
	Unlocked     int                `json:"unlocked"`
	Total        int                `json:"total"`
}

// GetAchievementsHandler handles the GetAchievementsQuery.
type GetAchievementsHandler struct {
	catalog *achievement.Catalog
	repo    achievement.Repository
}

// NewGetAchievementsHandler creates a new handler.
func NewGetAchievementsHandler(catalog *achievement.Catalog, repo achievement.Repository) *GetAchievementsHandler {
	return &GetAchievementsHandler{catalog: catalog, repo: repo}
}

// Handle executes the query.
func (h *GetAchievementsHandler) Handle(ctx context.Context, q GetAchievementsQuery) (*AchievementsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	progress, err := h.repo.ListByUser(ctx, strings.TrimSpace(q.UserID))
	if err != nil {
		return nil, shared.NewStoreUnavailableError("achievement", "list_progress", err)
	}

	views := achievement.Merge(h.catalog, progress)
	res := &AchievementsResult{Achievements: views, Total: len(views)}
	for _, v := range views {
		if v.IsUnlocked {
			res.Unlocked++
		}
	}
	return res, nil
}
