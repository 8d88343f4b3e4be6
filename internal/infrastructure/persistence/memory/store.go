// Package memory provides in-memory repositories. They back the service when
// STORAGE_DRIVER=memory and are the default store in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yogaii/yogaii-streak/internal/domain/achievement"
	"github.com/yogaii/yogaii-streak/internal/domain/activity"
	"github.com/yogaii/yogaii-streak/internal/domain/shared"
	"github.com/yogaii/yogaii-streak/internal/domain/streak"
)

// Store holds activities, profiles and achievement progress.
// All returned entities are copies.
type Store struct {
	mu           sync.RWMutex
	activities   map[string][]*activity.DailyActivity // by user
	profiles     map[string]*streak.Profile           // by user
	achievements map[string]map[string]*achievement.UserAchievement
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		activities:   make(map[string][]*activity.DailyActivity),
		profiles:     make(map[string]*streak.Profile),
		achievements: make(map[string]map[string]*achievement.UserAchievement),
	}
}

// Activities returns the store as an activity.Repository.
func (s *Store) Activities() activity.Repository { return activityRepo{s} }

// Profiles returns the store as a streak.Repository.
func (s *Store) Profiles() streak.Repository { return profileRepo{s} }

// Achievements returns the store as an achievement.Repository.
func (s *Store) Achievements() achievement.Repository { return achievementRepo{s} }

// ─────────────────────────────────────────────────────────────────────────────
// Activities
// ─────────────────────────────────────────────────────────────────────────────

type activityRepo struct{ s *Store }

func (r activityRepo) Create(ctx context.Context, a *activity.DailyActivity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	r.s.activities[a.UserID] = append(r.s.activities[a.UserID], copyActivity(a))
	return nil
}

func (r activityRepo) QueryByUserAndRange(ctx context.Context, userID string, from, to time.Time) ([]*activity.DailyActivity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*activity.DailyActivity, 0)
	for _, a := range r.s.activities[userID] {
		if !a.Date.Before(from) && a.Date.Before(to) {
			out = append(out, copyActivity(a))
		}
	}
	activity.SortByDateDesc(out)
	return out, nil
}

func (r activityRepo) ListByUser(ctx context.Context, userID string) ([]*activity.DailyActivity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*activity.DailyActivity, 0, len(r.s.activities[userID]))
	for _, a := range r.s.activities[userID] {
		out = append(out, copyActivity(a))
	}
	activity.SortChronological(out)
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Profiles
// ─────────────────────────────────────────────────────────────────────────────

type profileRepo struct{ s *Store }

func (r profileRepo) GetByUser(ctx context.Context, userID string) (*streak.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.profiles[userID]
	if !ok {
		return nil, shared.ErrProfileNotFound
	}
	return p.Clone(), nil
}

func (r profileRepo) Create(ctx context.Context, p *streak.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.profiles[p.UserID]; ok {
		return shared.ErrProfileAlreadyExists
	}
	p.Version = 1
	r.s.profiles[p.UserID] = p.Clone()
	return nil
}

func (r profileRepo) Update(ctx context.Context, p *streak.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.profiles[p.UserID]
	if !ok {
		return shared.ErrProfileNotFound
	}
	if stored.Version != p.Version {
		return shared.ErrProfileVersionStale
	}
	p.Version++
	r.s.profiles[p.UserID] = p.Clone()
	return nil
}

func (r profileRepo) ListUserIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids := make([]string, 0, len(r.s.profiles))
	for id := range r.s.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Achievements
// ─────────────────────────────────────────────────────────────────────────────

type achievementRepo struct{ s *Store }

func (r achievementRepo) ListByUser(ctx context.Context, userID string) ([]*achievement.UserAchievement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*achievement.UserAchievement, 0, len(r.s.achievements[userID]))
	for _, ua := range r.s.achievements[userID] {
		c := *ua
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AchievementID < out[j].AchievementID })
	return out, nil
}

func (r achievementRepo) Upsert(ctx context.Context, ua *achievement.UserAchievement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	byID, ok := r.s.achievements[ua.UserID]
	if !ok {
		byID = make(map[string]*achievement.UserAchievement)
		r.s.achievements[ua.UserID] = byID
	}
	if existing, ok := byID[ua.AchievementID]; ok {
		ua.ID = existing.ID
	} else if ua.ID == "" {
		ua.ID = uuid.NewString()
	}
	c := *ua
	byID[ua.AchievementID] = &c
	return nil
}

func copyActivity(a *activity.DailyActivity) *activity.DailyActivity {
	c := *a
	c.Poses = append([]string(nil), a.Poses...)
	return &c
}
