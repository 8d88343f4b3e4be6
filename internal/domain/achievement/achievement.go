// Package achievement defines the achievement catalog and the evaluator that
// turns profile counters into per-user progress.
package achievement

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yogaii/yogaii-streak/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// Type selects the metric an achievement tracks.
type Type string

const (
	// TypeTotalDays tracks the number of recorded activities.
	TypeTotalDays Type = "total_days"

	// TypeStreak tracks the current consecutive-day streak.
	TypeStreak Type = "streak"

	// TypeLevel tracks the user's level.
	TypeLevel Type = "level"

	// TypeEarlyBird counts sessions that started before 08:00 local time.
	TypeEarlyBird Type = "early_bird"
)

// Definition is one catalog entry.
type Definition struct {
	ID            string `yaml:"id" json:"id"`
	Title         string `yaml:"title" json:"title"`
	Description   string `yaml:"description" json:"description"`
	Icon          string `yaml:"icon" json:"icon"`
	Type          Type   `yaml:"type" json:"type"`
	RequiredValue int    `yaml:"required_value" json:"requiredValue"`
}

// Catalog is the ordered set of achievement definitions.
type Catalog struct {
	defs []Definition
	byID map[string]Definition
}

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("achievement: embedded catalog is invalid: %v", err))
	}
	return c
}

// ParseCatalog reads a YAML catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Achievements []Definition `yaml:"achievements"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, shared.WrapError("achievement", "load_catalog", shared.ErrInvalidInput, "malformed catalog", err)
	}

	c := &Catalog{byID: make(map[string]Definition, len(doc.Achievements))}
	for _, d := range doc.Achievements {
		if d.ID == "" {
			return nil, shared.ErrInvalidCatalog
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, shared.WrapError("achievement", "load_catalog", shared.ErrInvalidInput, "duplicate achievement id", fmt.Errorf("%s", d.ID))
		}
		switch d.Type {
		case TypeTotalDays, TypeStreak, TypeLevel, TypeEarlyBird:
		default:
			return nil, shared.WrapError("achievement", "load_catalog", shared.ErrInvalidInput, "unknown achievement type", fmt.Errorf("%s: %q", d.ID, d.Type))
		}
		if d.RequiredValue < 1 {
			return nil, shared.WrapError("achievement", "load_catalog", shared.ErrValueOutOfRange, "required value must be positive", fmt.Errorf("%s", d.ID))
		}
		c.defs = append(c.defs, d)
		c.byID[d.ID] = d
	}
	return c, nil
}

// All returns the definitions in catalog order.
func (c *Catalog) All() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Get returns a definition by id.
func (c *Catalog) Get(id string) (Definition, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// ══════════════════════════════════════════════════════════════════════════════
// USER PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// UserAchievement is a user's progress toward one definition.
type UserAchievement struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	AchievementID string     `json:"achievementId"`
	IsUnlocked    bool       `json:"isUnlocked"`
	UnlockedAt    *time.Time `json:"unlockedDate,omitempty"`
	Progress      int        `json:"progress"`
	MaxProgress   int        `json:"maxProgress"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Snapshot is the input to the evaluator: profile counters right after an activity.
type Snapshot struct {
	CurrentStreak int
	TotalDays     int
	Level         int
	EarlySession  bool
}

// Result is the outcome of evaluating one definition.
type Result struct {
	Achievement *UserAchievement
	Changed     bool
	Unlocked    bool
}

// Evaluate computes the new progress of one definition. existing may be nil.
// Unlocked achievements never relock and their progress never drops.
func Evaluate(def Definition, existing *UserAchievement, userID string, snap Snapshot, now time.Time) Result {
	ua := &UserAchievement{
		UserID:        userID,
		AchievementID: def.ID,
		MaxProgress:   def.RequiredValue,
	}
	if existing != nil {
		c := *existing
		ua = &c
		ua.MaxProgress = def.RequiredValue
	}

	if ua.IsUnlocked {
		return Result{Achievement: ua}
	}

	var metric int
	switch def.Type {
	case TypeTotalDays:
		metric = snap.TotalDays
	case TypeStreak:
		metric = snap.CurrentStreak
	case TypeLevel:
		metric = snap.Level
	case TypeEarlyBird:
		metric = ua.Progress
		if snap.EarlySession {
			metric++
		}
	}
	if metric > def.RequiredValue {
		metric = def.RequiredValue
	}

	res := Result{Achievement: ua}
	if metric != ua.Progress || existing == nil {
		ua.Progress = metric
		ua.UpdatedAt = now
		res.Changed = true
	}
	if ua.Progress >= def.RequiredValue {
		t := now
		ua.IsUnlocked = true
		ua.UnlockedAt = &t
		ua.UpdatedAt = now
		res.Changed = true
		res.Unlocked = true
	}
	return res
}

// EvaluateAll runs Evaluate for every catalog entry. existing is keyed by achievement id.
func EvaluateAll(c *Catalog, existing map[string]*UserAchievement, userID string, snap Snapshot, now time.Time) []Result {
	results := make([]Result, 0, len(c.defs))
	for _, def := range c.defs {
		results = append(results, Evaluate(def, existing[def.ID], userID, snap, now))
	}
	return results
}

// View is a catalog entry merged with a user's progress, as shown to clients.
type View struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Icon        string     `json:"icon"`
	IsUnlocked  bool       `json:"isUnlocked"`
	UnlockedAt  *time.Time `json:"unlockedDate,omitempty"`
	Progress    int        `json:"progress"`
	MaxProgress int        `json:"maxProgress"`
}

// Merge builds the client view of the full catalog for one user.
func Merge(c *Catalog, progress []*UserAchievement) []View {
	byID := make(map[string]*UserAchievement, len(progress))
	for _, ua := range progress {
		byID[ua.AchievementID] = ua
	}

	views := make([]View, 0, len(c.defs))
	for _, d := range c.defs {
		v := View{
			ID:          d.ID,
			Title:       d.Title,
			Description: d.Description,
			Icon:        d.Icon,
			MaxProgress: d.RequiredValue,
		}
		if ua, ok := byID[d.ID]; ok {
			v.IsUnlocked = ua.IsUnlocked
			v.UnlockedAt = ua.UnlockedAt
			v.Progress = ua.Progress
		}
		views = append(views, v)
	}
	return views
}
