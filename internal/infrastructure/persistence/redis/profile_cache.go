package redis

import (
	"context"
	"errors"
	"time"

	"github.com/yogaii/yogaii-streak/internal/domain/streak"
	"github.com/yogaii/yogaii-streak/pkg/circuitbreaker"
	"github.com/yogaii/yogaii-streak/pkg/logger"
)

// cachedProfile carries the version, which Profile hides from JSON.
type cachedProfile struct {
	Profile *streak.Profile `json:"profile"`
	Version int64           `json:"version"`
}

// ProfileCache is a read-through cache in front of a streak.Repository.
// Writes go to the inner repository first and then refresh the entry, so a
// cache failure never loses data. Cache errors are logged and ignored; after
// repeated failures the breaker opens and the cache is bypassed entirely.
type ProfileCache struct {
	inner   streak.Repository
	cache   *Cache
	ttl     time.Duration
	log     *logger.Logger
	breaker *circuitbreaker.Breaker
}

// NewProfileCache wraps inner.
func NewProfileCache(inner streak.Repository, cache *Cache, ttl time.Duration, log *logger.Logger) *ProfileCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.With(logger.Component("profile_cache"))

	bc := circuitbreaker.DefaultConfig("redis_profile_cache")
	bc.IsFailure = func(err error) bool {
		return !errors.Is(err, ErrCacheMiss) && !errors.Is(err, context.Canceled)
	}
	bc.OnStateChange = func(name string, from, to circuitbreaker.State) {
		log.Warn("cache breaker state changed",
			logger.String("breaker", name),
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
	}

	return &ProfileCache{
		inner:   inner,
		cache:   cache,
		ttl:     ttl,
		log:     log,
		breaker: circuitbreaker.New(bc),
	}
}

// BreakerState reports whether the cache is currently bypassed.
func (c *ProfileCache) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}

// GetByUser serves from cache when possible.
func (c *ProfileCache) GetByUser(ctx context.Context, userID string) (*streak.Profile, error) {
	var entry cachedProfile
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.cache.Get(ctx, ProfileKey(userID), &entry)
	})
	if err == nil && entry.Profile != nil {
		entry.Profile.Version = entry.Version
		return entry.Profile, nil
	}
	if err != nil && !errors.Is(err, ErrCacheMiss) && !errors.Is(err, circuitbreaker.ErrOpen) {
		c.log.Warn("profile cache read failed", logger.UserID(userID), logger.Err(err))
	}

	p, err := c.inner.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, p)
	return p, nil
}

// Create stores the profile and primes the cache.
func (c *ProfileCache) Create(ctx context.Context, p *streak.Profile) error {
	if err := c.inner.Create(ctx, p); err != nil {
		return err
	}
	c.store(ctx, p)
	return nil
}

// Update writes through. A stale version drops the entry so the retry
// re-reads from the source of truth.
func (c *ProfileCache) Update(ctx context.Context, p *streak.Profile) error {
	if err := c.inner.Update(ctx, p); err != nil {
		c.Invalidate(ctx, p.UserID)
		return err
	}
	c.store(ctx, p)
	return nil
}

// ListUserIDs is not cached.
func (c *ProfileCache) ListUserIDs(ctx context.Context) ([]string, error) {
	return c.inner.ListUserIDs(ctx)
}

// Invalidate removes the user's entry.
func (c *ProfileCache) Invalidate(ctx context.Context, userID string) {
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.cache.Delete(ctx, ProfileKey(userID))
	})
	if err != nil && !errors.Is(err, circuitbreaker.ErrOpen) {
		c.log.Warn("profile cache invalidate failed", logger.UserID(userID), logger.Err(err))
	}
}

func (c *ProfileCache) store(ctx context.Context, p *streak.Profile) {
	entry := cachedProfile{Profile: p, Version: p.Version}
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.cache.Set(ctx, ProfileKey(p.UserID), entry, c.ttl)
	})
	if err != nil && !errors.Is(err, circuitbreaker.ErrOpen) {
		c.log.Warn("profile cache write failed", logger.UserID(p.UserID), logger.Err(err))
	}
}
