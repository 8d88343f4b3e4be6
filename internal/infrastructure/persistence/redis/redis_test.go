package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogaii/yogaii-streak/internal/domain/shared"
	"github.com/yogaii/yogaii-streak/internal/domain/streak"
	"github.com/yogaii/yogaii-streak/internal/infrastructure/persistence/memory"
	"github.com/yogaii/yogaii-streak/pkg/circuitbreaker"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, goredis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCache_GetSetDelete(t *testing.T) {
	_, client := newTestClient(t)
	c := NewCacheFromClient(client)
	ctx := context.Background()

	var out map[string]int
	assert.ErrorIs(t, c.Get(ctx, "k", &out), ErrCacheMiss)
	assert.ErrorIs(t, c.Set(ctx, "", 1, time.Minute), ErrCacheKeyEmpty)

	require.NoError(t, c.Set(ctx, "k", map[string]int{"a": 1}, time.Minute))
	require.NoError(t, c.Get(ctx, "k", &out))
	assert.Equal(t, 1, out["a"])

	require.NoError(t, c.Delete(ctx, "k"))
	assert.ErrorIs(t, c.Get(ctx, "k", &out), ErrCacheMiss)
}

func TestProfileCache_ReadThroughAndVersion(t *testing.T) {
	mr, client := newTestClient(t)
	store := memory.NewStore()
	repo := NewProfileCache(store.Profiles(), NewCacheFromClient(client), time.Minute, nil)
	ctx := context.Background()
	now := time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)

	p, err := streak.NewProfile("u1", 0, now)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, p))
	assert.True(t, mr.Exists(ProfileKey("u1")))

	got, err := repo.GetByUser(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.Version)

	got.ApplyActivity(time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC), 78, now)
	require.NoError(t, repo.Update(ctx, got))

	cached, err := repo.GetByUser(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, cached.Version)
	assert.Equal(t, 78, cached.XP)

	stale := cached.Clone()
	stale.Version = 1
	assert.ErrorIs(t, repo.Update(ctx, stale), shared.ErrProfileVersionStale)
	assert.False(t, mr.Exists(ProfileKey("u1")))

	_, err = repo.GetByUser(ctx, "missing")
	assert.ErrorIs(t, err, shared.ErrProfileNotFound)
}

func TestProfileCache_FallsBackWhenRedisDown(t *testing.T) {
	mr, client := newTestClient(t)
	store := memory.NewStore()
	repo := NewProfileCache(store.Profiles(), NewCacheFromClient(client), time.Minute, nil)
	ctx := context.Background()

	p, err := streak.NewProfile("u1", 3, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Profiles().Create(ctx, p))

	mr.Close()
	got, err := repo.GetByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.WeeklyGoal)
}

func TestProfileCache_BreakerOpensOnRepeatedFailures(t *testing.T) {
	mr, client := newTestClient(t)
	store := memory.NewStore()
	repo := NewProfileCache(store.Profiles(), NewCacheFromClient(client), time.Minute, nil)
	ctx := context.Background()

	p, err := streak.NewProfile("u1", 0, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Profiles().Create(ctx, p))

	// A miss is not a failure.
	_, err = repo.GetByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, circuitbreaker.StateClosed, repo.BreakerState())

	mr.Close()
	for i := 0; i < 5; i++ {
		_, err := repo.GetByUser(ctx, "u1")
		require.NoError(t, err)
	}
	assert.Equal(t, circuitbreaker.StateOpen, repo.BreakerState())

	got, err := repo.GetByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
}

func TestLocker_SerializesAndReleases(t *testing.T) {
	mr, client := newTestClient(t)
	l := NewLocker(client, 5*time.Second, nil)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, mr.Exists(LockKey("profile:u1")))

	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = l.Lock(short, "u1")
	assert.ErrorIs(t, err, shared.ErrLockNotAcquired)

	// A different user is independent.
	unlockOther, err := l.Lock(ctx, "u2")
	require.NoError(t, err)
	unlockOther()

	unlock()
	unlock()
	assert.False(t, mr.Exists(LockKey("profile:u1")))
}

func TestLocker_Concurrent(t *testing.T) {
	_, client := newTestClient(t)
	l := NewLocker(client, 5*time.Second, nil)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		holders int
		maxSeen int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			unlock, err := l.Lock(ctx, "shared")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			holders++
			if holders > maxSeen {
				maxSeen = holders
			}
			mu.Unlock()
			time.Sleep(2 * time.Millisecond)
			mu.Lock()
			holders--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}
