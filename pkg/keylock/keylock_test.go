package keylock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock_SerializesSameKey(t *testing.T) {
	kl := New()
	counter := 0
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := kl.Lock(context.Background(), "user-1")
			if !assert.NoError(t, err) {
				return
			}
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
	assert.Zero(t, kl.Len())
}

func TestLock_DifferentKeysIndependent(t *testing.T) {
	kl := New()
	unlockA, err := kl.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	unlockB, ok := kl.TryLock("b")
	require.True(t, ok)
	unlockB()
}

func TestLock_ContextCancelled(t *testing.T) {
	kl := New()
	unlock, err := kl.Lock(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = kl.Lock(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock() // second call is a no-op
	assert.Zero(t, kl.Len())
}

func TestTryLock(t *testing.T) {
	kl := New()
	unlock, ok := kl.TryLock("a")
	require.True(t, ok)

	_, ok = kl.TryLock("a")
	assert.False(t, ok)

	unlock()
	_, ok = kl.TryLock("a")
	assert.True(t, ok)
}
