package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBoom = errors.New("boom")

func TestDo_RetriesRetryable(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errBoom)
		}
		return nil
	}, WithInitialDelay(time.Millisecond), WithMaxAttempts(5))

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPlainAndPermanent(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return errBoom
	}, WithInitialDelay(time.Millisecond))
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, calls)

	calls = 0
	err = Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(errBoom)
	}, WithRetryIf(func(error) bool { return true }))
	assert.Equal(t, errBoom, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttemptsAndUnwraps(t *testing.T) {
	var retries []int
	calls := 0
	err := Do(context.Background(), func(context.Context) error {
		calls++
		return Retryable(errBoom)
	},
		WithMaxAttempts(3),
		WithInitialDelay(time.Millisecond),
		WithOnRetry(func(attempt int, _ error, _ time.Duration) { retries = append(retries, attempt) }),
	)

	assert.Equal(t, errBoom, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestDo_HonorsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := LockRetrier().Do(ctx, func(context.Context) error {
		return Retryable(errBoom)
	})
	assert.ErrorIs(t, err, errBoom)
}

func TestDoWithData(t *testing.T) {
	n, err := DoWithData(context.Background(), func(context.Context) (int, error) { return 42, nil })
	assert.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestDelay_Capped(t *testing.T) {
	r := New(WithInitialDelay(time.Second), WithMaxDelay(2*time.Second), WithJitter(0))
	assert.Equal(t, time.Second, r.delay(1))
	assert.Equal(t, 2*time.Second, r.delay(2))
	assert.Equal(t, 2*time.Second, r.delay(10))
}
