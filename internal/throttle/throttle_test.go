package throttle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spinshelf/spinshelf/internal/loggy"
)

// fakeRateLimitErr simulates a 429 rejection with a wait hint
type fakeRateLimitErr struct {
	hint time.Duration
}

func (e *fakeRateLimitErr) Error() string             { return "too many requests" }
func (e *fakeRateLimitErr) RateLimited() bool         { return true }
func (e *fakeRateLimitErr) RetryAfter() time.Duration { return e.hint }

func TestDoSucceedsFirstAttempt(t *testing.T) {
	l := New(6000, 10, 2, loggy.NewNoopLogger())

	calls := 0
	err := l.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesRateLimitWithHint(t *testing.T) {
	l := New(6000, 10, 2, loggy.NewNoopLogger())

	hint := 20 * time.Millisecond
	calls := 0
	start := time.Now()

	err := l.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &fakeRateLimitErr{hint: hint}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	// Two rejections, each honoring the hint
	assert.GreaterOrEqual(t, time.Since(start), 2*hint)
}

func TestDoBoundedRetries(t *testing.T) {
	l := New(6000, 10, 2, loggy.NewNoopLogger())

	calls := 0
	err := l.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return &fakeRateLimitErr{hint: time.Millisecond}
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 3, calls, "a persistent 429 should be attempted exactly 3 times")
}

func TestDoDoesNotRetryOtherErrors(t *testing.T) {
	l := New(6000, 10, 2, loggy.NewNoopLogger())

	boom := errors.New("connection refused")
	calls := 0
	err := l.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return boom
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 1, calls)
}

func TestDoRespectsBudget(t *testing.T) {
	// 1200 rpm = one token every 50ms, burst of 1
	l := New(1200, 1, 0, loggy.NewNoopLogger())

	start := time.Now()
	for i := 0; i < 3; i++ {
		err := l.Do(context.Background(), func(ctx context.Context) error { return nil })
		require.NoError(t, err)
	}

	// First call consumes the burst token, the next two each wait a refill
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestDoHonorsContextCancellation(t *testing.T) {
	l := New(6, 1, 2, loggy.NewNoopLogger())

	ctx, cancel := context.WithCancel(context.Background())

	// Drain the burst token so the next call blocks on the bucket
	require.NoError(t, l.Do(ctx, func(ctx context.Context) error { return nil }))

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := l.Do(ctx, func(ctx context.Context) error { return nil })
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnlimitedWhenRPMZero(t *testing.T) {
	l := New(0, 0, 0, loggy.NewNoopLogger())

	start := time.Now()
	for i := 0; i < 50; i++ {
		require.NoError(t, l.Do(context.Background(), func(ctx context.Context) error { return nil }))
	}
	assert.Less(t, time.Since(start), time.Second)
}
