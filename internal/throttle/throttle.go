// Package throttle paces outbound requests to the remote service and
// recovers from rate-limit rejections.
//
// A single Limiter instance is shared by every call site so the token
// bucket reflects the one global request budget the service grants us.
package throttle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/spinshelf/spinshelf/internal/loggy"
)

// ErrRetriesExhausted is returned when a rate-limited request keeps being
// rejected after the maximum number of attempts.
var ErrRetriesExhausted = errors.New("rate limit retries exhausted")

// DefaultWait is the backoff applied to a rate-limit rejection that does
// not carry a server wait hint.
const DefaultWait = 5 * time.Second

// RateLimitError is implemented by errors that represent a rate-limit
// rejection from the remote service, optionally carrying a wait hint.
type RateLimitError interface {
	error
	RateLimited() bool
	RetryAfter() time.Duration
}

// Limiter enforces a fixed request budget with a token bucket and retries
// rate-limit rejections with the server-provided wait hint.
type Limiter struct {
	bucket     *rate.Limiter
	maxRetries uint64
	logger     *loggy.Logger
}

// New creates a Limiter allowing rpm requests per rolling minute with the
// given burst capacity. maxRetries is the number of retries after the first
// attempt of a rate-limited request; total attempts = maxRetries + 1.
// An rpm of zero or less disables pacing entirely.
func New(rpm, burst, maxRetries int, logger *loggy.Logger) *Limiter {
	limit := rate.Inf
	if rpm > 0 {
		limit = rate.Limit(float64(rpm) / 60.0)
	}
	if burst <= 0 {
		burst = 1
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Limiter{
		bucket:     rate.NewLimiter(limit, burst),
		maxRetries: uint64(maxRetries),
		logger:     logger,
	}
}

// Do runs op under the request budget. Every attempt, retries included,
// consumes one token; the call suspends until a token is available.
//
// When op fails with a RateLimitError the limiter waits the server hint
// (or DefaultWait if absent) and tries again, up to the configured attempt
// budget; exhaustion surfaces as ErrRetriesExhausted wrapping the last
// rejection. Any other error propagates immediately without a retry.
func (l *Limiter) Do(ctx context.Context, op func(context.Context) error) error {
	hint := &hintBackOff{fallback: DefaultWait}
	attempts := 0

	operation := func() error {
		if err := l.bucket.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("waiting for request token: %w", err))
		}

		attempts++
		err := op(ctx)
		if err == nil {
			return nil
		}

		var rle RateLimitError
		if errors.As(err, &rle) && rle.RateLimited() {
			hint.hint = rle.RetryAfter()
			l.logger.Warn("Rate limited by remote service",
				"attempt", attempts,
				"retry_after", hint.hint,
			)
			return err
		}

		return backoff.Permanent(err)
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(hint, l.maxRetries), ctx))
	if err == nil {
		return nil
	}

	var rle RateLimitError
	if errors.As(err, &rle) && rle.RateLimited() {
		return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, err)
	}

	return err
}

// hintBackOff waits the duration the server asked for, falling back to a
// conservative default when no hint was provided.
type hintBackOff struct {
	hint     time.Duration
	fallback time.Duration
}

func (b *hintBackOff) NextBackOff() time.Duration {
	if b.hint > 0 {
		d := b.hint
		b.hint = 0
		return d
	}
	return b.fallback
}

func (b *hintBackOff) Reset() {}
