package catalog

import (
	"context"
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"net"
	"time"
)

// Retrier wraps a fallible operation with bounded, jittered exponential
// backoff. Permanent errors and context cancellation propagate immediately.
type Retrier struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// NewRetrier builds a retrier with the defaults used across the pipeline:
// 3 attempts, 500ms base delay doubling per attempt, capped at 8s.
func NewRetrier() *Retrier {
	return &Retrier{
		maxAttempts: 3,
		baseDelay:   500 * time.Millisecond,
		maxDelay:    8 * time.Second,
	}
}

// NewRetrierWith builds a retrier with explicit limits. Zero values fall back
// to the defaults.
func NewRetrierWith(maxAttempts int, baseDelay, maxDelay time.Duration) *Retrier {
	r := NewRetrier()
	if maxAttempts > 0 {
		r.maxAttempts = maxAttempts
	}
	if baseDelay > 0 {
		r.baseDelay = baseDelay
	}
	if maxDelay > 0 {
		r.maxDelay = maxDelay
	}
	return r
}

// Do invokes op until it succeeds, the error is non-retryable, or the attempt
// budget is spent. Exhaustion returns *ExhaustedRetriesError wrapping the
// last cause.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var last error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := r.pause(ctx, r.backoff(attempt-1)); err != nil {
				return err
			}
		}
		last = op(ctx)
		if last == nil {
			return nil
		}
		if !r.shouldRetry(last) {
			return last
		}
	}
	return &ExhaustedRetriesError{Attempts: r.maxAttempts, Last: last}
}

func (r *Retrier) shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if IsPermanent(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return true
}

func (r *Retrier) backoff(attempt int) time.Duration {
	delay := float64(r.baseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(r.maxDelay) {
		delay = float64(r.maxDelay)
	}
	jitter := randomJitter(time.Duration(delay) / 2)
	return time.Duration(delay/2) + jitter
}

func (r *Retrier) pause(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	bound := big.NewInt(int64(limit))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
