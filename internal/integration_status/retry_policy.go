package integration_status

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryPolicy describes how the cache tier is retried.  The n-th retry
// (starting at zero) waits BaseDelay * 2^n, plus up to 20% when Jitter is set.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      bool

	// jitterSource returns a value in [0, n); defaults to math/rand
	jitterSource func(n int64) int64
}

func NewRetryPolicy(maxAttempts int, baseDelay time.Duration, jitter bool) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		Jitter:      jitter,
	}
}

func (p RetryPolicy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p RetryPolicy) Delay(retry int) time.Duration {
	if p.BaseDelay <= 0 || retry < 0 {
		return 0
	}

	if retry > 30 {
		retry = 30
	}

	delay := p.BaseDelay << uint(retry)

	if p.Jitter {
		source := p.jitterSource
		if source == nil {
			source = rand.Int64N
		}
		delay += time.Duration(source(int64(delay)/5 + 1))
	}

	return delay
}

// Wait blocks for Delay(retry) or until ctx is done.
func (p RetryPolicy) Wait(ctx context.Context, retry int) error {
	delay := p.Delay(retry)
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
