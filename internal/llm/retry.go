package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/abhisek/conceptree/internal/logger"
)

// RetryProvider retries transient failures with exponential backoff and
// ±20% jitter. Invalid responses are retried once; truncation, rejected
// requests and context errors are returned immediately.
type RetryProvider struct {
	inner  Provider
	config RetryConfig
	log    *logger.Logger
}

// WithRetry wraps p with cfg's retry policy.
func WithRetry(p Provider, cfg RetryConfig, log *logger.Logger) Provider {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &RetryProvider{inner: p, config: cfg, log: logger.OrNop(log)}
}

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	var lastErr error
	retriedInvalid := false

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		retry, invalid := retryClass(err)
		if invalid {
			retry = !retriedInvalid
			retriedInvalid = true
		}
		if !retry || attempt == r.config.MaxAttempts {
			break
		}

		wait := r.delay(attempt, err)
		r.log.Warn("retrying llm request",
			"purpose", string(PurposeFrom(ctx)),
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (r *RetryProvider) ModelID() string {
	return r.inner.ModelID()
}

// delay returns the wait before attempt+1. A rate limit's Retry-After
// wins over the computed backoff.
func (r *RetryProvider) delay(attempt int, err error) time.Duration {
	var rl *RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}
	base := float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(attempt-1))
	base = min(base, float64(r.config.MaxWait))
	jittered := base * (0.8 + 0.4*rand.Float64())
	return time.Duration(max(jittered, 0))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
