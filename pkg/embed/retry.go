package embed

import (
	"context"
	"errors"
	"math"
	"time"
)

// RetryConfig controls the backoff applied to transient adapter
// failures: retry up to MaxRetries with exponential backoff, then
// let the caller degrade once retries are exhausted.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 200 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 5 * time.Second
	}
	return c
}

// WithRetry runs fn, retrying on ErrTransient/ErrRateLimited up to
// cfg.MaxRetries times with exponential backoff. ErrPermanent and any
// other error fail the call immediately, matching three-way
// classification. Context cancellation aborts the retry loop.
func WithRetry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	cfg = cfg.withDefaults()

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrPermanent) {
			return lastErr
		}
		if !errors.Is(lastErr, ErrTransient) && !errors.Is(lastErr, ErrRateLimited) {
			// Unclassified errors are treated as permanent: only the
			// two named transient kinds are retried.
			return lastErr
		}
		if attempt == cfg.MaxRetries {
			break
		}

		delay := backoffDelay(cfg, attempt, errors.Is(lastErr, ErrRateLimited))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

func backoffDelay(cfg RetryConfig, attempt int, rateLimited bool) time.Duration {
	mult := 1.0
	if rateLimited {
		mult = 2.0 // rate-limit backs off more aggressively than a generic blip
	}
	d := time.Duration(float64(cfg.BaseDelay) * mult * math.Pow(2, float64(attempt)))
	if d > cfg.MaxDelay {
		d = cfg.MaxDelay
	}
	return d
}
