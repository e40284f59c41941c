package services

import (
	"context"
	"time"

	"lesson-shop/internal/config"
)

// RetryConfig controls how reservation releases are retried.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
	}
}

// RetryConfigFrom applies the order settings over the defaults.
func RetryConfigFrom(cfg config.OrderConfig) RetryConfig {
	rc := DefaultRetryConfig()
	if cfg.ReleaseAttempts > 0 {
		rc.MaxAttempts = cfg.ReleaseAttempts
	}
	if cfg.ReleaseBackoff > 0 {
		rc.InitialDelay = cfg.ReleaseBackoff
	}
	return rc
}

// retry runs fn until it succeeds or attempts run out, returning the last
// error. The delay grows by BackoffFactor and is capped at MaxDelay.
func retry(ctx context.Context, rc RetryConfig, fn func(attempt int) error) error {
	var lastErr error
	delay := rc.InitialDelay

	for attempt := 1; attempt <= rc.MaxAttempts; attempt++ {
		if lastErr = fn(attempt); lastErr == nil {
			return nil
		}
		if attempt == rc.MaxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * rc.BackoffFactor)
		if rc.MaxDelay > 0 && delay > rc.MaxDelay {
			delay = rc.MaxDelay
		}
	}
	return lastErr
}
