package common

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// RetryableFunc is a function that may be executed again on failure.
type RetryableFunc func() error

type retryConfig struct {
	maxRetries   int
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
}

// Option configures retry behavior.
type Option func(*retryConfig)

// WithMaxRetries sets the maximum number of retry attempts (default 3).
func WithMaxRetries(n int) Option {
	return func(c *retryConfig) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithInitialDelay sets the delay before the first retry (default 1s).
func WithInitialDelay(d time.Duration) Option {
	return func(c *retryConfig) {
		if d > 0 {
			c.initialDelay = d
		}
	}
}

// WithMaxDelay caps the backoff delay (default 30s).
func WithMaxDelay(d time.Duration) Option {
	return func(c *retryConfig) {
		if d > 0 {
			c.maxDelay = d
		}
	}
}

// WithMultiplier sets the exponential backoff multiplier (default 2.0).
func WithMultiplier(m float64) Option {
	return func(c *retryConfig) {
		if m > 0 {
			c.multiplier = m
		}
	}
}

// Do runs fn with exponential backoff. The first attempt runs immediately;
// each retry waits initialDelay * multiplier^(attempt-1), capped at maxDelay.
// Context cancellation aborts both waiting and further attempts.
//
// Callers must not wrap typed terminal failures (not-found, quota exhausted,
// generation errors) in Do: those are never retried by design, see the error
// taxonomy in errors.go.
func Do(ctx context.Context, fn RetryableFunc, opts ...Option) error {
	if fn == nil {
		return errors.New("retry: function cannot be nil")
	}

	cfg := &retryConfig{
		maxRetries:   3,
		initialDelay: 1 * time.Second,
		maxDelay:     30 * time.Second,
		multiplier:   2.0,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	lastErr := fn()
	if lastErr == nil {
		return nil
	}

	for attempt := 1; attempt <= cfg.maxRetries; attempt++ {
		delay := time.Duration(float64(cfg.initialDelay) * math.Pow(cfg.multiplier, float64(attempt-1)))
		if delay > cfg.maxDelay {
			delay = cfg.maxDelay
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted during backoff (attempt %d/%d): %w", attempt, cfg.maxRetries, ctx.Err())
		case <-timer.C:
		}

		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	return fmt.Errorf("retry failed after %d attempts: %w", cfg.maxRetries+1, lastErr)
}
