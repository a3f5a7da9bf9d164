// ABOUTME: This file implements retry policy with exponential backoff and jitter
// ABOUTME: Used for transient provider and fetch failures
package utils

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// RetryPolicy defines the retry behavior for failed operations
type RetryPolicy struct {
	MaxAttempts int           `json:"max_attempts"`
	BaseDelay   time.Duration `json:"base_delay"`
	MaxDelay    time.Duration `json:"max_delay"`
	Multiplier  float64       `json:"multiplier"`
	Jitter      bool          `json:"jitter"`
}

// NewRetryPolicy creates a new retry policy with default values
func NewRetryPolicy(maxAttempts int, baseDelay time.Duration) *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
		Jitter:      true,
	}
}

// CalculateDelay calculates the delay for a given retry attempt
func (rp *RetryPolicy) CalculateDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := rp.BaseDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * rp.Multiplier)
		if delay > rp.MaxDelay {
			delay = rp.MaxDelay
			break
		}
	}

	if rp.Jitter {
		// Random jitter between 50% and 100% of calculated delay
		jitterRange := float64(delay) * 0.5
		jitter := rand.Float64() * jitterRange
		delay = time.Duration(float64(delay)*0.5 + jitter)
	}

	return delay
}

// Execute runs operation with retries. retryable decides whether a failure
// is worth another attempt; non-retryable errors return immediately.
func (rp *RetryPolicy) Execute(ctx context.Context, operation func() error, retryable func(error) bool) error {
	var lastErr error

	for attempt := 1; attempt <= rp.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("operation cancelled: %w", ctx.Err())
		default:
		}

		err := operation()
		if err == nil {
			return nil
		}

		lastErr = err

		if retryable != nil && !retryable(err) {
			return err
		}

		if attempt == rp.MaxAttempts {
			break
		}

		delay := rp.CalculateDelay(attempt)

		select {
		case <-ctx.Done():
			return fmt.Errorf("operation cancelled during retry delay: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return lastErr
}

// WithMaxDelay creates a copy of the policy with a different max delay
func (rp *RetryPolicy) WithMaxDelay(maxDelay time.Duration) *RetryPolicy {
	newPolicy := *rp
	newPolicy.MaxDelay = maxDelay
	return &newPolicy
}

// WithJitter creates a copy of the policy with jitter setting
func (rp *RetryPolicy) WithJitter(jitter bool) *RetryPolicy {
	newPolicy := *rp
	newPolicy.Jitter = jitter
	return &newPolicy
}
