package woo

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds how refund lookups are retried before the caller falls
// back to "no refunds". Order listings are never retried, to keep the
// pagination state simple.
type RetryPolicy struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
}

// Run executes op, retrying retryable failures with exponential backoff up
// to MaxAttempts total attempts.
func (p RetryPolicy) Run(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	bo := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		bo.InitialInterval = p.InitialInterval
	}
	b := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(attempts-1)), ctx)

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

// Retryable reports whether an upstream failure is worth another attempt:
// transport and decode errors are, upstream statuses only when the server
// was at fault or throttling.
func Retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError ||
			apiErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}
