// Package retry re-runs transient operations with a fixed schedule of delays.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds retry configuration
type Config struct {
	MaxAttempts int
	Delays      []time.Duration
	// Retryable reports whether err is worth another attempt. Nil retries everything.
	Retryable func(err error) bool
	// Name labels log lines for this operation
	Name string
}

// Permanent marks err so that WithRetry stops immediately
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }

func (p *permanentError) Unwrap() error { return p.err }

// delay returns the wait before the given retry (1-based). The last delay is
// reused once the schedule runs out.
func (c Config) delay(retry int) time.Duration {
	if len(c.Delays) == 0 {
		return 0
	}
	i := retry - 1
	if i >= len(c.Delays) {
		i = len(c.Delays) - 1
	}
	return c.Delays[i]
}

// WithRetry runs fn up to MaxAttempts times, sleeping between attempts
// according to Delays. The last error is returned wrapped with the attempt count.
func WithRetry(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			wait := cfg.delay(attempt - 1)
			logrus.WithFields(logrus.Fields{
				"operation": cfg.Name,
				"attempt":   attempt,
				"delay":     wait,
			}).WithError(lastErr).Debug("Retrying operation")

			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("retry cancelled: %w", ctx.Err())
			}
		}

		err := fn()
		if err == nil {
			return nil
		}

		var permanent *permanentError
		if errors.As(err, &permanent) {
			return permanent.err
		}
		if cfg.Retryable != nil && !cfg.Retryable(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}
