package retry

import (
	"context"
	"fmt"
	"time"
)

// Config is a fixed attempt budget with a constant delay between attempts.
// Used for rate-sensitive per-account checks where exponential backoff would
// stretch a large batch out for hours; HTTP calls use httputil's backoff
// retry instead.
type Config struct {
	MaxAttempts int
	Delay       time.Duration
}

// DoWithResult runs op until it succeeds or the attempt budget is exhausted.
// The last error is returned wrapped with the attempt count.
func DoWithResult[T any](ctx context.Context, cfg Config, op func() (T, error)) (T, error) {
	var zero T
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := op()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(cfg.Delay):
		}
	}

	return zero, fmt.Errorf("all %d attempts failed, last error: %w", cfg.MaxAttempts, lastErr)
}
