package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/finpulse/finpulse/pkg/logger"
)

// Config controls retry behavior. Retries are attempt-count-bounded,
// not time-bounded, so worst-case latency stays predictable for callers
// enforcing an overall request deadline.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultConfig matches the upstream-call policy: 3 attempts with
// linearly increasing backoff (base, 2*base) between them.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
	}
}

// Do runs op up to cfg.MaxAttempts times with linear backoff between
// attempts. The backoff sleep respects ctx cancellation.
func Do(ctx context.Context, cfg Config, name string, op func(ctx context.Context) error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			// Linear backoff: base, 2*base, 3*base, ...
			backoff := time.Duration(attempt) * cfg.BaseDelay
			logger.Debug("retrying operation",
				zap.String("op", name),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
			)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return fmt.Errorf("context canceled during retry backoff: %w", ctx.Err())
			}
		}

		if err := op(ctx); err != nil {
			lastErr = err
			logger.Warn("operation failed",
				zap.String("op", name),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			continue
		}
		return nil
	}

	return fmt.Errorf("%s: max attempts (%d) exceeded: %w", name, cfg.MaxAttempts, lastErr)
}
