// Package retry re-runs operations that fail with retryable errors.
package retry

import (
	"context"
	"fmt"
	"time"

	apperrors "loan-pipeline/internal/common/errors"
	"loan-pipeline/internal/common/logger"
)

// Policy describes how often and how far apart an operation is reattempted.
// Multiplier <= 1 keeps the delay fixed.
type Policy struct {
	MaxRetries int
	Delay      time.Duration
	Multiplier float64
}

// Do runs op, then up to MaxRetries more times while the returned error is
// retryable. It returns the last error, wrapped with the attempt count.
func Do(ctx context.Context, p Policy, log logger.Logger, operationName string, op func(context.Context) error) error {
	var err error
	delay := p.Delay
	attempts := p.MaxRetries + 1

	for i := 0; i < attempts; i++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if !apperrors.IsRetryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}

		log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
			"error":       err,
			"attempt":     i + 1,
			"maxRetries":  p.MaxRetries,
			"nextRetryIn": delay.String(),
		})

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s cancelled after %d attempts: %w", operationName, i+1, err)
		case <-timer.C:
		}

		if p.Multiplier > 1 {
			delay = time.Duration(float64(delay) * p.Multiplier)
		}
	}

	if attempts == 1 {
		return err
	}
	return fmt.Errorf("%s failed after %d attempts: %w", operationName, attempts, err)
}
