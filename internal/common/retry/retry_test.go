package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "loan-pipeline/internal/common/errors"
	"loan-pipeline/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{MaxRetries: 2, Delay: time.Millisecond}, logger.NewTestLogger(t), "etl run",
		func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return apperrors.NewStagingQueryFailedError(errors.New("connection reset"))
			}
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsRetries(t *testing.T) {
	calls := 0
	cause := apperrors.NewDatabaseConnectionFailedError(errors.New("refused"))
	err := Do(context.Background(), Policy{MaxRetries: 2, Delay: time.Millisecond, Multiplier: 2}, logger.NewTestLogger(t), "etl run",
		func(ctx context.Context) error {
			calls++
			return cause
		})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{MaxRetries: 2, Delay: time.Millisecond}, logger.NewTestLogger(t), "etl run",
		func(ctx context.Context) error {
			calls++
			return apperrors.NewArtifactWidthMismatchError("10 < 13")
		})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeArtifactWidthMismatch, stdErr.Code)
}

func TestDo_ContextCancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Policy{MaxRetries: 5, Delay: time.Hour}, logger.NewTestLogger(t), "monitor run",
		func(ctx context.Context) error {
			calls++
			cancel()
			return errors.New("transient")
		})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Contains(t, err.Error(), "cancelled")
}
