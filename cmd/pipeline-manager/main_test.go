package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"loan-pipeline/internal/common/config"
	apperrors "loan-pipeline/internal/common/errors"
	"loan-pipeline/internal/common/logger"
	"loan-pipeline/internal/common/retry"
)

func shippedConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "loans")
	t.Setenv("DB_USER", "etl")

	cfg, err := config.LoadFromFile("../../configs/config.yaml")
	require.NoError(t, err)
	return cfg
}

func TestRetryPolicies_FromShippedConfig(t *testing.T) {
	cfg := shippedConfig(t)

	tests := []struct {
		name   string
		policy retry.Policy
		want   retry.Policy
	}{
		{"etl", etlPolicy(cfg), retry.Policy{MaxRetries: 2, Delay: 5 * time.Minute}},
		{"quality", qualityPolicy(cfg), retry.Policy{MaxRetries: 1, Delay: 5 * time.Minute}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy)
			assert.LessOrEqual(t, tt.policy.Multiplier, 1.0, "delay must stay fixed between attempts")
		})
	}
}

func TestETLPolicy_GapsStayFixed(t *testing.T) {
	cfg := shippedConfig(t)
	cfg.ETL.RetryDelay = 5

	core, logs := observer.New(zapcore.WarnLevel)
	log := logger.NewZapAdapter(zap.New(core))

	calls := 0
	err := retry.Do(context.Background(), etlPolicy(cfg), log, "etl run", func(ctx context.Context) error {
		calls++
		return apperrors.NewDatabaseConnectionFailedError(errors.New("connection refused"))
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)

	entries := logs.FilterMessage("etl run failed, retrying...").All()
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "5ms", e.ContextMap()["nextRetryIn"])
	}
}
