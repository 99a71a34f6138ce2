package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"loan-pipeline/internal/models"

	"github.com/redis/go-redis/v9"
)

const latestReportKey = "quality:latest"

// ErrNoReport is returned when no quality report has been cached yet.
var ErrNoReport = errors.New("no quality report available")

// ReportCache keeps the latest quality report in Redis.
type ReportCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewReportCache(rdb *redis.Client, ttl time.Duration) *ReportCache {
	return &ReportCache{rdb: rdb, ttl: ttl}
}

func (c *ReportCache) Save(ctx context.Context, report *models.QualityReport) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return c.rdb.Set(ctx, latestReportKey, raw, c.ttl).Err()
}

func (c *ReportCache) Latest(ctx context.Context) (*models.QualityReport, error) {
	raw, err := c.rdb.Get(ctx, latestReportKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoReport
	}
	if err != nil {
		return nil, fmt.Errorf("read latest report: %w", err)
	}

	var report models.QualityReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}
