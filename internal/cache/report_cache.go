package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/config"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
)

const (
	reportKeyPrefix     = "forecast:report"
	reportScanBatchSize = 100
)

// ReportCache keeps the latest run report per target month.
type ReportCache interface {
	GetReport(ctx context.Context, month time.Time) (*domain.RunReport, bool, error)
	SetReport(ctx context.Context, report *domain.RunReport) error
	InvalidateReport(ctx context.Context, month time.Time) error
	InvalidateAll(ctx context.Context) error
}

type redisReportCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

type noopReportCache struct{}

func NewReportCache(cfg config.CacheConfig) (ReportCache, error) {
	if !cfg.Enabled {
		return &noopReportCache{}, nil
	}

	client, err := dialReportRedis(cfg)
	if err != nil {
		return nil, err
	}

	return NewRedisReportCache(client, reportTTL(cfg)), nil
}

// NewRedisReportCache wraps an existing client.
func NewRedisReportCache(client redis.Cmdable, ttl time.Duration) ReportCache {
	if ttl <= 0 {
		ttl = defaultReportTTL
	}
	return &redisReportCache{client: client, ttl: ttl}
}

func NewNoopReportCache() ReportCache {
	return &noopReportCache{}
}

func (c *redisReportCache) GetReport(ctx context.Context, month time.Time) (*domain.RunReport, bool, error) {
	payload, err := c.client.Get(ctx, ReportKey(month)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var report domain.RunReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, false, fmt.Errorf("decode run report cache: %w", err)
	}

	return &report, true, nil
}

func (c *redisReportCache) SetReport(ctx context.Context, report *domain.RunReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode run report cache: %w", err)
	}

	if err := c.client.Set(ctx, ReportKey(report.TargetMonth), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisReportCache) InvalidateReport(ctx context.Context, month time.Time) error {
	return c.client.Del(ctx, ReportKey(month)).Err()
}

func (c *redisReportCache) InvalidateAll(ctx context.Context) error {
	removed, err := purgeReportKeys(ctx, c.client)
	if err != nil {
		return err
	}
	log.Debug().Int("keys", removed).Msg("run report cache cleared")
	return nil
}

func (n *noopReportCache) GetReport(ctx context.Context, month time.Time) (*domain.RunReport, bool, error) {
	return nil, false, nil
}

func (n *noopReportCache) SetReport(ctx context.Context, report *domain.RunReport) error {
	return nil
}

func (n *noopReportCache) InvalidateReport(ctx context.Context, month time.Time) error {
	return nil
}

func (n *noopReportCache) InvalidateAll(ctx context.Context) error {
	return nil
}

// ReportKey is forecast:report:YYYY-MM.
func ReportKey(month time.Time) string {
	return fmt.Sprintf("%s:%s", reportKeyPrefix, domain.MonthKey(month))
}
