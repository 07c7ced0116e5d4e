package cache

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/config"
)

const (
	defaultReportTTL  = time.Hour
	reportPingTimeout = 5 * time.Second
)

// dialReportRedis connects the report cache and checks the server answers.
func dialReportRedis(cfg config.CacheConfig) (*redis.Client, error) {
	opts, err := reportRedisOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), reportPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("report cache ping failed: %w", err)
	}
	return client, nil
}

// reportTTL keeps a month's report until the next run is likely to replace it.
func reportTTL(cfg config.CacheConfig) time.Duration {
	if cfg.ReportTTLSeconds <= 0 {
		return defaultReportTTL
	}
	return time.Duration(cfg.ReportTTLSeconds) * time.Second
}

func reportRedisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid report cache url: %w", err)
		}
		return opt, nil
	}

	host, port := cfg.RedisHost, cfg.RedisPort
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "6379"
	}

	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

// purgeReportKeys unlinks every cached month report and returns how many were removed.
func purgeReportKeys(ctx context.Context, client redis.Cmdable) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	pattern := reportKeyPrefix + ":*"
	for {
		keys, next, err := client.Scan(ctx, cursor, pattern, reportScanBatchSize).Result()
		if err != nil {
			return removed, fmt.Errorf("scan report keys: %w", err)
		}

		if len(keys) > 0 {
			n, err := client.Unlink(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("unlink report keys: %w", err)
			}
			removed += int(n)
		}

		if cursor = next; cursor == 0 {
			return removed, nil
		}
	}
}
