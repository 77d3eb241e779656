package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dashboard/pkg/config"
	"github.com/ekaya-inc/ekaya-dashboard/pkg/logging"
	"github.com/ekaya-inc/ekaya-dashboard/pkg/retry"
)

// NewRedisClient creates a Redis client with the given configuration.
// Returns nil if Redis is not configured (host is empty).
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	if cfg.Host == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Redis may still be starting alongside the dashboard; retry transient failures.
	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %s", cfg.Addr(), logging.SanitizeError(err))
	}

	logger.Info("Connected to Redis", zap.String("addr", cfg.Addr()), zap.Int("db", cfg.DB))
	return client, nil
}
