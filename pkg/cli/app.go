// Package cli holds the cobra commands of the ekaya-dashboard binary.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dashboard/pkg/config"
	"github.com/ekaya-inc/ekaya-dashboard/pkg/database"
	"github.com/ekaya-inc/ekaya-dashboard/pkg/logging"
	"github.com/ekaya-inc/ekaya-dashboard/pkg/repositories"
	"github.com/ekaya-inc/ekaya-dashboard/pkg/services"
)

// NewRootCmd builds the root command with every subcommand attached.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "ekaya-dashboard",
		Short: "Natural-language query dashboard",
		Long: `ekaya-dashboard turns natural-language questions into chart-ready results.

It keeps one dashboard per browser session, each holding a query history,
a user profile and display settings.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(NewServeCmd(version))
	root.AddCommand(NewAskCmd(version))
	return root
}

// app holds what every command needs after configuration is loaded.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	redis  *redis.Client
}

func newApp(ctx context.Context, version string) (*app, error) {
	cfg, err := config.Load(version)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	client, err := database.NewRedisClient(ctx, &cfg.Redis, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, redis: client}, nil
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("Failed to close Redis client", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// historyRepository stores saved history in Redis when configured, in memory otherwise.
func (a *app) historyRepository() repositories.QueryHistoryRepository {
	if a.redis == nil {
		a.logger.Info("Redis not configured, saved query history lives in memory")
		return repositories.NewMemoryQueryHistoryRepository()
	}
	return repositories.NewRedisQueryHistoryRepository(a.redis, a.cfg.Redis.KeyPrefix, a.cfg.Redis.TTL())
}

// queryServiceConfig maps the query section of the configuration onto the query service.
func queryServiceConfig(cfg *config.QueryConfig) (services.QueryServiceConfig, error) {
	policy, err := services.ParseSubmissionPolicy(cfg.SubmissionPolicy)
	if err != nil {
		return services.QueryServiceConfig{}, err
	}
	return services.QueryServiceConfig{
		SimulatedDelay: cfg.SimulatedDelay(),
		HistoryLimit:   cfg.HistoryLimit,
		Policy:         policy,
		Failure:        services.FailurePolicy{Probability: cfg.FailureProbability},
	}, nil
}

func secureCookies(baseURL string) bool {
	return strings.HasPrefix(strings.ToLower(baseURL), "https://")
}
