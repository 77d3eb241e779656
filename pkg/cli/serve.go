package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dashboard/pkg/dashboard"
	"github.com/ekaya-inc/ekaya-dashboard/pkg/handlers"
	"github.com/ekaya-inc/ekaya-dashboard/pkg/middleware"
	"github.com/ekaya-inc/ekaya-dashboard/pkg/session"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the 'serve' command that runs the HTTP API.
func NewServeCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard HTTP API",
		Example: `  ekaya-dashboard serve
  CONFIG_PATH=/etc/ekaya/dashboard.yaml ekaya-dashboard serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, version)
		},
	}
}

func runServe(ctx context.Context, version string) error {
	a, err := newApp(ctx, version)
	if err != nil {
		return err
	}
	defer a.close()

	queryCfg, err := queryServiceConfig(&a.cfg.Query)
	if err != nil {
		return err
	}
	user, err := a.cfg.LoadProfileSeed()
	if err != nil {
		return err
	}
	history := a.historyRepository()

	factory := func(ctx context.Context, id string) (*dashboard.Dashboard, error) {
		seed := user.Clone()
		return dashboard.New(ctx, dashboard.Options{
			ID:      id,
			Query:   queryCfg,
			User:    &seed,
			History: history,
		}, a.logger)
	}
	registry := session.NewRegistry(a.cfg.Session, secureCookies(a.cfg.BaseURL), factory, a.logger)
	defer registry.Close()

	mux := http.NewServeMux()
	handlers.NewHealthHandler(a.cfg, registry, a.logger).RegisterRoutes(mux)
	handlers.NewDashboardHandler(a.logger).RegisterRoutes(mux, registry.Middleware)
	handlers.NewQueriesHandler(a.logger).RegisterRoutes(mux, registry.Middleware)
	handlers.NewProfileHandler(a.logger).RegisterRoutes(mux, registry.Middleware)
	handlers.NewSettingsHandler(a.logger).RegisterRoutes(mux, registry.Middleware)

	server := &http.Server{
		Addr:              net.JoinHostPort(a.cfg.BindAddr, a.cfg.Port),
		Handler:           middleware.Chain(mux, middleware.Recover(a.logger), middleware.RequestLogger(a.logger)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.logger.Info("Starting ekaya-dashboard",
		zap.String("addr", server.Addr),
		zap.String("version", a.cfg.Version),
		zap.String("env", a.cfg.Env),
		zap.String("base_url", a.cfg.BaseURL),
		zap.String("submission_policy", queryCfg.Policy.String()),
		zap.Bool("redis", a.redis != nil))

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
