// Command agentflow serves the agentflow API and carries its maintenance
// tasks: schema migration, seeding and offline workflow validation.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"agentflow/internal/cache"
	"agentflow/internal/config"
	"agentflow/internal/logging"
	"agentflow/internal/repository"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "agentflow",
		Short:         "AI agent workflow orchestration service",
		Long:          "agentflow stores agents and workflow definitions and tracks workflow executions.",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to config.yaml (default ./config.yaml or ./config/config.yaml)")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newSeedCommand())
	rootCmd.AddCommand(newValidateCommand())
	return rootCmd
}

// app is the configuration and logger shared by the commands.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
}

func loadApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.NewLogger(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}
	return &app{cfg: cfg, logger: logger}, nil
}

func (a *app) openPool(ctx context.Context) (*pgxpool.Pool, error) {
	a.logger.Debug("connecting to %s:%d/%s", a.cfg.DB.Host, a.cfg.DB.Port, a.cfg.DB.Name)

	poolConfig, err := pgxpool.ParseConfig(a.cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if a.cfg.DB.MaxConns > 0 {
		poolConfig.MaxConns = a.cfg.DB.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// openRepository opens the store selected by db.driver. The returned func
// releases it.
func (a *app) openRepository(ctx context.Context) (repository.Repository, func(), error) {
	if a.cfg.DB.Driver == "memory" {
		a.logger.Warn("using the in-memory store; data is lost on exit")
		return repository.NewMemoryStore(), func() {}, nil
	}

	pool, err := a.openPool(ctx)
	if err != nil {
		return nil, nil, err
	}
	applied, err := repository.Migrate(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	for _, v := range applied {
		a.logger.Info("applied migration %s", v)
	}
	return repository.NewPostgresStore(pool), pool.Close, nil
}

// openCache connects to Redis when redis.addr is set. An unreachable server
// is logged and kept: every cache use is best effort.
func (a *app) openCache(ctx context.Context) (cache.Cache, func()) {
	if a.cfg.Redis.Addr == "" {
		a.logger.Info("redis.addr not set; caching disabled")
		return cache.Noop{}, func() {}
	}

	r := cache.NewRedis(cache.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
		Prefix:   a.cfg.Redis.Prefix,
	})
	if err := r.Ping(ctx); err != nil {
		a.logger.WithError(err).Warn("redis at %s unreachable; continuing without a warm cache", a.cfg.Redis.Addr)
	}
	return r, func() {
		if err := r.Close(); err != nil {
			a.logger.WithError(err).Warn("closing redis client")
		}
	}
}
