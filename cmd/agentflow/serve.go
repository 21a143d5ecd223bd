package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"agentflow/internal/api"
	"agentflow/internal/auth"
	"agentflow/internal/cache"
	"agentflow/internal/github"
	"agentflow/internal/mcp"
	"agentflow/internal/repository"
	"agentflow/internal/services"
	"agentflow/internal/tls"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, MCP endpoint and execution watch stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			withSeed, _ := cmd.Flags().GetBool("seed")

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			return a.serve(cmd.Context(), withSeed)
		},
	}
	cmd.Flags().Bool("seed", false, "Seed the default user, agents and demo workflow before serving")
	return cmd
}

func (a *app) serve(ctx context.Context, withSeed bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a.logger.Info("starting agentflow %s (environment %s)", api.Version, a.cfg.Environment)
	if a.cfg.Auth.SwaggerClientID != "" && a.cfg.Auth.SwaggerClientID == a.cfg.Auth.ClientID {
		a.logger.Warn("swagger client id matches the backend client id; PKCE logins from /docs will fail for a web app client")
	}

	repo, closeRepo, err := a.openRepository(ctx)
	if err != nil {
		return err
	}
	defer closeRepo()

	c, closeCache := a.openCache(ctx)
	defer closeCache()

	if withSeed {
		if err := seed(ctx, repo, a.logger); err != nil {
			return err
		}
	}

	e, err := a.newRouter(ctx, repo, c)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:        a.cfg.Server.Addr,
		Handler:     e,
		ReadTimeout: 15 * time.Second,
		// Watch streams stay open; per-frame deadlines are set by the handler.
		IdleTimeout: 60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		a.logger.WithFields(map[string]any{"address": server.Addr, "tls": a.cfg.TLS.Enable}).Info("server listening")
		if a.cfg.TLS.Enable {
			serverErrors <- server.ListenAndServeTLS(a.cfg.TLS.CertFile, a.cfg.TLS.KeyFile)
			return
		}
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case sig := <-shutdown:
		a.logger.Info("shutdown signal received: %v", sig)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("graceful shutdown failed")
		if err := server.Close(); err != nil {
			a.logger.WithError(err).Error("server close failed")
		}
	}
	a.logger.Info("server stopped")
	return nil
}

// newRouter wires the services onto an echo instance.
func (a *app) newRouter(ctx context.Context, repo repository.Repository, c cache.Cache) (*echo.Echo, error) {
	if a.cfg.TLS.Enable {
		generated, err := tls.EnsureSelfSignedCert(a.cfg.TLS.CertFile, a.cfg.TLS.KeyFile, a.cfg.TLS.Hostnames, time.Now())
		if err != nil {
			return nil, fmt.Errorf("failed to prepare TLS certificate: %w", err)
		}
		if generated {
			a.logger.Info("generated self-signed certificate %s for %v", a.cfg.TLS.CertFile, a.cfg.TLS.Hostnames)
		}
	}

	hub := services.NewHub()
	users := services.NewUserService(repo, a.logger)
	workflows := services.NewWorkflowService(repo, c, a.logger)
	executions, err := services.NewExecutionService(repo, hub, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create execution service: %w", err)
	}
	codeSearch := services.NewCodeSearchService(repo,
		services.NewHTTPMLClient(a.cfg.MLSidecar.URL, a.cfg.MLSidecar.Timeout), a.logger)
	stars := github.NewClient(github.Options{
		Repo:     a.cfg.GitHub.Repo,
		Token:    a.cfg.GitHub.Token,
		CacheTTL: a.cfg.GitHub.CacheTTL,
	}, c, a.logger)

	authz, err := auth.New(ctx, a.cfg, users, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	srv := api.NewServer(api.Deps{
		Agents:     services.NewAgentService(repo, a.logger),
		Workflows:  workflows,
		Executions: executions,
		CodeSearch: codeSearch,
		GitHub:     stars,
		Hub:        hub,
		DB:         repo,
		Logger:     a.logger,
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = api.ErrorHandler(a.logger)
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("agentflow"))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			a.logger.WithFields(map[string]any{
				"request_id": v.RequestID,
				"status":     v.Status,
				"latency":    v.Latency.String(),
			}).Debug("%s %s", v.Method, v.URI)
			return nil
		},
	}))

	e.GET("/healthz", srv.Health)

	e.GET("/login", echo.WrapHandler(http.HandlerFunc(authz.LoginHandler)))
	e.GET("/auth/callback", echo.WrapHandler(http.HandlerFunc(authz.CallbackHandler)))
	e.GET("/logout", echo.WrapHandler(http.HandlerFunc(authz.LogoutHandler)))

	requireAuth := echo.WrapMiddleware(authz.RequireAuth)
	api.RegisterHandlers(e.Group("/api/v1", requireAuth), srv)
	mcp.Mount(e, mcp.NewServer(workflows, executions, codeSearch, a.logger).MCPServer(), requireAuth)

	e.GET("/openapi.yaml", echo.WrapHandler(api.SpecHandler(a.cfg.Auth.OktaDomain)))
	e.GET("/docs", echo.WrapHandler(api.SwaggerHandler(a.cfg.Auth.OktaDomain, a.cfg.Auth.SwaggerClientID)))
	e.GET("/docs/oauth2-redirect.html", echo.WrapHandler(api.OAuth2RedirectHandler()))

	return e, nil
}
