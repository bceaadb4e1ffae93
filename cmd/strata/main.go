package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/strata-iam/strata/internal/accounts"
	"github.com/strata-iam/strata/internal/app"
	"github.com/strata-iam/strata/internal/authz"
	"github.com/strata-iam/strata/internal/events"
	"github.com/strata-iam/strata/internal/hierarchy"
	"github.com/strata-iam/strata/internal/observability"
	"github.com/strata-iam/strata/internal/ownership"
	"github.com/strata-iam/strata/internal/platform/cache"
	"github.com/strata-iam/strata/internal/platform/db"
	"github.com/strata-iam/strata/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	var dispatcher authz.Dispatcher
	if len(cfg.WebhookURLs) > 0 {
		jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		if err != nil {
			logger.Error("init job client", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		dispatcher = jobs.NewDispatcher(jobClient, logger)
	}

	engine := hierarchy.New(hierarchy.Role(cfg.OwnerRole), hierarchy.Level(cfg.OwnerLevel))
	guard := ownership.NewGuard(engine)
	authzRepo := authz.NewRepository(pool)
	authzService := authz.NewService(logger, guard, authzRepo, dispatcher, metrics)
	if err := authzService.Rehydrate(ctx, hierarchy.Account(cfg.BootstrapOwner)); err != nil {
		logger.Error("rehydrate role state", slog.Any("error", err))
		os.Exit(1)
	}

	credentialRepo := accounts.NewRepository(pool)
	credentialService := accounts.NewService(credentialRepo, redisClient, cfg.CredentialCacheTTL)
	if err := bootstrapCredential(ctx, cfg, credentialService, logger); err != nil {
		logger.Error("bootstrap credential", slog.Any("error", err))
		os.Exit(1)
	}

	eventsService := events.NewService(events.NewRepository(pool))

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthMiddleware:     &accounts.Middleware{Service: credentialService, Logger: logger},
		AuthzHandler:       authz.NewHandler(logger, authzService),
		EventsHandler:      events.NewHandler(logger, eventsService),
		CredentialsHandler: accounts.NewHandler(logger, credentialService, authzService),
		JobsHandler:        jobs.NewHandler(inspector, logger),
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// bootstrapCredential issues the owner's first API credential when a
// bootstrap secret is configured and the owner has none yet.
func bootstrapCredential(ctx context.Context, cfg *app.Config, svc *accounts.Service, logger *slog.Logger) error {
	if cfg.BootstrapSecret == "" {
		return nil
	}
	owner := hierarchy.Account(cfg.BootstrapOwner)
	active, err := svc.HasActiveCredential(ctx, owner)
	if err != nil {
		return err
	}
	if active {
		return nil
	}
	_, cred, err := svc.IssueWithSecret(ctx, owner, cfg.BootstrapSecret)
	if err != nil {
		return err
	}
	logger.Info("issued bootstrap credential",
		slog.String("credential", cred.ID),
		slog.String("account", string(owner)),
	)
	return nil
}
