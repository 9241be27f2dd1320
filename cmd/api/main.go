package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/query-engine/internal/api/http"
	"github.com/spec-kit/query-engine/internal/api/http/handlers"
	"github.com/spec-kit/query-engine/internal/auth"
	"github.com/spec-kit/query-engine/internal/config"
	"github.com/spec-kit/query-engine/internal/directory"
	"github.com/spec-kit/query-engine/internal/engine"
	"github.com/spec-kit/query-engine/internal/notify"
	"github.com/spec-kit/query-engine/internal/observability"
	"github.com/spec-kit/query-engine/internal/persistence"
	"github.com/spec-kit/query-engine/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	pool := pg.PoolHandle()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}
	if cfg.Auth.EnableBootstrapSeed {
		if err := persistence.EnsureBootstrapSuperadmin(ctx, pool, cfg.Auth, logger); err != nil {
			logger.Fatal("failed to seed bootstrap superadmin", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	counters := observability.NewCounters()

	queryStore := store.NewPostgresQueryStore(store.PostgresQueryStoreOptions{
		Pool:          pool,
		Redis:         redis.Client,
		Logger:        logger,
		ChangeChannel: cfg.Engine.ChangeChannel,
		WriteTimeout:  cfg.Engine.StoreWriteTimeout(),
		BufferSize:    cfg.Engine.SubscriberBufferSize,
	})
	staffDir := directory.NewStaffDirectory(pool)
	audit := store.NewAssignmentAudit(pool)
	sink := notify.NewRedisNotificationSink(redis.Client, logger, cfg.Notification.Channel, cfg.Notification.ReadBackTTL())

	eng := engine.New(engine.Dependencies{
		Store:     queryStore,
		Directory: staffDir,
		Sink:      sink,
		Audit:     audit,
		Logger:    logger,
		Counters:  counters,
		Config:    cfg.Engine,
	})

	go func() {
		if err := eng.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Fatal("engine run loop exited", zap.Error(err))
		}
	}()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTLMinutes)
	authMiddleware := auth.NewMiddleware(tokens, staffDir)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, counters, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, eng.SnapshotSize, pg, redis),
		Queries:        handlers.NewQueriesHandler(eng),
		Metrics:        handlers.NewMetricsHandler(eng, cfg.Engine.DefaultWindowDays),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
