package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/fungi-catalog/internal/api/http"
	"github.com/spec-kit/fungi-catalog/internal/api/http/handlers"
	"github.com/spec-kit/fungi-catalog/internal/auth"
	"github.com/spec-kit/fungi-catalog/internal/config"
	"github.com/spec-kit/fungi-catalog/internal/events"
	"github.com/spec-kit/fungi-catalog/internal/observability"
	"github.com/spec-kit/fungi-catalog/internal/persistence"
	"github.com/spec-kit/fungi-catalog/internal/repository"
	"github.com/spec-kit/fungi-catalog/internal/service"
	"github.com/spec-kit/fungi-catalog/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Env)
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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var (
		userRepo      repository.UserRepository
		tokenRepo     repository.TokenRepository
		principalRepo repository.PrincipalRepository
	)
	if pg.Configured() {
		pool := pg.PoolHandle()
		userRepo = repository.NewUserRepository(pool)
		tokenRepo = repository.NewTokenRepository(pool)
	} else {
		userRepo = repository.NewMemoryUserRepository()
		tokenRepo = repository.NewMemoryTokenRepository(nil)
	}
	if redis.Configured() {
		principalRepo = repository.NewRedisPrincipalRepository(redis.Client, cfg.Redis.KeyPrefix)
	} else {
		principalRepo = repository.NewMemoryPrincipalRepository(nil)
	}

	metrics := observability.NewMetrics("fungi")
	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	tokenMgr := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL(), auth.WithIssuer(cfg.Auth.JWTIssuer))
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:      userRepo,
		TokenRepo:     tokenRepo,
		PrincipalRepo: principalRepo,
		TokenManager:  tokenMgr,
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger,
	})
	sessionService := service.NewSessionService(service.SessionDependencies{
		UserRepo:      userRepo,
		TokenRepo:     tokenRepo,
		PrincipalRepo: principalRepo,
		TokenManager:  tokenMgr,
		Metrics:       metrics,
		Logger:        logger,
	})

	cookies := auth.NewCookies(cfg.Cookie)
	authMiddleware := auth.NewAuthMiddleware(sessionService, cookies)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService, sessionService, cookies, logger),
		API:            handlers.NewAPIAuthHandler(authService, sessionService, cookies, logger),
		Admin:          handlers.NewAdminHandler(authService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics.Handler(),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
