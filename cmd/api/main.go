package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/signal-service/internal/api/http"
	"github.com/spec-kit/signal-service/internal/api/http/handlers"
	"github.com/spec-kit/signal-service/internal/auth"
	"github.com/spec-kit/signal-service/internal/citycontrol"
	"github.com/spec-kit/signal-service/internal/config"
	"github.com/spec-kit/signal-service/internal/events"
	"github.com/spec-kit/signal-service/internal/observability"
	"github.com/spec-kit/signal-service/internal/persistence"
	"github.com/spec-kit/signal-service/internal/repository"
	"github.com/spec-kit/signal-service/internal/service"
	"github.com/spec-kit/signal-service/internal/worker"
	"github.com/spec-kit/signal-service/internal/workflow"
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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	agentRepo := repository.NewAgentRepository(pool)
	signalRepo := repository.NewSignalRepository(pool)
	statusRepo := repository.NewStatusRepository(pool)
	roundTripRepo := repository.NewRoundTripRepository(pool)

	dispatcher := events.NewDispatcher(logger)
	defer dispatcher.Close()

	engine := workflow.NewEngine(statusRepo, dispatcher, logger)

	signalService := service.NewSignalService(service.SignalDependencies{
		SignalRepo:    signalRepo,
		RoundTripRepo: roundTripRepo,
		Engine:        engine,
		Dispatcher:    dispatcher,
	})
	authService := service.NewAuthService(*cfg, agentRepo)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)

	locker := citycontrol.NewRedisLocker(redis.Client, cfg.CityControl.Timeout()*2)
	outgoing, err := citycontrol.NewOutgoingBridge(
		cfg.CityControl,
		signalRepo,
		roundTripRepo,
		citycontrol.NewSummaryRenderer(),
		locker,
		logger,
	)
	if err != nil {
		logger.Fatal("failed to init citycontrol bridge", zap.Error(err))
	}
	incoming := citycontrol.NewIncomingBridge(engine, signalRepo, roundTripRepo, logger)

	metrics := observability.NewMetrics()

	retry := citycontrol.RetryPolicy{
		MaxAttempts: cfg.CityControl.RetryMaxAttempts,
		Backoff:     cfg.CityControl.RetryBackoff(),
	}
	dispatchWorker := worker.NewDispatchWorker(outgoing, signalRepo, engine, retry, metrics, logger)
	dispatchWorker.Register(dispatcher)
	worker.StartNotificationWorker(notificationService)

	recovery := citycontrol.NewStuckRecovery(signalRepo, engine, logger)
	worker.StartSweepLoop(ctx, recovery, cfg.CityControl.SweepInterval(), cfg.CityControl.StuckTimeout(), logger)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), agentRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Agents:         handlers.NewAgentsHandler(authService),
		Signals:        handlers.NewSignalsHandler(signalService),
		Soap:           handlers.NewSoapHandler(incoming, metrics),
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
