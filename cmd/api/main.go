package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/request-checker/internal/api/http"
	"github.com/spec-kit/request-checker/internal/api/http/handlers"
	"github.com/spec-kit/request-checker/internal/auth"
	"github.com/spec-kit/request-checker/internal/config"
	"github.com/spec-kit/request-checker/internal/events"
	"github.com/spec-kit/request-checker/internal/notification"
	"github.com/spec-kit/request-checker/internal/observability"
	"github.com/spec-kit/request-checker/internal/persistence"
	"github.com/spec-kit/request-checker/internal/repository"
	"github.com/spec-kit/request-checker/internal/service"
	"github.com/spec-kit/request-checker/internal/worker"
	"github.com/spec-kit/request-checker/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	loc, err := cfg.App.Location()
	if err != nil {
		logger.Fatal("invalid timezone", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), migrations.FS, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	sender, err := notification.NewSender(cfg.SMTP, logger)
	if err != nil {
		logger.Fatal("failed to configure mailer", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool, loc)
	userRepo := repository.NewUserRepository(pool)
	logRepo := repository.NewNotificationLogRepository(pool)

	userService := service.NewUserService(userRepo, logger)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:        ticketRepo,
		UserRepo:          userRepo,
		Dispatcher:        dispatcher,
		Logger:            logger,
		Location:          loc,
		StrictTransitions: cfg.Workflow.StrictTransitions,
	})
	dashboardService := service.NewDashboardService(ticketRepo, logRepo, loc, nil)
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		TicketRepo: ticketRepo,
		UserRepo:   userRepo,
		LogRepo:    logRepo,
		Sender:     sender,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})
	reminderService := service.NewReminderService(service.ReminderDependencies{
		TicketRepo: ticketRepo,
		UserRepo:   userRepo,
		LogRepo:    logRepo,
		Sender:     sender,
		Lock:       persistence.NewJobLock(redis.Client),
		LockTTL:    cfg.Reminder.LockTTL(),
		Logger:     logger,
		Metrics:    metrics,
		Location:   loc,
	})

	worker.StartNotificationWorker(notificationService)

	var scheduler *worker.ReminderScheduler
	if cfg.Reminder.Schedule != "" {
		scheduler, err = worker.NewReminderScheduler(cfg.Reminder.Schedule, loc, reminderService, logger)
		if err != nil {
			logger.Fatal("invalid reminder schedule", zap.Error(err))
		}
		scheduler.Start()
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, userService)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthDeps := handlers.HealthDependencies{
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
		Postgres:    pg,
		Redis:       redis,
		Metrics:     metrics,
	}
	if verifier, ok := sender.(handlers.Verifier); ok {
		healthDeps.Mailer = verifier
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:             handlers.NewHealthHandler(healthDeps),
		Internal:           handlers.NewInternalHandler(reminderService, notificationService, logger),
		Tickets:            handlers.NewTicketsHandler(ticketService, loc),
		Users:              handlers.NewUsersHandler(userService),
		Dashboard:          handlers.NewDashboardHandler(dashboardService),
		AuthMiddleware:     authMiddleware,
		InternalSecretHash: cfg.Auth.InternalSecretHash,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	_ = app.ShutdownWithContext(shutdownCtx)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
