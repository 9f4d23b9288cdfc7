// Command reminders runs the overdue reminder job once and exits. It is
// meant for external schedulers that prefer a process over an HTTP call.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/spec-kit/request-checker/internal/config"
	"github.com/spec-kit/request-checker/internal/notification"
	"github.com/spec-kit/request-checker/internal/observability"
	"github.com/spec-kit/request-checker/internal/persistence"
	"github.com/spec-kit/request-checker/internal/repository"
	"github.com/spec-kit/request-checker/internal/service"
	apperrors "github.com/spec-kit/request-checker/pkg/util/errorutil"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup and log flushing
// happen before main exits.
func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return 1
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Printf("failed to init logger: %v", err)
		return 1
	}
	defer logger.Sync() //nolint:errcheck

	loc, err := cfg.App.Location()
	if err != nil {
		logger.Error("invalid timezone", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect postgres", zap.Error(err))
		return 1
	}
	defer pg.Close()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	sender, err := notification.NewSender(cfg.SMTP, logger)
	if err != nil {
		logger.Error("failed to configure mailer", zap.Error(err))
		return 1
	}

	pool := pg.PoolHandle()
	reminders := service.NewReminderService(service.ReminderDependencies{
		TicketRepo: repository.NewTicketRepository(pool, loc),
		UserRepo:   repository.NewUserRepository(pool),
		LogRepo:    repository.NewNotificationLogRepository(pool),
		Sender:     sender,
		Lock:       persistence.NewJobLock(redis.Client),
		LockTTL:    cfg.Reminder.LockTTL(),
		Logger:     logger,
		Location:   loc,
	})

	report, err := reminders.Run(ctx)
	return exitCode(logger, report, err)
}

func exitCode(logger *zap.Logger, report service.ReminderReport, err error) int {
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeAlreadyProcessed) {
			logger.Info("reminder run already in progress")
			return 0
		}
		logger.Error("reminder run failed", zap.Error(err))
		return 1
	}

	logger.Info("reminder run finished",
		zap.String("day", report.Day),
		zap.Int("overdue", report.OverdueCount),
		zap.Int("attempted", report.Attempted),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
	)
	if report.Failed > 0 {
		return 1
	}
	return 0
}
