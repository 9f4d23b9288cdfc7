package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/request-checker/internal/service"
	apperrors "github.com/spec-kit/request-checker/pkg/util/errorutil"
)

// ReminderRunner is the job the scheduler triggers.
type ReminderRunner interface {
	Run(ctx context.Context) (service.ReminderReport, error)
}

// ReminderScheduler triggers reminder runs on a cron schedule evaluated in
// the business timezone. It complements, not replaces, the HTTP trigger.
type ReminderScheduler struct {
	cron    *cron.Cron
	runner  ReminderRunner
	logger  *zap.Logger
	timeout time.Duration
}

// NewReminderScheduler parses spec (standard five-field cron) and registers
// the job. Call Start to begin firing.
func NewReminderScheduler(spec string, loc *time.Location, runner ReminderRunner, logger *zap.Logger) (*ReminderScheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ReminderScheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		runner:  runner,
		logger:  logger,
		timeout: 10 * time.Minute,
	}
	if _, err := s.cron.AddFunc(spec, s.fire); err != nil {
		return nil, apperrors.NewValidationError("invalid REMINDER_CRON", map[string]any{"schedule": spec, "reason": err.Error()})
	}
	return s, nil
}

func (s *ReminderScheduler) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	report, err := s.runner.Run(ctx)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeAlreadyProcessed) {
			s.logger.Info("scheduled reminder run skipped", zap.Error(err))
			return
		}
		s.logger.Error("scheduled reminder run failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled reminder run",
		zap.String("day", report.Day),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped))
}

// Start begins the schedule in its own goroutine.
func (s *ReminderScheduler) Start() {
	s.cron.Start()
	for _, entry := range s.cron.Entries() {
		s.logger.Info("reminder schedule active", zap.Time("next_run", entry.Next))
	}
}

// Stop halts the schedule and waits for a running job until ctx ends.
func (s *ReminderScheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("reminder job still running at shutdown")
	}
}
