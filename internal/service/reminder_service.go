package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/request-checker/internal/dateutil"
	"github.com/spec-kit/request-checker/internal/domain"
	"github.com/spec-kit/request-checker/internal/notification"
	"github.com/spec-kit/request-checker/internal/observability"
	"github.com/spec-kit/request-checker/internal/repository"
	apperrors "github.com/spec-kit/request-checker/pkg/util/errorutil"
)

// AlreadySentToday marks a recipient skipped by the daily dedup.
const AlreadySentToday = "Already sent today"

// Locker guards a run against overlapping triggers.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, acquired bool, err error)
}

// ReminderResult is the outcome for one assignee.
type ReminderResult struct {
	UserID      string
	Email       string
	TicketCount int
	Success     bool
	Skipped     bool
	Error       string
}

// ReminderReport aggregates a reminder run. Attempted counts recipients whose
// daily claim succeeded; already-sent recipients only count as Skipped.
type ReminderReport struct {
	Day          string
	OverdueCount int
	Attempted    int
	Succeeded    int
	Failed       int
	Skipped      int
	Results      []ReminderResult
}

// ReminderDependencies bundles collaborators for the reminder job.
type ReminderDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	LogRepo    repository.NotificationLogRepository
	Sender     notification.Sender
	// Lock is optional; the per-day claim alone keeps sends unique.
	Lock     Locker
	LockTTL  time.Duration
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Location *time.Location
	Clock    func() time.Time
}

// ReminderService sends the daily overdue digest to each assignee at most
// once per calendar day.
type ReminderService struct {
	tickets repository.TicketRepository
	users   repository.UserRepository
	logs    repository.NotificationLogRepository
	sender  notification.Sender
	lock    Locker
	lockTTL time.Duration
	logger  *zap.Logger
	metrics *observability.Metrics
	loc     *time.Location
	now     func() time.Time
}

// NewReminderService constructs the service.
func NewReminderService(deps ReminderDependencies) *ReminderService {
	s := &ReminderService{
		tickets: deps.TicketRepo,
		users:   deps.UserRepo,
		logs:    deps.LogRepo,
		sender:  deps.Sender,
		lock:    deps.Lock,
		lockTTL: deps.LockTTL,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		loc:     deps.Location,
		now:     deps.Clock,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.lockTTL <= 0 {
		s.lockTTL = 10 * time.Minute
	}
	return s
}

type reminderGroup struct {
	partnerID string
	email     string
	tickets   []domain.Ticket
}

// Run executes one reminder pass. Per-recipient failures are reported in
// the results and never abort the run.
func (s *ReminderService) Run(ctx context.Context) (ReminderReport, error) {
	now := s.now()
	report := ReminderReport{Day: dateutil.DayKey(now, s.loc), Results: []ReminderResult{}}

	release, err := s.acquire(ctx, report.Day)
	if err != nil {
		return report, err
	}
	if release != nil {
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("release reminder lock", zap.Error(err))
			}
		}()
	}

	open, err := s.tickets.ListIncomplete(ctx)
	if err != nil {
		return report, apperrors.MapError(err)
	}
	groups := groupOverdue(open, now, s.loc)
	for _, g := range groups {
		report.OverdueCount += len(g.tickets)
	}
	if len(groups) == 0 {
		s.logger.Info("no overdue tickets", zap.String("day", report.Day))
		return report, nil
	}

	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("reminder run interrupted", zap.Int("processed", len(report.Results)), zap.Error(err))
			break
		}
		result := s.remind(ctx, g, report.Day, now)
		report.Results = append(report.Results, result)
		if result.Skipped {
			report.Skipped++
			s.metrics.RecordNotification(string(domain.NotificationTypeOverdueReminder), "skipped")
			continue
		}
		report.Attempted++
		switch {
		case result.Success:
			report.Succeeded++
			s.metrics.RecordNotification(string(domain.NotificationTypeOverdueReminder), "success")
		default:
			report.Failed++
			s.metrics.RecordNotification(string(domain.NotificationTypeOverdueReminder), "failed")
		}
	}

	s.logger.Info("reminder run finished",
		zap.String("day", report.Day),
		zap.Int("attempted", report.Attempted),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped))
	return report, nil
}

func (s *ReminderService) acquire(ctx context.Context, day string) (func(context.Context) error, error) {
	if s.lock == nil {
		return nil, nil
	}
	release, acquired, err := s.lock.Acquire(ctx, "reminders:lock:"+day, s.lockTTL)
	if err != nil {
		s.logger.Warn("reminder lock unavailable, relying on daily claims", zap.Error(err))
		return nil, nil
	}
	if !acquired {
		return nil, apperrors.NewAlreadyProcessed("a reminder run is already in progress")
	}
	return release, nil
}

// groupOverdue keeps first-seen assignee order so output follows the
// repository's deadline ordering.
func groupOverdue(tickets []domain.Ticket, now time.Time, loc *time.Location) []*reminderGroup {
	groups := []*reminderGroup{}
	byPartner := map[string]*reminderGroup{}
	for _, t := range tickets {
		if t.Status == domain.TicketStatusCompleted || !dateutil.IsOverdue(t.Deadline, now, loc) {
			continue
		}
		g, ok := byPartner[t.AssignedPartnerID]
		if !ok {
			g = &reminderGroup{partnerID: t.AssignedPartnerID, email: t.AssignedPartnerEmail}
			byPartner[t.AssignedPartnerID] = g
			groups = append(groups, g)
		}
		g.tickets = append(g.tickets, t)
	}
	return groups
}

func (s *ReminderService) remind(ctx context.Context, g *reminderGroup, day string, now time.Time) ReminderResult {
	result := ReminderResult{UserID: g.partnerID, Email: g.email, TicketCount: len(g.tickets)}
	logger := s.logger.With(zap.String("recipient_id", g.partnerID), zap.String("day", day))

	claimed, err := s.logs.ClaimReminderSlot(ctx, g.partnerID, day)
	if err != nil {
		logger.Error("claim reminder slot", zap.Error(err))
		result.Error = apperrors.MapError(err).Error()
		return result
	}
	if !claimed {
		logger.Info("reminder already sent today")
		result.Skipped = true
		result.Error = AlreadySentToday
		return result
	}

	sendErr := s.deliver(ctx, g)
	entry := &domain.NotificationLog{
		Type:           domain.NotificationTypeOverdueReminder,
		RecipientID:    g.partnerID,
		RecipientEmail: g.email,
		TicketIDs:      ticketIDs(g.tickets),
		SentAt:         now,
		SentDate:       &day,
		Status:         domain.NotificationStatusSuccess,
	}
	if sendErr != nil {
		msg := errorMessage(sendErr)
		entry.Status = domain.NotificationStatusFailed
		entry.Error = &msg
		result.Error = msg
		logger.Warn("reminder send failed", zap.Error(sendErr))
	} else {
		result.Success = true
	}

	if err := s.logs.Append(ctx, entry); err != nil {
		logger.Error("append notification log", zap.Error(err))
		if result.Success {
			result.Success = false
			result.Error = apperrors.MapError(err).Error()
		}
	}
	return result
}

func (s *ReminderService) deliver(ctx context.Context, g *reminderGroup) error {
	name := g.email
	user, err := s.users.GetByID(ctx, g.partnerID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if user != nil && user.DisplayName != "" {
		name = user.DisplayName
	}

	content, err := notification.OverdueReminder(name, g.tickets)
	if err != nil {
		return err
	}
	return s.sender.Send(ctx, g.email, content)
}

func ticketIDs(tickets []domain.Ticket) []string {
	ids := make([]string, 0, len(tickets))
	for _, t := range tickets {
		ids = append(ids, t.ID)
	}
	return ids
}

// errorMessage prefers the transport's own message over the wrapper's.
func errorMessage(err error) string {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) && domainErr.Err != nil {
		return domainErr.Err.Error()
	}
	return err.Error()
}
