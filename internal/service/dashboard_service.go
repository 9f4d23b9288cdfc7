package service

import (
	"context"
	"math"
	"time"

	"github.com/spec-kit/request-checker/internal/auth"
	"github.com/spec-kit/request-checker/internal/dateutil"
	"github.com/spec-kit/request-checker/internal/domain"
	"github.com/spec-kit/request-checker/internal/repository"
	apperrors "github.com/spec-kit/request-checker/pkg/util/errorutil"
)

// DashboardStats summarizes a ticket set for the admin view.
type DashboardStats struct {
	TotalCount          int
	OverdueCount        int
	StatusCounts        map[domain.TicketStatus]int
	AverageLeadTimeDays float64
}

// Aggregate computes dashboard figures. Every status key is present, and
// lead time is rounded to one decimal place.
func Aggregate(tickets []domain.Ticket, now time.Time, loc *time.Location) DashboardStats {
	stats := DashboardStats{
		TotalCount:   len(tickets),
		StatusCounts: make(map[domain.TicketStatus]int, len(domain.TicketStatuses)),
	}
	for _, status := range domain.TicketStatuses {
		stats.StatusCounts[status] = 0
	}

	leadTotal, completed := 0, 0
	for _, t := range tickets {
		stats.StatusCounts[t.Status]++
		if t.Status != domain.TicketStatusCompleted && dateutil.IsOverdue(t.Deadline, now, loc) {
			stats.OverdueCount++
		}
		if t.Status == domain.TicketStatusCompleted && t.CompletedAt != nil {
			leadTotal += dateutil.DaysBetween(t.CreatedAt, *t.CompletedAt)
			completed++
		}
	}
	if completed > 0 {
		stats.AverageLeadTimeDays = math.Round(float64(leadTotal)/float64(completed)*10) / 10
	}
	return stats
}

// DashboardService serves admin-only summaries.
type DashboardService struct {
	tickets repository.TicketRepository
	logs    repository.NotificationLogRepository
	loc     *time.Location
	now     func() time.Time
}

// NewDashboardService constructs the service. clock may be nil.
func NewDashboardService(tickets repository.TicketRepository, logs repository.NotificationLogRepository, loc *time.Location, clock func() time.Time) *DashboardService {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = time.Now
	}
	return &DashboardService{tickets: tickets, logs: logs, loc: loc, now: clock}
}

// Stats aggregates every ticket, completed ones included.
func (s *DashboardService) Stats(ctx context.Context, user *domain.User) (DashboardStats, error) {
	if !auth.CanViewDashboard(user) {
		return DashboardStats{}, apperrors.NewForbidden("admin role required")
	}
	tickets, err := s.tickets.List(ctx, domain.TicketFilter{Status: domain.StatusFilterAll}, user)
	if err != nil {
		return DashboardStats{}, apperrors.MapError(err)
	}
	return Aggregate(tickets, s.now(), s.loc), nil
}

// RecentNotifications returns the latest notification log entries.
func (s *DashboardService) RecentNotifications(ctx context.Context, user *domain.User, limit int) ([]domain.NotificationLog, error) {
	if !auth.CanViewDashboard(user) {
		return nil, apperrors.NewForbidden("admin role required")
	}
	entries, err := s.logs.ListRecent(ctx, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}
