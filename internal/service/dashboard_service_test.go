package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/request-checker/internal/domain"
	apperrors "github.com/spec-kit/request-checker/pkg/util/errorutil"
)

func completedTicket(id string, created time.Time, leadHours int) domain.Ticket {
	t := overdueTicket(id, "p1", day(2024, 1, 1))
	t.Status = domain.TicketStatusCompleted
	t.CreatedAt = created
	done := created.Add(time.Duration(leadHours) * time.Hour)
	t.CompletedAt = &done
	return t
}

func TestAggregate(t *testing.T) {
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, tokyo)
	created := time.Date(2024, 1, 1, 9, 0, 0, 0, tokyo)

	tickets := []domain.Ticket{
		overdueTicket("t1", "p1", day(2024, 1, 9)),
		overdueTicket("t2", "p1", day(2024, 1, 10)),
		completedTicket("t3", created, 24),
		completedTicket("t4", created, 48),
		completedTicket("t5", created, 60), // 2.5 days rounds to 3
	}
	tickets[1].Status = domain.TicketStatusRejected

	stats := Aggregate(tickets, now, tokyo)
	assert.Equal(t, 5, stats.TotalCount)
	assert.Equal(t, 1, stats.OverdueCount)
	assert.Equal(t, 2.0, stats.AverageLeadTimeDays)
	assert.Equal(t, map[domain.TicketStatus]int{
		domain.TicketStatusUnconfirmed:     0,
		domain.TicketStatusConfirmed:       1,
		domain.TicketStatusPendingApproval: 0,
		domain.TicketStatusRejected:        1,
		domain.TicketStatusCompleted:       3,
	}, stats.StatusCounts)

	sum := 0
	for _, n := range stats.StatusCounts {
		sum += n
	}
	assert.Equal(t, stats.TotalCount, sum)
}

func TestAggregateRoundsToOneDecimal(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	stats := Aggregate([]domain.Ticket{
		completedTicket("a", created, 24),
		completedTicket("b", created, 48),
		completedTicket("c", created, 48),
	}, created, time.UTC)
	assert.Equal(t, 1.7, stats.AverageLeadTimeDays)
}

func TestAggregateEmpty(t *testing.T) {
	stats := Aggregate(nil, time.Now(), tokyo)
	assert.Zero(t, stats.TotalCount)
	assert.Zero(t, stats.AverageLeadTimeDays)
	assert.Len(t, stats.StatusCounts, len(domain.TicketStatuses))
}

func TestDashboardStatsIncludesCompleted(t *testing.T) {
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, tokyo)
	repo := newFakeTicketRepo(fixedClock(now))
	repo.put(overdueTicket("t1", "p1", day(2024, 1, 9)))
	repo.put(completedTicket("t2", now.Add(-48*time.Hour), 24))
	svc := NewDashboardService(repo, newFakeLogRepo(), tokyo, fixedClock(now))

	_, err := svc.Stats(context.Background(), salesOne)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	stats, err := svc.Stats(context.Background(), adminUser)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalCount)
	assert.Equal(t, 1, stats.StatusCounts[domain.TicketStatusCompleted])
	assert.Equal(t, 1.0, stats.AverageLeadTimeDays)
	assert.Equal(t, domain.StatusFilterAll, repo.lastFilter.Status)

	_, err = svc.RecentNotifications(context.Background(), partnerOne, 10)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}
