package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/request-checker/internal/domain"
	"github.com/spec-kit/request-checker/internal/observability"
	apperrors "github.com/spec-kit/request-checker/pkg/util/errorutil"
)

type reminderFixture struct {
	tickets *fakeTicketRepo
	users   *fakeUserRepo
	logs    *fakeLogRepo
	sender  *fakeSender
	metrics *observability.Metrics
	service *ReminderService
}

// 2024-01-10 08:30 in Tokyo is still 2024-01-09 in UTC.
var reminderNow = time.Date(2024, 1, 10, 8, 30, 0, 0, tokyo)

func newReminderFixture(lock Locker) *reminderFixture {
	f := &reminderFixture{
		tickets: newFakeTicketRepo(fixedClock(reminderNow)),
		users: newFakeUserRepo(
			domain.User{ID: "p1", Email: "p1@partner.example", DisplayName: "Partner One", Role: domain.UserRolePartner},
		),
		logs:    newFakeLogRepo(),
		sender:  newFakeSender(),
		metrics: observability.NewMetrics(),
	}
	f.service = NewReminderService(ReminderDependencies{
		TicketRepo: f.tickets,
		UserRepo:   f.users,
		LogRepo:    f.logs,
		Sender:     f.sender,
		Lock:       lock,
		Metrics:    f.metrics,
		Location:   tokyo,
		Clock:      fixedClock(reminderNow),
	})
	return f
}

func TestReminderRunWithoutOverdueTickets(t *testing.T) {
	f := newReminderFixture(nil)
	f.tickets.put(overdueTicket("t1", "p1", day(2024, 1, 10)))
	done := overdueTicket("t2", "p1", day(2024, 1, 1))
	done.Status = domain.TicketStatusCompleted
	f.tickets.put(done)

	report, err := f.service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10", report.Day)
	assert.Zero(t, report.Attempted)
	assert.Zero(t, report.Succeeded)
	assert.Empty(t, report.Results)
	assert.Empty(t, f.logs.entries)
	assert.Empty(t, f.sender.sent)
}

func TestReminderRunGroupsByAssignee(t *testing.T) {
	f := newReminderFixture(nil)
	f.tickets.put(overdueTicket("t1", "p1", day(2024, 1, 8)))
	f.tickets.put(overdueTicket("t2", "p2", day(2024, 1, 3)))
	f.tickets.put(overdueTicket("t3", "p1", day(2024, 1, 2)))
	f.tickets.put(overdueTicket("t4", "p1", day(2024, 1, 10)))

	report, err := f.service.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.OverdueCount)
	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 2, report.Succeeded)
	assert.Zero(t, report.Failed)
	require.Len(t, report.Results, 2)
	assert.Equal(t, ReminderResult{UserID: "p1", Email: "p1@partner.example", TicketCount: 2, Success: true}, report.Results[0])
	assert.Equal(t, "p2", report.Results[1].UserID)

	require.Len(t, f.sender.sent, 2)
	assert.Equal(t, "p1@partner.example", f.sender.sent[0].To)
	assert.Contains(t, f.sender.sent[0].Content.Text, "Partner One 様")
	assert.Contains(t, f.sender.sent[0].Content.Subject, "(2件)")
	// No user record for p2, so the email stands in for the name.
	assert.Contains(t, f.sender.sent[1].Content.Text, "p2@partner.example 様")

	require.Len(t, f.logs.entries, 2)
	entry := f.logs.entries[0]
	assert.Equal(t, domain.NotificationTypeOverdueReminder, entry.Type)
	assert.Equal(t, []string{"t3", "t1"}, entry.TicketIDs)
	require.NotNil(t, entry.SentDate)
	assert.Equal(t, "2024-01-10", *entry.SentDate)
	assert.Equal(t, domain.NotificationStatusSuccess, entry.Status)
}

func TestReminderRunIsIdempotentWithinDay(t *testing.T) {
	f := newReminderFixture(nil)
	f.tickets.put(overdueTicket("t1", "p1", day(2024, 1, 8)))
	f.tickets.put(overdueTicket("t2", "p2", day(2024, 1, 8)))

	_, err := f.service.Run(context.Background())
	require.NoError(t, err)

	report, err := f.service.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Attempted)
	assert.Equal(t, 2, report.Skipped)
	assert.Zero(t, report.Succeeded)
	assert.Zero(t, report.Failed)
	for _, r := range report.Results {
		assert.True(t, r.Skipped)
		assert.False(t, r.Success)
		assert.Equal(t, AlreadySentToday, r.Error)
	}
	assert.Len(t, f.sender.sent, 2)
	assert.Len(t, f.logs.entries, 2)
	assert.Equal(t, int64(2), f.metrics.Snapshot().Notifications["overdue_reminder|skipped"])
}

func TestReminderRunCountsSkipsApartFromAttempts(t *testing.T) {
	f := newReminderFixture(nil)
	f.tickets.put(overdueTicket("t1", "p1", day(2024, 1, 8)))
	f.tickets.put(overdueTicket("t2", "p2", day(2024, 1, 8)))
	claimed, err := f.logs.ClaimReminderSlot(context.Background(), "p1", "2024-01-10")
	require.NoError(t, err)
	require.True(t, claimed)

	report, err := f.service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Attempted)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Results, 2)
	assert.True(t, report.Results[0].Skipped)
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "p2@partner.example", f.sender.sent[0].To)
}

func TestReminderRunIsolatesFailures(t *testing.T) {
	f := newReminderFixture(nil)
	f.tickets.put(overdueTicket("t1", "p1", day(2024, 1, 8)))
	f.tickets.put(overdueTicket("t2", "p2", day(2024, 1, 9)))
	f.sender.fail["p1@partner.example"] = errors.New("mailbox unavailable")

	report, err := f.service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, "mailbox unavailable", report.Results[0].Error)

	require.Len(t, f.logs.entries, 2)
	failed := f.logs.entries[0]
	assert.Equal(t, domain.NotificationStatusFailed, failed.Status)
	require.NotNil(t, failed.Error)
	assert.Equal(t, "mailbox unavailable", *failed.Error)

	// A failed send still consumes the day's slot.
	report, err = f.service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Skipped)
}

func TestReminderRunClaimFailureIsPerRecipient(t *testing.T) {
	f := newReminderFixture(nil)
	f.tickets.put(overdueTicket("t1", "p1", day(2024, 1, 8)))
	f.logs.claimErr = errStoreDown

	report, err := f.service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.NotEmpty(t, report.Results[0].Error)
	assert.Empty(t, f.sender.sent)
}

func TestReminderRunRespectsLock(t *testing.T) {
	lock := &fakeLocker{held: map[string]bool{"reminders:lock:2024-01-10": true}}
	f := newReminderFixture(lock)
	f.tickets.put(overdueTicket("t1", "p1", day(2024, 1, 8)))

	_, err := f.service.Run(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAlreadyProcessed))
	assert.Empty(t, f.sender.sent)

	lock.held = nil
	report, err := f.service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, lock.released)
}

func TestReminderRunDegradesWhenLockUnavailable(t *testing.T) {
	f := newReminderFixture(&fakeLocker{err: errors.New("redis down")})
	f.tickets.put(overdueTicket("t1", "p1", day(2024, 1, 8)))

	report, err := f.service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
}
