package repository

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/request-checker/internal/domain"
)

func TestClaimReminderSlot(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewNotificationLogRepository(mock)

	mock.ExpectExec("INSERT INTO reminder_claims").
		WithArgs("partner-1", "2024-01-02").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO reminder_claims").
		WithArgs("partner-1", "2024-01-02").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	claimed, err := repo.ClaimReminderSlot(context.Background(), "partner-1", "2024-01-02")
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.ClaimReminderSlot(context.Background(), "partner-1", "2024-01-02")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendNotificationLog(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewNotificationLogRepository(mock)

	sentAt := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	errText := "smtp timeout"
	entry := &domain.NotificationLog{
		Type:           domain.NotificationTypeStatusUpdate,
		RecipientID:    "sales-1",
		RecipientEmail: "s1@example.com",
		TicketIDs:      []string{testTicketID},
		SentAt:         sentAt,
		Status:         domain.NotificationStatusFailed,
		Error:          &errText,
		Metadata:       map[string]any{"newStatus": "confirmed", "updatedBy": "partner-1"},
	}

	mock.ExpectQuery("INSERT INTO notification_logs").
		WithArgs(domain.NotificationTypeStatusUpdate, "sales-1", "s1@example.com", []string{testTicketID},
			sentAt, (*string)(nil), domain.NotificationStatusFailed, &errText, entry.Metadata).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("log-1"))

	require.NoError(t, repo.Append(context.Background(), entry))
	assert.Equal(t, "log-1", entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
