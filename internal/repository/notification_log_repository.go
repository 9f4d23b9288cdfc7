package repository

import (
	"context"

	"github.com/spec-kit/request-checker/internal/domain"
)

// NotificationLogRepository stores the append-only notification audit trail
// and the per-day reminder claims.
type NotificationLogRepository interface {
	Append(ctx context.Context, entry *domain.NotificationLog) error
	// ClaimReminderSlot atomically reserves the (recipient, day) reminder slot.
	// It returns false when the slot was already taken.
	ClaimReminderSlot(ctx context.Context, recipientID, sentDate string) (bool, error)
	ListRecent(ctx context.Context, limit int) ([]domain.NotificationLog, error)
}

type notificationLogRepository struct {
	db DBTX
}

// NewNotificationLogRepository builds repository.
func NewNotificationLogRepository(db DBTX) NotificationLogRepository {
	return &notificationLogRepository{db: db}
}

func (r *notificationLogRepository) Append(ctx context.Context, entry *domain.NotificationLog) error {
	const query = `
        INSERT INTO notification_logs (type, recipient_id, recipient_email, ticket_ids, sent_at, sent_date, status, error, metadata)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id::text`
	ticketIDs := entry.TicketIDs
	if ticketIDs == nil {
		ticketIDs = []string{}
	}
	return r.db.QueryRow(ctx, query,
		entry.Type,
		entry.RecipientID,
		entry.RecipientEmail,
		ticketIDs,
		entry.SentAt,
		entry.SentDate,
		entry.Status,
		entry.Error,
		entry.Metadata,
	).Scan(&entry.ID)
}

func (r *notificationLogRepository) ClaimReminderSlot(ctx context.Context, recipientID, sentDate string) (bool, error) {
	const query = `
        INSERT INTO reminder_claims (recipient_id, sent_date)
        VALUES ($1,$2)
        ON CONFLICT (recipient_id, sent_date) DO NOTHING`
	cmd, err := r.db.Exec(ctx, query, recipientID, sentDate)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *notificationLogRepository) ListRecent(ctx context.Context, limit int) ([]domain.NotificationLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const query = `
        SELECT id::text, type, recipient_id, recipient_email, ticket_ids, sent_at, sent_date, status, error, metadata
        FROM notification_logs ORDER BY sent_at DESC LIMIT $1`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.NotificationLog{}
	for rows.Next() {
		var entry domain.NotificationLog
		if err := rows.Scan(
			&entry.ID,
			&entry.Type,
			&entry.RecipientID,
			&entry.RecipientEmail,
			&entry.TicketIDs,
			&entry.SentAt,
			&entry.SentDate,
			&entry.Status,
			&entry.Error,
			&entry.Metadata,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
