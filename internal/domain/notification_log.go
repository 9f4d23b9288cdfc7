package domain

import "time"

// NotificationStatus records the send outcome.
type NotificationStatus string

const (
	NotificationStatusSuccess NotificationStatus = "success"
	NotificationStatusFailed  NotificationStatus = "failed"
)

// NotificationType differentiates reminder batches from status-change notices.
type NotificationType string

const (
	NotificationTypeOverdueReminder NotificationType = "overdue_reminder"
	NotificationTypeStatusUpdate    NotificationType = "status_update"
)

// NotificationLog is an append-only audit record of one send attempt.
type NotificationLog struct {
	ID             string
	Type           NotificationType
	RecipientID    string
	RecipientEmail string
	TicketIDs      []string
	SentAt         time.Time
	// SentDate is the YYYY-MM-DD day key, set on reminder batches only.
	SentDate *string
	Status   NotificationStatus
	Error    *string
	Metadata map[string]any
}
